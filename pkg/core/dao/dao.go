package dao

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/core/storage"
	"github.com/nspcc-dev/kittychain/pkg/io"
	"github.com/nspcc-dev/kittychain/pkg/util"
)

// ErrAlreadyExists is returned when the block being stored is already in
// the DB.
var ErrAlreadyExists = errors.New("already exists")

// Simple is memCached wrapper around DB, simple DAO implementation.
type Simple struct {
	Store *storage.MemCachedStore
}

// NewSimple creates new simple dao using provided backend store.
func NewSimple(backend storage.Store) *Simple {
	return &Simple{Store: storage.NewMemCachedStore(backend)}
}

// GetWrapped returns a new DAO instance with another layer of wrapped
// MemCachedStore around the current DAO Store. Changes made to it are only
// visible to this DAO after Persist.
func (dao *Simple) GetWrapped() *Simple {
	return NewSimple(dao.Store)
}

// Persist flushes all the changes made into the lower layer.
func (dao *Simple) Persist() (int, error) {
	return dao.Store.Persist()
}

// GetAndDecode performs get operation and decoding with serializable structures.
func (dao *Simple) GetAndDecode(entity io.Serializable, key []byte) error {
	entityBytes, err := dao.Store.Get(key)
	if err != nil {
		return err
	}
	reader := io.NewBinReaderFromBuf(entityBytes)
	entity.DecodeBinary(reader)
	return reader.Err
}

// Put performs put operation with serializable structures.
func (dao *Simple) Put(entity io.Serializable, key []byte) error {
	buf := io.NewBufBinWriter()
	entity.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	dao.Store.Put(key, buf.Bytes())
	return nil
}

func makeIndexKey(prefix storage.KeyPrefix, index uint32) []byte {
	key := make([]byte, 5)
	key[0] = byte(prefix)
	binary.BigEndian.PutUint32(key[1:], index)
	return key
}

// -- start kitties.

// GetKitty returns the kitty with the given DNA or storage.ErrKeyNotFound.
func (dao *Simple) GetKitty(id state.DNA) (*state.Kitty, error) {
	k := new(state.Kitty)
	err := dao.GetAndDecode(k, storage.AppendPrefix(storage.STKitty, id[:]))
	if err != nil {
		return nil, err
	}
	return k, nil
}

// PutKitty saves the kitty record.
func (dao *Simple) PutKitty(k *state.Kitty) error {
	return dao.Put(k, storage.AppendPrefix(storage.STKitty, k.DNA[:]))
}

// SeekKitties iterates over kitty records in DNA order starting from the
// given DNA (inclusive, nil means the first one) until f returns false.
func (dao *Simple) SeekKitties(start *state.DNA, f func(k *state.Kitty) bool) error {
	var (
		rng  = storage.SeekRange{Prefix: storage.STKitty.Bytes()}
		derr error
	)
	if start != nil {
		rng.Start = start[:]
	}
	dao.Store.Seek(rng, func(_, v []byte) bool {
		k := new(state.Kitty)
		r := io.NewBinReaderFromBuf(v)
		k.DecodeBinary(r)
		if r.Err != nil {
			derr = fmt.Errorf("bad kitty record: %w", r.Err)
			return false
		}
		return f(k)
	})
	return derr
}

// GetOwnedKitties returns the list of kitties owned by acc, it's empty for
// unknown accounts.
func (dao *Simple) GetOwnedKitties(acc util.Uint160) (state.OwnedKitties, error) {
	var owned state.OwnedKitties
	err := dao.GetAndDecode(&owned, storage.AppendPrefix(storage.STOwnedKitties, acc.BytesBE()))
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, err
	}
	return owned, nil
}

// PutOwnedKitties saves the list of kitties owned by acc. Empty lists are
// deleted.
func (dao *Simple) PutOwnedKitties(acc util.Uint160, owned state.OwnedKitties) error {
	key := storage.AppendPrefix(storage.STOwnedKitties, acc.BytesBE())
	if len(owned) == 0 {
		dao.Store.Delete(key)
		return nil
	}
	return dao.Put(&owned, key)
}

// GetKittyCount returns the number of kitties ever minted.
func (dao *Simple) GetKittyCount() (uint64, error) {
	b, err := dao.Store.Get(storage.STKittyCount.Bytes())
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("bad kitty count length %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

// PutKittyCount saves the number of kitties ever minted.
func (dao *Simple) PutKittyCount(n uint64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, n)
	dao.Store.Put(storage.STKittyCount.Bytes(), b)
}

// -- end kitties.

// -- start balances.

func (dao *Simple) getAmount(key []byte) (*uint256.Int, error) {
	b, err := dao.Store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return new(uint256.Int), nil
		}
		return nil, err
	}
	r := io.NewBinReaderFromBuf(b)
	a := state.DecodeAmount(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return a, nil
}

func (dao *Simple) putAmount(key []byte, a *uint256.Int) {
	if a.IsZero() {
		dao.Store.Delete(key)
		return
	}
	b := a.Bytes32()
	dao.Store.Put(key, b[:])
}

// GetBalance returns the balance of acc, zero for unknown accounts.
func (dao *Simple) GetBalance(acc util.Uint160) (*uint256.Int, error) {
	return dao.getAmount(storage.AppendPrefix(storage.STBalance, acc.BytesBE()))
}

// PutBalance saves the balance of acc, zero balance removes the account.
func (dao *Simple) PutBalance(acc util.Uint160, a *uint256.Int) {
	dao.putAmount(storage.AppendPrefix(storage.STBalance, acc.BytesBE()), a)
}

// GetTotalIssuance returns the sum of all balances.
func (dao *Simple) GetTotalIssuance() (*uint256.Int, error) {
	return dao.getAmount(storage.STTotalIssuance.Bytes())
}

// PutTotalIssuance saves the sum of all balances.
func (dao *Simple) PutTotalIssuance(a *uint256.Int) {
	dao.putAmount(storage.STTotalIssuance.Bytes(), a)
}

// -- end balances.

// -- start blocks.

// GetBlock returns the block with the given index.
func (dao *Simple) GetBlock(index uint32) (*state.Block, error) {
	b := new(state.Block)
	err := dao.GetAndDecode(b, makeIndexKey(storage.DataBlock, index))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetExecLog returns the results of all calls of the block with the given
// index.
func (dao *Simple) GetExecLog(index uint32) (state.ExecLog, error) {
	var l state.ExecLog
	err := dao.GetAndDecode(&l, makeIndexKey(storage.DataExecLog, index))
	if err != nil {
		return nil, err
	}
	return l, nil
}

// StoreAsBlock stores the block with its execution log.
func (dao *Simple) StoreAsBlock(b *state.Block, l state.ExecLog) error {
	key := makeIndexKey(storage.DataBlock, b.Index)
	if _, err := dao.Store.Get(key); err == nil {
		return fmt.Errorf("block %d: %w", b.Index, ErrAlreadyExists)
	}
	if err := dao.Put(b, key); err != nil {
		return err
	}
	return dao.Put(&l, makeIndexKey(storage.DataExecLog, b.Index))
}

// StoreAsCurrentBlock stores the block index and hash as the latest ones.
func (dao *Simple) StoreAsCurrentBlock(b *state.Block) {
	buf := make([]byte, util.Uint256Size+4)
	h := b.Hash()
	copy(buf, h[:])
	binary.LittleEndian.PutUint32(buf[util.Uint256Size:], b.Index)
	dao.Store.Put(storage.SYSCurrentBlock.Bytes(), buf)
}

// GetCurrentBlockHeight returns the index and hash of the latest block.
func (dao *Simple) GetCurrentBlockHeight() (uint32, util.Uint256, error) {
	var h util.Uint256
	b, err := dao.Store.Get(storage.SYSCurrentBlock.Bytes())
	if err != nil {
		return 0, h, err
	}
	if len(b) != util.Uint256Size+4 {
		return 0, h, fmt.Errorf("bad current block record length %d", len(b))
	}
	copy(h[:], b)
	return binary.LittleEndian.Uint32(b[util.Uint256Size:]), h, nil
}

// -- end blocks.

// GetVersion attempts to get the current version stored in the
// underlying store.
func (dao *Simple) GetVersion() (string, error) {
	version, err := dao.Store.Get(storage.SYSVersion.Bytes())
	return string(version), err
}

// PutVersion stores the given version in the underlying store.
func (dao *Simple) PutVersion(v string) {
	dao.Store.Put(storage.SYSVersion.Bytes(), []byte(v))
}
