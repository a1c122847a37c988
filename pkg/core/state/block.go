package state

import (
	"encoding/json"

	"github.com/nspcc-dev/kittychain/pkg/io"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"golang.org/x/crypto/blake2b"
)

// Block is a sealed batch of calls. It doesn't carry calls themselves, they
// are stored separately as an ExecLog under the same index.
type Block struct {
	Index    uint32
	PrevHash util.Uint256
	// Timestamp is the block sealing time in milliseconds since epoch.
	Timestamp uint64
	// CallCount is the number of calls (successful and failed) in the block.
	CallCount uint32
}

// Hash returns BLAKE2b-256 hash of the block's binary representation.
func (b *Block) Hash() util.Uint256 {
	buf := io.NewBufBinWriter()
	b.EncodeBinary(buf.BinWriter)
	return util.Uint256(blake2b.Sum256(buf.Bytes()))
}

// EncodeBinary implements the io.Serializable interface.
func (b *Block) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(b.Index)
	b.PrevHash.EncodeBinary(w)
	w.WriteU64LE(b.Timestamp)
	w.WriteU32LE(b.CallCount)
}

// DecodeBinary implements the io.Serializable interface.
func (b *Block) DecodeBinary(r *io.BinReader) {
	b.Index = r.ReadU32LE()
	b.PrevHash.DecodeBinary(r)
	b.Timestamp = r.ReadU64LE()
	b.CallCount = r.ReadU32LE()
}

type blockAux struct {
	Hash      util.Uint256 `json:"hash"`
	Index     uint32       `json:"index"`
	PrevHash  util.Uint256 `json:"previousblockhash"`
	Timestamp uint64       `json:"time"`
	CallCount uint32       `json:"calls"`
}

// MarshalJSON implements the json.Marshaler interface.
func (b *Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(&blockAux{
		Hash:      b.Hash(),
		Index:     b.Index,
		PrevHash:  b.PrevHash,
		Timestamp: b.Timestamp,
		CallCount: b.CallCount,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (b *Block) UnmarshalJSON(data []byte) error {
	aux := new(blockAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	b.Index = aux.Index
	b.PrevHash = aux.PrevHash
	b.Timestamp = aux.Timestamp
	b.CallCount = aux.CallCount
	return nil
}
