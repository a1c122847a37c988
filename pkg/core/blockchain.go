package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/core/dao"
	"github.com/nspcc-dev/kittychain/pkg/core/interop"
	"github.com/nspcc-dev/kittychain/pkg/core/native"
	"github.com/nspcc-dev/kittychain/pkg/core/random"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/core/storage"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"go.uber.org/zap"
)

// Tuning parameters.
const (
	version = "0.1.0"

	// notificationBufSize is the number of chain events queued for the
	// dispatcher before writers start waiting for subscribers.
	notificationBufSize = 64
)

// Boundary method names, they're used in execution logs and metrics.
const (
	MethodGenesisMint   = "genesismint"
	MethodGenesisEndow  = "genesisendow"
	MethodCreateKitty   = "createkitty"
	MethodBreedKitty    = "breedkitty"
	MethodTransferKitty = "transferkitty"
	MethodBuyKitty      = "buykitty"
	MethodSetPrice      = "setprice"
	MethodTransferFunds = "transferfunds"
)

// ErrNotRunning is returned for calls made to a closed chain.
var ErrNotRunning = errors.New("blockchain is closed")

// Blockchain is the kitty ledger. It serializes all state-changing calls,
// runs every call on its own discardable storage layer and groups calls into
// blocks that are sealed periodically.
type Blockchain struct {
	// lock protects all fields below except the read-only ones. Calls and
	// block sealing take it for writing, queries take it for reading.
	lock sync.RWMutex

	config    config.ProtocolConfiguration
	contracts *native.Contracts
	log       *zap.Logger

	dao    *dao.Simple
	random *random.CollectiveFlip

	// building is the index of the block being built.
	building uint32
	topHash  util.Uint256
	// pending is the execution log of the block being built.
	pending state.ExecLog

	execLogs *lru.Cache

	// Notification subsystem. Nothing is queued before initialized is
	// set, genesis is not delivered to subscribers.
	initialized bool
	events      chan chainEvent
	subCh       chan any
	unsubCh     chan any
	stopCh      chan struct{}
	stopped     bool
	doneCh      chan struct{}
}

// chainEvent is a successful call or a sealed block.
type chainEvent struct {
	block *state.Block
	aer   *state.AppExecResult
}

// NewBlockchain returns a new blockchain object that operates on the given
// store. Empty stores get a genesis block according to cfg, non-empty ones
// are checked for compatibility. Blockchain takes ownership of s, it's closed
// by Close.
func NewBlockchain(s storage.Store, cfg config.Config, log *zap.Logger) (*Blockchain, error) {
	if log == nil {
		return nil, errors.New("empty logger")
	}
	if err := cfg.ProtocolConfiguration.Validate(); err != nil {
		return nil, err
	}
	contracts, err := native.NewContracts(cfg.ProtocolConfiguration)
	if err != nil {
		return nil, err
	}
	cacheSize := cfg.ApplicationConfiguration.ExecLogCacheSize
	if cacheSize <= 0 {
		cacheSize = config.DefaultExecLogCacheSize
	}
	execLogs, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	bc := &Blockchain{
		config:    cfg.ProtocolConfiguration,
		contracts: contracts,
		log:       log,
		dao:       dao.NewSimple(s),
		random:    random.NewCollectiveFlip(),
		execLogs:  execLogs,
		events:    make(chan chainEvent, notificationBufSize),
		subCh:     make(chan any),
		unsubCh:   make(chan any),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	if err := bc.init(); err != nil {
		return nil, err
	}
	bc.initialized = true
	go bc.notificationDispatcher()
	return bc, nil
}

func (bc *Blockchain) init() error {
	ver, err := bc.dao.GetVersion()
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			return fmt.Errorf("can't read DB version: %w", err)
		}
		bc.log.Info("no storage version found! creating genesis block")
		bc.dao.PutVersion(version)
		return bc.createGenesis()
	}
	if ver != version {
		return fmt.Errorf("storage version mismatch (expected=%s, actual=%s)", version, ver)
	}

	height, hash, err := bc.dao.GetCurrentBlockHeight()
	if err != nil {
		return fmt.Errorf("can't read current block: %w", err)
	}
	var start uint32
	if height >= random.MaterialLen {
		start = height - random.MaterialLen + 1
	}
	for i := start; i <= height; i++ {
		b, err := bc.dao.GetBlock(i)
		if err != nil {
			return fmt.Errorf("can't restore block %d: %w", i, err)
		}
		bc.random.Push(b.Hash())
	}
	bc.building = height + 1
	bc.topHash = hash
	updateBlockHeightMetric(height)
	bc.updateKittyCountMetric()
	bc.log.Info("restoring blockchain", zap.Uint32("height", height), zap.Stringer("hash", hash))
	return nil
}

// Run seals a block every TimePerBlock until ctx is done.
func (bc *Blockchain) Run(ctx context.Context) {
	t := time.NewTicker(bc.config.TimePerBlock)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := bc.SealBlock(); err != nil {
				bc.log.Error("failed to seal block", zap.Error(err))
			}
		}
	}
}

// Close seals the block being built if it has any calls, stops the
// notification dispatcher and closes the underlying store.
func (bc *Blockchain) Close() error {
	bc.lock.Lock()
	defer bc.lock.Unlock()
	if bc.stopped {
		return nil
	}
	if len(bc.pending) != 0 {
		if _, err := bc.sealBlock(uint64(time.Now().UnixMilli())); err != nil {
			bc.log.Warn("failed to seal the last block", zap.Error(err))
		}
	}
	bc.stopped = true
	close(bc.stopCh)
	<-bc.doneCh
	return bc.dao.Store.Close()
}

// GetConfig returns the protocol configuration.
func (bc *Blockchain) GetConfig() config.ProtocolConfiguration {
	return bc.config
}

// SealBlock closes the block being built and persists all changes made by
// its calls. Blocks are sealed even without calls, every block advances the
// randomness source.
func (bc *Blockchain) SealBlock() (*state.Block, error) {
	bc.lock.Lock()
	defer bc.lock.Unlock()
	if bc.stopped {
		return nil, ErrNotRunning
	}
	return bc.sealBlock(uint64(time.Now().UnixMilli()))
}

func (bc *Blockchain) sealBlock(ts uint64) (*state.Block, error) {
	b := &state.Block{
		Index:     bc.building,
		PrevHash:  bc.topHash,
		Timestamp: ts,
		CallCount: uint32(len(bc.pending)),
	}
	cache := bc.dao.GetWrapped()
	if err := cache.StoreAsBlock(b, bc.pending); err != nil {
		return nil, err
	}
	cache.StoreAsCurrentBlock(b)
	if _, err := cache.Persist(); err != nil {
		return nil, err
	}
	start := time.Now()
	keys, err := bc.dao.Persist()
	if err != nil {
		return nil, fmt.Errorf("failed to persist block %d: %w", b.Index, err)
	}
	bc.log.Debug("persisted to disk",
		zap.Uint32("block", b.Index),
		zap.Int("keys", keys),
		zap.Duration("took", time.Since(start)))

	hash := b.Hash()
	bc.execLogs.Add(b.Index, bc.pending)
	bc.pending = nil
	bc.topHash = hash
	bc.building = b.Index + 1
	bc.random.Push(hash)

	updateBlockHeightMetric(b.Index)
	bc.publish(chainEvent{block: b})
	bc.log.Debug("block sealed",
		zap.Uint32("index", b.Index),
		zap.Stringer("hash", hash),
		zap.Uint32("calls", b.CallCount))
	return b, nil
}

// invoke runs f as a single call on a private layer. The layer is merged
// into the chain state only if f succeeds. Both outcomes are recorded in the
// execution log of the block being built.
func (bc *Blockchain) invoke(method string, sender util.Uint160, f func(ic *interop.Context) error) (*state.AppExecResult, error) {
	bc.lock.Lock()
	defer bc.lock.Unlock()
	if bc.stopped {
		return nil, ErrNotRunning
	}
	return bc.apply(method, sender, f)
}

func (bc *Blockchain) apply(method string, sender util.Uint160, f func(ic *interop.Context) error) (*state.AppExecResult, error) {
	var (
		index = uint32(len(bc.pending))
		cache = bc.dao.GetWrapped()
		ic    = interop.NewContext(cache, sender, bc.building, index, bc.random, bc.log)
	)
	err := f(ic)
	if err == nil {
		_, err = cache.Persist()
	}
	aer := state.AppExecResult{
		Block:  bc.building,
		Index:  index,
		Method: method,
		Sender: sender,
	}
	if err != nil {
		aer.State = state.Fault
		aer.FaultException = err.Error()
		bc.log.Debug("call failed",
			zap.String("method", method),
			zap.Stringer("sender", sender),
			zap.Error(err))
	} else {
		aer.State = state.Halt
		aer.Events = ic.Notifications
	}
	bc.pending = append(bc.pending, aer)
	updateCallsMetric(method, aer.State)
	if err != nil {
		return &aer, err
	}
	bc.updateKittyCountMetric()
	bc.publish(chainEvent{aer: &aer})
	return &aer, nil
}

func (bc *Blockchain) publish(e chainEvent) {
	if bc.initialized {
		bc.events <- e
	}
}

func (bc *Blockchain) updateKittyCountMetric() {
	n, err := bc.contracts.Kitties.Count(bc.dao)
	if err != nil {
		bc.log.Warn("can't get kitty count", zap.Error(err))
		return
	}
	updateKittyCountMetric(n)
}

// CreateKitty mints a kitty with random DNA to the sender.
func (bc *Blockchain) CreateKitty(sender util.Uint160) (*state.AppExecResult, error) {
	return bc.invoke(MethodCreateKitty, sender, func(ic *interop.Context) error {
		_, err := bc.contracts.Kitties.Create(ic)
		return err
	})
}

// BreedKitty mints a child of two sender's kitties to the sender.
func (bc *Blockchain) BreedKitty(sender util.Uint160, p1, p2 state.DNA) (*state.AppExecResult, error) {
	return bc.invoke(MethodBreedKitty, sender, func(ic *interop.Context) error {
		_, err := bc.contracts.Kitties.Breed(ic, p1, p2)
		return err
	})
}

// TransferKitty gives the sender's kitty to another account.
func (bc *Blockchain) TransferKitty(sender, to util.Uint160, id state.DNA) (*state.AppExecResult, error) {
	return bc.invoke(MethodTransferKitty, sender, func(ic *interop.Context) error {
		return bc.contracts.Kitties.Transfer(ic, to, id)
	})
}

// BuyKitty buys the kitty for the sender if its price doesn't exceed limit.
func (bc *Blockchain) BuyKitty(sender util.Uint160, id state.DNA, limit *uint256.Int) (*state.AppExecResult, error) {
	return bc.invoke(MethodBuyKitty, sender, func(ic *interop.Context) error {
		return bc.contracts.Kitties.Buy(ic, id, limit)
	})
}

// SetPrice sets the price of the sender's kitty, nil price takes it off
// sale.
func (bc *Blockchain) SetPrice(sender util.Uint160, id state.DNA, price *uint256.Int) (*state.AppExecResult, error) {
	return bc.invoke(MethodSetPrice, sender, func(ic *interop.Context) error {
		return bc.contracts.Kitties.SetPrice(ic, id, price)
	})
}

// TransferFunds moves sender's funds to another account. The sender account
// is reaped if its remainder is below the existential deposit.
func (bc *Blockchain) TransferFunds(sender, to util.Uint160, amount *uint256.Int) (*state.AppExecResult, error) {
	return bc.invoke(MethodTransferFunds, sender, func(ic *interop.Context) error {
		return bc.contracts.Balances.Transfer(ic, ic.Sender, to, amount, native.AllowDeath)
	})
}

// BlockHeight returns the index of the latest sealed block.
func (bc *Blockchain) BlockHeight() uint32 {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.building - 1
}

// CurrentBlockHash returns the hash of the latest sealed block.
func (bc *Blockchain) CurrentBlockHash() util.Uint256 {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.topHash
}

// GetBlock returns the sealed block with the given index.
func (bc *Blockchain) GetBlock(index uint32) (*state.Block, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.dao.GetBlock(index)
}

// GetExecLog returns the results of all calls of the sealed block with the
// given index.
func (bc *Blockchain) GetExecLog(index uint32) (state.ExecLog, error) {
	if l, ok := bc.execLogs.Get(index); ok {
		return l.(state.ExecLog), nil
	}
	bc.lock.RLock()
	l, err := bc.dao.GetExecLog(index)
	bc.lock.RUnlock()
	if err != nil {
		return nil, err
	}
	bc.execLogs.Add(index, l)
	return l, nil
}

// GetKitty returns the kitty with the given DNA.
func (bc *Blockchain) GetKitty(id state.DNA) (*state.Kitty, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.contracts.Kitties.GetKitty(bc.dao, id)
}

// KittiesOf returns the kitties owned by acc in the index order.
func (bc *Blockchain) KittiesOf(acc util.Uint160) (state.OwnedKitties, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.contracts.Kitties.KittiesOf(bc.dao, acc)
}

// KittyCount returns the number of kitties ever minted.
func (bc *Blockchain) KittyCount() (uint64, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.contracts.Kitties.Count(bc.dao)
}

// ForEachKitty calls f for kitties in DNA order starting from start (nil
// means the first one) until it returns false. f must not call Blockchain
// methods.
func (bc *Blockchain) ForEachKitty(start *state.DNA, f func(*state.Kitty) bool) error {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.dao.SeekKitties(start, f)
}

// BalanceOf returns the balance of acc.
func (bc *Blockchain) BalanceOf(acc util.Uint160) (*uint256.Int, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.contracts.Balances.BalanceOf(bc.dao, acc)
}

// TotalIssuance returns the total amount of funds in existence.
func (bc *Blockchain) TotalIssuance() (*uint256.Int, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.contracts.Balances.TotalIssuance(bc.dao)
}

// SubscribeForBlocks adds ch to the list of block event receivers. Receivers
// must read events until unsubscribed, otherwise the chain stalls.
func (bc *Blockchain) SubscribeForBlocks(ch chan<- *state.Block) {
	bc.subscribe(ch)
}

// SubscribeForNotifications adds ch to the list of kitty and balance event
// receivers. Events of failed calls are never delivered.
func (bc *Blockchain) SubscribeForNotifications(ch chan<- *state.NotificationEvent) {
	bc.subscribe(ch)
}

// SubscribeForExecutions adds ch to the list of successful call result
// receivers.
func (bc *Blockchain) SubscribeForExecutions(ch chan<- *state.AppExecResult) {
	bc.subscribe(ch)
}

// UnsubscribeFromBlocks removes ch from the list of block event receivers.
func (bc *Blockchain) UnsubscribeFromBlocks(ch chan<- *state.Block) {
	bc.unsubscribe(ch)
}

// UnsubscribeFromNotifications removes ch from the list of notification
// receivers.
func (bc *Blockchain) UnsubscribeFromNotifications(ch chan<- *state.NotificationEvent) {
	bc.unsubscribe(ch)
}

// UnsubscribeFromExecutions removes ch from the list of call result
// receivers.
func (bc *Blockchain) UnsubscribeFromExecutions(ch chan<- *state.AppExecResult) {
	bc.unsubscribe(ch)
}

func (bc *Blockchain) subscribe(ch any) {
	select {
	case bc.subCh <- ch:
	case <-bc.doneCh:
	}
}

func (bc *Blockchain) unsubscribe(ch any) {
	select {
	case bc.unsubCh <- ch:
	case <-bc.doneCh:
	}
}

// notificationDispatcher manages subscriptions and delivers chain events to
// subscribers. It runs until the chain is closed.
func (bc *Blockchain) notificationDispatcher() {
	var (
		blockFeed        = make(map[chan<- *state.Block]bool)
		executionFeed    = make(map[chan<- *state.AppExecResult]bool)
		notificationFeed = make(map[chan<- *state.NotificationEvent]bool)
	)
	defer close(bc.doneCh)
	for {
		select {
		case <-bc.stopCh:
			return
		case sub := <-bc.subCh:
			switch ch := sub.(type) {
			case chan<- *state.Block:
				blockFeed[ch] = true
			case chan<- *state.AppExecResult:
				executionFeed[ch] = true
			case chan<- *state.NotificationEvent:
				notificationFeed[ch] = true
			default:
				panic(fmt.Sprintf("bad subscription: %T", sub))
			}
		case unsub := <-bc.unsubCh:
			switch ch := unsub.(type) {
			case chan<- *state.Block:
				delete(blockFeed, ch)
			case chan<- *state.AppExecResult:
				delete(executionFeed, ch)
			case chan<- *state.NotificationEvent:
				delete(notificationFeed, ch)
			default:
				panic(fmt.Sprintf("bad unsubscription: %T", unsub))
			}
		case event := <-bc.events:
			if event.block != nil {
				for ch := range blockFeed {
					select {
					case ch <- event.block:
					case <-bc.stopCh:
						return
					}
				}
				continue
			}
			for ch := range executionFeed {
				select {
				case ch <- event.aer:
				case <-bc.stopCh:
					return
				}
			}
			for _, e := range event.aer.Events {
				ne := &state.NotificationEvent{
					Block: event.aer.Block,
					Index: event.aer.Index,
					Event: e,
				}
				for ch := range notificationFeed {
					select {
					case ch <- ne:
					case <-bc.stopCh:
						return
					}
				}
			}
		}
	}
}
