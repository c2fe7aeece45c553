package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/mezonai/powledger/block"
	"github.com/mezonai/powledger/config"
	lerrors "github.com/mezonai/powledger/errors"
	"github.com/mezonai/powledger/events"
	"github.com/mezonai/powledger/logx"
	"github.com/mezonai/powledger/mempool"
	"github.com/mezonai/powledger/monitoring"
	"github.com/mezonai/powledger/store"
	"github.com/mezonai/powledger/stringutil"
	"github.com/mezonai/powledger/transaction"
	"github.com/shopspring/decimal"
)

var DefaultMiningReward = decimal.NewFromInt(50)

type Ledger struct {
	mu            sync.RWMutex
	chain         []*block.Block
	difficulty    uint32
	miningReward  decimal.Decimal
	miningTimeout time.Duration
	mempool       *mempool.Mempool
	blockStore    store.BlockStore
	eventRouter   *events.EventRouter
	closeOnce     sync.Once

	// balances is the running total per address, valid only while balancesValid.
	balMu         sync.Mutex
	balances      map[string]decimal.Decimal
	balancesValid bool
}

// NewLedger mines the genesis block at difficulty and returns a ledger with an
// empty pending pool. Callers release the block store with Close.
func NewLedger(difficulty uint32, opts ...Option) (_ *Ledger, err error) {
	l := &Ledger{
		difficulty:   difficulty,
		miningReward: DefaultMiningReward,
		balances:     make(map[string]decimal.Decimal),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.miningReward.IsNegative() {
		return nil, lerrors.NewValidationError(lerrors.ErrMsgInvalidMiningReward)
	}
	if l.mempool == nil {
		l.mempool = mempool.NewMempool(0)
	}
	if l.blockStore == nil {
		s, openErr := store.NewMemBlockStore()
		if openErr != nil {
			return nil, fmt.Errorf("could not open block store: %w", openErr)
		}
		l.blockStore = s
		defer func() {
			if err != nil {
				s.MustClose()
			}
		}()
	}

	ctx, cancel := l.miningContext(context.Background())
	defer cancel()
	genesis, err := block.NewBlockWithContext(ctx, 0, nil, block.GenesisPreviousHash, difficulty)
	if err != nil {
		return nil, err
	}
	if err = l.appendBlock(genesis, 0); err != nil {
		return nil, err
	}

	monitoring.SetDifficulty(difficulty)
	logx.Info("LEDGER", fmt.Sprintf("Ledger created | difficulty=%d | reward=%s | genesis=%s",
		difficulty, l.miningReward, genesis.Hash))
	return l, nil
}

// NewLedgerFromConfig builds a ledger from a loaded config. opts are applied
// after the config values.
func NewLedgerFromConfig(cfg *config.LedgerConfig, opts ...Option) (*Ledger, error) {
	if cfg == nil {
		cfg = config.DefaultLedgerConfig()
	}
	reward, err := cfg.Reward()
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithMiningReward(reward),
		WithMiningTimeout(cfg.MiningTimeout()),
	}
	return NewLedger(cfg.Ledger.Difficulty, append(base, opts...)...)
}

func (l *Ledger) miningContext(parent context.Context) (context.Context, context.CancelFunc) {
	if l.miningTimeout > 0 {
		return context.WithTimeout(parent, l.miningTimeout)
	}
	return context.WithCancel(parent)
}

// AddTransaction verifies tx and appends it to the pending pool. No balance
// check and no deduplication are performed.
func (l *Ledger) AddTransaction(tx *transaction.Transaction) error {
	if tx == nil {
		monitoring.RecordRejectedTx(monitoring.TxMalformed)
		return lerrors.NewValidationError(lerrors.ErrMsgInvalidTransaction)
	}
	if tx.IsSystem() {
		monitoring.RecordRejectedTx(monitoring.TxSystemSender)
		logx.Warn("LEDGER", "rejected system-issued transaction ", tx.ID)
		return lerrors.NewValidationError(lerrors.ErrMsgSystemTransaction)
	}

	ok, err := tx.IsValid()
	if err != nil {
		if stderrors.Is(err, lerrors.ErrValidation) {
			monitoring.RecordRejectedTx(monitoring.TxMissingSignature)
		} else {
			monitoring.RecordRejectedTx(monitoring.TxMalformed)
		}
		logx.Warn("LEDGER", fmt.Sprintf("rejected transaction %s: %v", tx.ID, err))
		return lerrors.Wrap(lerrors.KindValidation, err, lerrors.ErrMsgInvalidTransaction)
	}
	if !ok {
		monitoring.RecordRejectedTx(monitoring.TxInvalidSignature)
		logx.Warn("LEDGER", "rejected transaction with bad signature ", tx.ID)
		return lerrors.NewValidationError(lerrors.ErrMsgInvalidTransaction)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.mempool.Add(tx); err != nil {
		return err
	}
	if l.eventRouter != nil {
		l.eventRouter.PublishTransactionAdded(tx)
	}
	logx.Info("LEDGER", fmt.Sprintf("Added tx %s | %s -> %s | amount=%s",
		tx.ID, stringutil.ShortenLog(tx.Sender), stringutil.ShortenLog(tx.Recipient), tx.Amount))
	return nil
}

// MinePendingTransactions mines every pending transaction plus a reward for
// rewardAddress into a new block.
func (l *Ledger) MinePendingTransactions(rewardAddress string) error {
	return l.MinePendingTransactionsContext(context.Background(), rewardAddress)
}

// MinePendingTransactionsContext is MinePendingTransactions bounded by ctx and
// by the configured mining timeout. On failure the chain and the pending pool
// are left as they were.
func (l *Ledger) MinePendingTransactionsContext(ctx context.Context, rewardAddress string) error {
	if rewardAddress == "" {
		return lerrors.NewValidationError(lerrors.ErrMsgInvalidRewardAddress)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	reward, err := transaction.NewReward(rewardAddress, l.miningReward)
	if err != nil {
		return err
	}
	// the reward is mined last and never enters the pool
	txs := append(l.mempool.Snapshot(), reward)
	latest := l.chain[len(l.chain)-1]

	mineCtx, cancel := l.miningContext(ctx)
	defer cancel()

	start := time.Now()
	b, err := block.NewBlockWithContext(mineCtx, latest.Index+1, txs, latest.Hash, l.difficulty)
	if err != nil {
		monitoring.IncreaseMiningFailures()
		logx.Error("LEDGER", fmt.Sprintf("Mining block %d failed: %v", latest.Index+1, err))
		return err
	}
	if err := l.appendBlock(b, time.Since(start)); err != nil {
		return err
	}
	l.mempool.Clear()
	return nil
}

// appendBlock indexes b, links it onto the chain and folds it into the balance
// cache. Callers hold the write lock (or own l exclusively).
func (l *Ledger) appendBlock(b *block.Block, took time.Duration) error {
	if err := l.blockStore.Store(b); err != nil {
		return fmt.Errorf("could not store block %d: %w", b.Index, err)
	}
	l.chain = append(l.chain, b)

	l.balMu.Lock()
	if l.balancesValid || len(l.chain) == 1 {
		applyBlock(l.balances, b)
		l.balancesValid = true
	}
	l.balMu.Unlock()

	monitoring.SetBlockHeight(b.Index)
	monitoring.RecordTxInBlock(len(b.Transactions))
	monitoring.RecordBlockSizeBytes(len(b.Bytes()))
	monitoring.RecordNonceAttempts(b.Nonce + 1)
	if took > 0 {
		monitoring.RecordMiningDuration(took)
	}
	if l.eventRouter != nil {
		l.eventRouter.PublishBlockMined(b)
	}
	if b.IsGenesis() {
		logx.Info("LEDGER", fmt.Sprintf("Genesis block mined | hash=%s | nonce=%d", b.Hash, b.Nonce))
		return nil
	}
	logx.Info("LEDGER", fmt.Sprintf("Appended block %d | hash=%s | txs=%d", b.Index, stringutil.ShortenLog(b.Hash), len(b.Transactions)))
	return nil
}

// Close releases the block store. It is safe to call more than once.
func (l *Ledger) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.blockStore.MustClose()
	})
}

// LatestBlock returns the block at the tip of the chain.
func (l *Ledger) LatestBlock() *block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain[len(l.chain)-1]
}

// Blocks returns the chain in order. The slice is a copy; the blocks are shared.
func (l *Ledger) Blocks() []*block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*block.Block, len(l.chain))
	copy(out, l.chain)
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

func (l *Ledger) Difficulty() uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.difficulty
}

// SetDifficulty changes the difficulty used for blocks mined from now on.
func (l *Ledger) SetDifficulty(difficulty uint32) error {
	if difficulty > block.MaxDifficulty {
		return lerrors.NewMiningError("difficulty %d exceeds hash length %d", difficulty, block.MaxDifficulty)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.difficulty = difficulty
	monitoring.SetDifficulty(difficulty)
	logx.Info("LEDGER", fmt.Sprintf("Difficulty set to %d", difficulty))
	return nil
}

func (l *Ledger) MiningReward() decimal.Decimal {
	return l.miningReward
}

// PendingTransactions returns copies of the pending entries in pool order.
func (l *Ledger) PendingTransactions() []*transaction.Transaction {
	pending := l.mempool.Snapshot()
	for i, tx := range pending {
		pending[i] = tx.Clone()
	}
	return pending
}

// GetBlockByHash looks a block up through the block index.
func (l *Ledger) GetBlockByHash(hash string) (*block.Block, error) {
	return l.blockStore.GetByHash(hash)
}

// GetBlockByIndex reads the block at index back from the block store.
func (l *Ledger) GetBlockByIndex(index uint64) (*block.Block, error) {
	return l.blockStore.GetByIndex(index)
}

// StoredBlocks returns decoded copies of every stored block in index order.
func (l *Ledger) StoredBlocks() ([]*block.Block, error) {
	out := make([]*block.Block, 0, l.blockStore.Len())
	err := l.blockStore.Iterate(func(b *block.Block) bool {
		out = append(out, b)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransaction returns a mined transaction and the index of its block.
func (l *Ledger) GetTransaction(id string) (*transaction.Transaction, uint64, error) {
	return l.blockStore.GetTx(id)
}
