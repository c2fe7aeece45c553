package ledger

import (
	"time"

	"github.com/mezonai/powledger/events"
	"github.com/mezonai/powledger/mempool"
	"github.com/mezonai/powledger/store"
	"github.com/shopspring/decimal"
)

// Option customises a Ledger before its genesis block is mined.
type Option func(*Ledger)

// WithMiningReward overrides the default reward of 50.
func WithMiningReward(reward decimal.Decimal) Option {
	return func(l *Ledger) {
		l.miningReward = reward
	}
}

// WithMempool supplies the pending pool, e.g. one sized from config.
func WithMempool(pool *mempool.Mempool) Option {
	return func(l *Ledger) {
		l.mempool = pool
	}
}

// WithEventBus publishes ledger events to bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(l *Ledger) {
		l.eventRouter = events.NewEventRouter(bus)
	}
}

// WithBlockStore indexes mined blocks in s instead of a private in-memory store.
// The ledger takes ownership of s and closes it in Close.
func WithBlockStore(s store.BlockStore) Option {
	return func(l *Ledger) {
		l.blockStore = s
	}
}

// WithMiningTimeout bounds every mining attempt. Zero means unbounded.
func WithMiningTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.miningTimeout = d
	}
}
