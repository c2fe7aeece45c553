package mempool

import (
	"fmt"
	"sync"

	lerrors "github.com/mezonai/powledger/errors"
	"github.com/mezonai/powledger/logx"
	"github.com/mezonai/powledger/monitoring"
	"github.com/mezonai/powledger/transaction"
)

// Mempool holds transactions waiting for the next block, in arrival order.
type Mempool struct {
	mu     sync.Mutex
	txs    []*transaction.Transaction
	maxTxs int
}

// NewMempool creates a new, empty mempool. maxTxs <= 0 means unbounded.
func NewMempool(maxTxs int) *Mempool {
	return &Mempool{
		txs:    make([]*transaction.Transaction, 0),
		maxTxs: maxTxs,
	}
}

// Add appends tx. Duplicates are accepted.
func (m *Mempool) Add(tx *transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxTxs > 0 && len(m.txs) >= m.maxTxs {
		monitoring.RecordRejectedTx(monitoring.TxPoolFull)
		return lerrors.NewValidationError(lerrors.ErrMsgMempoolFull)
	}
	m.txs = append(m.txs, tx)
	monitoring.SetPendingPoolSize(len(m.txs))
	logx.Debug("MEMPOOL", fmt.Sprintf("added %s | size=%d", tx.ID, len(m.txs)))
	return nil
}

// Len returns the number of transactions in the mempool.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

// Snapshot returns every pending transaction without removing them.
func (m *Mempool) Snapshot() []*transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := make([]*transaction.Transaction, len(m.txs))
	copy(batch, m.txs)
	return batch
}

// Clear empties the mempool.
func (m *Mempool) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = make([]*transaction.Transaction, 0)
	monitoring.SetPendingPoolSize(0)
}
