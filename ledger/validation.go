package ledger

import (
	"fmt"

	"github.com/mezonai/powledger/block"
	lerrors "github.com/mezonai/powledger/errors"
	"github.com/mezonai/powledger/logx"
	"github.com/mezonai/powledger/monitoring"
	"github.com/shopspring/decimal"
)

// IsChainValid reports whether every non-genesis block carries valid
// transactions, a current hash and merkle root, and links to its predecessor.
func (l *Ledger) IsChainValid() bool {
	return l.ValidateChain() == nil
}

// ValidateChain is IsChainValid with the first failure reported as a
// ValidationError naming the block. A failure drops the balance cache.
func (l *Ledger) ValidateChain() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	err := validateBlocks(l.chain)
	monitoring.RecordChainValidation(err == nil)
	if err == nil {
		return nil
	}

	l.balMu.Lock()
	l.balances = make(map[string]decimal.Decimal)
	l.balancesValid = false
	l.balMu.Unlock()

	logx.Warn("LEDGER", fmt.Sprintf("Chain invalid: %v", err))
	if l.eventRouter != nil {
		l.eventRouter.PublishChainInvalid(err.Error())
	}
	return err
}

func validateBlocks(chain []*block.Block) error {
	if len(chain) == 0 {
		return lerrors.NewValidationError(lerrors.ErrMsgEmptyChain)
	}
	for i := 1; i < len(chain); i++ {
		current, previous := chain[i], chain[i-1]

		for _, tx := range current.Transactions {
			ok, err := tx.IsValid()
			if err != nil {
				return lerrors.Wrap(lerrors.KindValidation, err, fmt.Sprintf(lerrors.ErrMsgInvalidBlockTx, i, tx.ID))
			}
			if !ok {
				return lerrors.NewValidationError(lerrors.ErrMsgInvalidBlockTx, i, tx.ID)
			}
		}
		if current.Hash != current.CalculateHash() {
			return lerrors.NewValidationError(lerrors.ErrMsgHashMismatch, i)
		}
		if current.MerkleRoot != block.CalculateMerkleRoot(current.Transactions) {
			return lerrors.NewValidationError(lerrors.ErrMsgMerkleMismatch, i)
		}
		if current.PreviousHash != previous.Hash {
			return lerrors.NewValidationError(lerrors.ErrMsgBrokenLink, i, i-1)
		}
	}
	return nil
}
