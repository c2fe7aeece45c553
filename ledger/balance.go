package ledger

import (
	"github.com/mezonai/powledger/block"
	"github.com/shopspring/decimal"
)

// GetBalance returns the net amount received by address across the chain.
// Balances may be negative; no spending check exists.
func (l *Ledger) GetBalance(address string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	l.balMu.Lock()
	defer l.balMu.Unlock()
	if !l.balancesValid {
		l.balances = scanBalances(l.chain)
		l.balancesValid = true
	}
	return l.balances[address]
}

// ScanBalance computes the balance of address with a full pass over every
// block, bypassing the cache.
func (l *Ledger) ScanBalance(address string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	balance := decimal.Zero
	for _, b := range l.chain {
		for _, tx := range b.Transactions {
			if tx.Sender == address {
				balance = balance.Sub(tx.Amount)
			}
			if tx.Recipient == address {
				balance = balance.Add(tx.Amount)
			}
		}
	}
	return balance
}

func scanBalances(chain []*block.Block) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for _, b := range chain {
		applyBlock(balances, b)
	}
	return balances
}

// applyBlock debits every sender and credits every recipient in b, the system
// sender included.
func applyBlock(balances map[string]decimal.Decimal, b *block.Block) {
	for _, tx := range b.Transactions {
		balances[tx.Sender] = balances[tx.Sender].Sub(tx.Amount)
		balances[tx.Recipient] = balances[tx.Recipient].Add(tx.Amount)
	}
}
