package ledger

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/mezonai/powledger/block"
	"github.com/mezonai/powledger/config"
	lerrors "github.com/mezonai/powledger/errors"
	"github.com/mezonai/powledger/events"
	"github.com/mezonai/powledger/mempool"
	"github.com/mezonai/powledger/transaction"
	"github.com/mezonai/powledger/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewWallet()
	require.NoError(t, err)
	return w
}

func newLedger(t *testing.T, difficulty uint32, opts ...Option) *Ledger {
	t.Helper()
	l, err := NewLedger(difficulty, opts...)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func transfer(t *testing.T, l *Ledger, from *wallet.Wallet, to string, amount int64) *transaction.Transaction {
	t.Helper()
	tx, err := transaction.NewTransaction(from, to, decimal.NewFromInt(amount))
	require.NoError(t, err)
	require.NoError(t, l.AddTransaction(tx))
	return tx
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}

func TestGenesisOnlyLedger(t *testing.T) {
	l := newLedger(t, 2)

	require.Equal(t, 1, l.Len())
	genesis := l.LatestBlock()
	assert.Equal(t, uint64(0), genesis.Index)
	assert.Equal(t, block.GenesisPreviousHash, genesis.PreviousHash)
	assert.Empty(t, genesis.Transactions)
	assert.True(t, strings.HasPrefix(genesis.Hash, "00"))

	assert.True(t, l.IsChainValid())
	assertAmount(t, 0, l.GetBalance(newWallet(t).Address))
	assert.True(t, l.MiningReward().Equal(DefaultMiningReward))
	assert.Empty(t, l.PendingTransactions())
}

func TestTransferScenario(t *testing.T) {
	l := newLedger(t, 2)
	alice, bob, miner := newWallet(t), newWallet(t), newWallet(t)

	transfer(t, l, alice, bob.Address, 10)
	require.NoError(t, l.MinePendingTransactions(miner.Address))

	assertAmount(t, -10, l.GetBalance(alice.Address))
	assertAmount(t, 10, l.GetBalance(bob.Address))
	assertAmount(t, 50, l.GetBalance(miner.Address))
	assert.True(t, l.IsChainValid())
	assert.Empty(t, l.PendingTransactions())

	mined := l.LatestBlock()
	require.Len(t, mined.Transactions, 2)
	assert.Equal(t, alice.Address, mined.Transactions[0].Sender)
	assert.True(t, mined.Transactions[1].IsSystem(), "reward is the last entry")
	assert.Equal(t, l.Blocks()[0].Hash, mined.PreviousHash)
	assert.True(t, strings.HasPrefix(mined.Hash, "00"))
}

func TestMinerWithoutTransactionsGetsReward(t *testing.T) {
	l := newLedger(t, 1, WithMiningReward(decimal.RequireFromString("12.5")))
	miner := newWallet(t)

	require.NoError(t, l.MinePendingTransactions(miner.Address))
	assert.True(t, decimal.RequireFromString("12.5").Equal(l.GetBalance(miner.Address)))
	assert.Equal(t, 2, l.Len())
}

func TestConservationOfValue(t *testing.T) {
	l := newLedger(t, 1)
	wallets := []*wallet.Wallet{newWallet(t), newWallet(t), newWallet(t)}
	miner := newWallet(t)

	transfer(t, l, wallets[0], wallets[1].Address, 30)
	transfer(t, l, wallets[1], wallets[2].Address, 7)
	require.NoError(t, l.MinePendingTransactions(miner.Address))
	transfer(t, l, wallets[2], wallets[0].Address, 3)
	transfer(t, l, wallets[0], wallets[0].Address, 100)
	require.NoError(t, l.MinePendingTransactions(miner.Address))

	sum := decimal.Zero
	for _, w := range wallets {
		sum = sum.Add(l.GetBalance(w.Address))
	}
	assertAmount(t, 0, sum)
	assertAmount(t, -27, l.GetBalance(wallets[0].Address))
	assertAmount(t, 23, l.GetBalance(wallets[1].Address))
	assertAmount(t, 4, l.GetBalance(wallets[2].Address))
	assertAmount(t, 100, l.GetBalance(miner.Address))
	assertAmount(t, -100, l.GetBalance(transaction.SystemSender))
}

func TestCachedBalanceMatchesScan(t *testing.T) {
	l := newLedger(t, 1)
	alice, bob := newWallet(t), newWallet(t)

	for i := 0; i < 3; i++ {
		transfer(t, l, alice, bob.Address, int64(i+1))
		require.NoError(t, l.MinePendingTransactions(bob.Address))
	}
	for _, addr := range []string{alice.Address, bob.Address, transaction.SystemSender} {
		assert.True(t, l.ScanBalance(addr).Equal(l.GetBalance(addr)), addr)
	}
}

func TestTamperingInvalidatesChain(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(b *block.Block)
	}{
		{"transfer amount", func(b *block.Block) { b.Transactions[0].Amount = decimal.NewFromInt(1000) }},
		{"reward amount", func(b *block.Block) { b.Transactions[len(b.Transactions)-1].Amount = decimal.NewFromInt(1000) }},
		{"reward recipient", func(b *block.Block) { b.Transactions[len(b.Transactions)-1].Recipient = "mallory" }},
		{"previous hash", func(b *block.Block) { b.PreviousHash = strings.Repeat("0", 64) }},
		{"nonce", func(b *block.Block) { b.Nonce++ }},
		{"hash", func(b *block.Block) { b.Hash = strings.Repeat("0", 64) }},
		{"merkle root", func(b *block.Block) { b.MerkleRoot = "0" }},
		{"dropped transaction", func(b *block.Block) { b.Transactions = b.Transactions[1:] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t, 1)
			alice, bob, miner := newWallet(t), newWallet(t), newWallet(t)
			transfer(t, l, alice, bob.Address, 10)
			require.NoError(t, l.MinePendingTransactions(miner.Address))
			require.NoError(t, l.MinePendingTransactions(miner.Address))
			require.True(t, l.IsChainValid())

			tt.tamper(l.Blocks()[1])

			assert.False(t, l.IsChainValid())
			err := l.ValidateChain()
			require.Error(t, err)
			assert.ErrorIs(t, err, lerrors.ErrValidation)
			assert.Contains(t, err.Error(), "Block 1")
		})
	}
}

func TestValidateChainNamesTheFailure(t *testing.T) {
	l := newLedger(t, 1)
	alice, miner := newWallet(t), newWallet(t)
	transfer(t, l, alice, "bob", 5)
	require.NoError(t, l.MinePendingTransactions(miner.Address))
	require.NoError(t, l.MinePendingTransactions(miner.Address))

	blocks := l.Blocks()
	blocks[2].PreviousHash = "elsewhere"
	blocks[2].Hash = blocks[2].CalculateHash()
	assert.EqualError(t, l.ValidateChain(), "Validation error: Block 2 does not link to block 1")

	l2 := newLedger(t, 1)
	transfer(t, l2, alice, "bob", 5)
	require.NoError(t, l2.MinePendingTransactions(miner.Address))
	tx := l2.Blocks()[1].Transactions[0]
	tx.Signature = ""
	assert.EqualError(t, l2.ValidateChain(),
		"Validation error: Block 1 contains invalid transaction "+tx.ID+": Validation error: No signature")
}

func TestBalanceCacheDroppedOnInvalidChain(t *testing.T) {
	l := newLedger(t, 1)
	alice, bob, miner := newWallet(t), newWallet(t), newWallet(t)
	transfer(t, l, alice, bob.Address, 10)
	require.NoError(t, l.MinePendingTransactions(miner.Address))
	assertAmount(t, 10, l.GetBalance(bob.Address))

	l.Blocks()[1].Transactions[0].Amount = decimal.NewFromInt(40)
	assertAmount(t, 10, l.GetBalance(bob.Address))
	require.False(t, l.IsChainValid())

	assertAmount(t, 40, l.GetBalance(bob.Address))
	assert.True(t, l.ScanBalance(bob.Address).Equal(l.GetBalance(bob.Address)))
}

func TestAddTransactionRejections(t *testing.T) {
	l := newLedger(t, 0)
	alice, bob := newWallet(t), newWallet(t)

	reward, err := transaction.NewReward(alice.Address, decimal.NewFromInt(1000))
	require.NoError(t, err)
	err = l.AddTransaction(reward)
	assert.ErrorIs(t, err, lerrors.ErrValidation)

	unsigned, err := transaction.NewTransaction(alice, bob.Address, decimal.NewFromInt(1))
	require.NoError(t, err)
	unsigned.Signature = ""
	assert.ErrorIs(t, l.AddTransaction(unsigned), lerrors.ErrValidation)

	forged, err := transaction.NewTransaction(alice, bob.Address, decimal.NewFromInt(1))
	require.NoError(t, err)
	forged.Amount = decimal.NewFromInt(99)
	assert.ErrorIs(t, l.AddTransaction(forged), lerrors.ErrValidation)

	garbled, err := transaction.NewTransaction(alice, bob.Address, decimal.NewFromInt(1))
	require.NoError(t, err)
	garbled.Signature = "0OIl"
	err = l.AddTransaction(garbled)
	assert.ErrorIs(t, err, lerrors.ErrValidation)
	assert.ErrorIs(t, err, lerrors.ErrWallet)

	assert.ErrorIs(t, l.AddTransaction(nil), lerrors.ErrValidation)
	assert.Empty(t, l.PendingTransactions())
}

func TestAddTransactionAcceptsDuplicatesAndOverdrafts(t *testing.T) {
	l := newLedger(t, 0)
	alice := newWallet(t)

	tx := transfer(t, l, alice, "bob", 1_000_000)
	require.NoError(t, l.AddTransaction(tx))
	assert.Len(t, l.PendingTransactions(), 2)
}

func TestMempoolCapacity(t *testing.T) {
	l := newLedger(t, 0, WithMempool(mempool.NewMempool(1)))
	alice, miner := newWallet(t), newWallet(t)

	transfer(t, l, alice, "bob", 1)
	tx, err := transaction.NewTransaction(alice, "bob", decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.ErrorIs(t, l.AddTransaction(tx), lerrors.ErrValidation)

	require.NoError(t, l.MinePendingTransactions(miner.Address), "a full pool can still be mined")
	assert.Len(t, l.LatestBlock().Transactions, 2)
}

func TestMiningTimeoutLeavesLedgerUntouched(t *testing.T) {
	l := newLedger(t, 0)
	alice, miner := newWallet(t), newWallet(t)
	transfer(t, l, alice, "bob", 3)
	require.NoError(t, l.SetDifficulty(40))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.MinePendingTransactionsContext(ctx, miner.Address)
	require.Error(t, err)
	assert.ErrorIs(t, err, lerrors.ErrMining)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 1, l.Len())
	pending := l.PendingTransactions()
	require.Len(t, pending, 1)
	assert.False(t, pending[0].IsSystem())
	assert.True(t, l.IsChainValid())
}

func TestConfiguredMiningTimeout(t *testing.T) {
	cfg := config.DefaultLedgerConfig()
	cfg.Ledger.Difficulty = 0
	cfg.Ledger.MiningTimeoutMs = 20
	l, err := NewLedgerFromConfig(cfg)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.SetDifficulty(40))
	err = l.MinePendingTransactions(newWallet(t).Address)
	assert.ErrorIs(t, err, lerrors.ErrMining)
	assert.Equal(t, 1, l.Len())
}

func TestNewLedgerFromConfig(t *testing.T) {
	cfg := config.DefaultLedgerConfig()
	cfg.Ledger.Difficulty = 1
	cfg.Ledger.MiningReward = "7.25"

	l, err := NewLedgerFromConfig(cfg)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, uint32(1), l.Difficulty())
	assert.True(t, decimal.RequireFromString("7.25").Equal(l.MiningReward()))

	cfg.Ledger.MiningReward = "-1"
	_, err = NewLedgerFromConfig(cfg)
	assert.ErrorIs(t, err, lerrors.ErrValidation)
}

func TestNewLedgerErrors(t *testing.T) {
	_, err := NewLedger(block.MaxDifficulty + 1)
	assert.ErrorIs(t, err, lerrors.ErrMining)

	_, err = NewLedger(0, WithMiningReward(decimal.NewFromInt(-5)))
	assert.ErrorIs(t, err, lerrors.ErrValidation)

	l := newLedger(t, 0)
	assert.ErrorIs(t, l.MinePendingTransactions(""), lerrors.ErrValidation)
	assert.ErrorIs(t, l.SetDifficulty(block.MaxDifficulty+1), lerrors.ErrMining)
}

func TestLookupsThroughBlockIndex(t *testing.T) {
	l := newLedger(t, 1)
	alice, miner := newWallet(t), newWallet(t)
	tx := transfer(t, l, alice, "bob", 4)
	require.NoError(t, l.MinePendingTransactions(miner.Address))

	mined := l.LatestBlock()
	got, err := l.GetBlockByHash(mined.Hash)
	require.NoError(t, err)
	assert.Equal(t, mined.Index, got.Index)

	found, index, err := l.GetTransaction(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), index)
	assert.Equal(t, tx.Signature, found.Signature)

	_, _, err = l.GetTransaction("missing")
	assert.Error(t, err)
}

func TestLedgerPublishesEvents(t *testing.T) {
	bus := events.NewEventBus()
	_, ch := bus.Subscribe()
	l := newLedger(t, 0, WithEventBus(bus))

	genesis := <-ch
	assert.Equal(t, events.EventBlockMined, genesis.Type())

	alice, miner := newWallet(t), newWallet(t)
	tx := transfer(t, l, alice, "bob", 1)
	added := <-ch
	assert.Equal(t, events.EventTransactionAddedToPool, added.Type())
	assert.Equal(t, tx.ID, added.TxID())

	require.NoError(t, l.MinePendingTransactions(miner.Address))
	mined := <-ch
	require.Equal(t, events.EventBlockMined, mined.Type())
	assert.Equal(t, 2, mined.(*events.BlockMined).TxCount())

	included := <-ch
	assert.Equal(t, events.EventTransactionIncludedInBlock, included.Type())
	assert.Equal(t, tx.ID, included.TxID())
	<-ch

	l.LatestBlock().Nonce++
	require.False(t, l.IsChainValid())
	invalid := <-ch
	assert.Equal(t, events.EventChainInvalid, invalid.Type())
}

func TestStoredBlocksMatchChain(t *testing.T) {
	l := newLedger(t, 1)
	alice, miner := newWallet(t), newWallet(t)
	transfer(t, l, alice, "bob", 3)
	require.NoError(t, l.MinePendingTransactions(miner.Address))

	stored, err := l.StoredBlocks()
	require.NoError(t, err)
	chain := l.Blocks()
	require.Len(t, stored, len(chain))
	for i, b := range chain {
		assert.Equal(t, b.Hash, stored[i].Hash)
		assert.Equal(t, b.CalculateHash(), stored[i].CalculateHash())
	}

	got, err := l.GetBlockByIndex(1)
	require.NoError(t, err)
	assert.Equal(t, chain[1].Hash, got.Hash)
	got.Nonce++
	assert.True(t, l.IsChainValid(), "stored copies are detached from the chain")

	_, err = l.GetBlockByIndex(9)
	assert.Error(t, err)
}

func TestCloseReleasesBlockStore(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		l, err := NewLedger(0)
		require.NoError(t, err)
		l.Close()
		l.Close()
	}
	for i := 0; i < 5; i++ {
		_, err := NewLedger(block.MaxDifficulty + 1)
		require.Error(t, err)
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond, "goroutines before=%d now=%d", before, runtime.NumGoroutine())
}
