package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	lerrors "github.com/mezonai/powledger/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultLedgerConfig(t *testing.T) {
	cfg := DefaultLedgerConfig()
	assert.Equal(t, uint32(4), cfg.Ledger.Difficulty)

	reward, err := cfg.Reward()
	require.NoError(t, err)
	assert.True(t, reward.Equal(decimal.NewFromInt(50)))
	assert.Zero(t, cfg.MiningTimeout())
	assert.Empty(t, cfg.Log.File)
}

func TestLoadLedgerConfig(t *testing.T) {
	path := writeFile(t, "ledger.yml", `
ledger:
  difficulty: 2
  mining_reward: "12.5"
  mining_timeout_ms: 1500
log:
  file: ledger.log
  max_size_mb: 10
`)

	cfg, err := LoadLedgerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), cfg.Ledger.Difficulty)
	assert.Equal(t, 1500*time.Millisecond, cfg.MiningTimeout())
	assert.Equal(t, "ledger.log", cfg.Log.File)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, DefaultLogMaxAgeDays, cfg.Log.MaxAgeDays, "unset keys keep defaults")

	reward, err := cfg.Reward()
	require.NoError(t, err)
	assert.True(t, reward.Equal(decimal.RequireFromString("12.5")))
}

func TestLoadLedgerConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative reward", "ledger:\n  mining_reward: \"-1\"\n"},
		{"unparsable reward", "ledger:\n  mining_reward: fifty\n"},
		{"negative timeout", "ledger:\n  mining_timeout_ms: -5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLedgerConfig(writeFile(t, "ledger.yml", tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, lerrors.ErrValidation)
		})
	}
}

func TestLoadEmptyLedgerConfigKeepsDefaults(t *testing.T) {
	cfg, err := LoadLedgerConfig(writeFile(t, "ledger.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultLedgerConfig(), cfg)
}

func TestLoadLedgerConfigErrors(t *testing.T) {
	_, err := LoadLedgerConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = LoadLedgerConfig(writeFile(t, "ledger.yml", "ledger: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestLoadMempoolConfig(t *testing.T) {
	cfg, err := LoadMempoolConfig(writeFile(t, "node.ini", "[mempool]\nmax_txs = 250\n"))
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.MaxTxs)

	cfg, err = LoadMempoolConfig(writeFile(t, "node.ini", "[other]\nkey = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxTxs)

	_, err = LoadMempoolConfig(writeFile(t, "node.ini", "[mempool]\nmax_txs = -1\n"))
	assert.ErrorIs(t, err, lerrors.ErrValidation)
}
