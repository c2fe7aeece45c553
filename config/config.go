package config

import (
	"fmt"
	"io"
	"os"
	"time"

	lerrors "github.com/mezonai/powledger/errors"
	"github.com/mezonai/powledger/logx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDifficulty   uint32 = 4
	DefaultMiningReward        = "50"
	DefaultLogMaxSizeMB        = 100
	DefaultLogMaxAgeDays       = 7
)

// DefaultLedgerConfig returns the configuration used when no file is given.
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		Ledger: LedgerSection{
			Difficulty:   DefaultDifficulty,
			MiningReward: DefaultMiningReward,
		},
		Log: LogSection{
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
	}
}

// LoadLedgerConfig reads and parses a ledger.yml file. Keys missing from the
// file keep their default values.
func LoadLedgerConfig(path string) (*LedgerConfig, error) {
	logx.Debug("CONFIG", "LoadLedgerConfig called with path: ", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open config %s", path)
	}
	defer file.Close()

	cfg := DefaultLedgerConfig()
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "failed to decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logx.Info("CONFIG", fmt.Sprintf("Loaded ledger config: difficulty=%d reward=%s timeout=%dms",
		cfg.Ledger.Difficulty, cfg.Ledger.MiningReward, cfg.Ledger.MiningTimeoutMs))
	return cfg, nil
}

// Validate checks the values a ledger cannot start with.
func (c *LedgerConfig) Validate() error {
	if _, err := c.Reward(); err != nil {
		return err
	}
	if c.Ledger.MiningTimeoutMs < 0 {
		return lerrors.NewValidationError("mining_timeout_ms must not be negative, got %d", c.Ledger.MiningTimeoutMs)
	}
	return nil
}

// Reward parses the configured mining reward.
func (c *LedgerConfig) Reward() (decimal.Decimal, error) {
	reward, err := decimal.NewFromString(c.Ledger.MiningReward)
	if err != nil {
		return decimal.Zero, lerrors.Wrap(lerrors.KindValidation, err, lerrors.ErrMsgInvalidMiningReward)
	}
	if reward.IsNegative() {
		return decimal.Zero, lerrors.NewValidationError(lerrors.ErrMsgInvalidMiningReward)
	}
	return reward, nil
}

// MiningTimeout returns the per-block mining bound; zero means unbounded.
func (c *LedgerConfig) MiningTimeout() time.Duration {
	return time.Duration(c.Ledger.MiningTimeoutMs) * time.Millisecond
}

// LoadMempoolConfig reads the [mempool] section of an .ini file
func LoadMempoolConfig(path string) (*MempoolConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	mempoolSection := cfg.Section("mempool")
	mempoolCfg := &MempoolConfig{}
	err = mempoolSection.MapTo(mempoolCfg)
	if err != nil {
		return nil, err
	}
	if mempoolCfg.MaxTxs < 0 {
		return nil, lerrors.NewValidationError("max_txs must not be negative, got %d", mempoolCfg.MaxTxs)
	}
	return mempoolCfg, nil
}
