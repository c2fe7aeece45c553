package config

// LedgerSection holds the tunables of the ledger itself.
type LedgerSection struct {
	Difficulty      uint32 `yaml:"difficulty"`
	MiningReward    string `yaml:"mining_reward"`
	MiningTimeoutMs int64  `yaml:"mining_timeout_ms"`
}

// LogSection configures the rotating log file. An empty File keeps logging on stderr.
type LogSection struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// LedgerConfig is the top-level structure of ledger.yml
type LedgerConfig struct {
	Ledger LedgerSection `yaml:"ledger"`
	Log    LogSection    `yaml:"log"`
}

type MempoolConfig struct {
	MaxTxs int `ini:"max_txs"`
}
