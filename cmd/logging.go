package cmd

import (
	"github.com/mezonai/powledger/config"
	"github.com/mezonai/powledger/logx"
	"gopkg.in/natefinch/lumberjack.v2"
)

// initializeFileLogger moves logx output to a rotating file when the config
// names one. It returns the logger so the caller can close it.
func initializeFileLogger(cfg config.LogSection) *lumberjack.Logger {
	if cfg.File == "" {
		return nil
	}
	lumberjackLogger := &lumberjack.Logger{
		Filename: cfg.File,
		MaxSize:  cfg.MaxSizeMB,
		MaxAge:   cfg.MaxAgeDays,
	}
	logx.InitWithOutput(lumberjackLogger)
	return lumberjackLogger
}
