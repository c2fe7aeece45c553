package cmd

import (
	"os"

	lerrors "github.com/mezonai/powledger/errors"
	"github.com/mezonai/powledger/logx"
	"github.com/spf13/cobra"
)

var (
	debugLogging   bool
	verboseLogging bool
)

var rootCmd = &cobra.Command{
	Use:           "powledger",
	Short:         "Proof-of-work ledger CLI",
	Long:          "Command line interface for running the proof-of-work ledger demo and managing ed25519 identities.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseLogging {
			logx.SetVerbose(true)
		}
		if debugLogging {
			logx.SetDebug(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseLogging, "verbose", "v", false, "Log ledger activity to stderr")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if kind, ok := lerrors.KindOf(err); ok {
			logx.Error("CMD", "Command execution failed (", kind, "): ", err)
		} else {
			logx.Error("CMD", "Command execution failed: ", err)
		}
		os.Exit(1)
	}
}
