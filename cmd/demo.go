package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"github.com/mezonai/powledger/block"
	"github.com/mezonai/powledger/config"
	"github.com/mezonai/powledger/events"
	"github.com/mezonai/powledger/exception"
	"github.com/mezonai/powledger/jsonx"
	"github.com/mezonai/powledger/ledger"
	"github.com/mezonai/powledger/logx"
	"github.com/mezonai/powledger/mempool"
	"github.com/mezonai/powledger/monitoring"
	"github.com/mezonai/powledger/stringutil"
	"github.com/mezonai/powledger/transaction"
	"github.com/mezonai/powledger/wallet"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	demoDifficulty    uint32
	demoConfigPath    string
	demoMempoolConfig string
	demoJSON          bool
	demoMetricsAddr   string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Mine a short chain between three wallets and print it",
	Long: `Run the ledger walkthrough:
- Create a ledger and three wallets (miner, alice, bob)
- Mine alice -> bob 10, then bob -> alice 5
- Validate the chain and print every block and final balances`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context(), cmd.OutOrStdout(), cmd.Flags().Changed("difficulty"))
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().Uint32Var(&demoDifficulty, "difficulty", config.DefaultDifficulty, "Leading zero hex digits required of every block hash")
	demoCmd.Flags().StringVar(&demoConfigPath, "config", "", "Path to ledger YAML configuration file (optional)")
	demoCmd.Flags().StringVar(&demoMempoolConfig, "mempool-config", "", "Path to INI file with a [mempool] section (optional)")
	demoCmd.Flags().BoolVar(&demoJSON, "json", false, "Print the final chain and balances as JSON")
	demoCmd.Flags().StringVar(&demoMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address and wait for interrupt")
}

type demoParty struct {
	Name   string
	Wallet *wallet.Wallet
}

type demoSummary struct {
	Valid    bool                       `json:"valid"`
	Blocks   []*block.Block             `json:"blocks"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

func loadDemoConfig(difficultyChanged bool) (*config.LedgerConfig, error) {
	cfg := config.DefaultLedgerConfig()
	if demoConfigPath != "" {
		loaded, err := config.LoadLedgerConfig(demoConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if difficultyChanged || demoConfigPath == "" {
		cfg.Ledger.Difficulty = demoDifficulty
	}
	return cfg, nil
}

func runDemo(ctx context.Context, out io.Writer, difficultyChanged bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadDemoConfig(difficultyChanged)
	if err != nil {
		return err
	}
	if lj := initializeFileLogger(cfg.Log); lj != nil {
		defer lj.Close()
	}

	opts := []ledger.Option{}
	if demoMempoolConfig != "" {
		poolCfg, err := config.LoadMempoolConfig(demoMempoolConfig)
		if err != nil {
			return err
		}
		opts = append(opts, ledger.WithMempool(mempool.NewMempool(poolCfg.MaxTxs)))
	}

	bus := events.NewEventBus()
	subID, eventCh := bus.Subscribe()
	defer bus.Unsubscribe(subID)
	exception.SafeGo("demo-events", func() { logEvents(eventCh) })
	opts = append(opts, ledger.WithEventBus(bus))

	narrate(out, "Creating new ledger at difficulty %d...", cfg.Ledger.Difficulty)
	l, err := ledger.NewLedgerFromConfig(cfg, opts...)
	if err != nil {
		return err
	}
	defer l.Close()

	narrate(out, "Creating wallets...")
	parties := make([]demoParty, 0, 3)
	for _, name := range []string{"miner", "alice", "bob"} {
		w, err := wallet.NewWallet()
		if err != nil {
			return err
		}
		parties = append(parties, demoParty{Name: name, Wallet: w})
		narrate(out, "%s's address: %s", name, w.Address)
	}
	miner, alice, bob := parties[0].Wallet, parties[1].Wallet, parties[2].Wallet

	steps := []struct {
		from   *wallet.Wallet
		to     *wallet.Wallet
		amount int64
		label  string
	}{
		{alice, bob, 10, "alice -> bob"},
		{bob, alice, 5, "bob -> alice"},
	}
	for _, step := range steps {
		narrate(out, "Creating transaction: %s", step.label)
		tx, err := transaction.NewTransaction(step.from, step.to.Address, decimal.NewFromInt(step.amount))
		if err != nil {
			return err
		}
		if err := l.AddTransaction(tx); err != nil {
			return err
		}
		narrate(out, "Mining block %d...", l.Len())
		if err := l.MinePendingTransactionsContext(ctx, miner.Address); err != nil {
			return err
		}
	}

	narrate(out, "Verifying chain...")
	valid := true
	if err := l.ValidateChain(); err != nil {
		valid = false
		narrate(out, "Chain is invalid: %v", err)
	} else {
		narrate(out, "Chain is valid!")
	}

	stored, err := l.StoredBlocks()
	if err != nil {
		return err
	}
	summary := demoSummary{
		Valid:    valid,
		Blocks:   stored,
		Balances: make(map[string]decimal.Decimal, len(parties)),
	}
	for _, p := range parties {
		summary.Balances[p.Name] = l.GetBalance(p.Wallet.Address)
	}

	if demoJSON {
		data, err := jsonx.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else if err := renderSummary(out, summary, parties); err != nil {
		return err
	}

	if demoMetricsAddr != "" {
		return serveMetrics(ctx, demoMetricsAddr)
	}
	return nil
}

func narrate(out io.Writer, format string, args ...interface{}) {
	if demoJSON {
		logx.Info("CMD", fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(out, format+"\n", args...)
}

func logEvents(ch chan events.LedgerEvent) {
	for event := range ch {
		logx.Debug("EVENTBUS", fmt.Sprintf("%s tx=%s", event.Type(), event.TxID()))
	}
}

func renderSummary(out io.Writer, summary demoSummary, parties []demoParty) error {
	blockRows := pterm.TableData{{"#", "Timestamp", "Previous Hash", "Hash", "Nonce", "Merkle Root", "Txs"}}
	txRows := pterm.TableData{{"Block", "From", "To", "Amount", "ID", "Signature"}}
	for _, b := range summary.Blocks {
		blockRows = append(blockRows, []string{
			strconv.FormatUint(b.Index, 10),
			strconv.FormatUint(b.Timestamp, 10),
			stringutil.Prefix(b.PreviousHash, 10),
			stringutil.Prefix(b.Hash, 10),
			strconv.FormatUint(b.Nonce, 10),
			stringutil.Prefix(b.MerkleRoot, 10),
			strconv.Itoa(len(b.Transactions)),
		})
		for _, tx := range b.Transactions {
			sig := tx.Signature
			if sig == "" {
				sig = "None"
			}
			txRows = append(txRows, []string{
				strconv.FormatUint(b.Index, 10),
				stringutil.Prefix(tx.Sender, 10),
				stringutil.Prefix(tx.Recipient, 10),
				tx.Amount.String(),
				tx.ID,
				stringutil.Prefix(sig, 10),
			})
		}
	}

	balanceRows := pterm.TableData{{"Wallet", "Address", "Balance"}}
	for _, p := range parties {
		balanceRows = append(balanceRows, []string{p.Name, p.Wallet.Address, summary.Balances[p.Name].String()})
	}

	fmt.Fprintf(out, "\nFinal chain state: %d blocks\n", len(summary.Blocks))
	for _, data := range []pterm.TableData{blockRows, txRows, balanceRows} {
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, table)
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	server := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	exception.SafeGo("metrics-server", func() {
		logx.Info("CMD", "Serving metrics on ", addr)
		errCh <- server.ListenAndServe()
	})

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		return server.Close()
	}
}
