package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/perps/broker"
	"github.com/rustyeddy/perps/config"
	"github.com/rustyeddy/perps/replay"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scripted session from a config file",
	Long: `Run a simulation using settings from a configuration file.

The config file specifies the account, the journal and a list of steps.
Each step is a price tick with an optional action: buy, sell, close,
stoploss, takeprofit or trailing.

Example:
  perpsim run -f simulation.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	_ = runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Log.Level != "" && !cmd.Flags().Changed("log-level") {
		if err := setupLogger(cfg.Log.Level); err != nil {
			return err
		}
	}

	rows, err := cfg.Rows(time.Now().UTC())
	if err != nil {
		return err
	}

	j, err := cfg.Journal.Open()
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running simulation with config: %s\n", runConfigPath)
	fmt.Fprintf(out, "  Account: %s (Balance: %.2f %s)\n", cfg.Account.ID, cfg.Account.Balance, cfg.Account.Currency)
	fmt.Fprintf(out, "  Market: %s (default leverage %gx, %d steps)\n\n",
		cfg.Simulation.Symbol, cfg.Simulation.Leverage, len(rows))

	s := newSession(broker.Account{
		ID:       cfg.Account.ID,
		Currency: cfg.Account.Currency,
		Balance:  cfg.Account.Balance,
	}, j)

	res, err := s.run(context.Background(), replay.Rows(rows), replay.Options{
		CloseAtEnd:      cfg.Simulation.CloseAtEnd,
		DefaultLeverage: cfg.Simulation.Leverage,
		Policy:          cfg.Risk.Policy(),
	})
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	s.printResults(out, res)
	switch cfg.Journal.Type {
	case "csv":
		fmt.Fprintf(out, "Results saved to:\n  - %s\n  - %s\n", cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	case "sqlite":
		fmt.Fprintf(out, "Results saved to: %s\n", cfg.Journal.DBPath)
	}
	return nil
}
