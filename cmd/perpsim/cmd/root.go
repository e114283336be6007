package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/perps/internal/logging"
)

var (
	logLevel string
	logFile  string
	debug    bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "perpsim",
	Short: "A perpetual-futures paper-trading simulator",
	Long: `Perpsim simulates a leveraged perpetual-futures account without touching
a real exchange.

It provides tools for:
  - Running scripted sessions from a configuration file
  - Replaying CSV scenarios of prices, orders and stops
  - Isolated-margin accounting with liquidation, stop loss, take profit
    and trailing stops
  - Journaling every fill and close to CSV or SQLite
  - Summarizing a journal into win rate, P/L and drawdown`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "human readable debug logging")
}

// setupLogger replaces the package logger. A config file may call it
// again with its own level unless the flag was set explicitly.
func setupLogger(level string) error {
	var (
		l   *zap.Logger
		err error
	)
	switch {
	case debug:
		l, err = logging.NewDevelopment()
	case logFile != "":
		l, err = logging.NewWithFile(level, logFile)
	default:
		l, err = logging.New(level)
	}
	if err != nil {
		return err
	}
	logger = l
	return nil
}
