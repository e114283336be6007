package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/perps/journal"
	"github.com/rustyeddy/perps/report"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display records from a SQLite journal.

Subcommands:
  trade    - Show one record by ID
  today    - List records from today
  day      - List records from a specific day
  summary  - Win rate, P/L and drawdown over the whole journal

Examples:
  perpsim journal trade <id>
  perpsim journal day 2024-01-15
  perpsim journal summary --org`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <id>",
	Short: "Show one journal record",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List records from today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDay(cmd, time.Now().In(time.Local).Format("2006-01-02"))
	},
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List records from a specific day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDay(cmd, args[0])
	},
}

var journalSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the whole journal",
	Args:  cobra.NoArgs,
	RunE:  runJournalSummary,
}

var (
	journalDBPath  string
	summaryBalance float64
	summaryOrg     bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd, journalTodayCmd, journalDayCmd, journalSummaryCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./perps.sqlite", "path to SQLite journal DB")
	journalSummaryCmd.Flags().Float64Var(&summaryBalance, "start-balance", 0, "starting balance (default: derived from the equity curve)")
	journalSummaryCmd.Flags().BoolVar(&summaryOrg, "org", false, "render as Org-mode")
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.FormatTradeOrg(rec))
	return nil
}

func listDay(cmd *cobra.Command, day string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListTradesBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.FormatTradesOrg(recs))
	return nil
}

func runJournalSummary(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	trades, err := j.ListTrades()
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	equity, err := j.ListEquity()
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	start := summaryBalance
	if start <= 0 {
		start = startingBalance(equity)
	}
	sum := report.Summarize(start, trades, equity)

	if summaryOrg {
		return report.WriteOrg(cmd.OutOrStdout(), sum)
	}
	report.Print(cmd.OutOrStdout(), sum)
	return nil
}

// startingBalance recovers the initial deposit from the first snapshot:
// free cash plus posted collateral always equals the deposit plus the
// P/L realized so far.
func startingBalance(equity []journal.EquitySnapshot) float64 {
	if len(equity) == 0 {
		return 0
	}
	first := equity[0]
	return first.Balance + first.MarginUsed - first.RealizedPL
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
