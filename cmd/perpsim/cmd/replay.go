package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/perps/broker"
	"github.com/rustyeddy/perps/journal"
	"github.com/rustyeddy/perps/replay"
	"github.com/rustyeddy/perps/risk"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay prices and scripted events from CSV (time,symbol,price,event,p1,p2,p3,p4)",
	Long: `Replay a scenario file through a fresh account.

Events:
  buy, sell     p1=size p2=leverage p3=stop loss p4=take profit
                p1 may be a risk percent such as 1% when p3 is set
  close         p1=reason
  stoploss      p1=price
  takeprofit    p1=price
  trailing      p1=trail percent p2=activation percent

Example:
  perpsim replay -f scenario.csv --db perps.sqlite --close-end`,
	RunE: runReplay,
}

var (
	replayPath       string
	replayDB         string
	replayBalance    float64
	replayAccount    string
	replayLeverage   float64
	replayCloseEnd   bool
	replayEventFirst bool
	replayFrom       string
	replayTo         string
	replayMaxRisk    float64
	replayMaxLev     float64
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayPath, "file", "f", "", "scenario CSV path (required)")
	replayCmd.Flags().StringVar(&replayDB, "db", "", "SQLite journal to write (optional)")
	replayCmd.Flags().Float64Var(&replayBalance, "starting-balance", 10000, "starting balance")
	replayCmd.Flags().StringVar(&replayAccount, "account", "SIM-REPLAY", "account ID")
	replayCmd.Flags().Float64Var(&replayLeverage, "leverage", 1, "leverage for orders that leave p2 empty")
	replayCmd.Flags().BoolVar(&replayCloseEnd, "close-end", false, "close open positions at the end")
	replayCmd.Flags().BoolVar(&replayEventFirst, "event-first", false, "apply each row's event before its tick")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "optional RFC3339 start time")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "optional RFC3339 end time")
	replayCmd.Flags().Float64Var(&replayMaxRisk, "max-risk", 0, "block orders risking more than this fraction of equity (0 = off)")
	replayCmd.Flags().Float64Var(&replayMaxLev, "max-leverage", 0, "block orders above this leverage (0 = off)")
	_ = replayCmd.MarkFlagRequired("file")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replayBalance <= 0 {
		return fmt.Errorf("invalid --starting-balance")
	}
	if replayAccount == "" {
		return fmt.Errorf("invalid --account")
	}

	var from, to time.Time
	var err error
	if replayFrom != "" {
		if from, err = replay.ParseTime(replayFrom); err != nil {
			return fmt.Errorf("bad --from: %w", err)
		}
	}
	if replayTo != "" {
		if to, err = replay.ParseTime(replayTo); err != nil {
			return fmt.Errorf("bad --to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return fmt.Errorf("--from must be before --to")
	}

	var policy *risk.Policy
	if replayMaxRisk > 0 || replayMaxLev > 0 {
		policy = &risk.Policy{MaxRiskPct: replayMaxRisk, MaxLeverage: replayMaxLev}
	}

	j := journal.Discard
	if replayDB != "" {
		db, err := journal.NewSQLite(replayDB)
		if err != nil {
			return err
		}
		defer db.Close()
		j = db
	}

	feed, err := replay.NewCSVEventsFeed(replayPath, from, to)
	if err != nil {
		return err
	}
	defer feed.Close()

	s := newSession(broker.Account{
		ID:       replayAccount,
		Currency: "USD",
		Balance:  replayBalance,
	}, j)

	res, err := s.run(context.Background(), feed, replay.Options{
		EventThenTick:   replayEventFirst,
		CloseAtEnd:      replayCloseEnd,
		DefaultLeverage: replayLeverage,
		Policy:          policy,
	})
	if err != nil {
		return fmt.Errorf("replay %s: %w", replayPath, err)
	}

	s.printResults(cmd.OutOrStdout(), res)
	return nil
}
