package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rustyeddy/perps/broker"
	"github.com/rustyeddy/perps/journal"
	"github.com/rustyeddy/perps/replay"
	"github.com/rustyeddy/perps/report"
	"github.com/rustyeddy/perps/sim"
)

// session wires an engine to a journal that also keeps every record in
// memory for the end of run summary.
type session struct {
	engine *sim.Engine
	mem    *journal.Memory
	acct   broker.Account
}

func newSession(acct broker.Account, j journal.Journal) *session {
	mem := journal.NewMemory()
	s := &session{mem: mem, acct: acct}
	s.engine = sim.NewEngine(acct, journal.Multi(j, mem), sim.WithLogger(logger))
	s.engine.SetCloseListener(s)
	return s
}

func (s *session) OnPositionClosed(positionID, symbol string, action journal.Action) {
	logger.Sugar().Infow("position closed by engine",
		"position", positionID,
		"symbol", symbol,
		"action", action.String(),
	)
}

func (s *session) run(ctx context.Context, src replay.Source, opts replay.Options) (replay.Result, error) {
	opts.Logger = logger
	return replay.Run(ctx, src, s.engine, opts)
}

func (s *session) summary() report.Summary {
	sum := report.Summarize(s.acct.Balance, s.mem.Trades(), s.mem.Equity())
	sum.AccountID = s.acct.ID
	return sum
}

func (s *session) printResults(w io.Writer, res replay.Result) {
	fmt.Fprintf(w, "Replayed %d rows (%d events): %d filled, %d cancelled, %d closed",
		res.Rows, res.Events, res.Filled, res.Cancelled, res.Closed)
	if res.Blocked > 0 {
		fmt.Fprintf(w, ", %d blocked by risk policy", res.Blocked)
	}
	fmt.Fprint(w, "\n\n")

	positions := s.engine.Positions()
	if len(positions) > 0 {
		fmt.Fprintln(w, "Open Positions")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, p := range positions {
			fmt.Fprintf(w, "%-8s %-5s size=%g entry=%.2f mark=%.2f lev=%.2fx upnl=%.2f liq=%.2f\n",
				p.Symbol, p.Side, p.Size, p.EntryPrice, p.CurrentPrice, p.Leverage, p.UnrealizedPL, p.LiquidationPrice())
		}
		fmt.Fprintln(w)
	}

	report.Print(w, s.summary())
}
