package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	tradesHeader = []string{
		"id", "position_id", "order_id", "symbol", "side", "action", "size",
		"entry_price", "exit_price", "leverage", "collateral", "realized_pl",
		"open_time", "time",
	}
	equityHeader = []string{
		"time", "balance", "equity", "margin_used", "unrealized_pl", "realized_pl", "open_positions",
	}
)

type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSVJournal{
		trades: csv.NewWriter(tf),
		equity: csv.NewWriter(ef),
		tf:     tf,
		ef:     ef,
	}

	if err := j.write(j.trades, tradesHeader); err != nil {
		_ = j.closeFiles()
		return nil, err
	}
	if err := j.write(j.equity, equityHeader); err != nil {
		_ = j.closeFiles()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, []string{
		t.ID,
		t.PositionID,
		t.OrderID,
		t.Symbol,
		string(t.Side),
		t.Action.String(),
		f(t.Size),
		f(t.EntryPrice),
		f(t.ExitPrice),
		f(t.Leverage),
		f(t.Collateral),
		f(t.RealizedPL),
		ts(t.OpenTime),
		ts(t.Time),
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		ts(e.Time),
		f(e.Balance),
		f(e.Equity),
		f(e.MarginUsed),
		f(e.UnrealizedPL),
		f(e.RealizedPL),
		strconv.Itoa(e.OpenPositions),
	})
}

func (j *CSVJournal) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}
	return j.closeFiles()
}

func (j *CSVJournal) closeFiles() error {
	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
