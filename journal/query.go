package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/perps/broker"
)

const tradeColumns = `id, position_id, order_id, symbol, side, action, size, entry_price, exit_price,
	leverage, collateral, realized_pl, open_time, time`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var (
		rec    TradeRecord
		side   string
		action string
	)
	err := s.Scan(
		&rec.ID,
		&rec.PositionID,
		&rec.OrderID,
		&rec.Symbol,
		&side,
		&action,
		&rec.Size,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.Leverage,
		&rec.Collateral,
		&rec.RealizedPL,
		&rec.OpenTime,
		&rec.Time,
	)
	if err != nil {
		return TradeRecord{}, err
	}
	rec.Side = broker.PositionSide(side)
	rec.Action, err = ParseAction(action)
	if err != nil {
		return TradeRecord{}, err
	}
	return rec, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(id string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", id)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns every trade record ordered by time.
func (j *SQLite) ListTrades() ([]TradeRecord, error) {
	return j.queryTrades(`SELECT ` + tradeColumns + ` FROM trades ORDER BY time ASC, id ASC`)
}

// ListTradesBetween returns trades whose time is within [start, end).
func (j *SQLite) ListTradesBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.queryTrades(`SELECT `+tradeColumns+` FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, id ASC`, start, end)
}

// ListTradesBySymbol returns every trade for symbol ordered by time.
func (j *SQLite) ListTradesBySymbol(symbol string) ([]TradeRecord, error) {
	return j.queryTrades(`SELECT `+tradeColumns+` FROM trades
		WHERE symbol = ?
		ORDER BY time ASC, id ASC`, symbol)
}

func (j *SQLite) queryTrades(query string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns the whole equity curve ordered by time.
func (j *SQLite) ListEquity() ([]EquitySnapshot, error) {
	return j.queryEquity(`
		SELECT time, balance, equity, margin_used, unrealized_pl, realized_pl, open_positions
		FROM equity
		ORDER BY time ASC, rowid ASC`)
}

// ListEquityBetween returns equity snapshots within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	return j.queryEquity(`
		SELECT time, balance, equity, margin_used, unrealized_pl, realized_pl, open_positions
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, rowid ASC`, start, end)
}

func (j *SQLite) queryEquity(query string, args ...any) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(
			&e.Time,
			&e.Balance,
			&e.Equity,
			&e.MarginUsed,
			&e.UnrealizedPL,
			&e.RealizedPL,
			&e.OpenPositions,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
