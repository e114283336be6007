package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/perps/market"
)

// EventRow is one line of a scenario file: a price tick plus an optional
// scripted event with up to four parameters.
type EventRow struct {
	Line  int
	Tick  market.Tick
	Event string
	P1    string
	P2    string
	P3    string
	P4    string
}

// EventsFeed reads scenario rows:
//
//	time,symbol,price,event,p1,p2,p3,p4
//
// A header row is allowed. Missing event and parameter columns are empty.
// Rows outside [from, to) are skipped; a zero bound is open.
type EventsFeed struct {
	c    io.Closer
	r    *csv.Reader
	from time.Time
	to   time.Time

	line     int
	sawFirst bool
}

// NewCSVEventsFeed opens the scenario file at path.
func NewCSVEventsFeed(path string, from, to time.Time) (*EventsFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed := NewEventsFeed(f, from, to)
	feed.c = f
	return feed, nil
}

// NewEventsFeed reads scenario rows from r.
func NewEventsFeed(r io.Reader, from, to time.Time) *EventsFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	return &EventsFeed{r: cr, from: from, to: to}
}

func (f *EventsFeed) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

// Next returns the next row in range. ok is false at end of input.
func (f *EventsFeed) Next() (EventRow, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return EventRow{}, false, nil
		}
		if err != nil {
			return EventRow{}, false, err
		}
		if len(row) == 0 {
			continue
		}
		f.line, _ = f.r.FieldPos(0)

		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		if len(row) < 3 {
			return EventRow{}, false, fmt.Errorf("line %d: need at least time,symbol,price: %v", f.line, row)
		}
		if len(row) > 8 {
			return EventRow{}, false, fmt.Errorf("line %d: too many columns (expected <=8): %v", f.line, row)
		}

		tick, ok, err := parseTick(row)
		if err != nil {
			return EventRow{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if !ok || !inRange(tick.Time, f.from, f.to) {
			continue
		}

		out := EventRow{Line: f.line, Tick: tick}
		cols := []*string{&out.Event, &out.P1, &out.P2, &out.P3, &out.P4}
		for i, dst := range cols {
			if 3+i < len(row) {
				*dst = strings.TrimSpace(row[3+i])
			}
		}
		return out, true, nil
	}
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// parseTick reads time,symbol,price. Rows with a blank time or symbol are
// skipped.
func parseTick(row []string) (market.Tick, bool, error) {
	ts := strings.TrimSpace(row[0])
	sym := strings.TrimSpace(row[1])
	if ts == "" || sym == "" {
		return market.Tick{}, false, nil
	}

	t, err := parseTime(ts)
	if err != nil {
		return market.Tick{}, false, err
	}
	price, err := parseFloat(row[2])
	if err != nil {
		return market.Tick{}, false, fmt.Errorf("bad price %q: %w", row[2], err)
	}
	return market.Tick{Symbol: sym, Price: price, Time: t}, true, nil
}

// ParseTime accepts RFC3339 with or without fractional seconds.
func ParseTime(s string) (time.Time, error) {
	return parseTime(strings.TrimSpace(s))
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("bad time %q: %w", s, err)
		}
		t = t2
	}
	return t, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
