package report

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/perps/journal"
)

var orgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var orgTemplate = template.Must(template.New("summary").Funcs(orgFuncs).Parse(summaryOrg))

// WriteOrg renders s as an Org-mode heading with a PROPERTIES drawer.
func WriteOrg(w io.Writer, s Summary) error {
	return orgTemplate.Execute(w, s)
}

const summaryOrg = `* SIMULATION: {{if .AccountID}}{{.AccountID}}{{else}}(account?){{end}}
:PROPERTIES:
:START_DATE:  {{(orTime .Start).Format "2006-01-02"}}
:END_DATE:    {{(orTime .End).Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:END_EQUITY:  {{printf "%.2f" .EndEquity}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD:      {{printf "%.2f" .MaxDrawdown}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDrawdownPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:LIQUIDATED:  {{.Liquidations}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}
:END:

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDrawdownPct}}%*
- Win Rate:         *{{printf "%.2f" .WinRate}}%*
- Avg Win / Loss:   *{{printf "%.2f" .AvgWin}} / {{printf "%.2f" .AvgLoss}}*

** Trade Distribution
| Outcome     | Count |
|-------------+-------|
| Wins        | {{.Wins}} |
| Losses      | {{.Losses}} |
| Liquidated  | {{.Liquidations}} |
| Total       | {{.Trades}} |
`

// FormatTradeOrg renders one journal record as an Org-mode block with
// the structured facts in a PROPERTIES drawer and empty review sections.
func FormatTradeOrg(t journal.TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s: %s (%s)\n", t.Action, t.Symbol, shortID(t.PositionID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":POSITION_ID: %s\n", t.PositionID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":ACTION: %s\n", t.Action)
	fmt.Fprintf(&b, ":SIZE: %g\n", t.Size)
	fmt.Fprintf(&b, ":LEVERAGE: %g\n", t.Leverage)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.2f\n", t.EntryPrice)
	if t.Action.Realizes() {
		fmt.Fprintf(&b, ":EXIT_PRICE: %.2f\n", t.ExitPrice)
		fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", t.RealizedPL)
	}
	fmt.Fprintf(&b, ":COLLATERAL: %.2f\n", t.Collateral)
	if !t.OpenTime.IsZero() {
		fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.OpenTime.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, ":TIME: %s\n", t.Time.UTC().Format(time.RFC3339))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple records separated by blank lines.
func FormatTradesOrg(trades []journal.TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
