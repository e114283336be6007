package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/perps/journal"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.Equal(t, 10000.0, cfg.Account.Balance)
	assert.Equal(t, "BTC-USD", cfg.Simulation.Symbol)
	assert.Len(t, cfg.Simulation.Steps, 4)
	assert.NoError(t, cfg.Validate())
}

// valid returns a minimal config that passes validation.
func valid() *Config {
	return &Config{
		Account:    AccountConfig{Currency: "USD", Balance: 1000},
		Simulation: SimulationConfig{Symbol: "ETH-USD", Leverage: 5},
		Journal:    JournalConfig{Type: "none"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"missing currency", func(c *Config) { c.Account.Currency = "" }, "account.currency is required"},
		{"negative balance", func(c *Config) { c.Account.Balance = -1000 }, "account.balance must be positive"},
		{"missing symbol", func(c *Config) { c.Simulation.Symbol = "" }, "simulation.symbol is required"},
		{"unknown symbol", func(c *Config) { c.Simulation.Symbol = "EUR_USD" }, "unknown symbol: EUR_USD"},
		{"leverage below one", func(c *Config) { c.Simulation.Leverage = 0.5 }, "simulation.leverage must be at least 1"},
		{"leverage above max", func(c *Config) {
			c.Simulation.Symbol = "SOL-USD"
			c.Simulation.Leverage = 25
		}, "exceeds max 20 for SOL-USD"},
		{"bad start", func(c *Config) { c.Simulation.Start = "monday" }, "simulation.start"},
		{"step price", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 0}}
		}, "simulation.steps[0]: price must be positive"},
		{"step symbol", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 1}, {Symbol: "DOGE-USD", Price: 1}}
		}, "simulation.steps[1]: unknown symbol: DOGE-USD"},
		{"step delay", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 1, Delay: "soon"}}
		}, "delay"},
		{"step negative delay", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 1, Delay: "-1s"}}
		}, "delay must not be negative"},
		{"order size", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 1, Action: "buy"}}
		}, "size must be positive"},
		{"order below min size", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 1, Action: "sell", Size: 0.0001}}
		}, "below minimum"},
		{"order leverage", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 1, Action: "buy", Size: 1, Leverage: 60}}
		}, "leverage 60 exceeds max 50"},
		{"risk sized order", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 3000, Action: "buy", RiskPercent: 0.01, StopLoss: 2900}}
		}, ""},
		{"risk percent needs stop", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 3000, Action: "buy", RiskPercent: 0.01}}
		}, "risk_percent needs a stop_loss"},
		{"risk percent range", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 3000, Action: "sell", RiskPercent: 2, StopLoss: 3100}}
		}, "risk_percent must be between 0 and 1"},
		{"stoploss price", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 1, Action: "stoploss"}}
		}, "stop_loss must be positive"},
		{"takeprofit price", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 1, Action: "takeprofit"}}
		}, "take_profit must be positive"},
		{"trailing percent", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 1, Action: "trailing", TrailPercent: 100}}
		}, "trail_percent must be between 0 and 100"},
		{"unknown action", func(c *Config) {
			c.Simulation.Steps = []Step{{Price: 1, Action: "hedge"}}
		}, `unknown action "hedge"`},
		{"journal type", func(c *Config) { c.Journal.Type = "postgres" }, "journal.type must be"},
		{"csv files", func(c *Config) { c.Journal = JournalConfig{Type: "csv", TradesFile: "t.csv"} }, "trades_file and equity_file required"},
		{"sqlite path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }, "db_path required"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"risk limits", func(c *Config) { c.Risk = RiskConfig{MaxRiskPct: 0.02, MaxLeverage: 10, MinRR: 1.5} }, ""},
		{"risk pct range", func(c *Config) { c.Risk.MaxRiskPct = 1.5 }, "risk.max_risk_pct must be between 0 and 1"},
		{"risk leverage", func(c *Config) { c.Risk.MaxLeverage = 0.5 }, "risk.max_leverage must be at least 1"},
		{"risk positions", func(c *Config) { c.Risk.MaxOpenPositions = -1 }, "risk.max_open_positions"},
		{"risk rr", func(c *Config) { c.Risk.MinRR = -1 }, "risk.min_rr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
		{"yml format", ".YML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
account:
  id: acct-7
  currency: USD
  balance: 2500
simulation:
  symbol: ETH-USD
  leverage: 3
  start: "2024-02-01T00:00:00Z"
  close_at_end: true
  steps:
    - price: 3000
      action: sell
      size: 0.5
      stop_loss: 3300
    - price: 2900
      delay: 5m
    - price: 2950
      delay: 5m
      action: trailing
      trail_percent: 2
journal:
  type: sqlite
  db_path: ./perps.db
log:
  level: debug
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "acct-7", cfg.Account.ID)
	assert.True(t, cfg.Simulation.CloseAtEnd)
	require.Len(t, cfg.Simulation.Steps, 3)
	assert.Equal(t, 3300.0, cfg.Simulation.Steps[0].StopLoss)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: [1, 2"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "parse config")

	require.NoError(t, os.WriteFile(path, []byte("account:\n  currency: USD\n"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestStepParseDuration(t *testing.T) {
	tests := []struct {
		delay    string
		expected string
		wantErr  bool
	}{
		{"1h", "1h0m0s", false},
		{"30m", "30m0s", false},
		{"1s", "1s", false},
		{"", "0s", false},
		{"invalid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.delay, func(t *testing.T) {
			s := Step{Delay: tt.delay}
			d, err := s.ParseDuration()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, d.String())
			}
		})
	}
}

func TestRows(t *testing.T) {
	cfg := valid()
	cfg.Simulation.Steps = []Step{
		{Price: 3000, Action: "buy", Size: 2, StopLoss: 2800},
		{Price: 3100, Delay: "1m", Action: "takeprofit", TakeProfit: 3500},
		{Symbol: "BTC-USD", Price: 50000, Delay: "30s", Action: "sell", Size: 0.1, Leverage: 2, TakeProfit: 45000},
		{Price: 3050, Action: "trailing", TrailPercent: 1.5},
		{Price: 3060, Delay: "1s", Action: "close", Reason: "done"},
		{Price: 3070},
	}

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rows, err := cfg.Rows(now)
	require.NoError(t, err)
	require.Len(t, rows, 6)

	assert.Equal(t, "ETH-USD", rows[0].Tick.Symbol)
	assert.True(t, rows[0].Tick.Time.Equal(now))
	assert.Equal(t, []string{"buy", "2", "5", "2800", ""}, []string{rows[0].Event, rows[0].P1, rows[0].P2, rows[0].P3, rows[0].P4})

	assert.True(t, rows[1].Tick.Time.Equal(now.Add(time.Minute)))
	assert.Equal(t, "3500", rows[1].P1)

	assert.Equal(t, "BTC-USD", rows[2].Tick.Symbol)
	assert.True(t, rows[2].Tick.Time.Equal(now.Add(90*time.Second)))
	assert.Equal(t, []string{"0.1", "2", "", "45000"}, []string{rows[2].P1, rows[2].P2, rows[2].P3, rows[2].P4})

	assert.Equal(t, []string{"1.5", "0"}, []string{rows[3].P1, rows[3].P2})
	assert.Equal(t, "done", rows[4].P1)
	assert.Empty(t, rows[5].Event)
	assert.Equal(t, 6, rows[5].Line)
}

func TestRowsUsesStart(t *testing.T) {
	cfg := valid()
	cfg.Simulation.Start = "2024-02-01T00:00:00Z"
	cfg.Simulation.Steps = []Step{{Price: 1, Delay: "1h"}}

	rows, err := cfg.Rows(time.Now())
	require.NoError(t, err)
	assert.True(t, rows[0].Tick.Time.Equal(time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)))
}

func TestJournalOpen(t *testing.T) {
	dir := t.TempDir()

	j, err := JournalConfig{Type: "none"}.Open()
	require.NoError(t, err)
	assert.Equal(t, journal.Discard, j)

	j, err = JournalConfig{
		Type:       "csv",
		TradesFile: filepath.Join(dir, "trades.csv"),
		EquityFile: filepath.Join(dir, "equity.csv"),
	}.Open()
	require.NoError(t, err)
	require.NoError(t, j.Close())
	assert.FileExists(t, filepath.Join(dir, "trades.csv"))

	j, err = JournalConfig{Type: "sqlite", DBPath: filepath.Join(dir, "perps.db")}.Open()
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = JournalConfig{Type: "mongo"}.Open()
	assert.Error(t, err)
}

func TestRowsRiskSized(t *testing.T) {
	cfg := valid()
	cfg.Simulation.Steps = []Step{
		{Price: 3000, Action: "buy", RiskPercent: 0.005, StopLoss: 2900},
		{Price: 3000, Action: "sell", Size: 1, RiskPercent: 0.01},
	}

	rows, err := cfg.Rows(time.Now())
	require.NoError(t, err)
	assert.Equal(t, "0.5%", rows[0].P1)
	assert.Equal(t, "2900", rows[0].P3)
	assert.Equal(t, "1", rows[1].P1, "an explicit size wins")
}

func TestRiskPolicy(t *testing.T) {
	assert.Nil(t, RiskConfig{}.Policy())

	p := RiskConfig{MaxRiskPct: 0.01, MaxOpenPositions: 2}.Policy()
	require.NotNil(t, p)
	assert.Equal(t, 0.01, p.MaxRiskPct)
	assert.Equal(t, 2, p.MaxOpenPositions)
	assert.Zero(t, p.MaxLeverage)
}
