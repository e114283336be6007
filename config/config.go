package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/perps/internal/logging"
	"github.com/rustyeddy/perps/journal"
	"github.com/rustyeddy/perps/market"
	"github.com/rustyeddy/perps/replay"
	"github.com/rustyeddy/perps/risk"
)

// Config represents the complete simulation configuration
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Risk       RiskConfig       `json:"risk,omitempty" yaml:"risk,omitempty"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// SimulationConfig is a scripted session: a list of steps, each a price
// tick with an optional action, replayed against a fresh account.
type SimulationConfig struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	Leverage   float64 `json:"leverage" yaml:"leverage"`
	Start      string  `json:"start,omitempty" yaml:"start,omitempty"` // RFC3339, default now
	CloseAtEnd bool    `json:"close_at_end,omitempty" yaml:"close_at_end,omitempty"`
	Steps      []Step  `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Step is one tick of a scripted session.
type Step struct {
	Symbol string  `json:"symbol,omitempty" yaml:"symbol,omitempty"` // default simulation.symbol
	Price  float64 `json:"price" yaml:"price"`
	Delay  string  `json:"delay,omitempty" yaml:"delay,omitempty"` // e.g. "1h", "30m", "1s"

	// Action is one of buy, sell, close, stoploss, takeprofit, trailing.
	// Empty means a bare price tick.
	Action string  `json:"action,omitempty" yaml:"action,omitempty"`
	Size   float64 `json:"size,omitempty" yaml:"size,omitempty"`
	// RiskPercent sizes a buy or sell with no size so that its stop loss
	// costs this fraction of equity (0.01 = 1%).
	RiskPercent float64 `json:"risk_percent,omitempty" yaml:"risk_percent,omitempty"`
	Leverage    float64 `json:"leverage,omitempty" yaml:"leverage,omitempty"`
	StopLoss    float64 `json:"stop_loss,omitempty" yaml:"stop_loss,omitempty"`
	TakeProfit  float64 `json:"take_profit,omitempty" yaml:"take_profit,omitempty"`

	TrailPercent      float64 `json:"trail_percent,omitempty" yaml:"trail_percent,omitempty"`
	ActivationPercent float64 `json:"activation_percent,omitempty" yaml:"activation_percent,omitempty"`

	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ParseDuration converts the delay string to time.Duration
func (s Step) ParseDuration() (time.Duration, error) {
	if s.Delay == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Delay)
}

// RiskConfig holds the pre-trade limits applied to scripted orders.
// Percentages are fractions; zero disables a limit.
type RiskConfig struct {
	MaxRiskPct       float64 `json:"max_risk_pct,omitempty" yaml:"max_risk_pct,omitempty"`
	MaxLeverage      float64 `json:"max_leverage,omitempty" yaml:"max_leverage,omitempty"`
	MaxOpenPositions int     `json:"max_open_positions,omitempty" yaml:"max_open_positions,omitempty"`
	MaxMarginPct     float64 `json:"max_margin_pct,omitempty" yaml:"max_margin_pct,omitempty"`
	MinRR            float64 `json:"min_rr,omitempty" yaml:"min_rr,omitempty"`
}

// Policy returns the risk policy, or nil when no limit is set.
func (r RiskConfig) Policy() *risk.Policy {
	if r == (RiskConfig{}) {
		return nil
	}
	return &risk.Policy{
		MaxRiskPct:       r.MaxRiskPct,
		MaxLeverage:      r.MaxLeverage,
		MaxOpenPositions: r.MaxOpenPositions,
		MaxMarginPct:     r.MaxMarginPct,
		MinRR:            r.MinRR,
	}
}

func (r RiskConfig) validate() error {
	if r.MaxRiskPct < 0 || r.MaxRiskPct > 1 {
		return fmt.Errorf("risk.max_risk_pct must be between 0 and 1")
	}
	if r.MaxLeverage != 0 && r.MaxLeverage < 1 {
		return fmt.Errorf("risk.max_leverage must be at least 1")
	}
	if r.MaxOpenPositions < 0 {
		return fmt.Errorf("risk.max_open_positions must not be negative")
	}
	if r.MaxMarginPct < 0 {
		return fmt.Errorf("risk.max_margin_pct must not be negative")
	}
	if r.MinRR < 0 {
		return fmt.Errorf("risk.min_rr must not be negative")
	}
	return nil
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}

	sim := c.Simulation
	if sim.Symbol == "" {
		return fmt.Errorf("simulation.symbol is required")
	}
	meta, ok := market.Lookup(sim.Symbol)
	if !ok {
		return fmt.Errorf("unknown symbol: %s", sim.Symbol)
	}
	if err := checkLeverage("simulation.leverage", sim.Leverage, meta); err != nil {
		return err
	}
	if sim.Start != "" {
		if _, err := replay.ParseTime(sim.Start); err != nil {
			return fmt.Errorf("simulation.start: %w", err)
		}
	}
	for i, step := range sim.Steps {
		if err := c.validateStep(step); err != nil {
			return fmt.Errorf("simulation.steps[%d]: %w", i, err)
		}
	}

	if err := c.Risk.validate(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	if c.Log.Level != "" {
		if _, err := logging.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}

func (c *Config) validateStep(s Step) error {
	symbol := s.Symbol
	if symbol == "" {
		symbol = c.Simulation.Symbol
	}
	meta, ok := market.Lookup(symbol)
	if !ok {
		return fmt.Errorf("unknown symbol: %s", symbol)
	}
	if s.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	if d, err := s.ParseDuration(); err != nil {
		return fmt.Errorf("delay: %w", err)
	} else if d < 0 {
		return fmt.Errorf("delay must not be negative")
	}

	switch s.Action {
	case "", "close":
	case "buy", "sell":
		switch {
		case s.Size == 0 && s.RiskPercent != 0:
			if s.RiskPercent < 0 || s.RiskPercent > 1 {
				return fmt.Errorf("risk_percent must be between 0 and 1")
			}
			if s.StopLoss <= 0 {
				return fmt.Errorf("risk_percent needs a stop_loss")
			}
		case s.Size <= 0:
			return fmt.Errorf("size must be positive")
		case s.Size < meta.MinSize:
			return fmt.Errorf("size %v below minimum %v for %s", s.Size, meta.MinSize, symbol)
		}
		if s.Leverage != 0 {
			if err := checkLeverage("leverage", s.Leverage, meta); err != nil {
				return err
			}
		}
		if s.StopLoss < 0 || s.TakeProfit < 0 {
			return fmt.Errorf("stop_loss and take_profit must not be negative")
		}
	case "stoploss":
		if s.StopLoss <= 0 {
			return fmt.Errorf("stop_loss must be positive")
		}
	case "takeprofit":
		if s.TakeProfit <= 0 {
			return fmt.Errorf("take_profit must be positive")
		}
	case "trailing":
		if s.TrailPercent <= 0 || s.TrailPercent >= 100 {
			return fmt.Errorf("trail_percent must be between 0 and 100")
		}
		if s.ActivationPercent < 0 {
			return fmt.Errorf("activation_percent must not be negative")
		}
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	return nil
}

func checkLeverage(field string, lev float64, meta market.InstrumentMeta) error {
	if lev < 1 {
		return fmt.Errorf("%s must be at least 1", field)
	}
	if lev > meta.MaxLeverage {
		return fmt.Errorf("%s %v exceeds max %v for %s", field, lev, meta.MaxLeverage, meta.Symbol)
	}
	return nil
}

// Rows converts the scripted steps into replay rows. Step times start at
// simulation.start, or at now when it is empty, and advance by each
// step's delay.
func (c *Config) Rows(now time.Time) ([]replay.EventRow, error) {
	at := now
	if c.Simulation.Start != "" {
		t, err := replay.ParseTime(c.Simulation.Start)
		if err != nil {
			return nil, fmt.Errorf("simulation.start: %w", err)
		}
		at = t
	}

	rows := make([]replay.EventRow, 0, len(c.Simulation.Steps))
	for i, s := range c.Simulation.Steps {
		d, err := s.ParseDuration()
		if err != nil {
			return nil, fmt.Errorf("simulation.steps[%d]: delay: %w", i, err)
		}
		at = at.Add(d)

		symbol := s.Symbol
		if symbol == "" {
			symbol = c.Simulation.Symbol
		}
		row := replay.EventRow{
			Line:  i + 1,
			Tick:  market.Tick{Symbol: symbol, Price: s.Price, Time: at},
			Event: s.Action,
		}

		switch s.Action {
		case "buy", "sell":
			lev := s.Leverage
			if lev == 0 {
				lev = c.Simulation.Leverage
			}
			row.P1, row.P2 = num(s.Size), num(lev)
			if s.Size == 0 {
				row.P1 = num(s.RiskPercent*100) + "%"
			}
			row.P3, row.P4 = optNum(s.StopLoss), optNum(s.TakeProfit)
		case "close":
			row.P1 = s.Reason
		case "stoploss":
			row.P1 = num(s.StopLoss)
		case "takeprofit":
			row.P1 = num(s.TakeProfit)
		case "trailing":
			row.P1, row.P2 = num(s.TrailPercent), num(s.ActivationPercent)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optNum(v float64) string {
	if v == 0 {
		return ""
	}
	return num(v)
}

// Open creates the journal described by the config. The caller closes it.
func (j JournalConfig) Open() (journal.Journal, error) {
	switch j.Type {
	case "csv":
		return journal.NewCSV(j.TradesFile, j.EquityFile)
	case "sqlite":
		return journal.NewSQLite(j.DBPath)
	case "none", "":
		return journal.Discard, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", j.Type)
	}
}

// Default returns a configuration with sensible defaults. Its steps open
// a 10x long, run it up, protect it with a stop and then gap through the
// stop.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  10000,
		},
		Simulation: SimulationConfig{
			Symbol:   "BTC-USD",
			Leverage: 10,
			Steps: []Step{
				{Price: 50000, Action: "buy", Size: 1},
				{Price: 55000, Delay: "1m"},
				{Price: 55000, Delay: "30s", Action: "stoploss", StopLoss: 49000},
				{Price: 48000, Delay: "1m"},
			},
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
