package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Feed          string
	BaseURL       string
	Windows       []int
	HistoryDays   int
	CacheDSN      string
	DecisionsPath string
	MetricsAddr   string
	MaxNotional   float64
	Cooldown      time.Duration
	KillSwitch    bool
	APIKey        string
	APISecret     string
}

// fileConfig is the YAML shape. Durations are plain seconds so the
// file stays tool-friendly.
type fileConfig struct {
	Feed            string  `yaml:"feed"`
	BaseURL         string  `yaml:"base_url"`
	Windows         []int   `yaml:"windows"`
	HistoryDays     int     `yaml:"history_days"`
	CacheDSN        string  `yaml:"cache_dsn"`
	DecisionsPath   string  `yaml:"decisions_path"`
	MetricsAddr     string  `yaml:"metrics_addr"`
	MaxNotional     float64 `yaml:"max_notional"`
	CooldownSeconds int     `yaml:"cooldown_seconds"`
	KillSwitch      bool    `yaml:"kill_switch"`
}

// Load layers configuration: flag defaults, then the optional YAML
// file, then environment, then explicitly set flags. API credentials
// only come from the environment (or .env).
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	var configPath string
	var windows string

	flag.StringVar(&configPath, "config", "", "path to YAML config file")
	flag.StringVar(&cfg.Feed, "feed", "iex", "market data feed: iex or sip")
	flag.StringVar(&cfg.BaseURL, "base-url", "https://paper-api.alpaca.markets", "broker API base URL")
	flag.StringVar(&windows, "windows", "5,10,50,100,250", "comma-separated moving-average windows")
	flag.IntVar(&cfg.HistoryDays, "history-days", 7, "days of history to seed per symbol")
	flag.StringVar(&cfg.CacheDSN, "cache-dsn", "bars.db", "SQLite bar cache path, empty to disable")
	flag.StringVar(&cfg.DecisionsPath, "decisions-path", "decisions.ndjson", "path to decisions log")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Prometheus listen address, empty to disable")
	flag.Float64Var(&cfg.MaxNotional, "max-notional", 0, "max notional per sell, 0 for no cap")
	flag.DurationVar(&cfg.Cooldown, "cooldown", 0, "cooldown between sells")
	flag.BoolVar(&cfg.KillSwitch, "kill-switch", false, "if true, never place orders")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if configPath != "" {
		if err := applyFile(&cfg, configPath, set); err != nil {
			return cfg, err
		}
	}

	if set["windows"] || len(cfg.Windows) == 0 {
		parsed, err := parseWindows(windows)
		if err != nil {
			return cfg, err
		}
		cfg.Windows = parsed
	}

	cfg.APIKey = os.Getenv("APCA_API_KEY_ID")
	cfg.APISecret = os.Getenv("APCA_API_SECRET_KEY")

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyFile overlays YAML values for every field not set on the
// command line.
func applyFile(cfg *Config, path string, set map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}

	if !set["feed"] && file.Feed != "" {
		cfg.Feed = file.Feed
	}
	if !set["base-url"] && file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if !set["windows"] && len(file.Windows) > 0 {
		cfg.Windows = file.Windows
	}
	if !set["history-days"] && file.HistoryDays > 0 {
		cfg.HistoryDays = file.HistoryDays
	}
	if !set["cache-dsn"] && file.CacheDSN != "" {
		cfg.CacheDSN = file.CacheDSN
	}
	if !set["decisions-path"] && file.DecisionsPath != "" {
		cfg.DecisionsPath = file.DecisionsPath
	}
	if !set["metrics-addr"] && file.MetricsAddr != "" {
		cfg.MetricsAddr = file.MetricsAddr
	}
	if !set["max-notional"] && file.MaxNotional > 0 {
		cfg.MaxNotional = file.MaxNotional
	}
	if !set["cooldown"] && file.CooldownSeconds > 0 {
		cfg.Cooldown = time.Duration(file.CooldownSeconds) * time.Second
	}
	if !set["kill-switch"] && file.KillSwitch {
		cfg.KillSwitch = true
	}
	return nil
}

func parseWindows(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	windows := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		w, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid window %q: %w", part, err)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func validate(cfg Config) error {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required")
	}
	if cfg.Feed != "iex" && cfg.Feed != "sip" {
		return fmt.Errorf("invalid feed: %s", cfg.Feed)
	}
	if len(cfg.Windows) == 0 {
		return fmt.Errorf("at least one window is required")
	}
	for _, w := range cfg.Windows {
		if w <= 1 {
			return fmt.Errorf("window must be > 1, got %d", w)
		}
	}
	if cfg.HistoryDays <= 0 {
		return fmt.Errorf("history-days must be > 0")
	}
	if cfg.MaxNotional < 0 {
		return fmt.Errorf("max-notional must be >= 0")
	}
	if cfg.Cooldown < 0 {
		return fmt.Errorf("cooldown must be >= 0")
	}
	return nil
}
