package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/engine"
	"github.com/efreitasn/otcpool/internal/pricing"
)

// Config holds all runtime configuration for the OTC pool.
type Config struct {
	Port     int
	LogLevel string

	MonitorInterval    time.Duration
	MonitorStopTimeout time.Duration
	MonitorAutostart   bool
	ThresholdPct       float64
	UnitSize           float64
	MarketEvery        int
	QuoteTimeout       time.Duration

	AggregatorURL  string
	InputMint      string
	OutputMint     string
	InputDecimals  int
	OutputDecimals int
	SlippageBps    int
	MarketDataURL  string
	MarketAssetID  string

	// Optional sinks. Empty values disable them.
	CSVDir        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KafkaBrokers  []string
	KafkaTopic    string
	DatabaseDSN   string

	WebhookURL     string
	WebhookEvents  []domain.EventKind
	WebhookTimeout time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration, applies defaults, and validates values. It
// returns an error for any invalid value.
//
// Values are resolved per key in this order, last one winning: built-in
// default, the TOML file named by CONFIG_FILE (keys are the lower-cased
// variable names), a .env file in the working directory, and the process
// environment.
func Load() (*Config, error) {
	// Variables already set in the environment are not overridden.
	_ = godotenv.Load()

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &src.file); err != nil {
			return nil, fmt.Errorf("invalid CONFIG_FILE %q: %w", path, err)
		}
	}

	cfg := &Config{}
	var err error

	if cfg.Port, err = src.getInt("PORT", 8080); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	cfg.LogLevel = src.getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	if cfg.MonitorInterval, err = src.getDuration("MONITOR_INTERVAL", engine.DefaultMonitorInterval); err != nil {
		return nil, fmt.Errorf("invalid MONITOR_INTERVAL: %w", err)
	}
	if cfg.MonitorInterval <= 0 {
		return nil, fmt.Errorf("invalid MONITOR_INTERVAL: must be positive")
	}

	if cfg.MonitorStopTimeout, err = src.getDuration("MONITOR_STOP_TIMEOUT", engine.DefaultStopTimeout); err != nil {
		return nil, fmt.Errorf("invalid MONITOR_STOP_TIMEOUT: %w", err)
	}

	if cfg.MonitorAutostart, err = src.getBool("MONITOR_AUTOSTART", false); err != nil {
		return nil, fmt.Errorf("invalid MONITOR_AUTOSTART: %w", err)
	}

	if cfg.ThresholdPct, err = src.getFloat("ARBITRAGE_THRESHOLD_PCT", engine.DefaultThresholdPct); err != nil {
		return nil, fmt.Errorf("invalid ARBITRAGE_THRESHOLD_PCT: %w", err)
	}
	if !(cfg.ThresholdPct > 0) {
		return nil, fmt.Errorf("invalid ARBITRAGE_THRESHOLD_PCT: must be positive")
	}

	if cfg.UnitSize, err = src.getFloat("REFERENCE_UNIT_SIZE", engine.DefaultUnitSize); err != nil {
		return nil, fmt.Errorf("invalid REFERENCE_UNIT_SIZE: %w", err)
	}
	if !(cfg.UnitSize > 0) {
		return nil, fmt.Errorf("invalid REFERENCE_UNIT_SIZE: must be positive")
	}

	if cfg.MarketEvery, err = src.getInt("MARKET_EVERY", engine.DefaultMarketEvery); err != nil {
		return nil, fmt.Errorf("invalid MARKET_EVERY: %w", err)
	}
	if cfg.MarketEvery < 1 {
		return nil, fmt.Errorf("invalid MARKET_EVERY: must be at least 1")
	}

	if cfg.QuoteTimeout, err = src.getDuration("QUOTE_TIMEOUT", engine.DefaultFetchTimeout); err != nil {
		return nil, fmt.Errorf("invalid QUOTE_TIMEOUT: %w", err)
	}

	cfg.AggregatorURL = src.getStr("AGGREGATOR_URL", pricing.DefaultAggregatorURL)
	cfg.InputMint = src.getStr("INPUT_MINT", pricing.SOLMint)
	cfg.OutputMint = src.getStr("OUTPUT_MINT", pricing.USDCMint)

	if cfg.InputDecimals, err = src.getInt("INPUT_DECIMALS", 9); err != nil {
		return nil, fmt.Errorf("invalid INPUT_DECIMALS: %w", err)
	}
	if cfg.OutputDecimals, err = src.getInt("OUTPUT_DECIMALS", 6); err != nil {
		return nil, fmt.Errorf("invalid OUTPUT_DECIMALS: %w", err)
	}
	for key, v := range map[string]int{"INPUT_DECIMALS": cfg.InputDecimals, "OUTPUT_DECIMALS": cfg.OutputDecimals} {
		if v < 0 || v > 18 {
			return nil, fmt.Errorf("invalid %s: %d, must be between 0 and 18", key, v)
		}
	}

	if cfg.SlippageBps, err = src.getInt("SLIPPAGE_BPS", 50); err != nil {
		return nil, fmt.Errorf("invalid SLIPPAGE_BPS: %w", err)
	}
	if cfg.SlippageBps < 0 {
		return nil, fmt.Errorf("invalid SLIPPAGE_BPS: must not be negative")
	}

	cfg.MarketDataURL = src.getStr("MARKET_DATA_URL", pricing.DefaultMarketDataURL)
	cfg.MarketAssetID = src.getStr("MARKET_ASSET_ID", pricing.DefaultMarketAssetID)

	cfg.CSVDir = src.getStr("CSV_DIR", "")
	cfg.RedisAddr = src.getStr("REDIS_ADDR", "")
	cfg.RedisPassword = src.getStr("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = src.getInt("REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.KafkaBrokers = src.getList("KAFKA_BROKERS")
	cfg.KafkaTopic = src.getStr("KAFKA_TOPIC", "otc-events")
	cfg.DatabaseDSN = src.getStr("DATABASE_DSN", "")

	cfg.WebhookURL = src.getStr("WEBHOOK_URL", "")
	for _, name := range src.getList("WEBHOOK_EVENTS") {
		kind, ok := domain.ParseEventKind(name)
		if !ok {
			return nil, fmt.Errorf("invalid WEBHOOK_EVENTS: unknown event %q, must be one of: MATCH, PRICE_SAMPLE, ARBITRAGE_OPPORTUNITY", name)
		}
		cfg.WebhookEvents = append(cfg.WebhookEvents, kind)
	}
	if cfg.WebhookTimeout, err = src.getDuration("WEBHOOK_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	if cfg.ReadTimeout, err = src.getDuration("READ_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}
	if cfg.WriteTimeout, err = src.getDuration("WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}
	if cfg.IdleTimeout, err = src.getDuration("IDLE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = src.getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// source resolves a key from the environment, then the config file.
type source struct {
	file map[string]any
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	v, ok := s.file[strings.ToLower(key)]
	if !ok {
		return ""
	}
	switch tv := v.(type) {
	case []any:
		parts := make([]string, 0, len(tv))
		for _, p := range tv {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(tv)
	}
}

func (s source) getStr(key, defaultVal string) string {
	v := s.lookup(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func (s source) getInt(key string, defaultVal int) (int, error) {
	v := s.lookup(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func (s source) getFloat(key string, defaultVal float64) (float64, error) {
	v := s.lookup(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func (s source) getBool(key string, defaultVal bool) (bool, error) {
	v := s.lookup(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func (s source) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := s.lookup(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

// getList splits a comma-separated value, dropping empty entries.
func (s source) getList(key string) []string {
	var out []string
	for _, part := range strings.Split(s.lookup(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
