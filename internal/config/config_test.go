package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/pricing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "otcpool.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.MonitorInterval != 15*time.Second {
		t.Errorf("MonitorInterval = %v, want 15s", cfg.MonitorInterval)
	}
	if cfg.MonitorStopTimeout != 5*time.Second {
		t.Errorf("MonitorStopTimeout = %v, want 5s", cfg.MonitorStopTimeout)
	}
	if cfg.MonitorAutostart {
		t.Error("MonitorAutostart = true, want false")
	}
	if cfg.ThresholdPct != 1.0 {
		t.Errorf("ThresholdPct = %v, want 1", cfg.ThresholdPct)
	}
	if cfg.UnitSize != 1.0 {
		t.Errorf("UnitSize = %v, want 1", cfg.UnitSize)
	}
	if cfg.MarketEvery != 5 {
		t.Errorf("MarketEvery = %d, want 5", cfg.MarketEvery)
	}
	if cfg.QuoteTimeout != 10*time.Second {
		t.Errorf("QuoteTimeout = %v, want 10s", cfg.QuoteTimeout)
	}
	if cfg.AggregatorURL != pricing.DefaultAggregatorURL {
		t.Errorf("AggregatorURL = %q, want %q", cfg.AggregatorURL, pricing.DefaultAggregatorURL)
	}
	if cfg.InputMint != pricing.SOLMint || cfg.OutputMint != pricing.USDCMint {
		t.Errorf("mints = %q/%q", cfg.InputMint, cfg.OutputMint)
	}
	if cfg.InputDecimals != 9 || cfg.OutputDecimals != 6 {
		t.Errorf("decimals = %d/%d, want 9/6", cfg.InputDecimals, cfg.OutputDecimals)
	}
	if cfg.SlippageBps != 50 {
		t.Errorf("SlippageBps = %d, want 50", cfg.SlippageBps)
	}
	if cfg.MarketAssetID != "solana" {
		t.Errorf("MarketAssetID = %q, want solana", cfg.MarketAssetID)
	}
	if cfg.CSVDir != "" || cfg.RedisAddr != "" || cfg.DatabaseDSN != "" || len(cfg.KafkaBrokers) != 0 {
		t.Errorf("optional sinks should be disabled by default: %+v", cfg)
	}
	if cfg.KafkaTopic != "otc-events" {
		t.Errorf("KafkaTopic = %q, want otc-events", cfg.KafkaTopic)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want 30s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MONITOR_INTERVAL", "30s")
	t.Setenv("MONITOR_AUTOSTART", "true")
	t.Setenv("ARBITRAGE_THRESHOLD_PCT", "2.5")
	t.Setenv("REFERENCE_UNIT_SIZE", "0.5")
	t.Setenv("MARKET_EVERY", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("WEBHOOK_EVENTS", "match, arbitrage_opportunity")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.MonitorInterval != 30*time.Second {
		t.Errorf("MonitorInterval = %v, want 30s", cfg.MonitorInterval)
	}
	if !cfg.MonitorAutostart {
		t.Error("MonitorAutostart = false, want true")
	}
	if cfg.ThresholdPct != 2.5 {
		t.Errorf("ThresholdPct = %v, want 2.5", cfg.ThresholdPct)
	}
	if cfg.UnitSize != 0.5 {
		t.Errorf("UnitSize = %v, want 0.5", cfg.UnitSize)
	}
	if cfg.MarketEvery != 3 {
		t.Errorf("MarketEvery = %d, want 3", cfg.MarketEvery)
	}
	if want := []string{"k1:9092", "k2:9092"}; !reflect.DeepEqual(cfg.KafkaBrokers, want) {
		t.Errorf("KafkaBrokers = %v, want %v", cfg.KafkaBrokers, want)
	}
	if cfg.RedisDB != 2 {
		t.Errorf("RedisDB = %d, want 2", cfg.RedisDB)
	}
	if want := []domain.EventKind{domain.EventMatch, domain.EventArbitrageOpportunity}; !reflect.DeepEqual(cfg.WebhookEvents, want) {
		t.Errorf("WebhookEvents = %v, want %v", cfg.WebhookEvents, want)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
port = 7000
monitor_interval = "1m"
arbitrage_threshold_pct = 0.75
monitor_autostart = true
kafka_brokers = ["a:9092", "b:9092"]
csv_dir = "/var/lib/otcpool"
`)
	t.Setenv("CONFIG_FILE", path)
	// The environment wins over the file.
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 7100 {
		t.Errorf("Port = %d, want 7100", cfg.Port)
	}
	if cfg.MonitorInterval != time.Minute {
		t.Errorf("MonitorInterval = %v, want 1m", cfg.MonitorInterval)
	}
	if cfg.ThresholdPct != 0.75 {
		t.Errorf("ThresholdPct = %v, want 0.75", cfg.ThresholdPct)
	}
	if !cfg.MonitorAutostart {
		t.Error("MonitorAutostart = false, want true")
	}
	if want := []string{"a:9092", "b:9092"}; !reflect.DeepEqual(cfg.KafkaBrokers, want) {
		t.Errorf("KafkaBrokers = %v, want %v", cfg.KafkaBrokers, want)
	}
	if cfg.CSVDir != "/var/lib/otcpool" {
		t.Errorf("CSVDir = %q", cfg.CSVDir)
	}
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.toml"))
		if _, err := Load(); err == nil {
			t.Fatal("expected error for missing CONFIG_FILE")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfigFile(t, "port = = 1"))
		if _, err := Load(); err == nil {
			t.Fatal("expected error for malformed CONFIG_FILE")
		}
	})

	t.Run("bad value in file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfigFile(t, `monitor_interval = "soon"`))
		if _, err := Load(); err == nil {
			t.Fatal("expected error for invalid monitor_interval")
		}
	})
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	for _, key := range durationEnvKeys {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-duration")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}

func TestLoad_OutOfRange(t *testing.T) {
	tests := []struct {
		key string
		val string
	}{
		{"MONITOR_INTERVAL", "0s"},
		{"ARBITRAGE_THRESHOLD_PCT", "0"},
		{"ARBITRAGE_THRESHOLD_PCT", "abc"},
		{"REFERENCE_UNIT_SIZE", "-1"},
		{"MARKET_EVERY", "0"},
		{"INPUT_DECIMALS", "19"},
		{"OUTPUT_DECIMALS", "-1"},
		{"SLIPPAGE_BPS", "-5"},
		{"MONITOR_AUTOSTART", "maybe"},
		{"REDIS_DB", "one"},
		{"WEBHOOK_EVENTS", "MATCH,TRADE"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}
