package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/otcpool/internal/config"
	"github.com/efreitasn/otcpool/internal/engine"
	"github.com/efreitasn/otcpool/internal/events"
	"github.com/efreitasn/otcpool/internal/handler"
	"github.com/efreitasn/otcpool/internal/pricing"
	"github.com/efreitasn/otcpool/internal/service"
	"github.com/efreitasn/otcpool/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("otcpool exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Reference price adapters.
	aggregator := pricing.NewAggregatorClient(pricing.AggregatorConfig{
		BaseURL:        cfg.AggregatorURL,
		InputMint:      cfg.InputMint,
		OutputMint:     cfg.OutputMint,
		InputDecimals:  int32(cfg.InputDecimals),
		OutputDecimals: int32(cfg.OutputDecimals),
		SlippageBps:    cfg.SlippageBps,
		Timeout:        cfg.QuoteTimeout,
	})
	market := pricing.NewMarketDataClient(cfg.MarketDataURL, cfg.MarketAssetID, cfg.QuoteTimeout)

	// In-memory history and event sinks.
	state := engine.NewReferenceState()
	matches := store.NewMatchStore()
	prices := store.NewPriceStore(store.DefaultPriceCapacity)

	sinks, err := openSinks(ctx, cfg, state, logger)
	if err != nil {
		return err
	}
	sinks = append([]events.Sink{matches, prices}, sinks...)
	dispatcher := events.NewDispatcher(logger, sinks...)
	logger.Info("event sinks ready", slog.Any("sinks", dispatcher.Sinks()))

	// Engine.
	book := engine.NewOfferBook()
	monitor := engine.NewMonitor(book, aggregator, market, dispatcher, state, engine.MonitorConfig{
		StopTimeout:  cfg.MonitorStopTimeout,
		FetchTimeout: cfg.QuoteTimeout,
		ThresholdPct: cfg.ThresholdPct,
		UnitSize:     cfg.UnitSize,
		MarketEvery:  cfg.MarketEvery,
	}, logger)

	pool := service.NewPoolService(book, monitor, aggregator, dispatcher, matches, prices, logger)
	if cfg.MonitorAutostart {
		pool.StartMonitor(ctx, cfg.MonitorInterval.Seconds())
	}

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(pool, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		// Graceful shutdown: stop the monitor, drain the server, close sinks.
		pool.StopMonitor()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sinks: %w", err))
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

// openSinks connects every optional sink enabled in cfg. On failure the
// sinks opened so far are closed.
func openSinks(ctx context.Context, cfg *config.Config, state *engine.ReferenceState, logger *slog.Logger) ([]events.Sink, error) {
	sinks := []events.Sink{events.NewLogSink(logger)}
	fail := func(err error) ([]events.Sink, error) {
		for _, s := range sinks {
			if c, ok := s.(io.Closer); ok {
				_ = c.Close()
			}
		}
		return nil, err
	}

	if cfg.CSVDir != "" {
		s, err := events.NewCSVSink(cfg.CSVDir, state)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if cfg.RedisAddr != "" {
		s, err := events.NewRedisSink(ctx, events.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if len(cfg.KafkaBrokers) > 0 {
		sinks = append(sinks, events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	if cfg.WebhookURL != "" {
		s, err := events.NewWebhookSink(cfg.WebhookURL, cfg.WebhookEvents, cfg.WebhookTimeout)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if cfg.DatabaseDSN != "" {
		s, err := events.NewPostgresSink(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}
