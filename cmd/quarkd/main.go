package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quarkdapp/config"
	"quarkdapp/core"
	"quarkdapp/core/events"
	"quarkdapp/core/state"
	"quarkdapp/integrations/eventsink"
	"quarkdapp/native/dapp"
	"quarkdapp/native/pricing"
	"quarkdapp/observability/logging"
	telemetry "quarkdapp/observability/otel"
	"quarkdapp/rpc"
	"quarkdapp/storage"
)

const serviceName = "quarkd"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(logging.Options{
		Service: serviceName,
		Env:     cfg.Environment,
		File:    cfg.LogFile,
		Level:   logging.ParseLevel(cfg.LogLevel),
	}, os.Stdout)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("quarkd stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("quarkd stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	accounts, err := cfg.Accounts()
	if err != nil {
		return err
	}
	prices, err := buildPriceOracle(cfg)
	if err != nil {
		return err
	}
	engine := dapp.NewEngine(accounts)
	engine.SetPriceOracle(prices)
	engine.SetPauses(cfg.Pauses())
	engine.SetPayoutThreshold(cfg.PayoutThreshold)

	sink, closeSinks, err := buildSinks(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	mgr := state.NewManager(db)
	if err := mgr.EnsureSchemaVersion(); err != nil {
		return err
	}
	exec := core.NewExecutor(mgr, engine,
		core.WithSink(sink),
		core.WithLogger(logger))

	alloc, err := cfg.GenesisAlloc()
	if err != nil {
		return err
	}
	if err := exec.ApplyGenesis(ctx, alloc); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}

	quota, err := cfg.SignerQuota()
	if err != nil {
		return err
	}
	server := rpc.NewServer(exec, rpc.Config{
		RateLimit:   rpc.RateLimit{RequestsPerMinute: cfg.RPC.RequestsPerMinute, Burst: cfg.RPC.Burst},
		SignerQuota: quota,
		Logger:      logger,
	})
	logger.Info("quarkd starting",
		slog.String("listen", cfg.ListenAddress),
		slog.String("data_dir", cfg.DataDir),
		slog.Bool("paused", cfg.Paused))
	return server.Serve(ctx, cfg.ListenAddress)
}

// buildPriceOracle consults configured pair rates first and falls back to
// the default rate.
func buildPriceOracle(cfg *config.Config) (pricing.PriceOracle, error) {
	agg := pricing.NewAggregator(cfg.MaxQuoteAge())
	if len(cfg.Pricing.Rates) > 0 {
		manual := pricing.NewManualOracle()
		now := time.Now()
		for _, pair := range cfg.Pricing.Rates {
			if err := manual.SetDecimal(pair.Base, pair.Quote, pair.Rate, now); err != nil {
				return nil, fmt.Errorf("pricing rate %s/%s: %w", pair.Base, pair.Quote, err)
			}
		}
		agg.Register("configured", manual)
	}
	if strings.TrimSpace(cfg.Pricing.DefaultRate) != "" {
		rate, err := pricing.ParseRate(cfg.Pricing.DefaultRate)
		if err != nil {
			return nil, fmt.Errorf("pricing default rate: %w", err)
		}
		agg.Register("static", pricing.NewStaticOracle(rate))
	}
	return agg, nil
}

func buildSinks(cfg *config.Config, logger *slog.Logger) (events.Emitter, func(), error) {
	var (
		fanout  events.Fanout
		closers []func(context.Context) error
	)
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := eventsink.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ClientID)
		if err != nil {
			return nil, nil, err
		}
		sink, err := eventsink.NewKafkaSink(writer, eventsink.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		fanout = append(fanout, sink)
		closers = append(closers, sink.Close)
	}
	if endpoint := strings.TrimSpace(cfg.Webhook.Endpoint); endpoint != "" {
		secret := os.Getenv(cfg.Webhook.SecretEnv)
		sink, err := eventsink.NewWebhookSink(endpoint, []byte(secret), nil, eventsink.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("webhook sink: %w", err)
		}
		fanout = append(fanout, sink)
		closers = append(closers, sink.Close)
	}
	closeAll := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, closeFn := range closers {
			if err := closeFn(ctx); err != nil {
				logger.Warn("event sink close failed", slog.Any("error", err))
			}
		}
	}
	return fanout, closeAll, nil
}
