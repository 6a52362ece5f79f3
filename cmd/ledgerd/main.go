package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/example/points-ledger/internal/api"
	"github.com/example/points-ledger/internal/config"
	"github.com/example/points-ledger/internal/events"
	"github.com/example/points-ledger/internal/ledger"
	"github.com/example/points-ledger/internal/settlement"
	"github.com/example/points-ledger/internal/storage/memory"
	"github.com/example/points-ledger/internal/storage/postgres"
	"github.com/example/points-ledger/internal/storage/sqlite"
	"github.com/example/points-ledger/pkg/audit"
)

func main() {
	// Missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "ledgerd").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Environment == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open ledger store")
	}
	defer closeStore()

	settleClient := settlement.New(cfg.BlockchainURL, cfg.SettlementTimeout, log)

	var publisher ledger.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
		log.Info().Strs("brokers", cfg.KafkaBrokers).Msg("kafka publisher enabled")
	}

	engine, err := ledger.NewEngine(ledger.Config{
		Store:              store,
		Settlement:         settleClient,
		Events:             publisher,
		Trail:              audit.NewTrail(),
		Logger:             log,
		AnchorEarnReceipts: cfg.AnchorEarnReceipts,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build ledger engine")
	}

	handler := api.NewRouter(api.Dependencies{
		Logger:     log,
		Ledger:     engine,
		Settlement: settleClient,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("store", cfg.StoreDriver).Msg("ledger server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

func openStore(cfg *config.Config) (ledger.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.New(), func() {}, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger store %q", cfg.StoreDriver)
	}
}
