package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/srgjo27/escrow_booking/internal/adapter/cache"
	"github.com/srgjo27/escrow_booking/internal/adapter/events"
	"github.com/srgjo27/escrow_booking/internal/adapter/handler"
	"github.com/srgjo27/escrow_booking/internal/adapter/ledger/xrpl"
	"github.com/srgjo27/escrow_booking/internal/adapter/repository/memory"
	"github.com/srgjo27/escrow_booking/internal/adapter/repository/postgres"
	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/ports"
	"github.com/srgjo27/escrow_booking/internal/core/services"
	"github.com/srgjo27/escrow_booking/internal/platform/clock"
	"github.com/srgjo27/escrow_booking/internal/platform/config"
	"github.com/srgjo27/escrow_booking/internal/platform/database"
	"github.com/srgjo27/escrow_booking/internal/platform/seed"
)

func main() {
	cfg, err := config.Load(config.Options{
		File:     os.Getenv("BOOKING_CONFIG_FILE"),
		EnvFiles: []string{".env"},
	})
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.Log.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	var logger *slog.Logger
	if cfg.Log.Format == "text" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	logger = logger.With("service", "escrow-booking")
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

type storage struct {
	entities ports.EntityRepository
	holds    ports.HoldRepository
	close    func() error
}

func openStorage(ctx context.Context, cfg *config.Config, entities []domain.BookableEntity, logger *slog.Logger) (*storage, error) {
	if cfg.Storage.Driver != config.StoragePostgres {
		logger.Info("using in-memory storage", "entities", len(entities))
		return &storage{
			entities: memory.NewEntityRepository(entities),
			holds:    memory.NewHoldRepository(),
			close:    func() error { return nil },
		}, nil
	}

	db, err := database.NewPostgresDB(ctx, cfg.Database.Postgres(), logger.With("module", "database"))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := prepareDatabase(ctx, db, entities); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &storage{
		entities: postgres.NewEntityRepository(db),
		holds:    postgres.NewHoldRepository(db),
		close:    db.Close,
	}, nil
}

func prepareDatabase(ctx context.Context, db *sql.DB, entities []domain.BookableEntity) error {
	if err := database.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := postgres.NewEntityRepository(db).Seed(ctx, entities); err != nil {
		return fmt.Errorf("seed entities: %w", err)
	}
	return nil
}

func openCache(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.Addr(), DB: cfg.DB}
	}

	logger.Info("connecting to redis", "addr", opts.Addr)
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("redis connected")
	return client, nil
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entities, err := seed.Load(cfg.Directory.SeedFile)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg, entities, logger)
	if err != nil {
		return err
	}
	defer store.close()

	var availability ports.AvailabilityCache
	if cfg.Redis.Enabled() {
		client, err := openCache(ctx, cfg.Redis, logger.With("module", "cache"))
		if err != nil {
			return err
		}
		defer client.Close()
		availability = cache.NewAvailabilityCache(client, cfg.Redis.AvailabilityTTL)
	}

	var publisher ports.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("publishing hold events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	ledger := xrpl.NewClient(xrpl.Config{
		URL:            cfg.Ledger.RPCURL,
		RequestTimeout: cfg.Ledger.RequestTimeout,
		PollInterval:   cfg.Ledger.PollInterval,
	}, logger)
	defer ledger.Close()

	clk := clock.NewSystem()
	directory := services.NewDirectoryService(store.entities, availability, logger)
	holds := services.NewHoldService(store.holds, directory, clk, logger,
		services.WithHoldDuration(cfg.Hold.Duration),
		services.WithPublisher(publisher),
	)
	escrow := services.NewEscrowService(ledger, xrpl.NewNodeSigner(ledger), holds, clk, services.EscrowConfig{
		Endpoint:           cfg.Ledger.RPCURL,
		OperatorCredential: cfg.Ledger.OperatorSeed,
		MinCancelBuffer:    cfg.Escrow.MinCancelBuffer,
		ExplorerBaseURL:    cfg.Ledger.ExplorerURL,
	}, logger)
	confirmation := services.NewConfirmationService(holds, ledger, escrow, publisher, cfg.Hold.SettleTimeout, logger)

	if err := escrow.EnsureConfigured(); err != nil {
		logger.Warn("ledger endpoint not configured, escrow and confirmation calls will fail", "error", err)
	}

	router := handler.NewRouter(
		handler.RouterConfig{AllowedOrigins: cfg.CORS.Origins, Logger: logger},
		handler.NewDirectoryHandler(directory),
		handler.NewBookingHandler(holds, confirmation),
		handler.NewEscrowHandler(escrow),
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", server.Addr, "hold_duration", cfg.Hold.Duration, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server startup failed: %w", err)
		}
		return nil
	})
	if cfg.Hold.SweeperEnabled {
		g.Go(func() error {
			holds.RunExpirySweeper(gctx, cfg.Hold.SweepInterval)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()

	done := make(chan struct{})
	go func() {
		confirmation.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.HTTP.ShutdownTimeout):
		logger.Warn("gave up waiting for escrow finishes")
	}

	logger.Info("server exiting")
	return err
}
