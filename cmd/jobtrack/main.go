// cmd/jobtrack/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"jobtrack/internal/bus"
	"jobtrack/internal/classifier"
	"jobtrack/internal/common/config"
	"jobtrack/internal/common/database"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/live"
	"jobtrack/internal/mailbox"
	"jobtrack/internal/poller"
	"jobtrack/internal/server"
	"jobtrack/internal/store"
	"jobtrack/internal/tracker"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting jobtrack...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Seen-message tracker ---
	var seen tracker.Tracker
	switch cfg.Tracker.Backend {
	case "redis":
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		seen = tracker.NewRedisTracker(redis.Client, time.Duration(cfg.Tracker.TTL)*time.Second)
		zapLog.Info("Redis tracker connected successfully")
	default:
		seen = tracker.NewMemoryTracker()
		zapLog.Info("Using in-memory tracker")
	}

	// --- Application store ---
	var backing store.Store
	switch cfg.Store.Backend {
	case "postgres":
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		backing = store.NewPostgresStore(pg.DB)
		zapLog.Info("PostgreSQL store connected successfully")
	default:
		backing = store.NewFileStore(cfg.Store.Path)
		zapLog.Info("Using file store", zap.String("path", cfg.Store.Path))
	}
	apps := store.NewApps(backing, log)

	// --- Mailbox and notification bus ---
	mbox, err := mailbox.NewClient(ctx, cfg.Gmail, log)
	if err != nil {
		zapLog.Fatal("mailbox client failed", zap.Error(err))
	}

	// A failed watch registration is survivable: the manual fallback
	// still picks up the most recent message each cycle.
	if err := mbox.Watch(ctx, cfg.PubSub.TopicName()); err != nil {
		zapLog.Warn("mailbox watch registration failed", zap.Error(err))
	} else {
		zapLog.Info("Mailbox watch registered", zap.String("topic", cfg.PubSub.TopicName()))
	}

	nbus, err := bus.NewBus(ctx, cfg.PubSub, log)
	if err != nil {
		zapLog.Fatal("notification bus failed", zap.Error(err))
	}

	// --- Classifier, hub, server ---
	gateway := classifier.New(cfg.Classifier, log)
	hub := live.NewHub(log)

	srv, err := server.New(apps, hub, log)
	if err != nil {
		zapLog.Fatal("server setup failed", zap.Error(err))
	}

	go func() {
		if err := srv.Listen(cfg.Server.Address()); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Poller ---
	p := poller.New(
		nbus,
		mbox,
		gateway,
		seen,
		apps,
		hub,
		server.DemoUser,
		time.Duration(cfg.Poller.Interval)*time.Millisecond,
		log,
	)
	go p.Run(ctx)

	zapLog.Info("jobtrack started",
		zap.String("address", cfg.Server.Address()),
		zap.String("trackerBackend", cfg.Tracker.Backend),
		zap.String("storeBackend", cfg.Store.Backend),
	)

	<-ctx.Done()
	zapLog.Info("Shutting down...")
	if err := srv.Shutdown(); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
