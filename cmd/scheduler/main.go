package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/internal/email"
	"inspection_portal_backend/internal/notification/inapp"
	"inspection_portal_backend/internal/notification/outbox"
	"inspection_portal_backend/internal/scheduler"
	"inspection_portal_backend/platform/config"
	"inspection_portal_backend/platform/db"
	"inspection_portal_backend/platform/docstore"
	"inspection_portal_backend/platform/docstore/postgres"
	"inspection_portal_backend/platform/logger"
	"inspection_portal_backend/platform/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the scheduler")
	}
	if cfg.DocStoreBackend != config.DocStorePostgres {
		panic("the scheduler needs DOCSTORE_BACKEND=postgres to share state with the API")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	var indexes *docstore.IndexSet
	if path := cfg.GetDocStoreIndexesFile(); path != "" {
		if indexes, err = docstore.LoadIndexes(path); err != nil {
			log.Error("failed to load index catalogue", "error", err)
			panic("failed to load index catalogue: " + err.Error())
		}
	}
	store := postgres.New(pool, indexes)

	var sender email.Sender = email.NewNoopSender(log)
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	}

	outboxRepo := outbox.New(pool)
	handlers := &scheduler.Handlers{
		Appointments: apptrepo.New(store),
		Notifier:     inapp.NewService(inapp.NewRepository(store), log),
		Email:        sender,
		Outbox:       outboxRepo,
		Location:     cfg.GetTimezone(),
		ReminderLead: cfg.GetReminderLeadTime(),
		BaseURL:      cfg.GetAppBaseURL(),
		Log:          log,
	}

	worker, err := scheduler.NewWorker(cfg, handlers, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, outboxRepo, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
