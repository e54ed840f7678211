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

	"inspection_portal_backend/internal/appointments"
	apptrepo "inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/internal/branches"
	branchrepo "inspection_portal_backend/internal/branches/repository"
	"inspection_portal_backend/internal/email"
	"inspection_portal_backend/internal/events"
	apphttp "inspection_portal_backend/internal/http"
	"inspection_portal_backend/internal/http/router"
	"inspection_portal_backend/internal/notification"
	"inspection_portal_backend/internal/notification/outbox"
	"inspection_portal_backend/internal/rejectedorders"
	rejectedrepo "inspection_portal_backend/internal/rejectedorders/repository"
	"inspection_portal_backend/internal/scheduler"
	"inspection_portal_backend/internal/visits"
	visitrepo "inspection_portal_backend/internal/visits/repository"
	"inspection_portal_backend/internal/workflow"
	"inspection_portal_backend/platform/config"
	"inspection_portal_backend/platform/db"
	"inspection_portal_backend/platform/docstore"
	"inspection_portal_backend/platform/docstore/memory"
	"inspection_portal_backend/platform/docstore/postgres"
	"inspection_portal_backend/platform/eventstream"
	"inspection_portal_backend/platform/lock"
	"inspection_portal_backend/platform/logger"
	"inspection_portal_backend/platform/telemetry"
	"inspection_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "docstore", cfg.DocStoreBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	indexes, err := loadIndexes(cfg)
	if err != nil {
		log.Error("failed to load index catalogue", "error", err)
		panic("failed to load index catalogue: " + err.Error())
	}

	var (
		pool  *pgxpool.Pool
		store docstore.Repository
	)
	if cfg.DocStoreBackend == config.DocStorePostgres {
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

		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
		store = postgres.New(pool, indexes)
	} else {
		log.Warn("using in-memory document store; data is lost on restart")
		store = memory.New(memory.WithIndexes(indexes))
	}

	eventBus := events.NewInMemoryBus(log)
	if len(cfg.GetKafkaBrokers()) > 0 {
		relay := eventstream.NewKafkaRelay(eventstream.NewKafkaWriter(cfg))
		defer func() { _ = relay.Close() }()
		eventBus.SubscribeAll(relay)
		log.Info("relaying domain events to kafka", "topic", cfg.GetKafkaTopic())
	}

	reminders, closeReminders := initReminderScheduler(cfg, log)
	if closeReminders != nil {
		defer closeReminders()
	}

	locker, closeLocker := initLocker(ctx, cfg, log)
	if closeLocker != nil {
		defer closeLocker()
	}

	sender := initEmailSender(cfg, pool, reminders, log)

	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	appointmentRepo := apptrepo.New(store)
	visitRepo := visitrepo.New(store)
	rejectedRepo := rejectedrepo.New(store)
	branchRepo := branchrepo.New(store)

	notificationModule := notification.NewModule(store, log)

	deps := workflow.Deps{
		Appointments: appointmentRepo,
		Visits:       visitRepo,
		Audit:        rejectedRepo,
		Notifier:     notificationModule.InApp,
		Email:        sender,
		Managers:     branchRepo,
		Locker:       locker,
		Bus:          eventBus,
		Log:          log,
	}
	if reminders != nil {
		deps.Reminders = reminders
	}
	wf := workflow.New(deps, workflow.OptionsFromConfig(cfg))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			appointments.NewModule(appointmentRepo, wf, val),
			visits.NewModule(visitRepo, wf, val, cfg.GetAppBaseURL()),
			rejectedorders.NewModule(rejectedRepo),
			branches.NewModule(branchRepo, val),
			notificationModule,
		},
	}
	if pool != nil {
		app.Health = pool
	}

	_, handler := router.New(app)
	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func loadIndexes(cfg config.DocStoreConfig) (*docstore.IndexSet, error) {
	path := cfg.GetDocStoreIndexesFile()
	if path == "" {
		return nil, nil
	}
	return docstore.LoadIndexes(path)
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; appointment reminders disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

// initLocker uses redis when configured so responses are serialized across
// API replicas; a single process falls back to an in-memory locker.
func initLocker(ctx context.Context, cfg config.SchedulerConfig, log *logger.Logger) (lock.Locker, func()) {
	if cfg.GetRedisURL() == "" {
		return lock.NewLocalLocker(), nil
	}

	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; using local response lock", "error", err)
		return lock.NewLocalLocker(), nil
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable at startup; response lock will retry per request", "error", err)
	}
	return lock.NewRedisLocker(client, "inspection-portal:lock:"), func() { _ = client.Close() }
}

// initEmailSender prefers the durable outbox, then the task queue, then
// direct SMTP.
func initEmailSender(cfg *config.Config, pool *pgxpool.Pool, queue *scheduler.Client, log *logger.Logger) email.Sender {
	switch {
	case pool != nil:
		log.Info("email delivery via outbox")
		return outbox.NewEmailSender(outbox.New(pool))
	case queue != nil:
		log.Info("email delivery via task queue")
		return queue
	case cfg.GetEmailEnabled():
		log.Info("email delivery via smtp", "host", cfg.GetSMTPHost())
		return email.NewSMTPSender(cfg)
	default:
		log.Warn("email delivery disabled")
		return email.NewNoopSender(log)
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
