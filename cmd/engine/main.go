package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"

	"github.com/friendix-ai/engagement-engine/internal/api"
	"github.com/friendix-ai/engagement-engine/internal/database"
	"github.com/friendix-ai/engagement-engine/internal/engagement"
	apperrors "github.com/friendix-ai/engagement-engine/internal/errors"
	"github.com/friendix-ai/engagement-engine/internal/health"
	"github.com/friendix-ai/engagement-engine/internal/idempotency"
	"github.com/friendix-ai/engagement-engine/internal/jobs"
	"github.com/friendix-ai/engagement-engine/internal/jobs/handlers"
	"github.com/friendix-ai/engagement-engine/internal/lifecycle"
	"github.com/friendix-ai/engagement-engine/internal/notify"
	"github.com/friendix-ai/engagement-engine/internal/otp"
	"github.com/friendix-ai/engagement-engine/internal/ratelimit"
	"github.com/friendix-ai/engagement-engine/internal/repository"
	"github.com/friendix-ai/engagement-engine/internal/user"
	"github.com/friendix-ai/engagement-engine/internal/usercache"
	"github.com/friendix-ai/engagement-engine/pkg/config"
	"github.com/friendix-ai/engagement-engine/pkg/graceful"
	"github.com/friendix-ai/engagement-engine/pkg/logger"
	"github.com/friendix-ai/engagement-engine/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "engagement engine failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flushSentry, err := logger.InitSentry(*cfg)
	if err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	defer flushSentry()

	log := logger.New(*cfg)
	slog.SetDefault(log)
	log.Info("starting engagement engine",
		slog.String("env", cfg.AppEnv),
		slog.String("addr", cfg.HTTP.Addr))

	config.Watch(v, log, func(updated *config.Config) {
		log.Info("configuration file changed; restart to apply",
			slog.String("env", updated.AppEnv))
	})

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrationsDir := cfg.Database.MigrationsDir
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := database.NewMigrator(db, log).ApplyDir(ctx, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	users := repository.NewUserRepository(db, log)
	messages := repository.NewMessageRepository(db, log)
	adminLogs := repository.NewAdminLogRepository(db, log)

	emailClient := notify.NewEmailClient(cfg.Email, log)
	notifier := notify.NewNotifier(messages, emailClient, cfg.Email.LoginURL, log)

	clock := engagement.SystemClock()
	engine := engagement.NewEngine(users, notifier, clock, log)
	userService := user.NewService(users, engine, log)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	guard := idempotency.NewGuard(redisClient, log)
	worker := jobs.NewWorker(redisOpt, log)
	worker.RegisterHandler(jobs.TaskTypeEngagementSweep, handlers.NewSweepHandler(engine, guard, clock, log))
	worker.RegisterHandler(jobs.TaskTypeMessageCleanup, handlers.NewCleanupHandler(messages, log))

	scheduler := jobs.NewScheduler(redisOpt, cfg.Engagement, log)
	if err := scheduler.RegisterTasks(); err != nil {
		return fmt.Errorf("register scheduled tasks: %w", err)
	}

	queue := jobs.NewManager(redisOpt, log)

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient))

	limiter := ratelimit.NewFallbackLimiter(
		ratelimit.NewRedisLimiter(redisClient, log),
		ratelimit.NewMemoryLimiter(),
		log,
	)

	server := api.NewServer(api.Deps{
		Users:      userService,
		Finder:     users,
		Engine:     engine,
		Messages:   messages,
		AuditLog:   adminLogs,
		Sessions:   api.NewSessionStore(redisClient),
		OTP:        otp.NewStore(redisClient, cfg.Engagement.OTPTTL, log),
		Email:      emailClient,
		StatsCache: usercache.NewCache(redisClient, 0),
		Limiter:    limiter,
		Rules:      ratelimit.NewRules(cfg.RateLimit),
		Checker:    checker,
		Jobs:       queue,
		Errors:     apperrors.NewHandler(log, cfg.Sentry.Enabled),
		AdminToken: cfg.Admin.Token,
		Log:        log,
	})

	httpServer := graceful.NewServer(log, &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, cfg.HTTP.ShutdownTimeout)

	scheduler.Run()
	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped", slog.Any("error", err))
			stop()
		}
	}()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})
	shutdown.Register("jobs_worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})
	shutdown.Register("jobs_queue", func(context.Context) error {
		return queue.Close()
	})

	serveErr := httpServer.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	return serveErr
}
