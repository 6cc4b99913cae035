package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/cablequotes-backend/api/routes"
	"github.com/angelmondragon/cablequotes-backend/internal/auth"
	"github.com/angelmondragon/cablequotes-backend/internal/comments"
	"github.com/angelmondragon/cablequotes-backend/internal/directory"
	"github.com/angelmondragon/cablequotes-backend/internal/notifications"
	"github.com/angelmondragon/cablequotes-backend/internal/queries"
	"github.com/angelmondragon/cablequotes-backend/internal/reports"
	cableresponses "github.com/angelmondragon/cablequotes-backend/internal/responses"
	"github.com/angelmondragon/cablequotes-backend/internal/users"
	"github.com/angelmondragon/cablequotes-backend/pkg/auth/session"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/db"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/mailer"
	"github.com/angelmondragon/cablequotes-backend/pkg/metrics"
	"github.com/angelmondragon/cablequotes-backend/pkg/migrate"
	"github.com/angelmondragon/cablequotes-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	queryRepo := queries.NewRepository(conn)

	userService, err := users.NewService(users.ServiceParams{
		Repo:      userRepo,
		Password:  cfg.Password,
		Protected: cfg.Seed.AdminUsernames,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create user service", err)
		os.Exit(1)
	}
	if seeded, err := userService.SeedAdmins(ctx, cfg.Seed); err != nil {
		logg.Error(ctx, "failed to seed admin accounts", err)
	} else if len(seeded) > 0 {
		logg.Info(logg.WithField(ctx, "admins", seeded), "seeded admin accounts")
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Password:       cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	dir, err := directory.NewCache(directory.Spreadsheet{
		Path:  cfg.Directory.SpreadsheetPath,
		Sheet: cfg.Directory.SheetName,
	}, userRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create directory cache", err)
		os.Exit(1)
	}
	if _, err := dir.Refresh(ctx); err != nil {
		logg.Error(ctx, "initial directory load failed, serving stored users only", err)
	}
	go dir.Watch(ctx, cfg.Cron.Interval)

	registry := metrics.NewRegistry()
	mail, err := mailer.New(cfg.Mail, logg)
	if err != nil {
		logg.Error(ctx, "failed to configure mailer", err)
		os.Exit(1)
	}
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Mailer:     mail,
		Recipients: cfg.Notifications,
		AppURL:     cfg.App.AppURL(),
		Emails:     dir,
		Metrics:    metrics.NewNotificationMetrics(registry),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build notification dispatcher", err)
		os.Exit(1)
	}

	queryService, err := queries.NewService(queries.ServiceParams{
		Repo:     queryRepo,
		Tx:       dbClient,
		Users:    userRepo,
		Notifier: dispatcher,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create query service", err)
		os.Exit(1)
	}
	responseService, err := cableresponses.NewService(cableresponses.ServiceParams{
		Repo:     cableresponses.NewRepository(conn),
		Queries:  queryRepo,
		Tx:       dbClient,
		Notifier: dispatcher,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create response service", err)
		os.Exit(1)
	}
	commentService, err := comments.NewService(comments.ServiceParams{
		Repo:   comments.NewRepository(conn),
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create comment service", err)
		os.Exit(1)
	}
	reportService, err := reports.NewService(queryRepo, logg, nil)
	if err != nil {
		logg.Error(ctx, "failed to create report service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			DB:        dbClient,
			Redis:     redisClient,
			Sessions:  sessionManager,
			Metrics:   registry,
			Auth:      authService,
			Users:     userService,
			Queries:   queryService,
			Responses: responseService,
			Comments:  commentService,
			Reports:   reportService,
			Notifier:  dispatcher,
			Directory: dir,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
