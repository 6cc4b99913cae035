package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cablequotes-backend/internal/cron"
	"github.com/angelmondragon/cablequotes-backend/internal/directory"
	"github.com/angelmondragon/cablequotes-backend/internal/notifications"
	"github.com/angelmondragon/cablequotes-backend/internal/queries"
	"github.com/angelmondragon/cablequotes-backend/internal/reports"
	"github.com/angelmondragon/cablequotes-backend/internal/users"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/db"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/mailer"
	"github.com/angelmondragon/cablequotes-backend/pkg/metrics"
	"github.com/angelmondragon/cablequotes-backend/pkg/migrate"
	"github.com/angelmondragon/cablequotes-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	jobNames := flag.String("jobs", "", "comma-separated job names to run (default: all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

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

	dir, err := directory.NewCache(directory.Spreadsheet{
		Path:  cfg.Directory.SpreadsheetPath,
		Sheet: cfg.Directory.SheetName,
	}, users.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(ctx, "failed to create directory cache", err)
		os.Exit(1)
	}
	if _, err := dir.Refresh(ctx); err != nil {
		logg.Error(ctx, "directory load failed, reminders fall back to stored users", err)
	}

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

	reportService, err := reports.NewService(queries.NewRepository(dbClient.DB()), logg, nil)
	if err != nil {
		logg.Error(ctx, "failed to build reports service", err)
		os.Exit(1)
	}

	jobs, err := buildRegistry(cfg, logg, reportService, dispatcher, redisClient)
	if err != nil {
		logg.Error(ctx, "failed to register cron jobs", err)
		os.Exit(1)
	}
	jobs, err = jobs.Select(splitNames(*jobNames)...)
	if err != nil {
		logg.Error(ctx, "invalid -jobs selection", err)
		os.Exit(2)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 2*cfg.Cron.Interval)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(registry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Cron.MetricsAddr != "" {
		go serveMetrics(ctx, logg, cfg.Cron.MetricsAddr, registry)
	}
	go dir.Watch(ctx, cfg.Cron.Interval)

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, reportService reports.Service, dispatcher *notifications.Dispatcher, marker *redis.Client) (*cron.Registry, error) {
	reminders, err := cron.NewReminderJob(cron.ReminderJobParams{
		Logger:    logg,
		Reports:   reportService,
		Notifier:  dispatcher,
		Marker:    marker,
		Threshold: cfg.Cron.ReminderThreshold,
	})
	if err != nil {
		return nil, err
	}
	daily, err := cron.NewDailyReportJob(cron.ReportJobParams{
		Logger:   logg,
		Reports:  reportService,
		Notifier: dispatcher,
		Marker:   marker,
		Hour:     cfg.Cron.DailyReportHour,
	})
	if err != nil {
		return nil, err
	}
	weekly, err := cron.NewWeeklyReportJob(cron.ReportJobParams{
		Logger:   logg,
		Reports:  reportService,
		Notifier: dispatcher,
		Marker:   marker,
		Hour:     cfg.Cron.WeeklyReportHour,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(reminders, daily, weekly)
}

func serveMetrics(ctx context.Context, logg *logger.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	logg.Info(logg.WithField(ctx, "addr", addr), "serving cron metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "cron metrics server stopped", err)
	}
}

func splitNames(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
