package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cablequotes-backend/api/controllers"
	"github.com/angelmondragon/cablequotes-backend/api/middleware"
	"github.com/angelmondragon/cablequotes-backend/internal/auth"
	"github.com/angelmondragon/cablequotes-backend/internal/comments"
	"github.com/angelmondragon/cablequotes-backend/internal/queries"
	"github.com/angelmondragon/cablequotes-backend/internal/reports"
	cableresponses "github.com/angelmondragon/cablequotes-backend/internal/responses"
	"github.com/angelmondragon/cablequotes-backend/internal/users"
	"github.com/angelmondragon/cablequotes-backend/pkg/auth/session"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/redis"
)

// Deps carries everything the HTTP layer is wired to.
type Deps struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Metrics  prometheus.Gatherer

	Auth      auth.Service
	Users     users.Service
	Queries   queries.Service
	Responses cableresponses.Service
	Comments  comments.Service
	Reports   reports.Service
	Notifier  controllers.ReportNotifier
	Directory controllers.Directory
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	ready := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		ready["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, ready, logg))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		if deps.Redis != nil {
			r.With(middleware.LoginThrottle(cfg.AuthRateLimit, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		} else {
			r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
		}
		r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, cfg.JWT, logg))
		r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).Get("/me", controllers.AuthMe(deps.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Route("/queries", func(r chi.Router) {
			r.Get("/", controllers.QueryFeed(deps.Queries, logg))
			r.Post("/", controllers.QueryCreate(deps.Queries, logg))
			r.Get("/archive", controllers.QueryArchive(deps.Queries, logg))
			r.Get("/archive/filters", controllers.QueryArchiveFilters(deps.Queries, logg))

			r.Route("/{queryID}", func(r chi.Router) {
				r.Get("/", controllers.QueryGet(deps.Queries, logg))
				r.Put("/", controllers.QueryUpdate(deps.Queries, logg))
				r.Delete("/", controllers.QueryDelete(deps.Queries, logg))
				r.Patch("/sale-status", controllers.QuerySaleStatus(deps.Queries, logg))
				r.Post("/duplicate", controllers.QueryDuplicate(deps.Queries, logg))

				r.Get("/comments", controllers.CommentList(deps.Comments, logg))
				r.Post("/comments", controllers.CommentAdd(deps.Comments, logg))
				r.Post("/comments/read", controllers.CommentMarkAllRead(deps.Comments, logg))
				r.Put("/comments/read", controllers.CommentSetRead(deps.Comments, logg))
				r.Put("/comments/{commentID}/read", controllers.CommentSetOneRead(deps.Comments, logg))

				r.Get("/responses/pending", controllers.ResponsePending(deps.Responses, logg))
				r.Post("/responses", controllers.ResponseRecord(deps.Responses, logg))
			})
		})

		r.Route("/directory", func(r chi.Router) {
			r.Get("/markets", controllers.DirectoryMarkets(deps.Directory))
			r.Get("/markets/{market}/salespersons", controllers.DirectorySalespersons(deps.Directory, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))

			r.Route("/reports", func(r chi.Router) {
				r.Get("/weekly", controllers.ReportWeekly(deps.Reports, logg))
				r.Get("/weekly.xlsx", controllers.ReportWeeklyWorkbook(deps.Reports, logg))
				r.Post("/weekly/send", controllers.ReportWeeklySend(deps.Reports, deps.Notifier, logg))
				r.Get("/daily", controllers.ReportDaily(deps.Reports, logg))
				r.Get("/reminders", controllers.ReportReminders(deps.Reports, cfg.Cron.ReminderThreshold, logg))
			})

			r.Post("/directory/refresh", controllers.DirectoryRefresh(deps.Directory, logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.UserList(deps.Users, logg))
				r.Post("/", controllers.UserCreate(deps.Users, logg))
				r.Post("/import", controllers.UserImport(deps.Users, logg))
				r.Patch("/{userID}", controllers.UserUpdate(deps.Users, logg))
				r.Delete("/{userID}", controllers.UserDelete(deps.Users, logg))
			})
		})
	})

	return r
}
