package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/angelmondragon/cablequotes-backend/api/responses"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

const (
	envHeader          = "X-CQ-Env"
	readinessTimeout   = 2 * time.Second
	dependencyStatusOK = "ok"
)

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and fails with a dependency error naming the
// ones that did not answer.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failed := map[string]string{}
		for _, name := range names {
			if deps[name] == nil {
				continue
			}
			if err := deps[name].Ping(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(failed))
			return
		}

		status := map[string]string{"status": "ready"}
		for _, name := range names {
			status[name] = dependencyStatusOK
		}
		responses.WriteSuccess(w, status)
	}
}
