package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/db"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup when running in dev with
// CABLEQUOTES_AUTO_MIGRATE set, or whenever the sqlite driver is in use.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	sqlite := client.Dialect() == "sqlite"
	if !sqlite && (!cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	m, err := New(sqlDB, client.Dialect(), nil)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})
	ran, err := m.Up(ctx)
	if err != nil {
		return err
	}
	if len(ran) == 0 {
		logg.Info(ctx, "schema up to date")
		return nil
	}
	versions := make([]int64, 0, len(ran))
	for _, a := range ran {
		versions = append(versions, a.Version)
	}
	logg.Info(logg.WithField(ctx, "versions", versions), "applied migrations")
	return nil
}
