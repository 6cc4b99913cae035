package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/cablequotes-backend/internal/directory"
	"github.com/angelmondragon/cablequotes-backend/internal/users"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/db"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "import-users"})

	_ = godotenv.Load()

	file := flag.String("file", "", "salesperson workbook (defaults to the configured directory spreadsheet)")
	sheet := flag.String("sheet", "", "sheet name (defaults to the configured sheet, then the first sheet)")
	seedAdmins := flag.Bool("seed-admins", true, "also create the configured admin accounts")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "import-users",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	source := directory.Spreadsheet{Path: cfg.Directory.SpreadsheetPath, Sheet: cfg.Directory.SheetName}
	if *file != "" {
		source.Path = *file
	}
	if *sheet != "" {
		source.Sheet = *sheet
	}

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"file": source.Path,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	svc, err := users.NewService(users.ServiceParams{
		Repo:      users.NewRepository(dbClient.DB()),
		Password:  cfg.Password,
		Protected: cfg.Seed.AdminUsernames,
		Logger:    logg,
	})
	requireResource(ctx, logg, "user service", err)

	if *seedAdmins {
		created, err := svc.SeedAdmins(ctx, cfg.Seed)
		if err != nil {
			logg.Error(ctx, "admin seed failed", err)
			os.Exit(1)
		}
		for _, name := range created {
			fmt.Println("admin created:", name)
		}
	}

	rows, err := source.Load(ctx)
	if err != nil {
		logg.Error(ctx, "failed to read workbook", err)
		os.Exit(1)
	}

	entries := make([]users.ImportEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, users.ImportEntry{Name: row.Name, Market: row.Market, Email: row.Email})
	}

	result, err := svc.Import(ctx, entries)
	if err != nil {
		logg.Error(ctx, "import failed", err)
		os.Exit(1)
	}

	for _, name := range result.Created {
		fmt.Println("created:", name)
	}
	for _, skipped := range result.Skipped {
		fmt.Printf("skipped: %s (%s)\n", skipped.Name, skipped.Reason)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"created": len(result.Created),
		"skipped": len(result.Skipped),
	}), "user import finished")
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("failed to initialize %s", name), err)
	os.Exit(1)
}
