package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/db"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|reset|status|to|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set (create defaults to "+migrate.SourceDir+")")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	_ = godotenv.Load()

	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.SourceDir
		}
		path, err := migrate.Scaffold(target, *name, time.Now())
		exitOn("create migration", err)
		fmt.Println("created", path)
		return
	case "validate":
		versions, err := migrate.Validate(source(*dir))
		exitOn("validate migrations", err)
		fmt.Printf("%d migrations valid, latest %s\n", len(versions), versions[len(versions)-1])
		return
	}

	cfg, err := config.Load()
	exitOn("load config", err)

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn("connect database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOn("open sql handle", err)

	var fsys fs.FS
	if *dir != "" {
		fsys = os.DirFS(*dir)
	}
	m, err := migrate.New(sqlDB, dbClient.Dialect(), fsys)
	exitOn("build migrator", err)

	var ran []migrate.Applied
	switch *cmd {
	case "up":
		ran, err = m.Up(ctx)
	case "down":
		ran, err = m.Down(ctx)
	case "reset":
		ran, err = m.Reset(ctx)
	case "to":
		ran, err = m.To(ctx, *version)
	case "status":
		printStatus(ctx, m)
		return
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(2)
	}
	for _, a := range ran {
		fmt.Printf("%-16d %-40s %s\n", a.Version, a.File, a.Duration)
	}
	exitOn("goose "+*cmd, err)

	current, err := m.Version(ctx)
	exitOn("read version", err)
	logg.Info(logg.WithField(ctx, "version", current), "migrations finished")
}

func printStatus(ctx context.Context, m *migrate.Migrator) {
	status, err := m.Status(ctx)
	exitOn("status", err)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tFILE")
	for _, s := range status {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, state, s.File)
	}
	_ = w.Flush()
}

func source(dir string) fs.FS {
	if dir == "" {
		return migrate.Files()
	}
	return os.DirFS(dir)
}

func exitOn(step string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
