package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/nandazuhri/lokapasar-backend/pkg/config"
	"github.com/nandazuhri/lokapasar-backend/pkg/db"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
	"github.com/nandazuhri/lokapasar-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|status|down-to")
	version := flag.String("version", "", "target version for -cmd=down-to")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to unwrap sql database", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	switch *cmd {
	case "up":
		if err := migrate.Up(ctx, sqlDB); err != nil {
			logg.Error(ctx, "migration failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "migrations applied")
	case "status":
		if err := migrate.Status(ctx, sqlDB); err != nil {
			logg.Error(ctx, "migration status failed", err)
			os.Exit(1)
		}
	case "down-to":
		target, err := strconv.ParseInt(*version, 10, 64)
		if err != nil {
			fmt.Fprintln(os.Stderr, "missing or invalid -version for down-to")
			os.Exit(1)
		}
		if err := migrate.DownTo(ctx, sqlDB, target); err != nil {
			logg.Error(ctx, "migration rollback failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "migrations rolled back")
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", *cmd)
		os.Exit(1)
	}
}
