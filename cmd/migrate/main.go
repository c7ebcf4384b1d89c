package main

import (
	"context"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"madamis/backend/internal/config"
	"madamis/backend/internal/db"
	"madamis/backend/internal/logging"
	"madamis/backend/internal/repository"
	"madamis/backend/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	var source fs.FS = migrations.Files
	origin := "embedded"
	if cfg.MigrationsDir != "" {
		source = os.DirFS(cfg.MigrationsDir)
		origin = cfg.MigrationsDir
	}

	applied, err := db.Migrate(ctx, database, source)
	if err != nil {
		log.Fatal().Err(err).Strs("applied", applied).Msg("run migrations")
	}

	if cfg.DocStore == config.DocStorePostgres {
		pool, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres")
		}
		defer pool.Close()
		if err := repository.NewPostgresTimerRepository(pool).EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("ensure postgres schema")
		}
	}

	log.Info().
		Str("db_path", cfg.DBPath).
		Str("source", origin).
		Int("applied", len(applied)).
		Msg("migrations up to date")
}
