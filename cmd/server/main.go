package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"madamis/backend/internal/config"
	"madamis/backend/internal/db"
	"madamis/backend/internal/handler"
	"madamis/backend/internal/logging"
	"madamis/backend/internal/realtime"
	"madamis/backend/internal/repository"
	"madamis/backend/internal/router"
	"madamis/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)

	var timerStore service.TimerStore = repository.NewTimerRepository(database)
	if cfg.DocStore == config.DocStorePostgres {
		pool, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres")
		}
		defer pool.Close()

		pgStore := repository.NewPostgresTimerRepository(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("prepare postgres schema")
		}
		timerStore = pgStore
	}

	hub := realtime.NewHub(realtime.DefaultConnectionConfig())
	go hub.Start(ctx)

	var publisher service.Publisher = realtime.NewLocalBus(hub)
	if cfg.NATSURL != "" {
		bus, err := realtime.ConnectNATS(realtime.DefaultNATSConfig(cfg.NATSURL, cfg.NATSSubjectPrefix))
		if err != nil {
			log.Fatal().Err(err).Msg("connect nats")
		}
		defer bus.Close()

		if err := bus.Forward(hub); err != nil {
			log.Fatal().Err(err).Msg("subscribe to timer snapshots")
		}
		publisher = bus
	}

	clock := clockwork.NewRealClock()
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, clock)
	sessionService := service.NewSessionService(sessionRepo, clock)
	timerService := service.NewTimerService(sessionRepo, timerStore, publisher, clock, cfg.CASRetries)

	engine := router.New(
		authService,
		handler.NewAuthHandler(authService),
		handler.NewSessionHandler(sessionService),
		handler.NewTimerHandler(timerService, hub),
		cfg.CORSOrigins,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("doc_store", cfg.DocStore).
			Bool("nats", cfg.NATSURL != "").
			Msg("timer backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("run server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}
