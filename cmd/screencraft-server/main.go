package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guilhem-Bonnet/screencraft/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/screencraft/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/screencraft/internal/adapters/rediscache"
	"github.com/Guilhem-Bonnet/screencraft/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/screencraft/internal/app"
	"github.com/Guilhem-Bonnet/screencraft/internal/buildinfo"
	"github.com/Guilhem-Bonnet/screencraft/internal/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", os.Getenv("SCREENCRAFT_CONFIG"), "Fichier TOML optionnel (ex: screencraft.toml)")
	envFile := flag.String("env", ".env", "Fichier .env chargé au démarrage s'il existe")
	addr := flag.String("addr", "", "Adresse d'écoute (ex: 127.0.0.1:4000)")
	dbPath := flag.String("db", "", "Chemin SQLite (ex: screencraft.db)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "screencraft-server").Logger()
	log.Logger = logger

	// .env avant la config: les variables déjà définies gardent la priorité
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Str("file", *envFile).Msg("failed to load env file")
	}

	cfg, fromFile, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
		log.Logger = logger
	}

	logger.Info().
		Interface("build", buildinfo.Current()).
		Str("db", cfg.DBPath).
		Bool("config_file", fromFile).
		Msg("starting")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	bus := memorybus.New()
	defer bus.Close()

	episodes := app.NewEpisodeService(sqlite.NewEpisodesRepository(db.SQL), bus)
	items := app.NewContentItemService(sqlite.NewContentItemsRepository(db.SQL), episodes, bus)
	screens := app.NewHomeScreenService(sqlite.NewHomeScreensRepository(db.SQL), items, bus)
	episodes.MaxPageSize = cfg.MaxPageSize
	items.MaxPageSize = cfg.MaxPageSize
	screens.MaxPageSize = cfg.MaxPageSize

	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		cache, client, err := rediscache.New(pingCtx, rediscache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		cancel()
		if err != nil {
			// le cache est optionnel: on sert depuis SQLite
			logger.Warn().Err(err).Str("redis", cfg.RedisAddr).Msg("active config cache disabled")
		} else {
			defer func() { _ = client.Close() }()
			screens.WithCache(cache)
			logger.Info().Str("redis", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("active config cache enabled")
		}
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Nettoyage des références après suppression (contenus, épisodes).
	cleaner := app.NewReferenceCleaner(logger.With().Str("component", "reference-cleaner").Logger(), bus, screens, items)
	go cleaner.Run(shutdownCtx)

	reconciler := app.NewReconciler(logger.With().Str("component", "reconciler").Logger(), screens, items)
	reconciler.TickInterval = cfg.ReconcileInterval
	go reconciler.Run(shutdownCtx)

	srv := httpapi.NewServer(logger, screens, items, episodes, bus).
		WithRateLimiter(httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	logger.Info().Msg("bye")
}
