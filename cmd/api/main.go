package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"merabuchpan/internal/adapter/repo"
	"merabuchpan/internal/controller"
	"merabuchpan/internal/http/handlers"
	httpapi "merabuchpan/internal/http/httpapi"
	"merabuchpan/internal/infra"
	"merabuchpan/internal/infra/geoip"
	"merabuchpan/internal/middleware"
	"merabuchpan/internal/providers/image"
	"merabuchpan/internal/session"
)

func main() {
	// Muat .env (opsional)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("api exited")
	}
}

// run wires the service from the environment and serves until ctx is done.
func run(ctx context.Context) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv)

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.GeoIPDBPath).Msg("geoip disabled")
		resolver = nil
	}
	if resolver != nil {
		defer resolver.Close()
	}

	// Analytics bersifat opsional; tanpa DATABASE_URL aplikasi tetap jalan.
	var analytics *repo.AnalyticsRepository
	if cfg.AnalyticsEnabled() {
		dbpool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer dbpool.Close()

		analytics = repo.NewAnalyticsRepository(infra.NewSQLRunner(dbpool, logger))
		if err := analytics.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	generator, err := image.NewGeminiReunion(ctx, image.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GenerationTimeout,
		Logger:  &logger,
	})
	if err != nil {
		return err
	}

	ctrlOpts := []controller.Option{controller.WithLogger(logger)}
	if analytics != nil {
		ctrlOpts = append(ctrlOpts, controller.WithRecorder(analytics))
	}
	sessions := session.NewStore(cfg.SessionTTL, func() *controller.Controller {
		return controller.New(generator, ctrlOpts...)
	}, session.WithLogger(logger), session.WithMaxSessions(cfg.MaxSessions))
	go sessions.Run(ctx, time.Minute)

	var stats handlers.StatsReader
	if analytics != nil {
		stats = analytics
	}
	app := handlers.NewApp(cfg, logger, sessions, stats)
	app.Model = generator.Model()

	opts := httpapi.Options{
		DefaultLocale:      cfg.DefaultLocale,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		GeneratePerMinute:  cfg.RateLimitPerMin,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
	}
	if resolver != nil {
		opts.CountryLookup = middleware.CountryLookup(resolver.Lookup)
	}
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, logger, opts))

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("model", app.Model).
			Bool("analytics", analytics != nil).
			Bool("geoip", resolver != nil).
			Msg("API listening")
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := app.Drain(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("generations still running at exit")
	}
	logger.Info().Msg("server stopped")
	return nil
}
