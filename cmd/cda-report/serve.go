package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/cdareport/internal/config"
	"github.com/ehr/cdareport/internal/domain/imaging"
	"github.com/ehr/cdareport/internal/domain/report"
	"github.com/ehr/cdareport/internal/platform/archive"
	"github.com/ehr/cdareport/internal/platform/auth"
	"github.com/ehr/cdareport/internal/platform/cda"
	"github.com/ehr/cdareport/internal/platform/db"
	"github.com/ehr/cdareport/internal/platform/middleware"
)

const version = "0.1.0"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the report API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			return runServer(cmd, e)
		},
	}
}

func runServer(cmd *cobra.Command, env *env) error {
	cfg, logger := env.cfg, env.logger

	prof, err := env.loadProfile(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := env.openPool(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()

	store := archive.NewStore(prof.OutputPath)
	if store.Enabled() {
		if err := store.EnsureDir(); err != nil {
			return err
		}
		logger.Info().Str("dir", store.Dir()).Msg("report archive ready")
	} else {
		logger.Warn().Msg("OUTPUT_PATH not set, reports will not be archived")
	}

	e := newServer(cfg, logger, serverDeps{
		pool:    pool,
		prober:  db.NewProber(pool),
		profile: prof,
		store:   store,
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

type serverDeps struct {
	pool    *pgxpool.Pool
	prober  db.Prober
	profile cda.Profile
	store   *archive.Store
	// imaging overrides the pool-backed service, for tests.
	imaging *imaging.Service
}

func newServer(cfg *config.Config, logger zerolog.Logger, deps serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, "/api/v1/cda", cfg.XMLBodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	// Auth middleware
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.Use(middleware.Audit(logger))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if deps.prober != nil {
		e.GET("/health/db", db.HealthHandler(deps.prober))
	}

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	imagingSvc := deps.imaging
	if imagingSvc == nil {
		imagingSvc = (&env{cfg: cfg, logger: logger}).imagingService(deps.pool)
	}
	imaging.NewHandler(imagingSvc).RegisterRoutes(apiV1)

	gen, validator := newGenerator(deps.profile, logger)
	var arch report.Archiver
	if deps.store != nil {
		arch = deps.store
	}
	reportSvc := report.NewService(imagingSvc, gen, arch, logger)
	if deps.pool != nil {
		reportSvc.WithArchiveLog(report.NewArchiveLog(deps.pool))
	}
	report.NewHandler(reportSvc).RegisterRoutes(apiV1)

	cdaGroup := apiV1.Group("", auth.RequireRole(auth.RoleViewer, auth.RoleReporter))
	cda.NewHandler(validator, cda.NewParser(), deps.profile.CDAXSDPath).RegisterRoutes(cdaGroup)

	return e
}
