package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wardtrack/wardtrack/internal/config"
	"github.com/wardtrack/wardtrack/internal/domain/assignment"
	"github.com/wardtrack/wardtrack/internal/domain/audit"
	"github.com/wardtrack/wardtrack/internal/domain/notification"
	"github.com/wardtrack/wardtrack/internal/domain/patient"
	"github.com/wardtrack/wardtrack/internal/domain/user"
	"github.com/wardtrack/wardtrack/internal/domain/watchlist"
	"github.com/wardtrack/wardtrack/internal/platform/auth"
	"github.com/wardtrack/wardtrack/internal/platform/db"
	"github.com/wardtrack/wardtrack/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wardtrack-server",
		Short: "Inpatient census and handoff tracking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(archiveSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// archiveSweepCmd runs one archive sweep and exits. Meant to be run from
// cron; the serve command also runs the sweep on a daily ticker.
func archiveSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive-sweep",
		Short: "Archive patients discharged longer than the grace period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			patientRepo := patient.NewRepoPG(pool)
			archived, err := patientRepo.ArchiveEligible(ctx,
				time.Now().UTC().Add(-time.Duration(cfg.DischargeGraceDays)*24*time.Hour),
				time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Printf("Archived %d patient(s).\n", archived)
			return nil
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn().Str("timezone", cfg.Timezone).Msg("unknown timezone, using UTC")
		loc = time.UTC
	}

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		SigningKey: []byte(cfg.AuthSigningKey),
		TokenTTL:   time.Duration(cfg.AuthTokenTTLHours) * time.Hour,
	}

	// Repositories
	userRepo := user.NewRepoPG(pool)
	patientRepo := patient.NewRepoPG(pool)
	signoutRepo := patient.NewSignoutRepoPG(pool)
	todoRepo := patient.NewTodoRepoPG(pool)
	eventRepo := patient.NewOvernightEventRepoPG(pool)
	auditRepo := audit.NewRepoPG(pool)
	notifRepo := notification.NewRepoPG(pool)
	watchRepo := watchlist.NewRepoPG(pool)
	assignRepo := assignment.NewRepoPG(pool)

	// Services
	auditSvc := audit.NewService(auditRepo)
	userSvc := user.NewService(userRepo, auditSvc, jwtCfg)

	// The placeholder user anchors the unassigned census; its row must exist
	// before any patient can be admitted without an attending.
	placeholder, err := userSvc.EnsurePlaceholder(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure placeholder user")
	}
	logger.Info().Str("id", placeholder.ID.String()).Msg("placeholder user ready")

	window := notification.NewWindow(cfg.QuietHoursStart, cfg.QuietHoursEnd, loc)
	notifSvc := notification.NewService(notifRepo, window)
	watchSvc := watchlist.NewService(watchRepo, placeholder.ID)
	patientSvc := patient.NewService(patientRepo, signoutRepo, todoRepo, eventRepo, userSvc, watchSvc, cfg.DischargeGraceDays)
	assignSvc := assignment.NewService(pool, assignRepo, patientRepo, userSvc, auditSvc, notifSvc, watchSvc)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	var authMW echo.MiddlewareFunc
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		logger.Warn().Msg("AUTH_SIGNING_KEY not set; all requests run as the dev user")
		devUser, err := ensureDevUser(ctx, userSvc)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure dev user")
		}
		authMW = auth.DevAuthMiddleware(devUser.ID)
	} else {
		authMW = auth.JWTMiddleware(jwtCfg)
	}

	// Login stays outside the auth middleware; everything else requires it.
	userHandler := user.NewHandler(userSvc)

	pub := e.Group("/api/v1")
	pub.Use(middleware.RateLimit(rateLimitCfg))
	userHandler.RegisterPublicRoutes(pub)

	api := e.Group("/api/v1")
	api.Use(middleware.RateLimit(rateLimitCfg))
	api.Use(authMW)

	userHandler.RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	assignment.NewHandler(assignSvc).RegisterRoutes(api)
	audit.NewHandler(auditSvc).RegisterRoutes(api)
	notification.NewHandler(notifSvc).RegisterRoutes(api)
	watchlist.NewHandler(watchSvc).RegisterRoutes(api)

	// Daily archive sweep
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go runArchiveSweep(sweepCtx, patientSvc, logger)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	return nil
}

// ensureDevUser gets or creates the account DevAuthMiddleware acts as.
func ensureDevUser(ctx context.Context, userSvc *user.Service) (*user.User, error) {
	if u, err := userSvc.GetByUsername(ctx, "dev"); err == nil {
		return u, nil
	} else if !db.IsNotFound(err) {
		return nil, err
	}
	u := &user.User{
		Username:  "dev",
		FirstName: "Dev",
		LastName:  "User",
		Roles:     []string{"admin", "physician"},
		IsActive:  true,
	}
	if err := userSvc.Create(ctx, u, "dev"); err != nil {
		return nil, err
	}
	return u, nil
}

// runArchiveSweep archives overdue discharges once at startup and then daily.
func runArchiveSweep(ctx context.Context, svc *patient.Service, logger zerolog.Logger) {
	sweep := func() {
		archived, err := svc.Sweep(ctx, time.Now().UTC())
		if err != nil {
			logger.Error().Err(err).Msg("archive sweep failed")
			return
		}
		if archived > 0 {
			logger.Info().Int64("archived", archived).Msg("archive sweep complete")
		}
	}

	sweep()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
