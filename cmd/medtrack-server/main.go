package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medtrack/medtrack/internal/config"
	"github.com/medtrack/medtrack/internal/domain/adherence"
	"github.com/medtrack/medtrack/internal/domain/dose"
	"github.com/medtrack/medtrack/internal/domain/medication"
	"github.com/medtrack/medtrack/internal/domain/patient"
	"github.com/medtrack/medtrack/internal/platform/auth"
	"github.com/medtrack/medtrack/internal/platform/db"
	"github.com/medtrack/medtrack/internal/platform/middleware"
	"github.com/medtrack/medtrack/internal/platform/notification"
	"github.com/medtrack/medtrack/internal/platform/reminder"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medtrack-server",
		Short: "Medication schedule and adherence API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

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
			if dir == "" {
				dir = cfg.MigrationsDir
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
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to config)")
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
			if dir == "" {
				dir = cfg.MigrationsDir
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
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to config)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1MB"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: resolveSigningKey(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// API group
	apiV1 := e.Group("/api/v1")

	// Rate limiting
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Repositories
	patientRepo := patient.NewRepoPG(pool)
	medRepo := medication.NewRepoPG(pool)
	doseRepo := dose.NewRepoPG(pool)

	// Services
	patientSvc := patient.NewService(patientRepo)
	medSvc := medication.NewService(medRepo, patientRepo)
	doseSvc := dose.NewService(doseRepo, medRepo)
	adherenceSvc := adherence.NewService(patientRepo, medRepo, doseRepo)

	// Handlers
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	medication.NewHandler(medSvc).RegisterRoutes(apiV1)
	dose.NewHandler(doseSvc).RegisterRoutes(apiV1)
	adherence.NewHandler(adherenceSvc).RegisterRoutes(apiV1)

	// Notifications
	var push notification.PushSender
	if cfg.ReminderWebhook != "" {
		push = notification.NewWebhookPushSender(cfg.ReminderWebhook)
	}
	notifier := notification.NewNotificationManager(nil, nil, push, notification.NewTemplateEngine())

	notifGroup := apiV1.Group("", auth.RequireRole("admin"))
	notification.NewNotificationHandler(notifier).RegisterRoutes(notifGroup)

	// Reminder sweeper
	var sweeper *reminder.Sweeper
	if cfg.ReminderSchedule != "" && push != nil {
		sweeper = reminder.NewSweeper(patientRepo, medRepo, notifier, reminder.NewLogPG(pool), logger)
		if err := sweeper.Start(cfg.ReminderSchedule); err != nil {
			logger.Fatal().Err(err).Msg("failed to start reminder sweeper")
		}
	} else {
		logger.Info().Msg("reminder sweeper disabled")
	}

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	if sweeper != nil {
		sweeper.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// resolveSigningKey interprets the configured HMAC signing key. A "hex:"
// prefix decodes the remainder; anything else is used as raw bytes. An empty
// value yields nil so JWKS validation takes over.
func resolveSigningKey(value string) []byte {
	if rest, ok := strings.CutPrefix(value, "hex:"); ok {
		if decoded, err := hex.DecodeString(rest); err == nil {
			return decoded
		}
	}
	if value == "" {
		return nil
	}
	return []byte(value)
}
