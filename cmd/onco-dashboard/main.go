package main

import (
	"context"
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

	"github.com/oncology/dashboard/internal/config"
	"github.com/oncology/dashboard/internal/domain/dashboard"
	"github.com/oncology/dashboard/internal/platform/auth"
	"github.com/oncology/dashboard/internal/platform/completion"
	"github.com/oncology/dashboard/internal/platform/db"
	"github.com/oncology/dashboard/internal/platform/middleware"
	"github.com/oncology/dashboard/internal/warehouse"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "onco-dashboard",
		Short: "Oncology KPI dashboard API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(tablesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the warehouse tables and start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Send one question to the completion service and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env)

			ctx := cmd.Context()
			completer, err := newCompleter(ctx, cfg)
			if err != nil {
				return err
			}
			assistant := completion.NewAssistant(completer, cfg.CompletionModel, logger)

			answer, asked, err := assistant.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asked {
				fmt.Fprintln(cmd.OutOrStdout(), answer)
			}
			return nil
		},
	}
}

func tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Load the four dashboard tables and print their sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env)

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolOptions(cfg), logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			snap, err := warehouse.NewLoader(pool, cfg.WarehouseSchema, logger).LoadAll(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-22s %8s %s\n", "TABLE", "ROWS", "COLUMNS")
			for _, t := range []*warehouse.Table{snap.Providers, snap.Patients, snap.Cancers, snap.Encounters} {
				fmt.Fprintf(out, "%-22s %8d %d\n", t.Name, t.Len(), len(t.Columns))
			}
			if min, max, ok := snap.ServiceDateBounds(); ok {
				fmt.Fprintf(out, "service dates: %s .. %s\n", min.Format("2006-01-02"), max.Format("2006-01-02"))
			} else {
				fmt.Fprintln(out, "service dates: none")
			}
			return nil
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func poolOptions(cfg *config.Config) db.PoolOptions {
	return db.PoolOptions{
		MaxConns:       cfg.DBMaxConns,
		MinConns:       cfg.DBMinConns,
		ConnectTimeout: 30 * time.Second,
	}
}

// newCompleter picks the completion backend named by COMPLETION_PROVIDER.
func newCompleter(ctx context.Context, cfg *config.Config) (completion.Completer, error) {
	switch cfg.CompletionProvider {
	case "cortex":
		return completion.NewCortex(cfg.CompletionEndpoint, cfg.CompletionAPIKey, cfg.RequestTimeout), nil
	case "genai":
		return completion.NewGenAI(ctx, cfg.CompletionAPIKey)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.CompletionProvider)
	}
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg.Env)

	// Warehouse
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolOptions(cfg), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to warehouse")
	}
	defer pool.Close()

	// The four tables are loaded once; any failure aborts startup.
	snap, err := warehouse.NewLoader(pool, cfg.WarehouseSchema, logger).LoadAll(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load warehouse tables")
	}

	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create completion client")
	}
	assistant := completion.NewAssistant(completer, cfg.CompletionModel, logger)

	repo := dashboard.NewRepoPG(pool, dashboard.NewCatalog(cfg.WarehouseSchema))
	sess := dashboard.NewSession(snap, repo, assistant, cfg.BackgroundImageURL)
	svc := dashboard.NewService(sess, logger)

	e := newServer(cfg, svc, db.PoolPinger{Pool: pool}, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires middleware and routes around an already built service.
func newServer(cfg *config.Config, svc *dashboard.Service, pinger db.Pinger, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pinger))

	apiV1 := e.Group("/api/v1", middleware.RequestTimeout(cfg.RequestTimeout))
	if cfg.ResolvedAuthMode() == "development" {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	askLimit := middleware.DefaultAskRateLimit()
	if cfg.AskRatePerSec > 0 {
		askLimit.RequestsPerSecond = cfg.AskRatePerSec
	}
	if cfg.AskBurst > 0 {
		askLimit.BurstSize = cfg.AskBurst
	}
	askLimit.Key = func(c echo.Context) string {
		return auth.UserIDFromContext(c.Request().Context())
	}

	dashboard.NewHandler(svc).RegisterRoutes(apiV1, dashboard.RouteOptions{
		Ask: []echo.MiddlewareFunc{
			middleware.BodyLimit(cfg.BodyLimit),
			middleware.RateLimit(askLimit),
		},
		Roster: []echo.MiddlewareFunc{
			middleware.Audit(logger, "patient_roster", "name"),
		},
	})

	return e
}
