package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-stock-scorer/internal/scoring/config"
	delivery "golang-stock-scorer/internal/scoring/delivery/http"
	_ "golang-stock-scorer/internal/scoring/docs"
	"golang-stock-scorer/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the score API service",
	Run:   runServe,
}

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Computes the scores of the configured watchlist once and exits",
	Run:   runWarmup,
}

func loadConfig() (*config.Config, *logger.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, appLogger
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger := loadConfig()
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Score API Service", logger.Field("name", cfg.App.Name))

	application, err := newApp(ctx, cfg, appLogger, prometheus.DefaultRegisterer)
	if err != nil {
		appLogger.Fatal("Failed to initialize service", logger.ErrorField(err))
	}
	defer application.Close()

	if cfg.Warmup.Enabled {
		go func() {
			if err := application.warmup.Start(ctx); err != nil {
				appLogger.Error("Warmup scheduler failed", logger.ErrorField(err))
			}
		}()
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			c.SetRequest(c.Request().WithContext(logger.ContextWithRequestID(c.Request().Context(), id)))
			return next(c)
		}
	})

	// Initialize handlers and routes
	apiV1 := e.Group("/api/v1")
	delivery.NewScoreHandler(application.scores, appLogger).RegisterRoutes(apiV1.Group("/scores"))
	delivery.NewNewsHandler(application.scores, appLogger).RegisterRoutes(apiV1.Group("/news"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", swagger.WrapHandler)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	shutdownTimeout, err := time.ParseDuration(cfg.API.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func runWarmup(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger := loadConfig()
	defer func() { _ = appLogger.Sync() }()

	application, err := newApp(ctx, cfg, appLogger, prometheus.NewRegistry())
	if err != nil {
		appLogger.Fatal("Failed to initialize service", logger.ErrorField(err))
	}
	defer application.Close()

	summary := application.warmup.Run(ctx)
	appLogger.Info("Warmup done",
		logger.IntField("items", len(summary.Items)),
		logger.Field("duration", summary.Duration.String()),
	)
}

// @title Taiwan Stock Score API
// @version 1.0
// @description Daily fundamentals, chip, technical and news scores of Taiwan-listed stocks.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "api-service"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-api.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd, warmupCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing api-service CLI: %s\n", err)
		os.Exit(1)
	}
}
