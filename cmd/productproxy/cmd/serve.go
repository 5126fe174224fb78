package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nhalm/canonlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yourorg/productproxy/internal/api"
	"github.com/yourorg/productproxy/internal/service"
	"github.com/yourorg/productproxy/internal/tracing"
	"github.com/yourorg/productproxy/internal/upstream"
)

const version = "1.0.0"

// initTracing is swapped in tests.
var initTracing = tracing.Init

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to run the server on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind the server to")
	_ = viper.BindPFlag("PORT", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("HOST", serveCmd.Flags().Lookup("host"))
}

func runServe(_ *cobra.Command, _ []string) error {
	setupLogger()

	shutdownTracing, err := initTracing(context.Background(), tracing.Config{
		ServiceName:    "productproxy",
		ServiceVersion: version,
		Environment:    viper.GetString("ENVIRONMENT"),
		OTLPEndpoint:   viper.GetString("TRACING_OTLP_ENDPOINT"),
		SampleRate:     viper.GetFloat64("TRACING_SAMPLE_RATE"),
		Enabled:        viper.GetBool("TRACING_ENABLED"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	host := viper.GetString("HOST")
	port := viper.GetInt("PORT")
	addr := fmt.Sprintf("%s:%d", host, port)

	client, err := newUpstreamClient()
	if err != nil {
		return err
	}
	defer client.Close()

	// Gateway
	gateway := upstream.NewProductGateway(client)

	// Services
	productSvc := service.NewProductService(gateway, service.Options{
		StrictNotFound: viper.GetBool("UPSTREAM_STRICT_NOT_FOUND"),
	})

	// Handler
	handler := api.NewHandler(productSvc)

	routeConfig := api.RouteConfig{
		MaxBodyBytes:   viper.GetInt64("MAX_REQUEST_BODY_BYTES"),
		AllowedOrigins: api.ParseAllowedOrigins(viper.GetString("CORS_ALLOWED_ORIGINS")),
	}
	if routeConfig.MaxBodyBytes <= 0 {
		routeConfig.MaxBodyBytes = 1048576
	}

	srv := &http.Server{
		Addr:           addr,
		Handler:        handler.RoutesWithConfig(routeConfig),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   75 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1048576,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr, "upstream", viper.GetString("UPSTREAM_BASE_URL"))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func setupLogger() {
	logLevel := viper.GetString("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := viper.GetString("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "text"
	}
	canonlog.SetupGlobalLogger(logLevel, logFormat)
}

// newUpstreamClient builds the shared outbound client from configuration.
func newUpstreamClient() (*upstream.Client, error) {
	cfg := upstream.Config{
		BaseURL: viper.GetString("UPSTREAM_BASE_URL"),
		Timeout: viper.GetDuration("UPSTREAM_TIMEOUT"),
	}
	if viper.GetBool("UPSTREAM_BREAKER_ENABLED") {
		breaker := breakerConfig()
		cfg.Breaker = &breaker
	}

	client, err := upstream.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}
	return client, nil
}

// breakerConfig overlays UPSTREAM_BREAKER_* settings on the defaults; out of
// range values keep the default.
func breakerConfig() upstream.BreakerConfig {
	breaker := upstream.DefaultBreakerConfig()
	if d := viper.GetDuration("UPSTREAM_BREAKER_TIMEOUT"); d > 0 {
		breaker.Timeout = d
	}
	if d := viper.GetDuration("UPSTREAM_BREAKER_INTERVAL"); d > 0 {
		breaker.Interval = d
	}
	if n := viper.GetUint32("UPSTREAM_BREAKER_MIN_REQUESTS"); n > 0 {
		breaker.MinRequests = n
	}
	if ratio := viper.GetFloat64("UPSTREAM_BREAKER_FAILURE_RATIO"); ratio > 0 && ratio <= 1 {
		breaker.FailureRatio = ratio
	}
	return breaker
}
