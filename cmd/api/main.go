package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/dejobratic/storefront/internal/checkout/adapters/http"
	"github.com/dejobratic/storefront/internal/checkout/app"
	"github.com/dejobratic/storefront/internal/checkout/metrics"
	"github.com/dejobratic/storefront/internal/config"
	"github.com/dejobratic/storefront/internal/session"
	"github.com/dejobratic/storefront/internal/telemetry"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	if err := run(); err != nil {
		slog.Error("storefront api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := telemetry.ParseLevel(cfg.Telemetry.LogLevel)
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger(level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	meter := tel.Meter()

	st, err := openStores(ctx, cfg, meter, logger)
	if err != nil {
		return err
	}
	defer st.close()

	checkoutMetrics, err := metrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create checkout metrics: %w", err)
	}

	service := app.NewService(app.Dependencies{
		Products:    st.products,
		Orders:      st.orders,
		Ledger:      st.ledger,
		Events:      st.events,
		Logger:      logger,
		Metrics:     checkoutMetrics,
		AutoCapture: cfg.Checkout.AutoCapture,
	})

	sessions := session.NewStore(cfg.Session.TTL)
	go session.NewSweeper(sessions, cfg.Session.SweepInterval, logger).Run(ctx)

	if cfg.Admin.Token == "" {
		logger.Warn("ADMIN_API_TOKEN is not set, admin routes are disabled")
	}
	if cfg.Payments.WebhookSecret == "" {
		logger.Warn("PAYMENT_WEBHOOK_SECRET is not set, webhook signatures are not verified")
	}

	router, err := newRouter(cfg, logger, meter)
	if err != nil {
		return err
	}
	httpadapter.NewHandler(service, sessions, httpadapter.Options{
		WebhookSecret: cfg.Payments.WebhookSecret,
		AdminToken:    cfg.Admin.Token,
		Ready:         st.ready,
		SecureCookies: cfg.HTTP.SecureCookies,
	}).Register(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           otelhttp.NewHandler(router, "storefront.http"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting",
			"port", cfg.HTTP.Port,
			"store", cfg.Database.StoreBackend,
			"inventory_strategy", st.ledger.Strategy(),
			"auto_capture", cfg.Checkout.AutoCapture,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

func newRouter(cfg *config.Config, logger *slog.Logger, meter metric.Meter) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create http metrics: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), httpadapter.WithMetrics(httpMetrics), httpadapter.WithErrorLogging(logger))

	if len(cfg.HTTP.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.HTTP.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Demo-Signature"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET(cfg.HTTP.MetricsPath, func(c *gin.Context) {
		c.String(http.StatusOK, "# metrics are exported over OTLP\n")
	})

	return router, nil
}
