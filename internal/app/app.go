package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/worldsofmind/lab-newsletter-generator/internal/config"
	apperrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
	"github.com/worldsofmind/lab-newsletter-generator/internal/infrastructure"
	customMiddleware "github.com/worldsofmind/lab-newsletter-generator/internal/middleware"
	"github.com/worldsofmind/lab-newsletter-generator/internal/report"
	"github.com/worldsofmind/lab-newsletter-generator/internal/services"
	"github.com/worldsofmind/lab-newsletter-generator/internal/tabular"
	handlers "github.com/worldsofmind/lab-newsletter-generator/internal/transport/http"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.ReportMetrics
	Pipeline      *report.Pipeline
	ReportService *services.ReportService
	HealthService *services.HealthService
	ErrorHandler  *apperrors.ErrorHandler
}

// NewApplication loads configuration and wires the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires the application from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.TraceExporter = cfg.Telemetry.TraceExporter
	otelCfg.MetricExporter = cfg.Telemetry.MetricExporter
	otelCfg.SampleRatio = cfg.Telemetry.SampleRatio

	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewReportMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	pipeline := report.NewPipeline(PipelineOptions(cfg), logger, metrics)

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		Pipeline:      pipeline,
		ReportService: services.NewReportService(pipeline, cfg.Server.ReportTimeout, logger),
		ErrorHandler:  apperrors.NewErrorHandler(logger, false),
	}
	a.HealthService = services.NewHealthService(config.AppVersion, map[string]func(context.Context) error{
		"pipeline": func(context.Context) error {
			if a.Pipeline == nil {
				return errors.New("report pipeline not initialized")
			}
			return nil
		},
	}, logger)

	a.setupRouter()
	a.createServer()
	return a, nil
}

// PipelineOptions maps configuration onto report pipeline options.
func PipelineOptions(cfg *config.Config) report.Options {
	return report.Options{
		Loader: tabular.Options{
			MaxHeaderOffset:     cfg.Ingest.MaxHeaderOffset,
			ConfidenceThreshold: cfg.Ingest.ConfidenceThreshold,
			FallbackEncoding:    cfg.Ingest.FallbackEncoding,
			Sheet:               cfg.Ingest.Sheet,
		},
		Aliases:   cfg.Aliases,
		Questions: cfg.Survey.Questions,
		Workers:   cfg.Ingest.Workers,
	}
}

// setupRouter applies middleware in the order
// RequestID → RealIP → OTel → Logger → Recoverer → SecurityHeaders → RateLimit.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.ErrorHandler,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus scrapes outside the instrumented group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	// Registered last so the handler reaches every mounted subrouter.
	r.NotFound(a.ErrorHandler.NotFound)
	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/health", handlers.NewHealthHandler(a.HealthService, a.Logger).Routes())

		r.Route("/reports", func(r chi.Router) {
			r.Use(customMiddleware.MaxBodySize(a.Config.Security.MaxUploadBytes, a.ErrorHandler))
			r.Use(customMiddleware.ContentType(a.ErrorHandler, "multipart/form-data"))
			r.Mount("/", handlers.NewReportHandler(a.ReportService, a.Logger, a.ErrorHandler).Routes())
		})
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts serving in the background. cancel is called if the listener
// fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return infrastructure.CloseLogFile()
}

// Run runs the application until interrupted or the listener fails.
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}
