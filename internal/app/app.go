package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"purepresenter/internal/config"
	"purepresenter/internal/infrastructure"
	"purepresenter/internal/license"
	customMiddleware "purepresenter/internal/middleware"
	"purepresenter/internal/services"
	handlers "purepresenter/internal/transport/http"
	ws "purepresenter/internal/websocket"
)

// Application is the local license service: the decision engine, the status
// stream and the loopback API wired together.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Core          *Core
	Hub           *ws.Hub
	Licenses      *services.LicenseService
	Health        *services.HealthService
	Router        *chi.Mux
	Server        *http.Server

	watcher *license.Watcher
}

// New builds the application from cfg. Nothing is started until Run.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}

	a.Server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return a, nil
}

func (a *Application) initializeServices() error {
	licenseMetrics, err := license.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create license metrics: %w", err)
	}

	core, err := NewCore(a.Config.License, a.Logger, license.WithMetrics(licenseMetrics))
	if err != nil {
		return err
	}
	a.Core = core

	wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.Hub = ws.NewHub(a.Logger, wsMetrics)

	a.Licenses = services.NewLicenseService(core.Manager, a.Logger,
		services.WithBroadcaster(a.Hub),
		services.WithTracer(a.OTelProviders.Tracer),
		services.WithMetrics(licenseMetrics),
		services.WithRevocationPath(core.Revocations.Path()),
	)
	a.Hub.SetSnapshot(a.Licenses.Snapshot)

	a.Health = services.NewHealthService(a.Licenses, a.Hub, a.Logger)

	if a.Config.License.WatchFiles {
		a.watcher = license.NewWatcher(
			[]string{core.Store.Path(), core.Revocations.Path()},
			a.Config.License.WatchDebounce,
			a.Licenses.OnFileChange,
			a.Logger,
		)
	}

	return nil
}

func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// RequestID first so every later middleware sees the trace ID
	r.Use(customMiddleware.RequestID)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.OTelProviders.Meter)
	if err != nil {
		return err
	}
	r.Use(otelMiddleware.Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		Logger:         a.Logger,
	}))

	var limiter *customMiddleware.RateLimiter
	if rl := a.Config.Security.RateLimit; rl.Enabled {
		limiter = customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger)
	}

	licenseHandler := handlers.NewLicenseHandler(a.Licenses, limiter, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/version", healthHandler.Version)
		r.Mount("/license", licenseHandler.Routes())
	})

	r.Handle("/ws", ws.NewHandler(a.Hub, a.Config.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
	return nil
}

// Run listens on the configured address and serves until ctx is cancelled
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the API on ln together with the status hub and the file
// watcher. It returns after a graceful shutdown once ctx is cancelled, or
// with the first component error.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	verdict := a.Licenses.Status(ctx)
	a.Logger.InfoContext(ctx, "Starting license service",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("address", ln.Addr().String()),
		slog.String("license_status", string(verdict.Status)),
		slog.String("license_file", a.Core.Store.Path()),
		slog.String("revocation_file", a.Core.Revocations.Path()))

	g.Go(func() error {
		return a.Hub.Run(ctx)
	})

	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Run(ctx)
		})
	}

	g.Go(func() error {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// shutdown stops the HTTP server and flushes telemetry. It runs with a fresh
// context since the serving context is already cancelled.
func (a *Application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Logger.InfoContext(ctx, "Shutting down license service")

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	a.Logger.InfoContext(ctx, "Shutdown complete")
	return nil
}

// CheckOnce runs a single license check without starting any server
func (a *Application) CheckOnce(ctx context.Context) license.Verdict {
	return a.Core.Manager.Check(ctx)
}
