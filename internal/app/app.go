// Package app wires configuration into a ready DataService and HTTP handler.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"DataLink.piwebapi/internal/cache"
	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/controller"
	"DataLink.piwebapi/internal/middleware"
	"DataLink.piwebapi/internal/repository"
	"DataLink.piwebapi/internal/routes"
	"DataLink.piwebapi/internal/service"
)

const shutdownTimeout = 10 * time.Second

// App owns the long-lived clients built from a Config.
type App struct {
	Config  config.Config
	Catalog config.Catalog
	Client  *repository.PIWebAPIClient
	Service *service.DataService

	store    *repository.RedisResultStore
	exporter *repository.InfluxExporter
	logger   *zap.Logger
}

// New connects the PI Web API client and the optional Redis store and
// InfluxDB exporter.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	client, err := repository.NewPIWebAPIClient(cfg.PI, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Catalog: catalog, Client: client, logger: logger}
	opts := []service.Option{service.WithArtifacts(cache.NewArtifacts(cfg.CacheDir))}

	if cfg.Redis.Enabled() {
		store, err := repository.NewRedisResultStore(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		a.store = store
		opts = append(opts, service.WithResultStore(store))
	}
	if cfg.Influx.Enabled() {
		a.exporter = repository.NewInfluxExporter(cfg.Influx, logger)
		opts = append(opts, service.WithExporter(a.exporter))
	}

	a.Service = service.NewDataService(client, logger, opts...)
	return a, nil
}

// Handler builds the routed, authenticated and CORS-wrapped HTTP handler.
func (a *App) Handler() (http.Handler, error) {
	auth, err := middleware.NewJWTMiddleware(a.Config.Auth0, a.logger)
	if err != nil {
		return nil, err
	}
	router := routes.SetupRouter(routes.Controllers{
		Query:   controller.NewQueryController(a.Service, a.logger),
		Tags:    controller.NewTagController(a.Service, a.logger),
		Catalog: controller.NewCatalogController(a.Catalog),
	}, auth)
	router.Use(middleware.RequestLogger(a.logger))

	c := cors.New(cors.Options{
		AllowedOrigins:   a.Config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Cache-Key"},
		AllowCredentials: true,
	})
	return c.Handler(router), nil
}

// Serve listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (a *App) Serve(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", a.Config.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Server is running", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error starting server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// Close releases the optional clients.
func (a *App) Close() error {
	var result *multierror.Error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if a.exporter != nil {
		a.exporter.Close()
	}
	return result.ErrorOrNil()
}
