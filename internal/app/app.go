// Package app wires the application together: configuration, logging,
// metrics, outbound clients, the generation service and the HTTP router.
package app

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	generationhttp "github.com/reelforge/server/internal/adapter/inbound/http/generation"
	"github.com/reelforge/server/internal/adapter/outbound/ark"
	"github.com/reelforge/server/internal/adapter/outbound/rehost"
	"github.com/reelforge/server/internal/adapter/outbound/store"
	"github.com/reelforge/server/internal/infra/httpclient"
	"github.com/reelforge/server/internal/module/generation"
	"github.com/reelforge/server/internal/shared/config"
	"github.com/reelforge/server/internal/shared/logger"
	"github.com/reelforge/server/internal/shared/metrics"
	"github.com/reelforge/server/internal/shared/middleware"
)

// App represents the application.
type App struct {
	config   *config.Config
	router   *gin.Engine
	logger   *logger.Logger
	registry *prometheus.Registry

	service *generation.Service
	store   *store.Local
	handler *generationhttp.Handler
}

// LoadConfig loads the application configuration.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Separate outbound clients per concern: provider calls are short,
	// rehost uploads and video downloads stream larger bodies.
	providerClient := httpclient.New(cfg.HTTPClient, cfg.Ark.RequestTimeout)
	rehostClient := httpclient.New(cfg.HTTPClient, cfg.Rehost.UploadTimeout)
	downloadClient := httpclient.New(cfg.HTTPClient, cfg.HTTPClient.DownloadTimeout)

	st, err := store.New(&store.Config{
		UploadsDir: cfg.Storage.UploadsDir,
		OutputsDir: cfg.Storage.OutputsDir,
		HTTPClient: downloadClient,
		Metrics:    m,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	rehoster := rehost.New(&rehost.Config{
		Uploaders: rehost.DefaultUploaders(rehostClient),
		Metrics:   m,
		Logger:    log,
	})

	pool := ark.NewPool(cfg.Ark.Endpoints, providerClient, m)
	poller := generation.NewPoller(cfg.Ark.PollInterval, log, m)

	service := generation.NewService(&generation.ServiceConfig{
		Pool:             pool,
		Rehoster:         rehoster,
		Store:            st,
		Poller:           poller,
		Model:            cfg.Ark.Model,
		DefaultAPIKey:    cfg.Ark.APIKey,
		DefaultBaseURL:   cfg.Ark.BaseURL,
		StatusDeadline:   cfg.Ark.StatusDeadline,
		GenerateDeadline: cfg.Ark.GenerateDeadline,
		Logger:           log,
	})

	app := &App{
		config:   cfg,
		logger:   log,
		registry: registry,
		service:  service,
		store:    st,
		handler:  generationhttp.NewHandler(service, st, cfg.Storage.MaxUploadBytes, log),
	}
	app.setupRouter(m)

	return app, nil
}

func (a *App) setupRouter(m *metrics.Metrics) {
	if a.config.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.Metrics(m))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "X-Api-Key"},
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	a.handler.RegisterRoutes(v1)

	a.router = router
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases application resources.
func (a *App) Stop() {
	a.logger.Info("application stopped")
}
