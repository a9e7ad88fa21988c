package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cdnops/trafficbridge/pkg/api"
	"github.com/cdnops/trafficbridge/pkg/cdn"
	"github.com/cdnops/trafficbridge/pkg/config"
	"github.com/cdnops/trafficbridge/pkg/credentials"
	"github.com/cdnops/trafficbridge/pkg/edge"
	"github.com/cdnops/trafficbridge/pkg/metric"
	"github.com/cdnops/trafficbridge/pkg/observability"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config file overlaying the environment")
	flag.Parse()

	// Load a .env file if one is present; real environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	chain := credentials.NewChain(
		credentials.EnvSource{},
		credentials.FileSource{Path: cfg.Credentials.FilePath},
	)
	store, err := credentials.NewStore(chain, logger)
	if err != nil {
		log.Fatalf("Failed to load credentials: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Credentials.Watch {
		if _, statErr := os.Stat(cfg.Credentials.FilePath); statErr == nil {
			go func() {
				if err := store.Watch(ctx, cfg.Credentials.FilePath); err != nil && !errors.Is(err, context.Canceled) {
					logger.WithError(err).Warn("credentials watcher stopped")
				}
			}()
		}
	}

	cdnAdapter := cdn.New(cdn.Options{
		GraphQLEndpoint: cfg.CDN.GraphQLEndpoint,
		APIEndpoint:     cfg.CDN.APIEndpoint,
		AccountTag:      cfg.CDN.AccountTag,
		ZoneTag:         cfg.CDN.ZoneTag,
		Credentials:     store,
		Logger:          logger,
		Metrics:         metrics,
	})
	edgeAdapter := edge.New(edge.Options{
		Endpoint:      cfg.Edge.Endpoint,
		DefaultSiteID: cfg.Edge.DefaultSiteID,
		Credentials:   store,
		Logger:        logger,
		Metrics:       metrics,
	})

	dispatcher := metric.NewDispatcher(cdnAdapter, edgeAdapter)
	server := api.NewServer(dispatcher, logger, metrics)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		cancel()
		return nil
	})

	go func() {
		logger.Infof("trafficbridge listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		os.Exit(1)
	}
}
