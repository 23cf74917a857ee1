/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/suparena/entityservice"
	"github.com/suparena/entityservice/cache"
	"github.com/suparena/entityservice/config"
	"github.com/suparena/entityservice/notify"
	"github.com/suparena/entityservice/registry"
	"github.com/suparena/entityservice/transport/rest"

	_ "github.com/suparena/entityservice/datastore/ddb"
	_ "github.com/suparena/entityservice/datastore/firestore"
	_ "github.com/suparena/entityservice/datastore/mock"
	_ "github.com/suparena/entityservice/datastore/pgdoc"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	configFlag  = flag.String("config", "", "Path to a YAML or JSON config file")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := entityservice.GetVersionInfo()
		fmt.Printf("EntityService version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		fmt.Printf("Drivers: %v\n", registry.Drivers())
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("entityservice exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adapter, err := registry.New(cfg.Storage.Driver, cfg.Storage.Credentials())
	if err != nil {
		return err
	}

	opts := []entityservice.Option{
		entityservice.WithVersion(cfg.Service.Version),
		entityservice.WithCollection(cfg.Service.Collection),
		entityservice.WithSettings(cfg.Service.Settings),
		entityservice.WithRetryDelay(cfg.Service.RetryDelay),
		entityservice.WithLogger(logger),
		entityservice.WithMetrics(prometheus.DefaultRegisterer),
	}

	if cfg.Service.SchemaFile != "" {
		schema, err := config.LoadEntitySchema(cfg.Service.SchemaFile)
		if err != nil {
			return err
		}
		opts = append(opts, entityservice.WithEntitySchema(schema))
	}

	cacher, closeCache, err := newCacher(ctx, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeCache()
	if cacher != nil {
		opts = append(opts, entityservice.WithCacher(cacher))
	}

	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()
	opts = append(opts, entityservice.WithNotifier(notifier))

	svc, err := entityservice.New(cfg.Service.Name, adapter, opts...)
	if err != nil {
		return err
	}

	manager := entityservice.NewServiceManager()
	if err := manager.Register(svc); err != nil {
		return err
	}

	gin.SetMode(cfg.HTTP.GinMode)
	router := rest.NewRouter(logger, cfg.HTTP.BasePath, cfg.HTTP.CORSOrigins, rest.NewHandler(svc, logger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.HTTP.Addr), zap.String("ginMode", gin.Mode()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Requests are answered with 503 until the store is reachable.
	started := make(chan struct{})
	go func() {
		defer close(started)
		if err := manager.StartAll(ctx); err != nil && ctx.Err() == nil {
			logger.Error("failed to start services", zap.Error(err))
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown of HTTP server failed", zap.Error(err))
	}

	// A connect loop still running must give up before the services are stopped.
	stop()
	<-started
	if err := manager.StopAll(shutdownCtx); err != nil {
		logger.Error("failed to stop services", zap.Error(err))
	}

	logger.Info("server exiting")
	return nil
}

func newCacher(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (cache.Cacher, func(), error) {
	switch cfg.Type {
	case "memory":
		return cache.NewMemory(cfg.TTL), func() {}, nil
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Address:    cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			Expiration: cfg.TTL,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (notify.Notifier, func(), error) {
	switch cfg.Notify.Type {
	case "local":
		return notify.NewLocal(), func() {}, nil
	case "nats":
		n, err := notify.NewNATS(notify.NATSConfig{URL: cfg.Notify.URL, ClientName: cfg.Service.Name}, logger)
		if err != nil {
			return nil, nil, err
		}
		return n, func() { _ = n.Close() }, nil
	case "amqp":
		a, err := notify.NewAMQP(notify.AMQPConfig{URL: cfg.Notify.URL, Exchange: cfg.Notify.Exchange}, logger)
		if err != nil {
			return nil, nil, err
		}
		return a, func() { _ = a.Close() }, nil
	default:
		return notify.Nop{}, func() {}, nil
	}
}
