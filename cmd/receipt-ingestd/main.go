package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facturave/receipt-ingest/internal/analysis"
	"github.com/facturave/receipt-ingest/internal/blob"
	"github.com/facturave/receipt-ingest/internal/common"
	"github.com/facturave/receipt-ingest/internal/pipeline"
	"github.com/facturave/receipt-ingest/internal/server"
	"github.com/facturave/receipt-ingest/internal/store"
	"github.com/facturave/receipt-ingest/internal/users"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := common.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := users.Open(ctx, users.DBConfig{
		Host:      cfg.DBHost,
		Port:      cfg.DBPort,
		User:      cfg.DBUser,
		Password:  cfg.DBPassword,
		Database:  cfg.DBName,
		SSLRootCA: cfg.DBSSLRootCA,
	}, logger)
	if err != nil {
		log.Fatalf("opening DB pool: %v", err)
	}
	defer pool.Close()

	if err := users.HealthCheck(ctx, pool, 3*time.Second, logger); err != nil {
		logger.Warn("startup.db_ping_failed", "error", err)
	}

	blobClient, err := blob.NewClient(blob.Config{
		AccountURL: cfg.StorageAccountURL,
		AccountKey: cfg.StorageAccountKey,
	}, logger)
	if err != nil {
		log.Fatalf("creating blob client: %v", err)
	}

	analyzer := analysis.NewClient(analysis.Config{
		Endpoint:     cfg.DIEndpoint,
		Key:          cfg.DIKey,
		ModelID:      cfg.DIModelID,
		APIVersion:   cfg.DIAPIVersion,
		PollInterval: time.Duration(cfg.DIPollIntervalMS) * time.Millisecond,
		Timeout:      time.Duration(cfg.DITimeoutMS) * time.Millisecond,
	}, logger)

	container, err := store.NewContainer(store.Config{
		Endpoint:  cfg.CosmosEndpoint,
		Key:       cfg.CosmosKey,
		Database:  cfg.CosmosDatabase,
		Container: cfg.CosmosContainer,
	}, logger)
	if err != nil {
		log.Fatalf("creating document store client: %v", err)
	}

	processor := pipeline.NewProcessor(
		logger,
		users.NewRepository(pool, logger),
		blobClient,
		analyzer,
		container,
	)

	events := server.NewEventHandler(logger, processor, cfg.BlobContainer)
	router := server.NewRouter(logger, events, pool)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		logger.Info("http.serving", "addr", cfg.Addr, "container", cfg.BlobContainer)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http.shutdown_failed", "error", err)
	}
	logger.Info("stopped")
}
