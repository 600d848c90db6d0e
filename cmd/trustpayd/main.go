package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trustpay/internal/alerts"
	"trustpay/internal/api"
	"trustpay/internal/config"
	"trustpay/internal/history"
	"trustpay/internal/ingest"
	"trustpay/internal/logging"
	"trustpay/internal/model"
	"trustpay/internal/pipeline"
	"trustpay/internal/stats"
	"trustpay/internal/storage"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "trustpay.yaml", "path to config file")
	flag.Parse()

	var cfgManager *config.Manager
	resolved := config.ResolvePath(*configPath)
	if _, err := os.Stat(resolved); err == nil {
		m, err := config.NewManager(resolved)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfgManager = m
	} else {
		cfgManager = config.NewStaticManager(config.DefaultConfig())
	}
	cfg := cfgManager.Get()

	logger := logging.NewLogger(cfg.LogLevel, "trustpayd")
	logger.Info("trustpayd starting", "version", version, "config", cfgManager.Path())

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("open storage", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if store != nil {
		if err := store.Init(ctx); err != nil {
			logger.Error("init storage", "err", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	historyStore := history.NewStore(cfg.History)
	alertStore := alerts.NewStore(cfg.Alerts.StoreLimit)
	statStore := stats.NewStore(cfg.Stats.StoreLimit)

	pipe, err := pipeline.New(cfg, logger, historyStore, alertStore, statStore, store)
	if err != nil {
		logger.Error("build pipeline", "err", err)
		os.Exit(1)
	}

	events := make(chan model.Transaction, cfg.Pipeline.ChannelBuffer)
	pipe.Start(ctx, events)

	parser := ingest.NewParser()
	ingest.StartREST(ctx, cfgManager, events, logger)
	ingest.StartTCPStream(ctx, cfgManager, parser, events, logger)
	ingest.StartFileTail(ctx, cfgManager, parser, events, logger)
	ingest.StartKafka(ctx, cfgManager, events, logger)

	api.Start(ctx, cfgManager, alertStore, statStore, pipe, store, logger, version)

	if cfgManager.Path() != "" {
		stop := make(chan struct{})
		go cfgManager.Watch(3*time.Second,
			func(next *config.Config) {
				if err := pipe.UpdateConfig(next); err != nil {
					logger.Warn("config reload rejected", "err", err)
					return
				}
				logger.Info("config reloaded")
			},
			func(err error) {
				logger.Warn("config watch error", "err", err)
			},
			stop,
		)
		defer close(stop)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("trustpayd shutting down")
	cancel()
}
