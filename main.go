package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/modelplane/modelplane/pkg/artifact"
	"github.com/modelplane/modelplane/pkg/config"
	"github.com/modelplane/modelplane/pkg/drift"
	"github.com/modelplane/modelplane/pkg/monitor"
	"github.com/modelplane/modelplane/pkg/orchestrator"
	"github.com/modelplane/modelplane/pkg/registry"
	"github.com/modelplane/modelplane/pkg/server"
	"github.com/modelplane/modelplane/pkg/store/sql"
	"github.com/modelplane/modelplane/pkg/trainer"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("invalid log level %q: %v", cfg.LogLevel, err)
	}
	logger := logrus.StandardLogger()
	logger.SetLevel(level)

	store, err := sql.NewSQLStore(logger, cfg.StoreURL)
	if err != nil {
		logger.Fatalf("failed to open store: %v", err)
	}

	artifacts, cErr := artifact.NewFileStore(cfg.ArtifactRoot)
	if cErr != nil {
		logger.Fatalf("failed to open artifact store: %v", cErr)
	}

	reg := registry.New(store, artifacts, logger)
	mon := monitor.New(store, logger)
	detector := drift.New(store, logger)
	orch := orchestrator.New(
		reg,
		mon,
		store,
		&trainer.ExecTrainer{Command: cfg.TrainerCommand, Logger: logger},
		&trainer.ExecEvaluator{Command: cfg.EvaluatorCommand, Logger: logger},
		logger,
		orchestrator.Config{
			BaselineAccuracy:  cfg.BaselineAccuracy,
			MinPredictions:    cfg.MinPredictions,
			AccuracyThreshold: cfg.AccuracyThreshold,
			DatasetReference:  cfg.DatasetReference,
			TestSetReference:  cfg.TestSetReference,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("address", cfg.Address).Info("starting model lifecycle control plane")
	if err := server.Launch(ctx, cfg, &server.Services{
		Registry:     reg,
		Monitor:      mon,
		Detector:     detector,
		Orchestrator: orch,
	}); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
