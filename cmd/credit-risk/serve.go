package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"credit-risk/internal/collector"
	"credit-risk/internal/common/camunda"
	"credit-risk/internal/common/config"
	"credit-risk/internal/common/database"
	"credit-risk/internal/common/logger"
	"credit-risk/internal/common/observability"
	"credit-risk/internal/dataset"
	"credit-risk/internal/predictor"
	"credit-risk/internal/scoring"
	"credit-risk/internal/web"
	pld "credit-risk/internal/workers/risk/predict-loan-default"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Start the web pages, JSON API and (optionally) the Zeebe job worker",
		Flags: []cli.Flag{
			modelFlag(),
			&cli.StringFlag{
				Name:  "address",
				Usage: "Listen address (optional, overrides server.address)",
			},
		},
		Action: cmdServe,
	}
}

func cmdServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr := cmd.String("address"); addr != "" {
		cfg.Server.Address = addr
	}

	zapLog, log := newLogger(cfg)
	defer zapLog.Sync()

	zapLog.Info("Starting credit-risk service...",
		zap.String("version", version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name, cfg.Tracing, log)
	defer obs.Shutdown()

	model, err := loadModel(cfg)
	if err != nil {
		return err
	}
	zapLog.Info("Model loaded",
		zap.String("name", model.Name()),
		zap.String("version", model.Version()),
		zap.Float64("threshold", model.Threshold()),
	)

	var checks []web.Check

	// --- Prediction cache ---
	var cache scoring.Cache
	if cfg.Cache.Enabled {
		var rc *database.RedisClient
		err = retryWithBackoff(ctx, func() error {
			var err error
			if rc, err = database.NewRedis(cfg.Database.Redis); err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 5, time.Second, log, "Redis connection")
		if err != nil {
			return err
		}
		defer rc.Close()

		cache = scoring.NewRedisCache(rc, config.GetDuration(cfg.Cache.TTL))
		checks = append(checks, web.Check{Name: "redis", Probe: rc.Ping})
		zapLog.Info("Prediction cache enabled", zap.Duration("ttl", config.GetDuration(cfg.Cache.TTL)))
	}

	// --- Sample dataset ---
	var pg *database.PostgresClient
	if cfg.Dataset.Source == config.DatasetSourcePostgres {
		err = retryWithBackoff(ctx, func() error {
			var err error
			if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			return err
		}
		defer pg.Close()
		checks = append(checks, web.Check{Name: "postgres", Probe: pg.Ping})
	}

	src, err := dataset.New(cfg.Dataset, pg)
	if err != nil {
		return err
	}

	pipeline, err := scoring.New(scoring.Options{
		Predictor:     model,
		Cache:         cache,
		KeyPrefix:     cfg.Cache.KeyPrefix,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	col := collector.New()

	// --- Zeebe job worker ---
	switch {
	case jobWorkerEnabled(cfg):
		client, jobWorker, err := startJobWorker(ctx, cfg, pipeline, col, obs, log)
		if err != nil {
			return err
		}
		defer client.Close()
		if jobWorker != nil {
			defer jobWorker.Close()
		}
		checks = append(checks, web.Check{Name: "camunda", Probe: client.HealthCheck})
	case cfg.Camunda.Enabled:
		zapLog.Info("Zeebe job worker disabled, not connecting", zap.String("taskType", pld.TaskType))
	}

	server, err := web.NewServer(web.Options{
		Config:     cfg.Server,
		Pipeline:   pipeline,
		Collector:  col,
		Dataset:    src,
		SampleRows: cfg.Dataset.SampleRows,
		Checks:     checks,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	if err := server.Run(ctx); err != nil {
		return err
	}

	zapLog.Info("credit-risk service stopped gracefully")
	return nil
}

func loadModel(cfg *config.Config) (*predictor.Model, error) {
	model, err := predictor.Load(cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Model.Threshold > 0 {
		return model.WithThreshold(cfg.Model.Threshold)
	}
	return model, nil
}

// jobWorkerEnabled reports whether serve should dial Zeebe at all.
func jobWorkerEnabled(cfg *config.Config) bool {
	return cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, pld.TaskType)
}

func startJobWorker(ctx context.Context, cfg *config.Config, pipeline *scoring.Pipeline, col *collector.Collector, obs *observability.Observability, log logger.Logger) (*camunda.Client, worker.JobWorker, error) {
	client, err := camunda.Connect(ctx, cfg.Camunda, camunda.DefaultRetryConfig, log)
	if err != nil {
		return nil, nil, fmt.Errorf("zeebe client failed after retries: %w", err)
	}

	handler, err := pld.NewHandler(pld.HandlerOptions{
		AppConfig:     cfg,
		Scorer:        pipeline,
		Collector:     col,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to create %s handler: %w", pld.TaskType, err)
	}

	jobWorker := camunda.StartWorker(client.GetClient(), handler.GetTaskType(), handler.WorkerConfig(), handler.Handle, log)
	return client, jobWorker, nil
}
