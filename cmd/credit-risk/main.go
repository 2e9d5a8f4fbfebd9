// cmd/credit-risk/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"credit-risk/internal/common/config"
	"credit-risk/internal/common/logger"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var (
	name    = "credit-risk"
	version = "v0.0.1-default"
)

const (
	configFlagName = "config"
	modelFlagName  = "model"
)

func modelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  modelFlagName,
		Usage: "Path to the model artifact (optional, overrides model.path)",
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    name,
		Version: version,
		Usage:   "Loan default risk prediction service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlagName,
				Aliases: []string{"c"},
				Usage:   "Path to the config file (optional, defaults to configs/config.yaml)",
				Sources: cli.EnvVars("CREDIT_RISK_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			predictCommand(),
			sampleCommand(),
			schemaCommand(),
		},
	}
}

// loadConfig reads the --config file when given, else the default search path.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := cmd.String(configFlagName); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	if model := cmd.String(modelFlagName); model != "" {
		cfg.Model.Path = model
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, logger.Logger) {
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	return zapLog, logger.NewZapAdapter(zapLog)
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
