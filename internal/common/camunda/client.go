// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"credit-risk/internal/common/config"
	"credit-risk/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client.
type Client struct {
	client         zbc.Client
	requestTimeout time.Duration
}

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries: 5,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// Connect creates the Zeebe client and waits for the gateway topology,
// retrying transient failures with exponential backoff.
func Connect(ctx context.Context, cfg config.CamundaConfig, retry RetryConfig, log logger.Logger) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{
		client:         zeebeClient,
		requestTimeout: config.GetDuration(cfg.RequestTimeout),
	}

	for attempt := 0; ; attempt++ {
		err = c.HealthCheck(ctx)
		if err == nil {
			return c, nil
		}
		if !isRetryableZeebeError(err) || attempt >= retry.MaxRetries {
			_ = zeebeClient.Close()
			return nil, fmt.Errorf("failed to connect to Zeebe gateway at %s after %d attempts: %w", cfg.BrokerAddress, attempt+1, err)
		}

		delay := backoffDelay(retry, attempt)
		log.Warn("Zeebe gateway not reachable, retrying", map[string]interface{}{
			"attempt":     attempt + 1,
			"maxRetries":  retry.MaxRetries,
			"nextRetryIn": delay.String(),
			"error":       err,
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			_ = zeebeClient.Close()
			return nil, fmt.Errorf("zeebe connect cancelled: %w", ctx.Err())
		}
	}
}

// GetClient returns the raw Zeebe client for job polling.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck performs a topology request against the gateway.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

func backoffDelay(retry RetryConfig, attempt int) time.Duration {
	delay := retry.BaseDelay * time.Duration(1<<attempt)
	if delay > retry.MaxDelay || delay <= 0 {
		delay = retry.MaxDelay
	}
	return delay
}

// isRetryableZeebeError checks if the error is transient and should be retried.
func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
