package camunda

import (
	"errors"
	"testing"
	"time"

	"credit-risk/internal/common/config"
	"credit-risk/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := map[string]bool{
		"rpc error: code = Unavailable desc = connection refused": true,
		"context deadline exceeded":                               true,
		"read: connection reset by peer":                          true,
		"rpc error: code = NotFound desc = job not found":         false,
		"permission denied":                                       false,
	}
	for msg, want := range tests {
		assert.Equal(t, want, isRetryableZeebeError(errors.New(msg)), msg)
	}
}

func TestBackoffDelay(t *testing.T) {
	retry := RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, 1*time.Second, backoffDelay(retry, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(retry, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(retry, 2))
	assert.Equal(t, 5*time.Second, backoffDelay(retry, 3))
	assert.Equal(t, 5*time.Second, backoffDelay(retry, 10))
}

func TestStartWorker_Disabled(t *testing.T) {
	w := StartWorker(nil, "predict-loan-default", config.WorkerConfig{Enabled: false}, nil, logger.NewTestLogger(t))
	assert.Nil(t, w)
}
