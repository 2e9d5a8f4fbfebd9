package predictloandefault

import (
	"fmt"
	"time"

	"credit-risk/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	// MaxRetries caps the retries granted to transient failures.
	MaxRetries int
}

func DefaultConfig() *Config {
	d := config.DefaultWorkerConfig
	return &Config{
		Enabled:       d.Enabled,
		MaxJobsActive: d.MaxJobsActive,
		Timeout:       config.GetDuration(d.Timeout),
		MaxRetries:    d.MaxRetries,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}
