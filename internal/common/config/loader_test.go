package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: credit-risk
model:
  path: configs/model.yaml
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DatasetSourceCSV, cfg.Dataset.Source)
	assert.Equal(t, "data/loan_df.csv", cfg.Dataset.Path)
	assert.Equal(t, 5, cfg.Dataset.SampleRows)
	assert.Equal(t, "pred:", cfg.Cache.KeyPrefix)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Camunda.Enabled)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_MODEL_FILE", "/srv/models/risk.yaml")
	path := writeConfig(t, `
model:
  path: ${TEST_MODEL_FILE}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/models/risk.yaml", cfg.Model.Path)
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	path := writeConfig(t, `
workers:
  predict-loan-default:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	w := GetWorkerConfig(cfg, "predict-loan-default")
	assert.True(t, w.Enabled)
	assert.Equal(t, 10, w.MaxJobsActive)
	assert.Equal(t, 10000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
	assert.True(t, IsWorkerEnabled(cfg, "unknown-worker"))
	assert.Equal(t, DefaultWorkerConfig, GetWorkerConfig(cfg, "unknown-worker"))
}

func TestLoadFromFile_WorkerRetries(t *testing.T) {
	path := writeConfig(t, `
workers:
  no-retries:
    enabled: true
    max_retries: 0
  some-retries:
    enabled: true
    max_retries: 1
  default-retries:
    enabled: false
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 0, GetWorkerConfig(cfg, "no-retries").MaxRetries, "explicit zero is kept")
	assert.Equal(t, 1, GetWorkerConfig(cfg, "some-retries").MaxRetries)
	assert.Equal(t, 3, GetWorkerConfig(cfg, "default-retries").MaxRetries)
	assert.False(t, IsWorkerEnabled(cfg, "default-retries"))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown dataset source",
			mutate:  func(c *Config) { c.Dataset.Source = "parquet" },
			wantErr: "dataset.source",
		},
		{
			name:    "postgres source without host",
			mutate:  func(c *Config) { c.Dataset.Source = DatasetSourcePostgres },
			wantErr: "database.postgres.host",
		},
		{
			name:    "cache without redis",
			mutate:  func(c *Config) { c.Cache.Enabled = true },
			wantErr: "database.redis.address",
		},
		{
			name:    "camunda without broker",
			mutate:  func(c *Config) { c.Camunda.Enabled = true },
			wantErr: "camunda.broker_address",
		},
		{
			name:    "sample ratio out of range",
			mutate:  func(c *Config) { c.Tracing.SampleRatio = 1.5 },
			wantErr: "sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
