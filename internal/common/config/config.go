// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Server   ServerConfig            `mapstructure:"server"`
	Model    ModelConfig             `mapstructure:"model"`
	Dataset  DatasetConfig           `mapstructure:"dataset"`
	Database DatabaseConfig          `mapstructure:"database"`
	Cache    CacheConfig             `mapstructure:"cache"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Tracing  TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig configures the HTTP surface (form pages, JSON API, health, metrics).
type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// ModelConfig points at the serialized classifier loaded once at startup.
type ModelConfig struct {
	Path string `mapstructure:"path"`
	// Threshold overrides the artifact's decision threshold when > 0.
	Threshold float64 `mapstructure:"threshold"`
}

// DatasetConfig selects where the Home page sample rows come from.
type DatasetConfig struct {
	Source     string `mapstructure:"source"` // csv | postgres
	Path       string `mapstructure:"path"`
	Table      string `mapstructure:"table"`
	SampleRows int    `mapstructure:"sample_rows"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls memoization of predictions in Redis.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	TTL       int    `mapstructure:"ttl"` // milliseconds
	KeyPrefix string `mapstructure:"key_prefix"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// DefaultWorkerConfig applies to workers missing from the workers section
// and fills the fields an entry leaves out.
var DefaultWorkerConfig = WorkerConfig{
	Enabled:       true,
	MaxJobsActive: 10,
	Timeout:       10000,
	MaxRetries:    3,
}

// unsetRetries marks a worker entry without max_retries. An explicit 0 is
// kept and turns every failure into a BPMN error.
const unsetRetries = -1

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig enables span export. An empty JaegerEndpoint keeps spans in-process.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
