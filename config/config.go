package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	API        APIConfig        `mapstructure:"api"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Model      ModelConfig      `mapstructure:"model"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Store      StoreConfig      `mapstructure:"store"`
	Reports    ReportsConfig    `mapstructure:"reports"`
}

// General application configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// Configuration for the API server
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Monte Carlo configuration
type SimulationConfig struct {
	HorizonLength int   `mapstructure:"horizon_length"`
	TrialCount    int   `mapstructure:"trial_count"`
	Seed          int64 `mapstructure:"seed"`
	Workers       int   `mapstructure:"workers"`
	BatchSize     int   `mapstructure:"batch_size"`
	HistogramBins int   `mapstructure:"histogram_bins"`
}

// Stable-tail model parameters
type ModelConfig struct {
	TailIndex float64 `mapstructure:"tail_index"`
	Skew      float64 `mapstructure:"skew"`
}

// Configuration for risk calculations
type RiskConfig struct {
	Percentiles           []float64     `mapstructure:"percentiles"`
	HistoricalDays        int           `mapstructure:"historical_days"`
	RecalculationInterval time.Duration `mapstructure:"recalculation_interval"`
	Schedule              string        `mapstructure:"schedule"`
	Symbols               []string      `mapstructure:"symbols"`
}

// Configuration for metrics
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// Configuration for Prometheus metrics
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Configuration for publishing reports to Kafka
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	PricesTopic  string        `mapstructure:"prices_topic"`
	GroupID      string        `mapstructure:"group_id"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Source of historical prices
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Where the latest report per symbol is kept
type ReportsConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// Redis connection for the report cache; empty Addr keeps reports in memory
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Loads the configuration from an optional file and environment variables
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads the YAML file at path when it exists, then applies
// VARES_ environment overrides on top of the defaults.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("VARES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings no run could succeed with
func (c *Config) Validate() error {
	if c.Simulation.HorizonLength < 1 {
		return fmt.Errorf("simulation.horizon_length must be at least 1, got %d", c.Simulation.HorizonLength)
	}
	if c.Simulation.TrialCount < 1 {
		return fmt.Errorf("simulation.trial_count must be at least 1, got %d", c.Simulation.TrialCount)
	}
	if !(c.Model.TailIndex > 0 && c.Model.TailIndex <= 2) {
		return fmt.Errorf("model.tail_index must be in (0, 2], got %v", c.Model.TailIndex)
	}
	if !(c.Model.Skew >= -1 && c.Model.Skew <= 1) {
		return fmt.Errorf("model.skew must be in [-1, 1], got %v", c.Model.Skew)
	}
	for _, p := range c.Risk.Percentiles {
		if !(p > 0 && p < 100) {
			return fmt.Errorf("risk.percentiles must lie in (0, 100), got %v", p)
		}
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	switch c.Store.Driver {
	case "memory":
	case "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver mysql")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "var-es-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "60s")
	v.SetDefault("api.shutdown_timeout", "30s")
	v.SetDefault("api.rate_limit", 5)
	v.SetDefault("api.rate_burst", 10)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type"})

	// Simulation defaults
	v.SetDefault("simulation.horizon_length", 10)
	v.SetDefault("simulation.trial_count", 10000)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.workers", 4)
	v.SetDefault("simulation.batch_size", 1000)
	v.SetDefault("simulation.histogram_bins", 0)

	// Model defaults
	v.SetDefault("model.tail_index", 1.99)
	v.SetDefault("model.skew", 0.0)

	// Risk defaults
	v.SetDefault("risk.percentiles", []float64{1.0, 2.5})
	v.SetDefault("risk.historical_days", 1260)
	v.SetDefault("risk.recalculation_interval", "5m")
	v.SetDefault("risk.schedule", "")
	v.SetDefault("risk.symbols", []string{})

	// Metrics defaults
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.port", 9090)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "risk.reports")
	v.SetDefault("kafka.prices_topic", "")
	v.SetDefault("kafka.group_id", "var-es-engine")
	v.SetDefault("kafka.batch_timeout", "50ms")
	v.SetDefault("kafka.write_timeout", "10s")

	// Store defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")

	// Report cache defaults
	v.SetDefault("reports.redis.addr", "")
	v.SetDefault("reports.redis.password", "")
	v.SetDefault("reports.redis.db", 0)
	v.SetDefault("reports.redis.ttl", "24h")
}

func GetConfigPath() string {
	configPath := os.Getenv("VARES_CONFIG_PATH")
	if configPath != "" {
		return configPath
	}

	return "./config/config.yaml"
}
