package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the dashboard configuration
type Config struct {
	Listen         string        `mapstructure:"listen"`
	SecretKey      string        `mapstructure:"secret_key"`
	TokenExpiry    time.Duration `mapstructure:"token_expiry"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	AllowedIPs     []string      `mapstructure:"allowed_ips"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	PushInterval   time.Duration `mapstructure:"push_interval"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`

	Stream  StreamConfig `mapstructure:"stream"`
	Buffers BufferConfig `mapstructure:"buffers"`
	Core    CoreConfig   `mapstructure:"core"`
}

// StreamConfig tunes the per-channel failure policy
type StreamConfig struct {
	ErrorWindow      time.Duration `mapstructure:"error_window"`
	ErrorThreshold   int           `mapstructure:"error_threshold"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

// BufferConfig sizes the chart and log buffers
type BufferConfig struct {
	SpeedPoints  int     `mapstructure:"speed_points"`
	MemoryPoints int     `mapstructure:"memory_points"`
	LogEntries   int     `mapstructure:"log_entries"`
	Alpha        float64 `mapstructure:"alpha"`
}

// CoreConfig holds settings sent to or used against the proxy core
type CoreConfig struct {
	LogLevel            string        `mapstructure:"log_level"`
	ConnectionsInterval time.Duration `mapstructure:"connections_interval"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	InsecureSkipVerify  bool          `mapstructure:"insecure_skip_verify"`
}

var logLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warning": true,
	"error":   true,
	"silent":  true,
}

// setDefaults registers every default on v
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "localhost:8080")
	v.SetDefault("secret_key", "")
	v.SetDefault("token_expiry", "720h")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("allowed_ips", []string{})
	v.SetDefault("rate_limit", 100)
	v.SetDefault("rate_burst", 200)
	v.SetDefault("push_interval", "500ms")
	v.SetDefault("cache_ttl", "1s")

	v.SetDefault("stream.error_window", "5s")
	v.SetDefault("stream.error_threshold", 3)
	v.SetDefault("stream.retry_delay", "2s")
	v.SetDefault("stream.handshake_timeout", "10s")

	v.SetDefault("buffers.speed_points", 30)
	v.SetDefault("buffers.memory_points", 60)
	v.SetDefault("buffers.log_entries", 200)
	v.SetDefault("buffers.alpha", 0.1)

	v.SetDefault("core.log_level", "info")
	v.SetDefault("core.connections_interval", "1s")
	v.SetDefault("core.request_timeout", "10s")
	v.SetDefault("core.insecure_skip_verify", false)
}

// LoadConfig loads the configuration from file, environment and defaults.
// An empty path searches ., ./config and ~/.corewatch for config.yaml.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COREWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".corewatch"))
		} else {
			log.Printf("Warning: Could not determine user home directory: %v", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Printf("No config file found, using defaults and environment")
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the monitor cannot run with
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.Stream.ErrorThreshold < 1 {
		return fmt.Errorf("stream.error_threshold must be at least 1")
	}
	if c.Stream.ErrorWindow <= 0 {
		return fmt.Errorf("stream.error_window must be positive")
	}
	if c.Stream.RetryDelay <= 0 {
		return fmt.Errorf("stream.retry_delay must be positive")
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("rate_limit and rate_burst must be positive")
	}
	if c.Buffers.Alpha <= 0 || c.Buffers.Alpha > 1 {
		return fmt.Errorf("buffers.alpha must be in (0, 1]")
	}
	if c.Buffers.SpeedPoints < 1 || c.Buffers.MemoryPoints < 1 || c.Buffers.LogEntries < 1 {
		return fmt.Errorf("buffer capacities must be positive")
	}
	if !logLevels[c.Core.LogLevel] {
		return fmt.Errorf("core.log_level %q is not one of debug, info, warning, error, silent", c.Core.LogLevel)
	}
	return nil
}
