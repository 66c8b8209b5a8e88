// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "EMOTION_SERVICE"

// Config holds all configuration for the service
type Config struct {
	// Server configuration
	Port     int `mapstructure:"port"`
	HTTPPort int `mapstructure:"http_port"`

	// Model configuration
	Model          string `mapstructure:"model"`
	ONNXLibrary    string `mapstructure:"onnx_library"`
	InputName      string `mapstructure:"input_name"`
	OutputName     string `mapstructure:"output_name"`
	IntraOpThreads int    `mapstructure:"intra_op_threads"`

	// Cache configuration; an empty address disables caching
	Redis    string        `mapstructure:"redis"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// OpenTelemetry configuration. Spans go to stdout; a non-empty
	// OTELEndpoint only turns tracing on.
	OTELEnabled  bool   `mapstructure:"otel_enabled"`
	OTELEndpoint string `mapstructure:"otel_endpoint"`

	LogLevel string `mapstructure:"log_level"`

	// Feature flags
	UseMockInference bool `mapstructure:"use_mock_inference"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 50051)
	v.SetDefault("http_port", 8080)
	v.SetDefault("model", "emotion.onnx")
	v.SetDefault("onnx_library", "")
	v.SetDefault("input_name", "x_1")
	v.SetDefault("output_name", "linear_72")
	v.SetDefault("intra_op_threads", 0)
	v.SetDefault("redis", "")
	v.SetDefault("cache_ttl", 10*time.Minute)
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("use_mock_inference", false)
}

// Load loads configuration from flags, environment variables, and an optional config file.
// Priority (highest to lowest): flags > env vars > config file > defaults.
// Only flags that were explicitly set override lower layers. An empty
// configFile searches the default locations and tolerates a missing file.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Also honour the standard OTEL endpoint variable
	v.BindEnv("otel_endpoint", EnvPrefix+"_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/emotion-service/")
		v.AddConfigPath("$HOME/.emotion-service")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isKnownKey(key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// An endpoint implies tracing
	if cfg.OTELEndpoint != "" {
		cfg.OTELEnabled = true
	}

	return &cfg, nil
}

func isKnownKey(key string) bool {
	switch key {
	case "port", "http_port", "model", "onnx_library", "input_name", "output_name",
		"intra_op_threads", "redis", "cache_ttl", "otel_enabled", "otel_endpoint",
		"log_level", "use_mock_inference":
		return true
	}
	return false
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTPPort)
	}
	if c.Port == c.HTTPPort {
		return fmt.Errorf("port and http_port must be different")
	}
	if c.Model == "" && !c.UseMockInference {
		return fmt.Errorf("model path is required when not using mock inference")
	}
	if c.IntraOpThreads < 0 {
		return fmt.Errorf("invalid intra_op_threads: %d", c.IntraOpThreads)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("invalid cache_ttl: %s", c.CacheTTL)
	}
	return nil
}
