package config

import (
	"os"
	"runtime"
	"strconv"

	"gofestat/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Engine   EngineConfig
	Database DatabaseConfig
	Server   ServerConfig
	Output   OutputConfig
	Data     DataConfig
	LogLevel string
}

// EngineConfig holds Fe-statistic evaluator settings
type EngineConfig struct {
	Workers         int
	Brave           bool
	PinvRcond       float64
	ProjectionCache int
	MaxGridPoints   int
}

// DatabaseConfig holds database connection settings. An empty URL disables persistence.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port   string
	UIPort string
}

// OutputConfig holds file system output settings
type OutputConfig struct {
	Dir string
}

// DataConfig names the pulsar table served by the API. Empty means a
// synthetic array with an injected source.
type DataConfig struct {
	PulsarFile string
}

const (
	// DefaultPinvRcond is the relative singular-value cutoff of the pseudo-inverse
	DefaultPinvRcond = 1e-15
	// DefaultMaxGridPoints bounds the sky positions of a single scan, a 512 x 512 grid
	DefaultMaxGridPoints = 512 * 512
)

// Default returns the configuration used when no environment overrides are present
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Workers:         runtime.GOMAXPROCS(0),
			Brave:           false,
			PinvRcond:       DefaultPinvRcond,
			ProjectionCache: 64,
			MaxGridPoints:   DefaultMaxGridPoints,
		},
		Server:   ServerConfig{Port: "8080", UIPort: "8081"},
		Output:   OutputConfig{Dir: "./output"},
		LogLevel: "INFO",
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	def := Default()
	config := &Config{
		Engine: EngineConfig{
			Workers:         getEnvIntOrDefault("FESTAT_WORKERS", def.Engine.Workers),
			Brave:           getEnvBoolOrDefault("FESTAT_BRAVE", def.Engine.Brave),
			PinvRcond:       getEnvFloatOrDefault("FESTAT_PINV_RCOND", def.Engine.PinvRcond),
			ProjectionCache: getEnvIntOrDefault("FESTAT_PROJECTION_CACHE", def.Engine.ProjectionCache),
			MaxGridPoints:   getEnvIntOrDefault("FESTAT_MAX_GRID_POINTS", def.Engine.MaxGridPoints),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port:   getEnvOrDefault("PORT", def.Server.Port),
			UIPort: getEnvOrDefault("UI_PORT", def.Server.UIPort),
		},
		Output: OutputConfig{
			Dir: getEnvOrDefault("OUTPUT_DIR", def.Output.Dir),
		},
		Data: DataConfig{
			PulsarFile: getEnvOrDefault("PULSAR_FILE", ""),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", def.LogLevel),
	}

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Validate checks value ranges
func Validate(config *Config) error {
	if config.Engine.Workers < 1 {
		return errors.ConfigInvalid("FESTAT_WORKERS must be at least 1")
	}
	if config.Engine.PinvRcond < 0 || config.Engine.PinvRcond >= 1 {
		return errors.ConfigInvalid("FESTAT_PINV_RCOND must be in [0, 1)")
	}
	if config.Engine.ProjectionCache < 0 {
		return errors.ConfigInvalid("FESTAT_PROJECTION_CACHE cannot be negative")
	}
	if config.Engine.MaxGridPoints < 1 {
		return errors.ConfigInvalid("FESTAT_MAX_GRID_POINTS must be at least 1")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
