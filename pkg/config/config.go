package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level configuration struct for the honeypot.
// Tags are used by Viper to map YAML keys to struct fields.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	APIPort   string          `mapstructure:"api_port"`
	Listen    ListenConfig    `mapstructure:"listen"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Deception DeceptionConfig `mapstructure:"deception"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`

	path string
}

// ListenConfig describes the deception listener itself.
type ListenConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Banner  string `mapstructure:"banner"`
	MaxConn int    `mapstructure:"max_connections"`
	// ReadTimeout bounds each blocking line read, e.g. "5m". Empty disables
	// the bound.
	ReadTimeout string `mapstructure:"read_timeout"`
}

// DatabaseConfig locates the sqlite event store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DeceptionConfig gates the adaptive behavior; the decoy conversation itself
// always runs.
type DeceptionConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AnalysisConfig controls the out-of-band clustering job.
type AnalysisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
}

// FilePath returns the config file the values were read from, empty when only
// defaults and environment variables were used.
func (c *Config) FilePath() string { return c.path }

// LoadConfig reads the configuration from a YAML file (e.g., config.yaml) and
// environment variables. It uses Viper for robust configuration management,
// allowing for defaults and environment variable overrides.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	v.AddConfigPath(".")            // Search in current directory
	v.AddConfigPath("/etc/mirage/") // Search in /etc/mirage/

	// Set default values
	v.SetDefault("log_level", "info")
	v.SetDefault("api_port", "8080")
	v.SetDefault("listen.host", "0.0.0.0")
	v.SetDefault("listen.port", 2222)
	v.SetDefault("listen.banner", "OpenSSH_8.9p1 Ubuntu-3ubuntu0.6")
	v.SetDefault("listen.max_connections", 512)
	v.SetDefault("listen.read_timeout", "5m")
	v.SetDefault("database.path", "data/mirage.db")
	v.SetDefault("deception.enabled", true)
	v.SetDefault("analysis.enabled", false)
	v.SetDefault("analysis.interval", "10m")

	// Read environment variables
	v.SetEnvPrefix("MIRAGE")                           // Look for MIRAGE_ prefix
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // Replace dots with underscores for nested keys
	v.AutomaticEnv()                                   // Automatically bind environment variables to config keys

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables.")
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.path = v.ConfigFileUsed()

	return &cfg, nil
}
