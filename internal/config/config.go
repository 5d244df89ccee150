// Package config loads application configuration from defaults, an
// optional YAML file, and environment variables, in increasing order of
// precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	Directory DirectoryConfig `yaml:"directory" envconfig:"DIRECTORY"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LicenseConfig contains License Verification Service configuration.
// An empty ProductID disables online validation entirely.
type LicenseConfig struct {
	ProductID  string        `yaml:"product_id" envconfig:"PRODUCT_ID"`
	VerifyURL  string        `yaml:"verify_url" envconfig:"VERIFY_URL"`
	ProductURL string        `yaml:"product_url" envconfig:"PRODUCT_URL"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// DirectoryConfig contains Identity Directory Service configuration
type DirectoryConfig struct {
	URL           string        `yaml:"url" envconfig:"URL"`
	Token         string        `yaml:"token" envconfig:"TOKEN"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	FallbackPaths []string      `yaml:"fallback_paths" envconfig:"FALLBACK_PATHS"`
}

// StoreConfig contains configuration store settings
type StoreConfig struct {
	Path string `yaml:"path" envconfig:"PATH"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// defaultConfig returns the reference policy defaults
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		License: LicenseConfig{
			VerifyURL: "https://api.gumroad.com/v2/licenses/verify",
			Timeout:   10 * time.Second,
		},
		Directory: DirectoryConfig{
			Timeout:       10 * time.Second,
			FallbackPaths: []string{"auth_users.json"},
		},
		Store: StoreConfig{
			Path: "ocrmill.db",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/ocrmill.log",
		},
	}
}

// Load loads configuration from ocrmill.yml and environment variables
func Load() (*Config, error) {
	return LoadFrom("ocrmill.yml")
}

// LoadFrom loads configuration, merging defaults, the YAML file at
// configFile (if it exists), and OCRMILL_* environment overrides.
func LoadFrom(configFile string) (*Config, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(configFile); err == nil {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process("OCRMILL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.License.Timeout <= 0 {
		return fmt.Errorf("license timeout must be positive")
	}
	if c.Directory.Timeout <= 0 {
		return fmt.Errorf("directory timeout must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}
