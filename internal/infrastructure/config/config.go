package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/prscore/pkg/client"
	"github.com/felixgeelhaar/prscore/pkg/storage"
)

const configFile = "config.yaml"

// Environment variables that override the config file.
const (
	EnvAPIURL   = "PRSCORE_API_URL"
	EnvTimeout  = "PRSCORE_TIMEOUT"
	EnvLogLevel = "PRSCORE_LOG_LEVEL"
	EnvRubric   = "PRSCORE_RUBRIC"
)

// ErrUnknownKey indicates a config key that does not exist.
var ErrUnknownKey = errors.New("unknown config key")

// Config holds client settings. Precedence, lowest first: defaults,
// .prscore/config.yaml, .env, environment.
type Config struct {
	APIURL     string        `yaml:"api_url"`
	Timeout    time.Duration `yaml:"timeout"`
	LogLevel   string        `yaml:"log_level"`
	RubricFile string        `yaml:"rubric_file,omitempty"`

	// Webhooks are only read from the config file.
	Webhooks []webhook.Endpoint `yaml:"webhooks,omitempty"`
}

func Defaults() *Config {
	return &Config{
		APIURL:   client.DefaultBaseURL,
		Timeout:  client.DefaultTimeout,
		LogLevel: "info",
	}
}

// LoadFileConfig reads only .prscore/config.yaml. It returns nil, nil when
// the file does not exist.
func LoadFileConfig(root string) (*Config, error) {
	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(configFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig merges defaults, the config file, .env files in root and the
// environment.
func LoadConfig(root string) (*Config, error) {
	cfg := Defaults()

	fileCfg, err := LoadFileConfig(root)
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		cfg.merge(fileCfg)
	}

	if err := loadEnvFiles(filepath.Join(root, ".env.local"), filepath.Join(root, ".env")); err != nil {
		return nil, err
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvRubric); v != "" {
		cfg.RubricFile = v
	}
	return cfg, nil
}

func SaveConfig(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	repo := storage.NewFilesystemRepository(root)
	if err := repo.Initialize(); err != nil {
		return err
	}
	path, err := repo.ResolvePath(configFile)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// Set assigns a value by its YAML key.
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "api_url":
		c.APIURL = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		c.Timeout = d
	case "log_level":
		c.LogLevel = value
	case "rubric_file":
		c.RubricFile = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

func (c *Config) merge(o *Config) {
	if o.APIURL != "" {
		c.APIURL = o.APIURL
	}
	if o.Timeout > 0 {
		c.Timeout = o.Timeout
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.RubricFile != "" {
		c.RubricFile = o.RubricFile
	}
	if len(o.Webhooks) > 0 {
		c.Webhooks = o.Webhooks
	}
}

// loadEnvFiles loads KEY=VALUE files that exist, in order. godotenv never
// overrides a variable that is already set, so earlier files and the real
// environment take precedence.
func loadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}
