package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Transport modes.
const (
	ModeHTTP  = "http"
	ModeStdio = "stdio"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Mirror    MirrorConfig    `yaml:"mirror"`
	Report    ReportConfig    `yaml:"report"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	// Mode is "http" or "stdio".
	Mode string `yaml:"mode"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Path is the data directory for the file driver and the database file
	// for the sqlite driver.
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	// KeyPrefix namespaces redis keys.
	KeyPrefix string `yaml:"key_prefix"`
	MaxBytes  int    `yaml:"max_bytes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type AuthConfig struct {
	Enabled bool     `yaml:"enabled"`
	Tokens  []string `yaml:"tokens"`
}

// MirrorConfig points at a remote ledger mirror. An empty URL disables it.
type MirrorConfig struct {
	URL        string        `yaml:"url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint          `yaml:"max_retries"`
	BufferSize int           `yaml:"buffer_size"`
}

type ReportConfig struct {
	Currency string `yaml:"currency"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: ModeHTTP,
		},
		Storage: StorageConfig{
			Driver:   DriverFile,
			Path:     "data",
			MaxBytes: 5 * 1024 * 1024,
		},
		Log: LogConfig{
			Level: "info",
		},
		Mirror: MirrorConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 3,
			BufferSize: 256,
		},
		Report: ReportConfig{
			Currency: "USD",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("SITELEDGER_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString("SITELEDGER_SERVER_HOST", &cfg.Server.Host)
	if err := setInt("SITELEDGER_SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	setString("SITELEDGER_TRANSPORT_MODE", &cfg.Transport.Mode)

	setString("SITELEDGER_STORAGE_DRIVER", &cfg.Storage.Driver)
	setString("SITELEDGER_STORAGE_PATH", &cfg.Storage.Path)
	setString("SITELEDGER_REDIS_ADDR", &cfg.Storage.RedisAddr)
	setString("SITELEDGER_REDIS_PASSWORD", &cfg.Storage.RedisPassword)
	if err := setInt("SITELEDGER_REDIS_DB", &cfg.Storage.RedisDB); err != nil {
		return err
	}
	setString("SITELEDGER_KEY_PREFIX", &cfg.Storage.KeyPrefix)
	if err := setInt("SITELEDGER_MAX_BYTES", &cfg.Storage.MaxBytes); err != nil {
		return err
	}

	setString("SITELEDGER_LOG_LEVEL", &cfg.Log.Level)
	setString("SITELEDGER_LOG_PATH", &cfg.Log.Path)

	if v := os.Getenv("SITELEDGER_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SITELEDGER_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = enabled
	}
	if v := os.Getenv("SITELEDGER_AUTH_TOKENS"); v != "" {
		cfg.Auth.Tokens = splitList(v)
	}

	setString("SITELEDGER_MIRROR_URL", &cfg.Mirror.URL)
	setString("SITELEDGER_MIRROR_TOKEN", &cfg.Mirror.Token)
	if v := os.Getenv("SITELEDGER_MIRROR_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SITELEDGER_MIRROR_TIMEOUT: %w", err)
		}
		cfg.Mirror.Timeout = timeout
	}
	if v := os.Getenv("SITELEDGER_MIRROR_MAX_RETRIES"); v != "" {
		retries, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid SITELEDGER_MIRROR_MAX_RETRIES: %w", err)
		}
		cfg.Mirror.MaxRetries = uint(retries)
	}
	if err := setInt("SITELEDGER_MIRROR_BUFFER_SIZE", &cfg.Mirror.BufferSize); err != nil {
		return err
	}

	setString("SITELEDGER_REPORT_CURRENCY", &cfg.Report.Currency)
	return nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Transport.Mode {
	case ModeHTTP, ModeStdio:
	default:
		return fmt.Errorf("unknown transport mode %q", c.Transport.Mode)
	}
	if c.Auth.Enabled && len(c.Auth.Tokens) == 0 {
		return fmt.Errorf("auth is enabled but no tokens are configured")
	}
	return nil
}

func setString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func setInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
