// Package config loads firmcore settings from an optional TOML file followed
// by FIRMCORE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
)

// Environment variables consulted by Load.
const (
	EnvStorageDriver     = "FIRMCORE_STORAGE_DRIVER"
	EnvSQLitePath        = "FIRMCORE_SQLITE_PATH"
	EnvPostgresDSN       = "FIRMCORE_POSTGRES_DSN"
	EnvEmployeeCacheSize = "FIRMCORE_EMPLOYEE_CACHE_SIZE"
	EnvAuthMaxAttempts   = "FIRMCORE_AUTH_MAX_ATTEMPTS"
	EnvLogLevel          = "FIRMCORE_LOG_LEVEL"
	EnvLogFormat         = "FIRMCORE_LOG_FORMAT"
	EnvMetricsBackend    = "FIRMCORE_METRICS_BACKEND"
)

// Config is the full application configuration.
type Config struct {
	Storage Storage `toml:"storage"`
	Cache   Cache   `toml:"cache"`
	Auth    Auth    `toml:"auth"`
	Log     Log     `toml:"log"`
	Metrics Metrics `toml:"metrics"`
}

// Storage selects and addresses the persistent store.
type Storage struct {
	Driver      StorageDriver `toml:"driver"`
	SQLitePath  string        `toml:"sqlite-path"`
	PostgresDSN string        `toml:"postgres-dsn"`
}

// Cache bounds in-process caches.
type Cache struct {
	EmployeeHashCapacity int `toml:"employee-hash-capacity"`
}

// Auth configures the login attempt limiter.
type Auth struct {
	MaxAttempts int `toml:"max-attempts"`
}

// Log configures the logging backend.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Metrics selects the metrics recorder: none, expvar or prometheus.
type Metrics struct {
	Backend   string `toml:"backend"`
	Namespace string `toml:"namespace"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Storage: Storage{Driver: StorageSQLite, SQLitePath: "firmcore.db"},
		Cache:   Cache{EmployeeHashCapacity: 128},
		Auth:    Auth{MaxAttempts: 5},
		Log:     Log{Level: "info", Format: "text"},
		Metrics: Metrics{Backend: "none", Namespace: "firmcore"},
	}
}

// Load builds a Config from defaults, the TOML file at path (skipped when
// path is empty) and the process environment, then validates it.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return Config{}, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	if v, ok := lookup(EnvStorageDriver); ok && v != "" {
		c.Storage.Driver = StorageDriver(v)
	}
	str(EnvSQLitePath, &c.Storage.SQLitePath)
	str(EnvPostgresDSN, &c.Storage.PostgresDSN)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvLogFormat, &c.Log.Format)
	str(EnvMetricsBackend, &c.Metrics.Backend)
	if err := num(EnvEmployeeCacheSize, &c.Cache.EmployeeHashCapacity); err != nil {
		return err
	}
	return num(EnvAuthMaxAttempts, &c.Auth.MaxAttempts)
}

// Validate rejects unknown drivers and backends and non-positive sizes.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite, StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Cache.EmployeeHashCapacity <= 0 {
		errs = append(errs, fmt.Errorf("employee hash capacity must be positive, got %d", c.Cache.EmployeeHashCapacity))
	}
	if c.Auth.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("auth max attempts must be positive, got %d", c.Auth.MaxAttempts))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	switch c.Metrics.Backend {
	case "none", "expvar", "prometheus":
	default:
		errs = append(errs, fmt.Errorf("unknown metrics backend %q", c.Metrics.Backend))
	}
	return errors.Join(errs...)
}
