// Package config loads server configuration from defaults, a YAML file,
// an optional .env file and the environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application name used in logs and metrics.
	AppName = "taskapi"

	// DefaultConfigFile is read when TASKAPI_CONFIG is unset.
	DefaultConfigFile = "config.yaml"

	// DefaultCredentialsFile is the service-account key used by the Firestore backend.
	DefaultCredentialsFile = "service_account.json"

	// API versions.
	V1 = 1
	V2 = 2

	// Store backends.
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Config holds all server settings.
type Config struct {
	// Port is the listen port. Zero means the version default.
	Port int `yaml:"port"`

	// APIVersion selects the route set and response envelope (1 or 2).
	APIVersion int `yaml:"api_version"`

	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
	CORS  CORSConfig  `yaml:"cors"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`

	// Timeout bounds each store call. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`

	Firestore FirestoreConfig `yaml:"firestore"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
}

// FirestoreConfig configures the Firestore backend.
type FirestoreConfig struct {
	CredentialsFile string `yaml:"credentials_file"`

	// ProjectID overrides the project id found in the credentials file.
	ProjectID string `yaml:"project_id"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// PostgresConfig configures the Postgres backend.
type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// CORSConfig configures cross-origin requests. Empty AllowedOrigins disables CORS.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIVersion: V2,
		Store: StoreConfig{
			Backend: BackendFirestore,
			Firestore: FirestoreConfig{
				CredentialsFile: DefaultCredentialsFile,
			},
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: AppName,
			},
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. The YAML file path comes from TASKAPI_CONFIG
// (default config.yaml); a missing default file or .env file is not an error.
func Load() (*Config, error) {
	cfg, err := LoadFrom(os.Getenv("TASKAPI_CONFIG"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads an explicit YAML path and the environment without validating,
// so callers can apply further overrides before calling Validate. An empty path
// means the default file, which may be missing.
func LoadFrom(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.overrideFromEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// overrideFromEnv applies environment variables on top of file values.
func (c *Config) overrideFromEnv(getenv func(string) string) error {
	var err error
	setInt := func(key string, dst *int) {
		if v := getenv(key); v != "" && err == nil {
			n, convErr := strconv.Atoi(v)
			if convErr != nil {
				err = fmt.Errorf("invalid %s: %q", key, v)
				return
			}
			*dst = n
		}
	}
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("PORT", &c.Port)
	setInt("API_VERSION", &c.APIVersion)
	setString("STORE_BACKEND", &c.Store.Backend)
	setString("GOOGLE_APPLICATION_CREDENTIALS", &c.Store.Firestore.CredentialsFile)
	setString("FIRESTORE_PROJECT_ID", &c.Store.Firestore.ProjectID)
	setString("REDIS_ADDR", &c.Store.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Store.Redis.Password)
	setInt("REDIS_DB", &c.Store.Redis.DB)
	setString("DATABASE_URL", &c.Store.Postgres.URL)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)

	if v := getenv("STORE_TIMEOUT"); v != "" && err == nil {
		d, parseErr := time.ParseDuration(v)
		if parseErr != nil {
			return fmt.Errorf("invalid STORE_TIMEOUT: %q", v)
		}
		c.Store.Timeout = d
	}
	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.AllowedOrigins = origins
	}
	return err
}

// Validate checks version and backend names.
func (c *Config) Validate() error {
	if c.APIVersion != V1 && c.APIVersion != V2 {
		return fmt.Errorf("unsupported api_version: %d", c.APIVersion)
	}
	switch c.Store.Backend {
	case BackendFirestore, BackendRedis, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unsupported store backend: %q", c.Store.Backend)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, o := range c.CORS.AllowedOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("invalid CORS origin %q: must be * or start with http:// or https://", o)
		}
	}
	return nil
}

// ListenPort returns the configured port, or 3000 for v1 and 5000 for v2.
func (c *Config) ListenPort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.APIVersion == V1 {
		return 3000
	}
	return 5000
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ListenPort())
}

// HasCredentials checks if the Firestore credentials file exists.
func (c *Config) HasCredentials() bool {
	_, err := os.Stat(c.Store.Firestore.CredentialsFile)
	return err == nil
}
