// Package config handles loading and validation of service configuration.
// Supports a config file (JSON or YAML), environment variables with an
// optional .env file (development), and Secret Manager (production).
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bookworm-cart/internal/persist"
)

// Config holds all service configuration.
// Environment determines whether credentials load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string `json:"port" yaml:"port"`
	Environment string `json:"environment" yaml:"environment"` // "development" or "production"
	LogLevel    string `json:"log_level" yaml:"log_level"`     // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string `json:"gcp_project" yaml:"gcp_project"`
	SecretID   string `json:"secret_id" yaml:"secret_id"`

	Backend   BackendConfig   `json:"backend" yaml:"backend"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Reconcile ReconcileConfig `json:"reconcile" yaml:"reconcile"`

	// Credentials are never read from the config file.
	Credentials Credentials `json:"-" yaml:"-"`
}

// BackendConfig locates the Bookworm backend. CatalogURL, OrdersURL and
// AuthURL default to URL.
type BackendConfig struct {
	URL               string   `json:"url" yaml:"url"`
	CatalogURL        string   `json:"catalog_url" yaml:"catalog_url"`
	OrdersURL         string   `json:"orders_url" yaml:"orders_url"`
	AuthURL           string   `json:"auth_url" yaml:"auth_url"`
	Timeout           Duration `json:"timeout" yaml:"timeout"`
	ChromeFingerprint bool     `json:"chrome_fingerprint" yaml:"chrome_fingerprint"`
}

// StorageConfig selects where the cart is persisted.
type StorageConfig struct {
	Driver     string `json:"driver" yaml:"driver"` // file, sqlite, redis, memory
	Key        string `json:"key" yaml:"key"`
	Dir        string `json:"dir" yaml:"dir"`
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`
	RedisAddr  string `json:"redis_addr" yaml:"redis_addr"`
	RedisDB    int    `json:"redis_db" yaml:"redis_db"`
}

// ReconcileConfig tunes checkout reconciliation.
type ReconcileConfig struct {
	LookupTimeout  Duration `json:"lookup_timeout" yaml:"lookup_timeout"`
	MaxConcurrency int      `json:"max_concurrency" yaml:"max_concurrency"`
}

// Credentials are the service's sign-in secrets. In production they come
// from Secret Manager as JSON.
type Credentials struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	RedisPassword string `json:"redis_password"`
}

// Defaults.
const (
	DefaultPort           = "8080"
	DefaultBackendTimeout = 10 * time.Second
	DefaultLookupTimeout  = 5 * time.Second
	DefaultStorageDir     = "data"
)

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars. Credentials always come from
// ENV vars or, in production, Secret Manager.
func Load(ctx context.Context) (*Config, error) {
	// .env never overrides variables that are already set.
	if err := loadDotEnv(envOrDefault("DOTENV_FILE", ".env")); err != nil {
		return nil, err
	}

	var cfg *Config
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		var err error
		if cfg, err = loadFromFile(configPath); err != nil {
			return nil, err
		}
	} else {
		var err error
		if cfg, err = loadFromEnv(); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()

	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.SecretID == "" {
			return nil, fmt.Errorf("SECRET_ID required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		cfg.loadCredentialsFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadFromFile reads configuration from a JSON or YAML file, chosen by
// extension.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// loadFromEnv reads configuration from individual environment variables.
func loadFromEnv() (*Config, error) {
	cfg := &Config{
		Port:        os.Getenv("PORT"),
		Environment: os.Getenv("ENVIRONMENT"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		SecretID:    os.Getenv("SECRET_ID"),
		Backend: BackendConfig{
			URL:        os.Getenv("BACKEND_URL"),
			CatalogURL: os.Getenv("CATALOG_URL"),
			OrdersURL:  os.Getenv("ORDERS_URL"),
			AuthURL:    os.Getenv("AUTH_URL"),
		},
		Storage: StorageConfig{
			Driver:     os.Getenv("STORAGE_DRIVER"),
			Key:        os.Getenv("CART_KEY"),
			Dir:        os.Getenv("STORAGE_DIR"),
			SQLitePath: os.Getenv("SQLITE_PATH"),
			RedisAddr:  os.Getenv("REDIS_ADDR"),
		},
	}

	var err error
	if cfg.Backend.Timeout, err = envDuration("BACKEND_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.Reconcile.LookupTimeout, err = envDuration("LOOKUP_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.Backend.ChromeFingerprint, err = envBool("CHROME_TLS"); err != nil {
		return nil, err
	}
	if cfg.Storage.RedisDB, err = envInt("REDIS_DB"); err != nil {
		return nil, err
	}
	if cfg.Reconcile.MaxConcurrency, err = envInt("RECONCILE_MAX_CONCURRENCY"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Port = withDefault(c.Port, DefaultPort)
	c.Environment = withDefault(c.Environment, "development")
	c.LogLevel = withDefault(c.LogLevel, "info")

	base := strings.TrimSuffix(c.Backend.URL, "/")
	c.Backend.URL = base
	c.Backend.CatalogURL = strings.TrimSuffix(withDefault(c.Backend.CatalogURL, base), "/")
	c.Backend.OrdersURL = strings.TrimSuffix(withDefault(c.Backend.OrdersURL, base), "/")
	c.Backend.AuthURL = strings.TrimSuffix(withDefault(c.Backend.AuthURL, base), "/")
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = Duration(DefaultBackendTimeout)
	}

	c.Storage.Driver = withDefault(c.Storage.Driver, persist.DriverFile)
	c.Storage.Key = withDefault(c.Storage.Key, persist.DefaultKey)
	c.Storage.Dir = withDefault(c.Storage.Dir, DefaultStorageDir)
	c.Storage.SQLitePath = withDefault(c.Storage.SQLitePath, filepath.Join(c.Storage.Dir, "cart.db"))
	c.Storage.RedisAddr = withDefault(c.Storage.RedisAddr, "localhost:6379")

	if c.Reconcile.LookupTimeout == 0 {
		c.Reconcile.LookupTimeout = Duration(DefaultLookupTimeout)
	}
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches credentials from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.GCPProject, c.SecretID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Credentials); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadCredentialsFromEnv reads credentials in development mode.
func (c *Config) loadCredentialsFromEnv() {
	c.Credentials = Credentials{
		Email:         os.Getenv("BOOKWORM_EMAIL"),
		Password:      os.Getenv("BOOKWORM_PASSWORD"),
		AccessToken:   os.Getenv("BOOKWORM_ACCESS_TOKEN"),
		RefreshToken:  os.Getenv("BOOKWORM_REFRESH_TOKEN"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	switch c.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("environment must be development or production, got %q", c.Environment)
	}

	if c.Backend.URL == "" && (c.Backend.CatalogURL == "" || c.Backend.OrdersURL == "" || c.Backend.AuthURL == "") {
		return fmt.Errorf("backend url is required")
	}
	for name, raw := range map[string]string{
		"catalog_url": c.Backend.CatalogURL,
		"orders_url":  c.Backend.OrdersURL,
		"auth_url":    c.Backend.AuthURL,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend timeout must not be negative")
	}

	switch c.Storage.Driver {
	case persist.DriverFile, persist.DriverSQLite, persist.DriverRedis, persist.DriverMemory:
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}

	if c.Reconcile.LookupTimeout < 0 {
		return fmt.Errorf("lookup timeout must not be negative")
	}
	if c.Reconcile.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must not be negative")
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https: %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host: %q", raw)
	}
	return nil
}

// StorageOptions converts the storage settings for persist.Open.
func (c *Config) StorageOptions() persist.Options {
	return persist.Options{
		Driver:        c.Storage.Driver,
		Dir:           c.Storage.Dir,
		SQLitePath:    c.Storage.SQLitePath,
		RedisAddr:     c.Storage.RedisAddr,
		RedisPassword: c.Credentials.RedisPassword,
		RedisDB:       c.Storage.RedisDB,
	}
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envDuration(key string) (Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return Duration(d), nil
}

func envInt(key string) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}
