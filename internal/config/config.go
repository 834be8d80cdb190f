package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration.
type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	Cache   CacheConfig   `yaml:"cache"`
	Bundle  BundleConfig  `yaml:"bundle"`
	Storage StorageConfig `yaml:"storage"`
	JWT     JWTConfig     `yaml:"jwt"`
	Admin   AdminConfig   `yaml:"admin"`
	Proxy   ProxyConfig   `yaml:"proxy"`
	Minio   MinioConfig   `yaml:"minio"`

	Marketplace MarketplaceConfig `yaml:"marketplace"`
}

// CacheConfig sizes the in-process read caches.
type CacheConfig struct {
	MaxSize         int           `yaml:"max_size"`
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	// Coalesce shares one store call between concurrent misses on a key.
	Coalesce bool `yaml:"coalesce"`
}

// BundleConfig holds custom bundle rules.
type BundleConfig struct {
	MinItems             int     `yaml:"min_items"`
	MaxItems             int     `yaml:"max_items"`
	AssemblyServicePrice float64 `yaml:"assembly_service_price"`
}

// StorageConfig selects where per-session state is persisted.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// JWTConfig configures admin tokens.
type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	Audience string        `yaml:"audience"`
	TTL      time.Duration `yaml:"ttl"`
}

// AdminConfig holds the back-office credentials.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// ProxyConfig configures the marketplace proxy.
type ProxyConfig struct {
	AllowedHosts []string      `yaml:"allowed_hosts"`
	Timeout      time.Duration `yaml:"timeout"`
}

// MarketplaceConfig configures product import and price sync.
type MarketplaceConfig struct {
	Enabled bool `yaml:"enabled"`
	// CardAPI overrides the Wildberries card endpoint.
	CardAPI       string  `yaml:"card_api"`
	DefaultMargin float64 `yaml:"default_margin"`
	// SyncInterval is how often stale prices are refreshed. Zero disables
	// the background sync.
	SyncInterval time.Duration `yaml:"sync_interval"`
	StaleAfter   time.Duration `yaml:"stale_after"`
}

// MinioConfig configures image uploads. An empty Endpoint disables them.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:     "8008",
		DBPath:   "giftshop.db",
		LogLevel: "info",
		Cache: CacheConfig{
			MaxSize:         100,
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Bundle: BundleConfig{
			MinItems: 5,
			MaxItems: 20,
		},
		Storage: StorageConfig{
			Backend:   "sqlite",
			RedisAddr: "localhost:6379",
		},
		JWT: JWTConfig{
			Secret:   "dev-secret-change-me",
			Issuer:   "gift-storefront-api",
			Audience: "gift-storefront-admin",
			TTL:      24 * time.Hour,
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Proxy: ProxyConfig{
			AllowedHosts: []string{"card.wb.ru", "www.wildberries.ru", "ozon.ru", "market.yandex.ru"},
			Timeout:      30 * time.Second,
		},
		Minio: MinioConfig{
			Bucket: "storefront-media",
		},
		Marketplace: MarketplaceConfig{
			Enabled:       true,
			DefaultMargin: 20,
			SyncInterval:  time.Hour,
			StaleAfter:    24 * time.Hour,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getenv("PORT", c.Port)
	c.DBPath = getenv("DB_PATH", c.DBPath)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.LogPretty = parseBoolEnv("LOG_PRETTY", c.LogPretty)

	c.Cache.MaxSize = parseIntEnv("CACHE_MAX_SIZE", c.Cache.MaxSize)
	c.Cache.DefaultTTL = parseDurationEnv("CACHE_DEFAULT_TTL", c.Cache.DefaultTTL)
	c.Cache.CleanupInterval = parseDurationEnv("CACHE_CLEANUP_INTERVAL", c.Cache.CleanupInterval)
	c.Cache.Coalesce = parseBoolEnv("CACHE_COALESCE", c.Cache.Coalesce)

	c.Bundle.MinItems = parseIntEnv("BUNDLE_MIN_ITEMS", c.Bundle.MinItems)
	c.Bundle.MaxItems = parseIntEnv("BUNDLE_MAX_ITEMS", c.Bundle.MaxItems)
	c.Bundle.AssemblyServicePrice = parseFloatEnv("ASSEMBLY_SERVICE_PRICE", c.Bundle.AssemblyServicePrice)

	c.Storage.Backend = getenv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.RedisAddr = getenv("REDIS_ADDR", c.Storage.RedisAddr)
	c.Storage.RedisPassword = getenv("REDIS_PASSWORD", c.Storage.RedisPassword)
	c.Storage.RedisDB = parseIntEnv("REDIS_DB", c.Storage.RedisDB)

	c.JWT.Secret = getenv("JWT_SECRET", c.JWT.Secret)
	c.JWT.Issuer = getenv("JWT_ISSUER", c.JWT.Issuer)
	c.JWT.Audience = getenv("JWT_AUDIENCE", c.JWT.Audience)
	c.JWT.TTL = parseDurationEnv("JWT_TTL", c.JWT.TTL)

	c.Admin.Username = getenv("ADMIN_USERNAME", c.Admin.Username)
	c.Admin.PasswordHash = getenv("ADMIN_PASSWORD_HASH", c.Admin.PasswordHash)

	if v := os.Getenv("PROXY_ALLOWED_HOSTS"); v != "" {
		c.Proxy.AllowedHosts = splitList(v)
	}
	c.Proxy.Timeout = parseDurationEnv("PROXY_TIMEOUT", c.Proxy.Timeout)

	c.Minio.Endpoint = getenv("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = getenv("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = getenv("MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Minio.Bucket = getenv("MINIO_BUCKET", c.Minio.Bucket)
	c.Minio.UseSSL = parseBoolEnv("MINIO_USE_SSL", c.Minio.UseSSL)
	c.Minio.PublicURL = getenv("MINIO_PUBLIC_URL", c.Minio.PublicURL)

	c.Marketplace.Enabled = parseBoolEnv("MARKETPLACE_ENABLED", c.Marketplace.Enabled)
	c.Marketplace.CardAPI = getenv("MARKETPLACE_CARD_API", c.Marketplace.CardAPI)
	c.Marketplace.DefaultMargin = parseFloatEnv("MARKETPLACE_DEFAULT_MARGIN", c.Marketplace.DefaultMargin)
	c.Marketplace.SyncInterval = parseDurationEnv("PRICE_SYNC_INTERVAL", c.Marketplace.SyncInterval)
	c.Marketplace.StaleAfter = parseDurationEnv("PRICE_SYNC_STALE_AFTER", c.Marketplace.StaleAfter)
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Bundle.MinItems < 1 {
		errs = append(errs, fmt.Errorf("bundle min items must be at least 1, got %d", c.Bundle.MinItems))
	}
	if c.Bundle.MinItems > c.Bundle.MaxItems {
		errs = append(errs, fmt.Errorf("bundle min items %d exceeds max items %d", c.Bundle.MinItems, c.Bundle.MaxItems))
	}
	if c.Bundle.AssemblyServicePrice < 0 {
		errs = append(errs, errors.New("assembly service price must not be negative"))
	}
	if c.Cache.MaxSize < 1 {
		errs = append(errs, fmt.Errorf("cache max size must be positive, got %d", c.Cache.MaxSize))
	}
	if c.Cache.DefaultTTL < 0 {
		errs = append(errs, errors.New("cache default ttl must not be negative"))
	}
	switch c.Storage.Backend {
	case "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Marketplace.DefaultMargin < 0 {
		errs = append(errs, errors.New("marketplace default margin must not be negative"))
	}
	if c.Marketplace.SyncInterval < 0 || c.Marketplace.StaleAfter < 0 {
		errs = append(errs, errors.New("price sync durations must not be negative"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt secret must be set"))
	}
	return errors.Join(errs...)
}

// UploadsEnabled reports whether an object store is configured.
func (c Config) UploadsEnabled() bool {
	return c.Minio.Endpoint != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBoolEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func parseFloatEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func parseIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return def
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
