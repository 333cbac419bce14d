// Package config loads the content site's settings from an optional YAML file,
// an optional .env file and CONTENT_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/illmade-knight/go-contentcache/pkg/content"
)

// EnvPrefix is prepended to every environment override, e.g. CONTENT_HTTP_PORT
// or CONTENT_CACHE_REDIS_ADDR.
const EnvPrefix = "CONTENT"

// Store backends.
const (
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheTiered = "tiered"

	// CacheFirestore suits low traffic deployments without Redis.
	CacheFirestore = "firestore"
)

// Asset picker backends.
const (
	AssetsStatic = "static"
	AssetsGCS    = "gcs"
)

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// PostgresConfig holds the connection settings of the primary store.
type PostgresConfig struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	MaxConns    int32  `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns" yaml:"min_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

// FirestoreConfig holds the settings of the Firestore store.
type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id" yaml:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
}

// StoreConfig selects and configures the content store.
type StoreConfig struct {
	Backend   string          `mapstructure:"backend" yaml:"backend"`
	Postgres  PostgresConfig  `mapstructure:"postgres" yaml:"postgres"`
	Firestore FirestoreConfig `mapstructure:"firestore" yaml:"firestore"`
	// Timeout bounds a store read shared by coalesced cache misses.
	Timeout   time.Duration   `mapstructure:"timeout" yaml:"timeout"`
}

// RedisConfig configures the shared cache tier.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr" yaml:"addr"`
	Password    string        `mapstructure:"password" yaml:"password"`
	DB          int           `mapstructure:"db" yaml:"db"`
	KeyPrefix   string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	BackfillTTL time.Duration `mapstructure:"backfill_ttl" yaml:"backfill_ttl"`
}

// FirestoreCacheConfig configures the Firestore cache backend.
type FirestoreCacheConfig struct {
	ProjectID  string `mapstructure:"project_id" yaml:"project_id"`
	Collection string `mapstructure:"collection" yaml:"collection"`
	KeyPrefix  string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// TTLConfig bounds how long each kind of result is served from cache.
type TTLConfig struct {
	Publications time.Duration `mapstructure:"publications" yaml:"publications"`
	Vacancies    time.Duration `mapstructure:"vacancies" yaml:"vacancies"`
	Entity       time.Duration `mapstructure:"entity" yaml:"entity"`
	Categories   time.Duration `mapstructure:"categories" yaml:"categories"`
	Hot          time.Duration `mapstructure:"hot" yaml:"hot"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend   string               `mapstructure:"backend" yaml:"backend"`
	Capacity  int                  `mapstructure:"capacity" yaml:"capacity"`
	Redis     RedisConfig          `mapstructure:"redis" yaml:"redis"`
	Firestore FirestoreCacheConfig `mapstructure:"firestore" yaml:"firestore"`
	TTL       TTLConfig            `mapstructure:"ttl" yaml:"ttl"`
	Coalesce  bool                 `mapstructure:"coalesce" yaml:"coalesce"`
}

// HotConfig configures the hot vacancy sidebar.
type HotConfig struct {
	Size int `mapstructure:"size" yaml:"size"`
	// Refresh is a cron schedule; empty disables background refresh.
	Refresh        string        `mapstructure:"refresh" yaml:"refresh"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout" yaml:"refresh_timeout"`
}

// AssetsConfig configures the random image picker.
type AssetsConfig struct {
	Backend string              `mapstructure:"backend" yaml:"backend"`
	BaseURL string              `mapstructure:"base_url" yaml:"base_url"`
	Files   map[string][]string `mapstructure:"files" yaml:"files"`
	Bucket  string              `mapstructure:"bucket" yaml:"bucket"`
	Prefix  string              `mapstructure:"prefix" yaml:"prefix"`
	ListTTL time.Duration       `mapstructure:"list_ttl" yaml:"list_ttl"`
}

// Config is the complete process configuration.
type Config struct {
	ServiceName     string        `mapstructure:"service_name" yaml:"service_name"`
	HTTPPort        string        `mapstructure:"http_port" yaml:"http_port"`
	SiteURL         string        `mapstructure:"site_url" yaml:"site_url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache"`
	Hot    HotConfig    `mapstructure:"hot" yaml:"hot"`
	Assets AssetsConfig `mapstructure:"assets" yaml:"assets"`

	PageSize    int `mapstructure:"page_size" yaml:"page_size"`
	MaxPageSize int `mapstructure:"max_page_size" yaml:"max_page_size"`
}

func setDefaults(v *viper.Viper) {
	d := content.DefaultConfig()

	v.SetDefault("service_name", "contentsite")
	v.SetDefault("http_port", ":8080")
	v.SetDefault("site_url", "")
	v.SetDefault("shutdown_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("store.backend", StorePostgres)
	v.SetDefault("store.timeout", d.StoreTimeout)
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.max_conns", 10)
	v.SetDefault("store.postgres.min_conns", 0)
	v.SetDefault("store.postgres.auto_migrate", true)
	v.SetDefault("store.firestore.project_id", "")
	v.SetDefault("store.firestore.credentials_file", "")

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.capacity", 10000)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key_prefix", "content:")
	v.SetDefault("cache.redis.backfill_ttl", 30*time.Second)
	v.SetDefault("cache.firestore.project_id", "")
	v.SetDefault("cache.firestore.collection", "content-cache")
	v.SetDefault("cache.firestore.key_prefix", "")
	v.SetDefault("cache.ttl.publications", d.PublicationsTTL)
	v.SetDefault("cache.ttl.vacancies", d.VacanciesTTL)
	v.SetDefault("cache.ttl.entity", d.EntityTTL)
	v.SetDefault("cache.ttl.categories", d.CategoriesTTL)
	v.SetDefault("cache.ttl.hot", d.HotTTL)
	v.SetDefault("cache.coalesce", d.CoalesceMisses)

	v.SetDefault("hot.size", d.HotSetSize)
	v.SetDefault("hot.refresh", "@every 1m")
	v.SetDefault("hot.refresh_timeout", 10*time.Second)

	v.SetDefault("assets.backend", AssetsStatic)
	v.SetDefault("assets.base_url", "/images/")
	v.SetDefault("assets.bucket", "")
	v.SetDefault("assets.prefix", "")
	v.SetDefault("assets.list_ttl", 10*time.Minute)

	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("max_page_size", d.MaxPageSize)
}

// Load reads configuration. path may be empty, in which case only defaults,
// a .env file in the working directory and the environment are used.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.SiteURL = strings.TrimSuffix(cfg.SiteURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Content returns the settings of the content service.
func (c *Config) Content() content.Config {
	return content.Config{
		PageSize:        c.PageSize,
		MaxPageSize:     c.MaxPageSize,
		PublicationsTTL: c.Cache.TTL.Publications,
		VacanciesTTL:    c.Cache.TTL.Vacancies,
		EntityTTL:       c.Cache.TTL.Entity,
		CategoriesTTL:   c.Cache.TTL.Categories,
		HotTTL:          c.Cache.TTL.Hot,
		HotSetSize:      c.Hot.Size,
		CoalesceMisses:  c.Cache.Coalesce,
		StoreTimeout:    c.Store.Timeout,
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Content().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Cache.TTL.Hot > c.Cache.TTL.Publications {
		errs = append(errs, fmt.Errorf("hot ttl %s must not exceed publications ttl %s", c.Cache.TTL.Hot, c.Cache.TTL.Publications))
	}
	if c.HTTPPort == "" {
		errs = append(errs, errors.New("http_port is required"))
	}

	switch c.Store.Backend {
	case StorePostgres:
		if c.Store.Postgres.DSN == "" {
			errs = append(errs, errors.New("store.postgres.dsn is required for the postgres store"))
		}
	case StoreFirestore:
		if c.Store.Firestore.ProjectID == "" {
			errs = append(errs, errors.New("store.firestore.project_id is required for the firestore store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis, CacheTiered:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("cache.redis.addr is required for the %s cache", c.Cache.Backend))
		}
		if c.Cache.Backend == CacheTiered && c.Cache.Redis.BackfillTTL <= 0 {
			errs = append(errs, fmt.Errorf("cache.redis.backfill_ttl must be positive for the tiered cache, got %s", c.Cache.Redis.BackfillTTL))
		}
	case CacheFirestore:
		if c.Cache.Firestore.ProjectID == "" {
			errs = append(errs, errors.New("cache.firestore.project_id is required for the firestore cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.Backend != CacheRedis && c.Cache.Backend != CacheFirestore && c.Cache.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity))
	}

	switch c.Assets.Backend {
	case AssetsStatic:
	case AssetsGCS:
		if c.Assets.Bucket == "" {
			errs = append(errs, errors.New("assets.bucket is required for the gcs picker"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown assets backend %q", c.Assets.Backend))
	}

	return errors.Join(errs...)
}
