// contentsite serves publication and vacancy listings as JSON, reading through
// a TTL-bounded cache in front of the content store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/illmade-knight/go-contentcache/pkg/assets"
	"github.com/illmade-knight/go-contentcache/pkg/cache"
	"github.com/illmade-knight/go-contentcache/pkg/config"
	"github.com/illmade-knight/go-contentcache/pkg/content"
	"github.com/illmade-knight/go-contentcache/pkg/microservice"
	"github.com/illmade-knight/go-contentcache/pkg/store"
	fsstore "github.com/illmade-knight/go-contentcache/pkg/store/firestore"
	"github.com/illmade-knight/go-contentcache/pkg/store/memory"
	"github.com/illmade-knight/go-contentcache/pkg/store/postgres"
	"github.com/illmade-knight/go-contentcache/pkg/web"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONTENT_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Content site failed")
	}
	logger.Info().Msg("Content site stopped.")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "contentsite").Logger()
}

// run wires every component and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn().Err(err).Msg("Error during cleanup.")
			}
		}
	}()

	st, err := newStore(ctx, cfg, logger, &closers)
	if err != nil {
		return err
	}
	caches, err := newCaches(ctx, cfg, logger, &closers)
	if err != nil {
		return err
	}
	svc, err := content.NewService(cfg.Content(), st, caches, logger)
	if err != nil {
		return err
	}

	if cfg.Hot.Refresh != "" {
		if err := svc.HotSet().StartRefresh(ctx, cfg.Hot.Refresh, cfg.Hot.RefreshTimeout); err != nil {
			return err
		}
		defer svc.HotSet().StopRefresh()
	}

	picker, err := newPicker(ctx, cfg, logger, &closers)
	if err != nil {
		return err
	}
	handler, err := web.NewHandler(svc, picker, cfg.SiteURL, logger)
	if err != nil {
		return err
	}

	server := microservice.NewBaseServer(logger, cfg.HTTPPort,
		web.Recover(logger), web.RequestID, web.AccessLog(logger))
	handler.Register(server.Mux())
	return microservice.Serve(ctx, server, cfg.ShutdownTimeout, logger)
}

func newStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger, closers *[]io.Closer) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		pg := cfg.Store.Postgres
		if pg.AutoMigrate {
			if err := postgres.Migrate(pg.DSN, logger); err != nil {
				return nil, err
			}
		}
		st, err := postgres.New(ctx, postgres.Config{DSN: pg.DSN, MaxConns: pg.MaxConns, MinConns: pg.MinConns}, logger)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, st)
		return st, nil

	case config.StoreFirestore:
		fsCfg := cfg.Store.Firestore
		var opts []option.ClientOption
		if fsCfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(fsCfg.CredentialsFile))
		}
		client, err := firestore.NewClient(ctx, fsCfg.ProjectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		*closers = append(*closers, client)
		st, err := fsstore.New(&fsstore.Config{ProjectID: fsCfg.ProjectID}, client, logger)
		if err != nil {
			return nil, err
		}
		return st, nil

	case config.StoreMemory:
		logger.Warn().Msg("Using the in-memory store; content is empty until seeded.")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func newCaches(ctx context.Context, cfg *config.Config, logger zerolog.Logger, closers *[]io.Closer) (content.Caches, error) {
	local := func() (content.Caches, error) {
		lru, err := cache.NewInMemoryLRUCache[string, any](cfg.Cache.Capacity)
		if err != nil {
			return content.Caches{}, err
		}
		return content.NewSharedCaches(lru, logger), nil
	}
	shared := func() (content.Caches, error) {
		rc := cfg.Cache.Redis
		rdb := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return content.Caches{}, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info().Str("redis_address", rc.Addr).Msg("Successfully connected to Redis.")
		*closers = append(*closers, rdb)
		return content.NewRedisCaches(rdb, rc.KeyPrefix, logger), nil
	}

	switch cfg.Cache.Backend {
	case config.CacheMemory:
		return local()
	case config.CacheRedis:
		return shared()
	case config.CacheFirestore:
		fc := cfg.Cache.Firestore
		client, err := firestore.NewClient(ctx, fc.ProjectID)
		if err != nil {
			return content.Caches{}, fmt.Errorf("failed to create firestore client: %w", err)
		}
		*closers = append(*closers, client)
		return content.NewFirestoreCaches(client, fc.Collection, fc.KeyPrefix, logger)
	case config.CacheTiered:
		l1, err := local()
		if err != nil {
			return content.Caches{}, err
		}
		l2, err := shared()
		if err != nil {
			return content.Caches{}, err
		}
		return content.NewTieredCaches(l1, l2, cfg.Cache.Redis.BackfillTTL, logger)
	}
	return content.Caches{}, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}

func newPicker(ctx context.Context, cfg *config.Config, logger zerolog.Logger, closers *[]io.Closer) (assets.Picker, error) {
	ac := cfg.Assets
	switch ac.Backend {
	case config.AssetsStatic:
		return assets.NewStaticPicker(ac.BaseURL, ac.Files), nil
	case config.AssetsGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		*closers = append(*closers, client)
		listing, err := cache.NewInMemoryLRUCache[string, []string](64)
		if err != nil {
			return nil, err
		}
		picker, err := assets.NewGCSPicker(assets.GCSConfig{
			Prefix:  ac.Prefix,
			BaseURL: ac.BaseURL,
			ListTTL: ac.ListTTL,
		}, assets.NewGCSLister(client, ac.Bucket), listing, logger)
		if err != nil {
			return nil, err
		}
		return picker, nil
	}
	return nil, errors.New("unknown assets backend " + ac.Backend)
}
