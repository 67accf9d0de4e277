// Package app composes the stores, decorators, orchestrator and reconciler
// selected by configuration.
package app

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"property-browser/internal/common/config"
	"property-browser/internal/common/database"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/observability"
	"property-browser/internal/kv"
	"property-browser/internal/orchestrator"
	"property-browser/internal/reconcile"
	"property-browser/internal/store"
	"property-browser/internal/store/cache"
	"property-browser/internal/store/elastic"
	"property-browser/internal/store/fixtures"
	"property-browser/internal/store/local"
	"property-browser/internal/store/memory"
	"property-browser/internal/store/postgres"
	"property-browser/internal/store/remote"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
)

// Options injects pre-built connections. Anything left nil is created from
// configuration when a selected backend needs it.
type Options struct {
	Transport     http.RoundTripper
	DB            *sql.DB
	Redis         redis.Cmdable
	Elasticsearch *elasticsearch.Client
	Observability *observability.Observability
}

type App struct {
	Config       *config.Config
	Logger       logger.Logger
	Properties   store.PropertyStore
	Saved        store.SavedPropertyStore
	SearchIndex  *elastic.PropertyStore
	Cache        *cache.PropertyStore
	Orchestrator *orchestrator.Orchestrator
	Reconciler   *reconcile.Reconciler

	closers []io.Closer
}

// New builds the application graph. On error every connection opened so far
// is closed.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: log}
	if err := a.build(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}

	log.Info("application composed", map[string]interface{}{
		"properties":      cfg.Backends.Properties,
		"savedProperties": cfg.Backends.SavedProperties,
		"searchIndex":     cfg.Backends.SearchIndex,
		"cache":           cfg.Backends.Cache,
	})
	return a, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg := a.Config
	if err := a.connect(ctx, &opts); err != nil {
		return err
	}

	var (
		remoteClient *remote.Client
		err          error
	)
	if cfg.UsesRemote() {
		remoteClient, err = remote.NewClient(cfg.Remote, opts.Transport, a.Logger)
		if err != nil {
			return err
		}
	}

	if a.Properties, err = a.buildProperties(cfg, opts, remoteClient); err != nil {
		return err
	}
	if a.Saved, err = a.buildSaved(cfg, opts, remoteClient); err != nil {
		return err
	}

	a.Orchestrator = orchestrator.New(a.Properties, orchestrator.OptionsFromConfig(cfg.Orchestrator), a.Logger, opts.Observability)
	a.Reconciler = reconcile.New(a.Properties, a.Saved, cfg.Reconcile.MaxConcurrency, a.Logger)
	return nil
}

func (a *App) connect(ctx context.Context, opts *Options) error {
	cfg := a.Config

	if cfg.UsesPostgres() && opts.DB == nil {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pg)
		if err := pg.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
		}
		opts.DB = pg.DB
	}

	if cfg.UsesRedis() && opts.Redis == nil {
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rc)
		if err := rc.Ping(ctx); err != nil {
			return err
		}
		opts.Redis = rc.Client
	}

	if cfg.UsesElasticsearch() && opts.Elasticsearch == nil {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch, opts.Transport)
		if err != nil {
			return err
		}
		if err := es.Ping(ctx); err != nil {
			return err
		}
		if err := es.EnsureIndex(ctx, cfg.Search.Index, database.PropertyIndexMapping); err != nil {
			return err
		}
		opts.Elasticsearch = es.Client
	}
	return nil
}

// buildProperties picks the base store, then layers the search index and the
// cache on top. The cache is outermost so cached searches skip the index.
func (a *App) buildProperties(cfg *config.Config, opts Options, rc *remote.Client) (store.PropertyStore, error) {
	var ps store.PropertyStore
	switch cfg.Backends.Properties {
	case config.BackendRemote:
		ps = remote.NewPropertyStore(rc, a.Logger)
	case config.BackendMock:
		ps = memory.NewSeededPropertyStore(a.Logger)
	case config.BackendPostgres:
		ps = postgres.NewPropertyStore(opts.DB, a.Logger)
	default:
		return nil, fmt.Errorf("unknown property backend %q", cfg.Backends.Properties)
	}

	if cfg.UsesElasticsearch() {
		a.SearchIndex = elastic.NewPropertyStore(ps, opts.Elasticsearch, cfg.Search.Index, a.Logger)
		ps = a.SearchIndex
	}
	if cfg.Backends.Cache == config.CacheRedis {
		ttl := time.Duration(cfg.Cache.TTL) * time.Second
		a.Cache = cache.NewPropertyStore(ps, opts.Redis, ttl, cfg.Cache.Prefix, a.Logger)
		ps = a.Cache
	}
	return ps, nil
}

func (a *App) buildSaved(cfg *config.Config, opts Options, rc *remote.Client) (store.SavedPropertyStore, error) {
	switch cfg.Backends.SavedProperties {
	case config.BackendRemote:
		return remote.NewSavedPropertyStore(rc, a.Logger), nil
	case config.BackendPostgres:
		return postgres.NewSavedPropertyStore(opts.DB, a.Logger), nil
	case config.BackendLocal:
		handle, err := localHandle(cfg, opts)
		if err != nil {
			return nil, err
		}
		localOpts := []local.Option{local.WithStorageKey(cfg.Local.StorageKey)}
		if cfg.Local.Seed {
			localOpts = append(localOpts, local.WithSeed(fixtures.SavedProperties()))
		}
		return local.NewSavedPropertyStore(handle, a.Logger, localOpts...), nil
	default:
		return nil, fmt.Errorf("unknown saved property backend %q", cfg.Backends.SavedProperties)
	}
}

func localHandle(cfg *config.Config, opts Options) (kv.Store, error) {
	switch cfg.Backends.LocalKV {
	case config.LocalKVFile:
		return kv.NewFile(cfg.Local.Dir)
	case config.LocalKVRedis:
		return kv.NewRedis(opts.Redis, cfg.App.Name), nil
	case config.LocalKVMemory:
		return kv.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown local kv %q", cfg.Backends.LocalKV)
	}
}

// Close releases every connection New opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stderrors.Join(errs...)
}
