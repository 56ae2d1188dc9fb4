package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/config"
	"github.com/aretw0/chatflow/pkg/adapters/badger"
	"github.com/aretw0/chatflow/pkg/adapters/cache"
	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/adapters/postgres"
	"github.com/aretw0/chatflow/pkg/adapters/redis"
	"github.com/aretw0/chatflow/pkg/dispatch"
	"github.com/aretw0/chatflow/pkg/observability"
	"github.com/aretw0/chatflow/pkg/persistence/middleware"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app is a fully wired bot plus the resources it owns.
type app struct {
	bot      *chatflow.Bot
	files    *file.Repository
	flows    *cache.Repository
	registry *prometheus.Registry
	closers  []io.Closer
}

// Close releases the stores and connections in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reload re-reads the flow files and drops every cached tenant.
func (a *app) Reload() error {
	before := a.files.Tenants()
	if err := a.files.Reload(); err != nil {
		return err
	}
	for _, tenant := range append(before, a.files.Tenants()...) {
		a.flows.Invalidate(tenant)
	}
	return nil
}

func encryptionConfig(cfg config.StoreConfig) (middleware.EncryptionConfig, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, err
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range cfg.EncryptionFallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("fallback key: %w", err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return enc, nil
}

// buildApp wires the adapters selected by cfg around a Bot.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.files, err = file.Open(cfg.Flows.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load flows: %w", err)
	}
	a.flows = cache.New(a.files, cfg.Flows.CacheTTL)

	opts := []chatflow.Option{
		chatflow.WithLogger(logger),
		chatflow.WithMaxNodeVisits(cfg.Engine.MaxNodeVisits),
		chatflow.WithIntentPolicy(cfg.Engine.MinIntentConfidence, cfg.Engine.SubstantiveIntents...),
	}

	var store ports.ExecutionStore
	switch cfg.Store.Driver {
	case config.StoreRedis:
		rs := redis.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB,
			redis.WithPrefix(cfg.Store.Prefix), redis.WithTTL(cfg.Store.TTL))
		a.closers = append(a.closers, rs)
		store = rs
		if cfg.Store.DistributedLock {
			opts = append(opts, chatflow.WithLocker(redis.NewLocker(rs.Client(), "chatflow:")))
		}
		logger.Info("Using redis store", "addr", cfg.Store.RedisAddr, "lock", cfg.Store.DistributedLock)
	case config.StoreBadger:
		bs, err := badger.Open(cfg.Store.BadgerDir, badger.WithPrefix(cfg.Store.Prefix), badger.WithTTL(cfg.Store.TTL))
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		a.closers = append(a.closers, bs)
		store = bs
		logger.Info("Using badger store", "dir", cfg.Store.BadgerDir)
	default:
		store = memory.NewStore()
	}
	if cfg.Store.EncryptionKey != "" {
		enc, err := encryptionConfig(cfg.Store)
		if err != nil {
			return nil, err
		}
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(enc))
	}
	opts = append(opts, chatflow.WithStore(store))

	if cfg.Analytics.PostgresDSN != "" {
		db, err := postgres.Open(cfg.Analytics.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		pg := postgres.NewSink(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate analytics tables: %w", err)
		}
		var sink ports.AnalyticsSink = pg
		if len(cfg.Analytics.RedactPatterns) > 0 {
			redact, err := middleware.NewPIIMiddleware(cfg.Analytics.RedactPatterns)
			if err != nil {
				return nil, err
			}
			sink = redact(sink)
		}
		opts = append(opts, chatflow.WithAnalytics(sink))
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithRecordCreator(memory.NewRecordBook()),
	}
	if cfg.Catalog.File != "" {
		items, err := file.LoadCatalog(cfg.Catalog.File)
		if err != nil {
			return nil, err
		}
		dispatchOpts = append(dispatchOpts, dispatch.WithCatalog(memory.NewCatalog(items...)))
		logger.Debug("Catalog loaded", "items", len(items))
	}
	opts = append(opts, chatflow.WithDispatcher(dispatch.New(dispatchOpts...)))

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(a.registry)
	opts = append(opts,
		chatflow.WithLifecycleHooks(metrics.Hooks()),
		chatflow.WithLifecycleHooks(observability.LoggingHooks(logger)),
	)

	a.bot, err = chatflow.New(a.flows, opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}
