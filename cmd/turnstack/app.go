package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/turnstack"
	"github.com/aretw0/turnstack/internal/adapters/file"
	"github.com/aretw0/turnstack/internal/config"
	"github.com/aretw0/turnstack/internal/logging"
	"github.com/aretw0/turnstack/internal/menu"
	"github.com/aretw0/turnstack/pkg/adapters/memory"
	"github.com/aretw0/turnstack/pkg/adapters/redis"
	"github.com/aretw0/turnstack/pkg/observability"
	"github.com/aretw0/turnstack/pkg/persistence/middleware"
	"github.com/aretw0/turnstack/pkg/ports"
	"github.com/aretw0/turnstack/pkg/runner"
	"github.com/aretw0/turnstack/pkg/session"
	"github.com/aretw0/turnstack/pkg/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app is the wired runtime shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store      ports.StateStore
	accessor   *state.ConversationState
	sessions   *session.Manager
	router     *turnstack.Router
	dispatcher *runner.Dispatcher
	registry   *prometheus.Registry

	closers []func() error
}

type appOption func(*appSettings)

type appSettings struct {
	logger         *slog.Logger
	dispatcherOpts []runner.DispatcherOption
}

func withAppLogger(logger *slog.Logger) appOption {
	return func(s *appSettings) {
		s.logger = logger
	}
}

func withDispatcherOptions(opts ...runner.DispatcherOption) appOption {
	return func(s *appSettings) {
		s.dispatcherOpts = append(s.dispatcherOpts, opts...)
	}
}

// newApp wires store, middlewares, session manager, router, bot and dispatcher from cfg.
func newApp(cfg *config.Config, opts ...appOption) (*app, error) {
	settings := appSettings{}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.logger == nil {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		settings.logger = logging.New(level)
	}

	a := &app{cfg: cfg, logger: settings.logger}

	store, locker, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if store, err = a.securedStore(store); err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	sessionOpts := []session.Option{session.WithLogger(a.logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker), session.WithLockTTL(cfg.Store.Redis.LockTTL))
	}
	a.sessions = session.NewManager(store, sessionOpts...)

	if a.accessor, err = state.NewConversationState(store, cfg.Router.Property); err != nil {
		a.Close()
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(a.registry)
	if err != nil {
		a.Close()
		return nil, err
	}

	bot, err := menu.New(cfg.Bot, menu.WithLogger(a.logger))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.router, err = turnstack.New(a.accessor, bot,
		turnstack.WithID(cfg.Router.ID),
		turnstack.WithLogger(a.logger),
		turnstack.WithLifecycleHooks(observability.Combine(
			observability.LogHooks(a.logger),
			metrics.Hooks(),
		)),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := bot.Register(a.router); err != nil {
		a.Close()
		return nil, err
	}

	dispatcherOpts := append([]runner.DispatcherOption{runner.WithDispatchLogger(a.logger)}, settings.dispatcherOpts...)
	a.dispatcher = runner.NewDispatcher(a.router, a.sessions, dispatcherOpts...)

	a.logger.Debug("Runtime ready",
		"store", cfg.Store.Type,
		"router_id", cfg.Router.ID,
		"flows", len(cfg.Bot.Flows),
	)
	return a, nil
}

// openStore builds the configured backend. The redis backend also returns a
// distributed turn lock sharing its connection pool.
func (a *app) openStore() (ports.StateStore, ports.DistributedLocker, error) {
	switch a.cfg.Store.Type {
	case config.StoreMemory:
		return memory.NewStore(), nil, nil
	case config.StoreFile:
		return file.New(a.cfg.Store.Dir), nil, nil
	case config.StoreRedis:
		rc := a.cfg.Store.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB,
			redis.WithPrefix(rc.Prefix),
			redis.WithTTL(rc.TTL),
		)
		a.closers = append(a.closers, store.Close)
		return store, redis.NewLocker(store.Client(), rc.LockPrefix), nil
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", a.cfg.Store.Type)
	}
}

// securedStore wraps store with PII masking and encryption when configured.
// Masking runs first so the encrypted envelope never holds the raw values.
func (a *app) securedStore(store ports.StateStore) (ports.StateStore, error) {
	var mws []middleware.Middleware
	if len(a.cfg.Security.PIIPatterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(a.cfg.Security.PIIPatterns))
	}

	keys, err := a.cfg.Security.Keys()
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    keys[0],
			FallbackKeys: keys[1:],
		}))
	}
	return middleware.Chain(store, mws...), nil
}

// metricsHandler serves the app's registry.
func (a *app) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// Close releases backend connections.
func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("Failed to close store", "err", err)
		}
	}
	a.closers = nil
}
