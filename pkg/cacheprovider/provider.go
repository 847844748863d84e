// Package cacheprovider implements the cache provider facade of spec
// §4.5 (component E).
package cacheprovider

import (
	"context"
	"time"

	"github.com/lerian-oss/coord/common/mlog"
	"github.com/lerian-oss/coord/pkg/cache"
	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/eventbus"
	"github.com/lerian-oss/coord/pkg/keyscope"
)

// Config is the provider's configuration record (spec §6).
type Config struct {
	Namespace  keyscope.Namespace
	Adapter    cache.RichAdapter
	EventBus   eventbus.EventBus
	Logger     mlog.Logger
	DefaultTTL *time.Duration
}

// Option configures a Provider at construction time, validating eagerly.
type Option func(*Config) error

// WithNamespace scopes every key this provider creates under ns.
func WithNamespace(ns keyscope.Namespace) Option {
	return func(c *Config) error { c.Namespace = ns; return nil }
}

// WithAdapter sets the backend.
func WithAdapter(adapter cache.RichAdapter) Option {
	return func(c *Config) error {
		if adapter == nil {
			return cerrors.NewConfigError("Adapter", "must not be nil")
		}
		c.Adapter = adapter
		return nil
	}
}

// WithEventBus sets the dispatcher. Defaults to eventbus.NewInMemoryBus().
func WithEventBus(bus eventbus.EventBus) Option {
	return func(c *Config) error {
		if bus == nil {
			return cerrors.NewConfigError("EventBus", "must not be nil")
		}
		c.EventBus = bus
		return nil
	}
}

// WithLogger sets the Logger every provider operation logs through
// (spec §2's ambient logging requirement). Defaults to a silent
// mlog.NoneLogger if never set.
func WithLogger(logger mlog.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return cerrors.NewConfigError("Logger", "must not be nil")
		}
		c.Logger = logger
		return nil
	}
}

// WithDefaultTTL sets the TTL new handles use absent an explicit one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl <= 0 {
			return cerrors.NewConfigError("DefaultTTL", "must be > 0")
		}
		c.DefaultTTL = &ttl
		return nil
	}
}

// Provider binds a namespace, adapter, and event dispatcher into a
// Handle factory.
type Provider struct {
	namespace keyscope.Namespace
	adapter   cache.RichAdapter
	eventBus  eventbus.EventBus
	logger    mlog.Logger
	defaults  Config
}

// New builds a Provider from opts. Adapter is required.
func New(opts ...Option) (*Provider, error) {
	cfg := Config{Namespace: keyscope.NewNamespace("", "")}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Adapter == nil {
		return nil, cerrors.NewConfigError("Adapter", "is required")
	}

	if cfg.EventBus == nil {
		cfg.EventBus = eventbus.NewInMemoryBus()
	}

	if cfg.Logger == nil {
		cfg.Logger = &mlog.NoneLogger{}
	}

	return &Provider{
		namespace: cfg.Namespace,
		adapter:   cfg.Adapter,
		eventBus:  cfg.EventBus,
		logger:    cfg.Logger,
		defaults:  cfg,
	}, nil
}

// WithNamespace returns a derived Provider scoped to a child namespace.
func (p *Provider) WithNamespace(sub string) *Provider {
	child := *p
	child.namespace = keyscope.NewNamespace(
		p.namespace.Prefix()+p.namespace.Separator()+sub,
		p.namespace.Separator(),
	)

	return &child
}

// HandleOption configures a single Handle at creation time.
type HandleOption func(*handleConfig)

type handleConfig struct {
	ttl *time.Duration
}

// WithTTL overrides the provider's DefaultTTL for this handle.
func WithTTL(ttl time.Duration) HandleOption {
	return func(c *handleConfig) { c.ttl = &ttl }
}

// Create constructs a Handle bound to key under this provider's namespace.
func (p *Provider) Create(userKey string, opts ...HandleOption) *Handle {
	cfg := handleConfig{ttl: p.defaults.DefaultTTL}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Handle{
		provider: p,
		key:      p.namespace.Key(userKey),
		cache:    cache.New(p.adapter, p.namespace.Key(userKey).Namespaced()),
		ttl:      cfg.ttl,
	}
}

// Handle is the immutable per-key configuration for a cache entry.
type Handle struct {
	provider *Provider
	key      keyscope.Key
	cache    *cache.Cache
	ttl      *time.Duration
}

// Key returns the handle's namespaced storage key.
func (h *Handle) Key() string { return h.key.Namespaced() }

func (h *Handle) dispatch(ctx context.Context, kind eventbus.Kind, payload any) {
	if err, ok := payload.(error); ok {
		h.provider.logger.Errorf("cacheprovider: %s key=%s err=%v", kind, h.Key(), err)
	} else {
		h.provider.logger.Infof("cacheprovider: %s key=%s", kind, h.Key())
	}

	defer func() { _ = recover() }()
	h.provider.eventBus.Publish(ctx, eventbus.Event{Kind: kind, Key: h.Key(), Payload: payload})
}

// Get reads the stored value.
func (h *Handle) Get(ctx context.Context) ([]byte, bool, error) {
	value, found, err := h.cache.Get(ctx)
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
	}

	return value, found, err
}

// Set stores value, dispatching Acquired to mirror the lock/semaphore
// "mutation succeeded" event vocabulary for a cache write.
func (h *Handle) Set(ctx context.Context, value []byte) error {
	err := h.cache.Set(ctx, value, h.ttl)
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
		return err
	}

	h.dispatch(ctx, eventbus.Acquired, nil)

	return nil
}

// Delete removes the entry, dispatching Released or FailedRelease.
func (h *Handle) Delete(ctx context.Context) (bool, error) {
	ok, err := h.cache.Delete(ctx)
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
		return false, err
	}

	if ok {
		h.dispatch(ctx, eventbus.Released, nil)
	} else {
		h.dispatch(ctx, eventbus.FailedRelease, nil)
	}

	return ok, nil
}

// Increment adds delta to the stored numeric value.
func (h *Handle) Increment(ctx context.Context, delta int64) (int64, error) {
	v, err := h.cache.Increment(ctx, delta, h.ttl)
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
	}

	return v, err
}

// Decrement subtracts delta from the stored numeric value.
func (h *Handle) Decrement(ctx context.Context, delta int64) (int64, error) {
	v, err := h.cache.Decrement(ctx, delta, h.ttl)
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
	}

	return v, err
}
