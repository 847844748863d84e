// Package lockprovider implements the exclusive-lock provider facade
// of spec §4.5 (component E): it binds a namespace, an adapter, an
// event dispatcher, and resilience/primitive defaults into ergonomic
// Handle values, dispatching a typed event on every mutating
// operation.
package lockprovider

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lerian-oss/coord/common/mlog"
	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/eventbus"
	"github.com/lerian-oss/coord/pkg/keyscope"
	"github.com/lerian-oss/coord/pkg/lockengine"
)

// Config is the provider's configuration record — the Go rendering of
// spec §6's configuration record, restricted to what a lock provider
// recognizes.
type Config struct {
	Namespace       keyscope.Namespace
	Adapter         any
	EventBus        eventbus.EventBus
	Logger          mlog.Logger
	DefaultTTL      *time.Duration
	DefaultBlocking lockengine.BlockingOptions
}

// Option configures a Provider at construction time. Options validate
// eagerly; New returns the first validation error encountered,
// mirroring resilience.RetryConfig.Validate's construction-time-error
// style rather than panicking.
type Option func(*Config) error

// WithNamespace scopes every key this provider creates under ns.
func WithNamespace(ns keyscope.Namespace) Option {
	return func(c *Config) error {
		c.Namespace = ns
		return nil
	}
}

// WithAdapter sets the backend. adapter must satisfy
// lockengine.RichAdapter or lockengine.DatabaseAdapter (see
// lockengine.AsRichAdapter); neither is checked until New runs.
func WithAdapter(adapter any) Option {
	return func(c *Config) error {
		if adapter == nil {
			return cerrors.NewConfigError("Adapter", "must not be nil")
		}
		c.Adapter = adapter
		return nil
	}
}

// WithEventBus sets the dispatcher every mutating operation reports
// to. Defaults to a private eventbus.InMemoryBus if never set.
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

// WithDefaultTTL sets the TTL new handles use when Create is not given
// an explicit one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl <= 0 {
			return cerrors.NewConfigError("DefaultTTL", "must be > 0")
		}
		c.DefaultTTL = &ttl
		return nil
	}
}

// WithDefaultBlocking sets the BlockingOptions new handles use for
// AcquireBlocking when Create is not given explicit ones.
func WithDefaultBlocking(opts lockengine.BlockingOptions) Option {
	return func(c *Config) error {
		c.DefaultBlocking = opts
		return nil
	}
}

// Provider binds a namespace, adapter, and event dispatcher into a
// Handle factory (spec §4.5).
type Provider struct {
	namespace keyscope.Namespace
	engine    *lockengine.Engine
	eventBus  eventbus.EventBus
	logger    mlog.Logger
	defaults  Config
}

// New builds a Provider from opts. Adapter is required; every other
// option has a usable default.
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
		engine:    lockengine.New(cfg.Adapter),
		eventBus:  cfg.EventBus,
		logger:    cfg.Logger,
		defaults:  cfg,
	}, nil
}

// WithNamespace returns a derived Provider scoped to a child namespace
// (prefix/sub), sharing this provider's adapter, event bus, and
// defaults (spec §4.5's "withNamespace(sub) → Provider").
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
	owner    string
	ttl      *time.Duration
	blocking lockengine.BlockingOptions
}

// WithOwner fixes the handle's owner identity. Defaults to a fresh
// uuid.NewString() per Create call.
func WithOwner(owner string) HandleOption {
	return func(c *handleConfig) { c.owner = owner }
}

// WithTTL overrides the provider's DefaultTTL for this handle.
func WithTTL(ttl time.Duration) HandleOption {
	return func(c *handleConfig) { c.ttl = &ttl }
}

// WithBlocking overrides the provider's DefaultBlocking for this handle.
func WithBlocking(opts lockengine.BlockingOptions) HandleOption {
	return func(c *handleConfig) { c.blocking = opts }
}

// Create constructs a Handle bound to key under this provider's
// namespace, applying opts over the provider's defaults (spec §4.5's
// "create(key, opts) → Handle").
func (p *Provider) Create(userKey string, opts ...HandleOption) *Handle {
	cfg := handleConfig{owner: uuid.NewString(), ttl: p.defaults.DefaultTTL, blocking: p.defaults.DefaultBlocking}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Handle{
		provider: p,
		key:      p.namespace.Key(userKey),
		owner:    cfg.owner,
		ttl:      cfg.ttl,
		blocking: cfg.blocking,
	}
}

// Handle is the immutable, per-key configuration spec §5's
// "shared-resource policy" describes: all mutable state lives in the
// adapter, the handle holds only key/owner/defaults.
type Handle struct {
	provider *Provider
	key      keyscope.Key
	owner    string
	ttl      *time.Duration
	blocking lockengine.BlockingOptions
}

// Key returns the handle's namespaced storage key.
func (h *Handle) Key() string { return h.key.Namespaced() }

// Owner returns the handle's owner identity.
func (h *Handle) Owner() string { return h.owner }

func (h *Handle) dispatch(ctx context.Context, kind eventbus.Kind, payload any) {
	if err, ok := payload.(error); ok {
		h.provider.logger.Errorf("lockprovider: %s key=%s owner=%s err=%v", kind, h.Key(), h.owner, err)
	} else {
		h.provider.logger.Infof("lockprovider: %s key=%s owner=%s", kind, h.Key(), h.owner)
	}

	defer func() { _ = recover() }()
	h.provider.eventBus.Publish(ctx, eventbus.Event{Kind: kind, Key: h.Key(), LockID: h.owner, Payload: payload})
}

// Acquire attempts to take the lock, dispatching Acquired or
// FailedAcquire. Unexpected adapter errors additionally dispatch
// UnexpectedError, per spec §4.5.
func (h *Handle) Acquire(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.Acquire(ctx, h.Key(), h.owner, h.ttl)
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
		return false, err
	}

	if ok {
		h.dispatch(ctx, eventbus.Acquired, nil)
	} else {
		h.dispatch(ctx, eventbus.FailedAcquire, nil)
	}

	return ok, nil
}

// AcquireBlocking retries Acquire per h.blocking until success,
// cancellation, or budget exhaustion.
func (h *Handle) AcquireBlocking(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.AcquireBlocking(ctx, h.Key(), h.owner, h.ttl, h.blocking)
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
		return false, err
	}

	if ok {
		h.dispatch(ctx, eventbus.Acquired, nil)
	} else {
		h.dispatch(ctx, eventbus.FailedAcquire, nil)
	}

	return ok, nil
}

// Release releases the lock iff this handle is the current owner,
// dispatching Released or FailedRelease.
func (h *Handle) Release(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.Release(ctx, h.Key(), h.owner)
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

// ForceRelease releases the lock unconditionally, dispatching
// ForceReleased.
func (h *Handle) ForceRelease(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.ForceRelease(ctx, h.Key())
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
		return false, err
	}

	h.dispatch(ctx, eventbus.ForceReleased, nil)

	return ok, nil
}

// Refresh sets the lock's expiration to now plus ttl iff this handle
// is the current owner, dispatching Refreshed or FailedRefresh.
func (h *Handle) Refresh(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := h.provider.engine.Refresh(ctx, h.Key(), h.owner, ttl)
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
		return false, err
	}

	if ok {
		h.dispatch(ctx, eventbus.Refreshed, nil)
	} else {
		h.dispatch(ctx, eventbus.FailedRefresh, nil)
	}

	return ok, nil
}

// IsLocked reports whether the key is currently owned and unexpired.
func (h *Handle) IsLocked(ctx context.Context) (bool, error) {
	return h.provider.engine.IsLocked(ctx, h.Key())
}

// RemainingTime returns the duration until the lock expires, or nil.
func (h *Handle) RemainingTime(ctx context.Context) (*time.Duration, error) {
	return h.provider.engine.GetRemainingTime(ctx, h.Key())
}
