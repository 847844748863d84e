// Package semaphoreprovider implements the counting-semaphore provider
// facade of spec §4.5 (component E).
package semaphoreprovider

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lerian-oss/coord/common/mlog"
	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/eventbus"
	"github.com/lerian-oss/coord/pkg/keyscope"
	"github.com/lerian-oss/coord/pkg/semaphore"
)

// Config is the provider's configuration record (spec §6).
type Config struct {
	Namespace    keyscope.Namespace
	Adapter      semaphore.RichAdapter
	EventBus     eventbus.EventBus
	Logger       mlog.Logger
	DefaultTTL   *time.Duration
	DefaultLimit int
}

// Option configures a Provider at construction time, validating eagerly.
type Option func(*Config) error

// WithNamespace scopes every key this provider creates under ns.
func WithNamespace(ns keyscope.Namespace) Option {
	return func(c *Config) error { c.Namespace = ns; return nil }
}

// WithAdapter sets the backend.
func WithAdapter(adapter semaphore.RichAdapter) Option {
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

// WithDefaultLimit sets the slot limit new handles use absent an
// explicit one.
func WithDefaultLimit(limit int) Option {
	return func(c *Config) error {
		if limit < 1 {
			return cerrors.NewConfigError("DefaultLimit", "must be >= 1")
		}
		c.DefaultLimit = limit
		return nil
	}
}

// Provider binds a namespace, adapter, and event dispatcher into a
// Handle factory.
type Provider struct {
	namespace keyscope.Namespace
	engine    *semaphore.Engine
	eventBus  eventbus.EventBus
	logger    mlog.Logger
	defaults  Config
}

// New builds a Provider from opts. Adapter is required.
func New(opts ...Option) (*Provider, error) {
	cfg := Config{Namespace: keyscope.NewNamespace("", ""), DefaultLimit: 1}

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
		engine:    semaphore.New(cfg.Adapter),
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
	slotID string
	ttl    *time.Duration
	limit  int
}

// WithSlotID fixes the handle's slot identity. Defaults to uuid.NewString().
func WithSlotID(slotID string) HandleOption {
	return func(c *handleConfig) { c.slotID = slotID }
}

// WithTTL overrides the provider's DefaultTTL for this handle.
func WithTTL(ttl time.Duration) HandleOption {
	return func(c *handleConfig) { c.ttl = &ttl }
}

// WithLimit overrides the provider's DefaultLimit for this handle.
func WithLimit(limit int) HandleOption {
	return func(c *handleConfig) { c.limit = limit }
}

// Create constructs a Handle bound to key under this provider's namespace.
func (p *Provider) Create(userKey string, opts ...HandleOption) *Handle {
	cfg := handleConfig{slotID: uuid.NewString(), ttl: p.defaults.DefaultTTL, limit: p.defaults.DefaultLimit}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Handle{
		provider: p,
		key:      p.namespace.Key(userKey),
		slotID:   cfg.slotID,
		ttl:      cfg.ttl,
		limit:    cfg.limit,
	}
}

// Handle is the immutable per-key, per-slot configuration.
type Handle struct {
	provider *Provider
	key      keyscope.Key
	slotID   string
	ttl      *time.Duration
	limit    int
}

// Key returns the handle's namespaced storage key.
func (h *Handle) Key() string { return h.key.Namespaced() }

// SlotID returns the handle's slot identity.
func (h *Handle) SlotID() string { return h.slotID }

func (h *Handle) dispatch(ctx context.Context, kind eventbus.Kind, payload any) {
	if err, ok := payload.(error); ok {
		h.provider.logger.Errorf("semaphoreprovider: %s key=%s slot=%s err=%v", kind, h.Key(), h.slotID, err)
	} else {
		h.provider.logger.Infof("semaphoreprovider: %s key=%s slot=%s", kind, h.Key(), h.slotID)
	}

	defer func() { _ = recover() }()
	h.provider.eventBus.Publish(ctx, eventbus.Event{Kind: kind, Key: h.Key(), LockID: h.slotID, Payload: payload})
}

// Acquire attempts to take a slot, dispatching Acquired or FailedAcquire.
func (h *Handle) Acquire(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.Acquire(ctx, h.Key(), h.slotID, h.limit, h.ttl)
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

// Release releases this handle's slot.
func (h *Handle) Release(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.Release(ctx, h.Key(), h.slotID)
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

// ForceReleaseAll removes every slot for this handle's key.
func (h *Handle) ForceReleaseAll(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.ForceReleaseAll(ctx, h.Key())
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
		return false, err
	}

	h.dispatch(ctx, eventbus.ForceReleased, nil)

	return ok, nil
}

// Refresh sets this handle's slot expiration to now plus ttl.
func (h *Handle) Refresh(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := h.provider.engine.Refresh(ctx, h.Key(), h.slotID, ttl)
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

// State returns the key's current slot state.
func (h *Handle) State(ctx context.Context) (semaphore.State, error) {
	return h.provider.engine.GetState(ctx, h.Key())
}
