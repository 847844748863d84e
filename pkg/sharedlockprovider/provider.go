// Package sharedlockprovider implements the reader/writer shared-lock
// provider facade of spec §4.5 (component E).
package sharedlockprovider

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lerian-oss/coord/common/mlog"
	"github.com/lerian-oss/coord/pkg/cerrors"
	"github.com/lerian-oss/coord/pkg/eventbus"
	"github.com/lerian-oss/coord/pkg/keyscope"
	"github.com/lerian-oss/coord/pkg/sharedlock"
)

// Config is the provider's configuration record (spec §6).
type Config struct {
	Namespace    keyscope.Namespace
	Adapter      sharedlock.RichAdapter
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
func WithAdapter(adapter sharedlock.RichAdapter) Option {
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

// WithDefaultLimit sets the reader limit new handles use absent an
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
	engine    *sharedlock.Engine
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
		engine:    sharedlock.New(cfg.Adapter),
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

// WithSlotID fixes the handle's reader slot identity (writers use
// Owner() derived from the same field). Defaults to uuid.NewString().
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

// Create constructs a Handle bound to key under this provider's
// namespace.
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

// Handle is the immutable per-key configuration for a reader/writer pair.
type Handle struct {
	provider *Provider
	key      keyscope.Key
	slotID   string
	ttl      *time.Duration
	limit    int
}

// Key returns the handle's namespaced storage key.
func (h *Handle) Key() string { return h.key.Namespaced() }

// SlotID returns the handle's reader-slot / writer-owner identity.
func (h *Handle) SlotID() string { return h.slotID }

func (h *Handle) dispatch(ctx context.Context, kind eventbus.Kind, payload any) {
	if err, ok := payload.(error); ok {
		h.provider.logger.Errorf("sharedlockprovider: %s key=%s slot=%s err=%v", kind, h.Key(), h.slotID, err)
	} else {
		h.provider.logger.Infof("sharedlockprovider: %s key=%s slot=%s", kind, h.Key(), h.slotID)
	}

	defer func() { _ = recover() }()
	h.provider.eventBus.Publish(ctx, eventbus.Event{Kind: kind, Key: h.Key(), LockID: h.slotID, Payload: payload})
}

// AcquireReader attempts to take a reader slot, dispatching Acquired
// or FailedAcquire.
func (h *Handle) AcquireReader(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.AcquireReader(ctx, h.Key(), h.slotID, h.limit, h.ttl)
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

// AcquireWriter attempts to take the exclusive writer slot.
func (h *Handle) AcquireWriter(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.AcquireWriter(ctx, h.Key(), h.slotID, h.ttl)
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

// ReleaseReader releases this handle's reader slot.
func (h *Handle) ReleaseReader(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.ReleaseReader(ctx, h.Key(), h.slotID)
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

// ReleaseWriter releases the writer slot iff this handle holds it.
func (h *Handle) ReleaseWriter(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.ReleaseWriter(ctx, h.Key(), h.slotID)
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

// ForceReleaseAllReaders removes every reader slot for this handle's key.
func (h *Handle) ForceReleaseAllReaders(ctx context.Context) (bool, error) {
	ok, err := h.provider.engine.ForceReleaseAllReaders(ctx, h.Key())
	if err != nil {
		h.dispatch(ctx, eventbus.UnexpectedError, err)
		return false, err
	}

	h.dispatch(ctx, eventbus.ForceReleased, nil)

	return ok, nil
}

// RefreshReader sets this handle's reader slot expiration to now plus ttl.
func (h *Handle) RefreshReader(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := h.provider.engine.RefreshReader(ctx, h.Key(), h.slotID, ttl)
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

// RefreshWriter sets this handle's writer expiration to now plus ttl.
func (h *Handle) RefreshWriter(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := h.provider.engine.RefreshWriter(ctx, h.Key(), h.slotID, ttl)
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

// State returns the key's current reader/writer state.
func (h *Handle) State(ctx context.Context) (sharedlock.State, error) {
	return h.provider.engine.GetState(ctx, h.Key())
}
