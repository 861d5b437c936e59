// Package events is the in-process publish/subscribe bus that connects the
// domain services to side-effect handlers such as cache invalidation and
// audit logging. Delivery is synchronous and in-order per publish; handlers
// for the same event run one after another in subscription order.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shopcore.dev/internal/obs"
)

// Name identifies an event on the bus.
type Name string

const (
	UserCreated Name = "user:created"
	UserUpdated Name = "user:updated"
	UserDeleted Name = "user:deleted"
	UserLogin   Name = "user:login"
	UserLogout  Name = "user:logout"

	RoleCreated Name = "role:created"
	RoleUpdated Name = "role:updated"
	RoleDeleted Name = "role:deleted"

	CategoryCreated Name = "category:created"
	CategoryUpdated Name = "category:updated"
	CategoryDeleted Name = "category:deleted"

	ProductCreated      Name = "product:created"
	ProductUpdated      Name = "product:updated"
	ProductDeleted      Name = "product:deleted"
	ProductPriceChanged Name = "product:price:changed"
	ProductStockChanged Name = "product:stock:changed"

	SettingsUpdated Name = "settings:updated"

	CacheInvalidate        Name = "cache:invalidate"
	CacheInvalidatePattern Name = "cache:invalidate:pattern"
	CacheClearAll          Name = "cache:clear:all"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	EventName() Name
}

// Meta carries bus-assigned fields shared by all payloads. Embed it by
// pointer receiver convention: payloads are published as pointers so the
// bus can stamp the publish time.
type Meta struct {
	OccurredAt time.Time `json:"timestamp"`
}

func (m *Meta) stamp(at time.Time) { m.OccurredAt = at }

type stampable interface {
	stamp(time.Time)
}

// Handler consumes one event. Returning an error marks the delivery failed;
// it does not stop delivery to other handlers.
type Handler func(ctx context.Context, e Event) error

// DefaultMaxHandlers bounds subscriptions per event name. Hitting the cap
// almost always means a subscriber is registered in a loop.
const DefaultMaxHandlers = 50

// Bus routes published events to subscribed handlers.
type Bus struct {
	mu          sync.RWMutex
	handlers    map[Name][]Handler
	maxHandlers int
	now         func() time.Time
	initialized bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithClock overrides the timestamp source. Tests use this for
// deterministic stamps.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// WithMaxHandlers overrides the per-event subscription cap.
func WithMaxHandlers(n int) Option {
	return func(b *Bus) { b.maxHandlers = n }
}

// NewBus returns an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		handlers:    make(map[Name][]Handler),
		maxHandlers: DefaultMaxHandlers,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for the named event. It fails once the
// per-event cap is reached.
func (b *Bus) Subscribe(name Name, h Handler) error {
	if h == nil {
		return fmt.Errorf("events: nil handler for %s", name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.handlers[name]) >= b.maxHandlers {
		return fmt.Errorf("events: handler limit %d reached for %s", b.maxHandlers, name)
	}
	b.handlers[name] = append(b.handlers[name], h)
	return nil
}

// MarkInitialized flips the startup latch. Subscriber packages set it once
// their handlers are wired and check Initialized to keep registration
// idempotent.
func (b *Bus) MarkInitialized() {
	b.mu.Lock()
	b.initialized = true
	b.mu.Unlock()
}

// Initialized reports whether startup has completed.
func (b *Bus) Initialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized
}

// Publish delivers e to every subscribed handler. Handler errors and panics
// are isolated: they are logged and counted but never propagate to the
// publisher or to sibling handlers.
func (b *Bus) Publish(ctx context.Context, e Event) {
	for _, err := range b.deliver(ctx, e) {
		obs.EventHandlerFailure(string(e.EventName()))
		obs.LogEvent("events", "handler failed", map[string]any{
			"event": string(e.EventName()),
			"error": err.Error(),
		})
	}
}

// PublishWait delivers e like Publish but additionally reports the joined
// handler errors to the caller. Use it when the publisher must observe the
// outcome, e.g. cache invalidation that must land before responding.
func (b *Bus) PublishWait(ctx context.Context, e Event) error {
	errs := b.deliver(ctx, e)
	for range errs {
		obs.EventHandlerFailure(string(e.EventName()))
	}
	return errors.Join(errs...)
}

func (b *Bus) deliver(ctx context.Context, e Event) []error {
	if s, ok := e.(stampable); ok {
		s.stamp(b.now().UTC())
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[e.EventName()]))
	copy(handlers, b.handlers[e.EventName()])
	b.mu.RUnlock()

	obs.EventPublished(string(e.EventName()))

	var errs []error
	for _, h := range handlers {
		if err := b.call(ctx, h, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (b *Bus) call(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("events: handler panic on %s: %v", e.EventName(), r)
		}
	}()
	return h(ctx, e)
}
