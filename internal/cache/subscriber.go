package cache

import (
	"context"
	"fmt"

	"shopcore.dev/internal/events"
	"shopcore.dev/internal/obs"
)

// Register wires cache invalidation to the event bus. Every domain mutation
// event clears the keys that could now be stale; the explicit cache:*
// events give operators direct control. Registration flips the bus
// initialization latch, so calling Register again is a no-op rather than a
// second set of handlers.
func Register(bus *events.Bus, c *Cache) error {
	if bus.Initialized() {
		return nil
	}
	invalidate := func(keys []string, patterns []string) events.Handler {
		return func(ctx context.Context, e events.Event) error {
			for _, key := range keys {
				c.Invalidate(key)
			}
			for _, p := range patterns {
				c.InvalidatePattern(p)
			}
			return nil
		}
	}

	subs := []struct {
		name    events.Name
		handler events.Handler
	}{
		{events.CategoryCreated, categoryHandler(c)},
		{events.CategoryUpdated, categoryHandler(c)},
		{events.CategoryDeleted, categoryHandler(c)},

		{events.ProductCreated, productHandler(c)},
		{events.ProductUpdated, productHandler(c)},
		{events.ProductDeleted, productHandler(c)},
		{events.ProductPriceChanged, priceStockHandler(c)},
		{events.ProductStockChanged, priceStockHandler(c)},

		// Role changes alter effective permissions for every holder.
		{events.RoleUpdated, invalidate(nil, []string{"user:*:permissions"})},
		{events.RoleDeleted, invalidate(nil, []string{"user:*:permissions"})},

		{events.SettingsUpdated, settingsHandler(c)},

		{events.CacheInvalidate, cacheControlHandler(c)},
		{events.CacheInvalidatePattern, cacheControlHandler(c)},
		{events.CacheClearAll, cacheControlHandler(c)},
	}
	for _, s := range subs {
		if err := bus.Subscribe(s.name, s.handler); err != nil {
			return fmt.Errorf("cache: subscribe %s: %w", s.name, err)
		}
	}
	bus.MarkInitialized()
	return nil
}

func categoryHandler(c *Cache) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		ev, ok := e.(*events.CategoryEvent)
		if !ok {
			return fmt.Errorf("cache: unexpected payload %T for %s", e, e.EventName())
		}
		c.InvalidatePattern("categories:*")
		c.Invalidate("category:" + ev.CategoryID)
		return nil
	}
}

func productHandler(c *Cache) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		ev, ok := e.(*events.ProductEvent)
		if !ok {
			return fmt.Errorf("cache: unexpected payload %T for %s", e, e.EventName())
		}
		c.InvalidatePattern("products:*")
		c.Invalidate("product:" + ev.ProductID)
		if ev.CategoryID != "" {
			c.Invalidate("category:" + ev.CategoryID)
		}
		return nil
	}
}

func priceStockHandler(c *Cache) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		var productID string
		switch ev := e.(type) {
		case *events.PriceChangeEvent:
			productID = ev.ProductID
		case *events.StockChangeEvent:
			productID = ev.ProductID
		default:
			return fmt.Errorf("cache: unexpected payload %T for %s", e, e.EventName())
		}
		c.Invalidate("product:" + productID)
		c.InvalidatePattern("products:*")
		return nil
	}
}

func settingsHandler(c *Cache) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		ev, ok := e.(*events.SettingsEvent)
		if !ok {
			return fmt.Errorf("cache: unexpected payload %T for %s", e, e.EventName())
		}
		c.Invalidate("settings:" + ev.Key)
		c.InvalidatePattern("settings:*")
		return nil
	}
}

func cacheControlHandler(c *Cache) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		ev, ok := e.(*events.CacheEvent)
		if !ok {
			return fmt.Errorf("cache: unexpected payload %T for %s", e, e.EventName())
		}
		switch e.EventName() {
		case events.CacheInvalidate:
			c.Invalidate(ev.Key)
		case events.CacheInvalidatePattern:
			n := c.InvalidatePattern(ev.Key)
			obs.LogEvent("cache", "pattern invalidation", map[string]any{
				"pattern": ev.Key,
				"removed": n,
			})
		case events.CacheClearAll:
			c.Clear()
			obs.LogEvent("cache", "cleared", nil)
		}
		return nil
	}
}
