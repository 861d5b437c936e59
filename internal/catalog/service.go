package catalog

import (
	"strings"
	"time"
	"unicode"

	"shopcore.dev/internal/cache"
	"shopcore.dev/internal/events"
)

// Cache keys. Detail keys carry the entity id; list keys form a family so
// the event subscriber can evict them with one pattern.
const (
	cacheKeyCategoryTree = "categories:tree"
	cacheKeyCategoryList = "categories:list"
	cacheKeySettingsAll  = "settings:all"
)

func cacheKeyCategory(id string) string { return "category:" + id }
func cacheKeyProduct(id string) string  { return "product:" + id }
func cacheKeyProducts(categoryID string) string {
	if categoryID == "" {
		return "products:list"
	}
	return "products:list:" + categoryID
}
func cacheKeySetting(key string) string { return "settings:" + key }

// Service implements catalog operations over a Store, publishing domain
// events on every mutation and serving hot reads through the cache.
type Service struct {
	store Store
	bus   *events.Bus
	cache *cache.Cache
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a catalog service. bus and c must be non-nil; cmd/api
// always provides both.
func NewService(store Store, bus *events.Bus, c *cache.Cache, opts ...Option) *Service {
	s := &Service{store: store, bus: bus, cache: c, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Slugify lowercases s, replaces whitespace runs with single dashes, and
// drops everything that is not a letter, digit or dash.
func Slugify(s string) string {
	var b strings.Builder
	dash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case r == '-' || unicode.IsSpace(r):
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
