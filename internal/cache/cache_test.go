package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New()
	c.Set("product:1", "widget", time.Minute)

	v, ok := c.Get("product:1")
	assert.True(t, ok)
	assert.Equal(t, "widget", v)

	_, ok = c.Get("product:2")
	assert.False(t, ok)
}

func TestExpiryIsLazy(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return current }))

	c.Set("settings:store.name", "Shop", time.Minute)
	current = current.Add(59 * time.Second)
	if _, ok := c.Get("settings:store.name"); !ok {
		t.Fatalf("entry must survive until its TTL")
	}

	current = current.Add(2 * time.Second)
	_, ok := c.Get("settings:store.name")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry must be reaped on read")
}

func TestSetDefaultTTL(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return current }), WithDefaultTTL(10*time.Second))

	c.Set("k", 1, 0)
	current = current.Add(9 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	current = current.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestSetOverwritesAndRenews(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return current }))

	c.Set("k", "old", time.Minute)
	current = current.Add(50 * time.Second)
	c.Set("k", "new", time.Minute)
	current = current.Add(50 * time.Second)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set("k", 1, time.Minute)

	assert.True(t, c.Invalidate("k"))
	assert.False(t, c.Invalidate("k"), "second invalidation reports absence")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestInvalidatePattern(t *testing.T) {
	c := New()
	c.Set("products:list:1", 1, time.Minute)
	c.Set("products:list:2", 2, time.Minute)
	c.Set("product:123", 3, time.Minute)
	c.Set("categories:tree", 4, time.Minute)

	removed := c.InvalidatePattern("products:*")
	assert.Equal(t, 2, removed)

	// The prefix match is literal: "products:*" must not touch "product:123".
	_, ok := c.Get("product:123")
	assert.True(t, ok)
	_, ok = c.Get("categories:tree")
	assert.True(t, ok)
}

func TestInvalidatePatternInfix(t *testing.T) {
	c := New()
	c.Set("user:1:permissions", 1, time.Minute)
	c.Set("user:42:permissions", 2, time.Minute)
	c.Set("user:1:profile", 3, time.Minute)

	removed := c.InvalidatePattern("user:*:permissions")
	assert.Equal(t, 2, removed)
	_, ok := c.Get("user:1:profile")
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, key string
		want         bool
	}{
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"products:*", "products:list:1", true},
		{"products:*", "products:", true},
		{"products:*", "product:123", false},
		{"*", "anything", true},
		{"*", "", true},
		{"user:*:permissions", "user:9:permissions", true},
		{"user:*:permissions", "user:9:profile", false},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "acb", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, globMatch(tc.pattern, tc.key), "pattern %q key %q", tc.pattern, tc.key)
	}
}
