package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a prefixed, lexicographically sortable identifier such as
// "user_01J8ZQ2M...". The prefix names the entity family so identifiers stay
// readable in logs and cache keys; an empty prefix yields a bare ULID.
func New(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	entropyMu.Unlock()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// Prefix returns the entity prefix of an identifier, or "" when the
// identifier carries none.
func Prefix(id string) string {
	i := strings.IndexByte(id, '_')
	if i <= 0 {
		return ""
	}
	return id[:i]
}
