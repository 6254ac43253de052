package visitor

import "time"

// DefaultTTL is how long a completed lookup stays fresh.
const DefaultTTL = 24 * time.Hour

// NeedsLookup reports whether the identity has no cached enrichment or the
// cache is older than ttl. Pure; callers are expected to skip private and
// loopback addresses before asking.
func NeedsLookup(id Identity, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if id.LookupCachedAt.IsZero() {
		return true
	}
	return now.Sub(id.LookupCachedAt) > ttl
}
