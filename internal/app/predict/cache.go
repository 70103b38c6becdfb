package predict

import (
	"sync"
	"time"

	"github.com/tokensage/tokensage/internal/domain"
)

// DefaultCacheTTL is how long a prediction stays fresh. Executions land
// continuously, so five minutes balances staleness against datastore load.
const DefaultCacheTTL = 5 * time.Minute

// globalScope keys cache entries for predictions requested without a user.
const globalScope = "global"

type cacheKey struct {
	engineID string
	scope    string
}

type cacheEntry struct {
	prediction domain.Prediction
	computedAt time.Time
}

// predictionCache holds predictions keyed by (engineID, userID-or-global).
// Entries are only ever overwritten or cleared, never proactively evicted:
// a stale entry is recomputed on the next lookup. Thread-safe —
// last write wins on concurrent recomputes of the same key.
type predictionCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
	now     func() time.Time // injectable clock for TTL tests
}

func newPredictionCache(ttl time.Duration, now func() time.Time) *predictionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &predictionCache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

func key(engineID, userID string) cacheKey {
	scope := userID
	if scope == "" {
		scope = globalScope
	}
	return cacheKey{engineID: engineID, scope: scope}
}

// get returns the cached prediction if one exists and is younger than the
// TTL.
func (c *predictionCache) get(engineID, userID string) (domain.Prediction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key(engineID, userID)]
	if !ok {
		return domain.Prediction{}, false
	}
	if c.now().Sub(entry.computedAt) >= c.ttl {
		return domain.Prediction{}, false
	}
	return entry.prediction, true
}

// put stores a prediction with the current timestamp, overwriting any
// previous entry for the key.
func (c *predictionCache) put(engineID, userID string, p domain.Prediction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(engineID, userID)] = cacheEntry{prediction: p, computedAt: c.now()}
}

// clear empties the cache unconditionally.
func (c *predictionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}

// size returns the number of live entries (stale included).
func (c *predictionCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
