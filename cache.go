package drift

import (
	"encoding/gob"
	"sync"

	"github.com/go-drift/drift/internal/pcache"
)

// Cross-action partition cache backing Dataset.Cache(). Entries are keyed by
// Dataset id, which is stable for the lifetime of a Dataset handle, so a
// cached Dataset replays identical partitions across actions. The cache is
// lossy: admission and eviction are the cache's business, and a miss simply
// recomputes.

// defaultCacheBytes bounds the total compressed size of cached partitions
const defaultCacheBytes = 64 << 20

var (
	cacheOnce   sync.Once
	sharedCache *pcache.Cache
)

func init() {
	// cached rows cross the gob boundary; pre-register the engine's own shapes
	gob.Register(KeyValue{})
	gob.Register(Tuple{})
	gob.Register([]Row{})
}

func getCache() *pcache.Cache {
	cacheOnce.Do(func() {
		c, err := pcache.New(defaultCacheBytes)
		if err != nil {
			sharedLogger.Errorf("partition cache unavailable: %v", err)
			return
		}
		sharedCache = c
	})
	return sharedCache
}

// cacheFetch retrieves the partitions of a cached Dataset, if present
func cacheFetch(id string) ([]*partition, bool) {
	c := getCache()
	if c == nil {
		return nil, false
	}
	stored, ok := c.Get(id)
	if !ok {
		return nil, false
	}
	parts := make([]*partition, len(stored))
	for i, rows := range stored {
		parts[i] = createPartition(i, rows)
	}
	return parts, true
}

// cacheStore records the partitions of a cached Dataset. Serialization
// failures (rows gob cannot encode) are logged and skipped, never failing the
// action.
func cacheStore(id string, parts []*partition) {
	c := getCache()
	if c == nil {
		return
	}
	stored := make([][]interface{}, len(parts))
	for i, p := range parts {
		stored[i] = p.rows
	}
	if err := c.Put(id, stored); err != nil {
		sharedLogger.Errorf("failed to cache dataset %s: %v", id, err)
	}
}
