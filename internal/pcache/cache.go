// Package pcache provides a bounded in-memory cache of materialized dataset
// partitions. Values are gob-serialized and lz4-compressed before admission,
// so the cache cost-accounts real bytes and cached rows cannot be mutated by
// later computation.
package pcache

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/dgraph-io/ristretto"
	lz4 "github.com/pierrec/lz4"
)

// A Cache stores the partition rows of datasets across actions. Admission and
// eviction are delegated to ristretto, so a Put is advisory: a later Get may
// miss and callers must be prepared to recompute.
type Cache struct {
	c *ristretto.Cache
}

// New produces a Cache bounded to roughly maxBytes of compressed partition
// data
func New(maxBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Put stores the rows of each partition of one dataset under the given key.
// Rows must be gob-encodable.
func (c *Cache) Put(key string, partitions [][]interface{}) error {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(partitions); err != nil {
		return err
	}
	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	blob := compressed.Bytes()
	c.c.Set(key, blob, int64(len(blob)))
	// make the write visible to immediately following Gets
	c.c.Wait()
	return nil
}

// Get retrieves the partition rows stored under key, if still cached
func (c *Cache) Get(key string) ([][]interface{}, bool) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, false
	}
	blob, ok := v.([]byte)
	if !ok {
		return nil, false
	}
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return nil, false
	}
	var partitions [][]interface{}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&partitions); err != nil {
		return nil, false
	}
	return partitions, true
}

// Del drops the entry stored under key
func (c *Cache) Del(key string) {
	c.c.Del(key)
}
