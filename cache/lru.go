package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is the default Cache backed by a bounded least-recently-used map.
// Safe for concurrent reads and concurrent inserts: golang-lru/v2's Cache
// guards all operations with an internal mutex.
type LRU struct {
	c *lru.Cache[Key, []float64]
}

// NewLRU creates an LRU cache holding up to size entries. It returns an
// error only if size <= 0.
func NewLRU(size int) (*LRU, error) {
	c, err := lru.New[Key, []float64](size)
	if err != nil {
		return nil, err
	}
	return &LRU{c: c}, nil
}

// Get implements Cache.
func (l *LRU) Get(key Key) ([]float64, bool) {
	return l.c.Get(key)
}

// Put implements Cache.
func (l *LRU) Put(key Key, value []float64) {
	l.c.Add(key, value)
}

// Len implements Cache.
func (l *LRU) Len() int {
	return l.c.Len()
}
