package cache

import "sync"

// Unbounded is a Cache backed by a plain sync.Map: never evicts, so
// memory grows with the number of distinct (subject, parameter vector)
// pairs seen. Useful for short runs or tests where bounded eviction would
// otherwise obscure a caching bug.
type Unbounded struct {
	m    sync.Map
	size int64
	mu   sync.Mutex
}

// NewUnbounded creates an empty Unbounded cache.
func NewUnbounded() *Unbounded {
	return &Unbounded{}
}

// Get implements Cache.
func (u *Unbounded) Get(key Key) ([]float64, bool) {
	v, ok := u.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.([]float64), true
}

// Put implements Cache.
func (u *Unbounded) Put(key Key, value []float64) {
	if _, loaded := u.m.LoadOrStore(key, value); !loaded {
		u.mu.Lock()
		u.size++
		u.mu.Unlock()
	}
}

// Len implements Cache.
func (u *Unbounded) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return int(u.size)
}
