package cache

// Stats is a snapshot of a stats wrapper's counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits / (hits + misses), or 0 with no traffic.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// StatsCache decorates a cache with hit/miss/eviction accounting.
type StatsCache[K comparable, V any] struct {
	inner  Cache[K, V]
	hits   uint64
	misses uint64
}

// NewStats wraps a cache with counters.
func NewStats[K comparable, V any](inner Cache[K, V]) *StatsCache[K, V] {
	return &StatsCache[K, V]{inner: inner}
}

func (c *StatsCache[K, V]) Get(key K) (V, bool) {
	v, ok := c.inner.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

func (c *StatsCache[K, V]) Put(key K, value V)    { c.inner.Put(key, value) }
func (c *StatsCache[K, V]) Contains(key K) bool   { return c.inner.Contains(key) }
func (c *StatsCache[K, V]) Remove(key K) (V, bool) { return c.inner.Remove(key) }
func (c *StatsCache[K, V]) Clear()                { c.inner.Clear() }
func (c *StatsCache[K, V]) Len() int              { return c.inner.Len() }
func (c *StatsCache[K, V]) IsEmpty() bool         { return c.inner.IsEmpty() }

// Stats returns the current counters.
func (c *StatsCache[K, V]) Stats() Stats {
	s := Stats{Hits: c.hits, Misses: c.misses}
	if e, ok := c.inner.(Evicting); ok {
		s.Evictions = e.Evictions()
	}
	return s
}

// ResetStats zeroes hit/miss counters. Eviction counts live in the wrapped
// strategy and are not reset.
func (c *StatsCache[K, V]) ResetStats() {
	c.hits = 0
	c.misses = 0
}
