package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictionOrder(t *testing.T) {
	// capacity 3, access sequence 0,1,2, get(0), put(3): key 1 must go
	c := NewLRU[int, string](3)
	c.Put(0, "zero")
	c.Put(1, "one")
	c.Put(2, "two")

	_, ok := c.Get(0)
	require.True(t, ok)

	c.Put(3, "three")
	assert.True(t, c.Contains(0), "recently accessed key must survive")
	assert.False(t, c.Contains(1), "least recently used key must be evicted")
	assert.True(t, c.Contains(2))
	assert.True(t, c.Contains(3))
	assert.Equal(t, uint64(1), c.Evictions())
}

func TestLRUUpdateMovesToFront(t *testing.T) {
	c := NewLRU[int, int](2)
	c.Put(1, 1)
	c.Put(2, 2)
	c.Put(1, 10) // refresh
	c.Put(3, 3)  // evicts 2
	assert.True(t, c.Contains(1))
	assert.False(t, c.Contains(2))

	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestLFUEviction(t *testing.T) {
	c := NewLFU[string, int](2)
	c.Put("hot", 1)
	c.Put("cold", 2)
	c.Get("hot")
	c.Get("hot")
	c.Put("new", 3) // cold has the lowest frequency
	assert.True(t, c.Contains("hot"))
	assert.False(t, c.Contains("cold"))
	assert.True(t, c.Contains("new"))
}

func TestLFUTieBrokenByInsertionOrder(t *testing.T) {
	c := NewLFU[string, int](2)
	c.Put("first", 1)
	c.Put("second", 2)
	// equal frequency; the older entry goes
	c.Put("third", 3)
	assert.False(t, c.Contains("first"))
	assert.True(t, c.Contains("second"))
	assert.True(t, c.Contains("third"))
}

func TestFIFOEvictionIgnoresAccess(t *testing.T) {
	c := NewFIFO[int, int](2)
	c.Put(1, 1)
	c.Put(2, 2)
	c.Get(1) // access must not save it
	c.Put(3, 3)
	assert.False(t, c.Contains(1))
	assert.True(t, c.Contains(2))
	assert.True(t, c.Contains(3))
}

func TestTTLExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewTTL[string, int](10, time.Minute)
	c.SetClock(func() time.Time { return now })

	c.Put("k", 1)
	_, ok := c.Get("k")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(1), c.Evictions())
}

func TestTTLCapacityEvictsClosestToExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewTTL[string, int](2, time.Minute)
	c.SetClock(func() time.Time { return now })

	c.Put("old", 1)
	now = now.Add(10 * time.Second)
	c.Put("young", 2)
	now = now.Add(10 * time.Second)
	c.Put("third", 3)
	assert.False(t, c.Contains("old"))
	assert.True(t, c.Contains("young"))
	assert.True(t, c.Contains("third"))
}

func TestUnboundedNeverEvicts(t *testing.T) {
	c := NewUnbounded[int, int]()
	for i := 0; i < 10_000; i++ {
		c.Put(i, i)
	}
	assert.Equal(t, 10_000, c.Len())
	_, ok := c.Get(0)
	assert.True(t, ok)
}

func TestAdaptiveServesFromEitherPolicy(t *testing.T) {
	c := NewAdaptive[int, int](4)
	for i := 0; i < 4; i++ {
		c.Put(i, i*10)
	}
	v, ok := c.Get(2)
	require.True(t, ok)
	assert.Equal(t, 20, v)
	assert.Equal(t, StrategyLRU, c.Primary())

	c.Put(9, 90)
	_, ok = c.Get(9)
	assert.True(t, ok)
}

func TestStatsWrapper(t *testing.T) {
	c := NewStats[int, int](NewLRU[int, int](2))
	c.Put(1, 1)
	c.Get(1)
	c.Get(1)
	c.Get(2)

	s := c.Stats()
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRate(), 1e-9)

	c.Put(2, 2)
	c.Put(3, 3) // evicts 1
	assert.Equal(t, uint64(1), c.Stats().Evictions)

	c.ResetStats()
	s = c.Stats()
	assert.Zero(t, s.Hits)
	assert.Zero(t, s.Misses)
}

func TestRemoveAndClear(t *testing.T) {
	caches := map[string]Cache[string, int]{
		"lru":       NewLRU[string, int](4),
		"lfu":       NewLFU[string, int](4),
		"fifo":      NewFIFO[string, int](4),
		"ttl":       NewTTL[string, int](4, time.Hour),
		"adaptive":  NewAdaptive[string, int](4),
		"unbounded": NewUnbounded[string, int](),
	}
	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			c.Put("a", 1)
			c.Put("b", 2)
			v, ok := c.Remove("a")
			require.True(t, ok)
			assert.Equal(t, 1, v)
			_, ok = c.Remove("a")
			assert.False(t, ok)

			c.Clear()
			assert.True(t, c.IsEmpty())
			assert.Zero(t, c.Len())
		})
	}
}

func TestConcurrentWrapper(t *testing.T) {
	c := NewConcurrent[int, int](NewLRU[int, int](128))
	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 1000; i++ {
				c.Put(i%64, i)
				c.Get(i % 64)
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		<-done
	}
	assert.LessOrEqual(t, c.Len(), 64)
}

func TestManager(t *testing.T) {
	m := NewManager()
	lru := NewLRU[string, int](8)
	m.Track("reads", StrategyLRU, 8, lru)
	m.Track("regex", StrategyUnbounded, 0, NewUnbounded[string, int]())

	assert.True(t, m.Has("reads"))
	assert.Equal(t, []string{"reads", "regex"}, m.Names())

	lru.Put("a", 1)
	info, ok := m.Get("reads")
	require.True(t, ok)
	assert.Equal(t, 1, info.Len)
	assert.Equal(t, StrategyLRU, info.Strategy)

	m.ClearAll()
	info, _ = m.Get("reads")
	assert.Zero(t, info.Len)

	assert.True(t, m.Remove("regex"))
	assert.False(t, m.Remove("regex"))
	assert.Len(t, m.All(), 1)
}
