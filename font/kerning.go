package font

// kernPair is a kerning cache key.
type kernPair struct {
	prev, next rune
}

// kernCache is a soft-limited LRU of kerning amounts. When it grows past
// softLimit the least recently used quarter is dropped.
//
// Callers hold the owning font's mutex.
type kernCache struct {
	entries   map[kernPair]*kernEntry
	softLimit int
	tick      int64
}

type kernEntry struct {
	value float32
	atime int64
}

func newKernCache(softLimit int) *kernCache {
	return &kernCache{
		entries:   make(map[kernPair]*kernEntry),
		softLimit: softLimit,
	}
}

func (c *kernCache) get(k kernPair) (float32, bool) {
	e, ok := c.entries[k]
	if !ok {
		return 0, false
	}
	c.tick++
	e.atime = c.tick
	return e.value, true
}

func (c *kernCache) set(k kernPair, v float32) {
	c.tick++
	c.entries[k] = &kernEntry{value: v, atime: c.tick}
	if c.softLimit > 0 && len(c.entries) > c.softLimit {
		c.evictOldest()
	}
}

func (c *kernCache) len() int { return len(c.entries) }

func (c *kernCache) evictOldest() {
	target := max(c.softLimit*3/4, 1)
	toEvict := len(c.entries) - target
	if toEvict <= 0 {
		return
	}

	type aged struct {
		key   kernPair
		atime int64
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.atime})
	}

	// Partial selection sort: only the oldest toEvict entries are ordered.
	for i := 0; i < toEvict && i < len(all); i++ {
		minIdx := i
		for j := i + 1; j < len(all); j++ {
			if all[j].atime < all[minIdx].atime {
				minIdx = j
			}
		}
		all[i], all[minIdx] = all[minIdx], all[i]
		delete(c.entries, all[i].key)
	}
}
