package filter

import (
	"math"
	"sync"
)

// DiskSpans returns, for a disk of the given diameter, the horizontal half
// width of each row from -radius to +radius where radius = size/2.
// A pixel (dx, dy) is inside the disk when dx*dx+dy*dy <= radius*radius.
//
// For size <= 1 the result is [0] (identity).
func DiskSpans(size int) []int {
	r := size / 2
	if r <= 0 {
		return []int{0}
	}
	spans := make([]int, 2*r+1)
	rr := r * r
	for dy := -r; dy <= r; dy++ {
		hw := int(math.Sqrt(float64(rr - dy*dy)))
		// Correct for floating point rounding at exact squares.
		for (hw+1)*(hw+1)+dy*dy <= rr {
			hw++
		}
		for hw > 0 && hw*hw+dy*dy > rr {
			hw--
		}
		spans[dy+r] = hw
	}
	return spans
}

// kernelCache caches disk spans keyed by diameter.
type kernelCache struct {
	mu     sync.RWMutex
	cache  map[int][]int
	maxLen int
}

var defaultKernelCache = newKernelCache(64)

func newKernelCache(maxLen int) *kernelCache {
	return &kernelCache{
		cache:  make(map[int][]int),
		maxLen: maxLen,
	}
}

func (c *kernelCache) get(size int) []int {
	c.mu.RLock()
	if spans, ok := c.cache[size]; ok {
		c.mu.RUnlock()
		return spans
	}
	c.mu.RUnlock()

	spans := DiskSpans(size)

	c.mu.Lock()
	if len(c.cache) >= c.maxLen {
		// Simple eviction: clear half the cache.
		count := 0
		for k := range c.cache {
			delete(c.cache, k)
			count++
			if count >= c.maxLen/2 {
				break
			}
		}
	}
	c.cache[size] = spans
	c.mu.Unlock()

	return spans
}

// CachedDiskSpans returns cached spans for a disk of the given diameter.
// The returned slice must not be modified.
func CachedDiskSpans(size int) []int {
	return defaultKernelCache.get(size)
}
