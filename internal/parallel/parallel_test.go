package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForCoversRange(t *testing.T) {
	for _, cfg := range []Config{DefaultConfig(), Sequential(), {Workers: 3, MinChunk: 4}, {Workers: 64, MinChunk: 0}} {
		seen := make([]int32, 1000)
		For(cfg, len(seen), func(lo, hi int) {
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, v := range seen {
			assert.Equal(t, int32(1), v, "index %d with %+v", i, cfg)
		}
	}
}

func TestForChunkFloor(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	For(Config{Workers: 8, MinChunk: 10}, 25, func(lo, hi int) {
		mu.Lock()
		sizes = append(sizes, hi-lo)
		mu.Unlock()
	})
	total := 0
	for _, s := range sizes {
		total += s
		assert.True(t, s >= 5, "chunk of %d", s)
	}
	assert.Equal(t, 25, total)
	assert.LessOrEqual(t, len(sizes), 3)
}

func TestForInline(t *testing.T) {
	calls := 0
	For(Sequential(), 50, func(lo, hi int) {
		calls++
		assert.Equal(t, 0, lo)
		assert.Equal(t, 50, hi)
	})
	assert.Equal(t, 1, calls)

	For(DefaultConfig(), 0, func(int, int) { t.Fatal("called for empty range") })
}

func BenchmarkFor(b *testing.B) {
	n := 10000
	work := func(lo, hi int) {
		var sum int64
		for i := lo; i < hi; i++ {
			sum += int64(i)
		}
		_ = sum
	}

	b.Run("parallel", func(b *testing.B) {
		cfg := DefaultConfig().WithMinChunk(256)
		for i := 0; i < b.N; i++ {
			For(cfg, n, work)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			For(Sequential(), n, work)
		}
	})
}
