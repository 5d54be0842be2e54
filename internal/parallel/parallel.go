// Package parallel splits index ranges across goroutines for the CPU
// kernels.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how a range is split.
type Config struct {
	Workers  int // Upper bound on goroutines; 1 or less runs inline.
	MinChunk int // Fewest indices handed to one goroutine.
}

// DefaultConfig uses one worker per schedulable CPU.
func DefaultConfig() Config {
	return Config{
		Workers:  runtime.GOMAXPROCS(0),
		MinChunk: 1,
	}
}

// Sequential runs every range inline on the calling goroutine.
func Sequential() Config {
	return Config{Workers: 1, MinChunk: 1}
}

// WithMinChunk returns a copy of cfg with a different chunk floor.
func (cfg Config) WithMinChunk(n int) Config {
	cfg.MinChunk = n
	return cfg
}

// For calls f on disjoint sub-ranges [lo, hi) covering [0, n) and waits
// for all of them. Chunks are contiguous so callers can allocate scratch
// space once per chunk.
func For(cfg Config, n int, f func(lo, hi int)) {
	if n <= 0 {
		return
	}
	minChunk := max(cfg.MinChunk, 1)
	if cfg.Workers <= 1 || n < 2*minChunk {
		f(0, n)
		return
	}

	chunk := max((n+cfg.Workers-1)/cfg.Workers, minChunk)
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(lo, hi)
		}()
	}
	wg.Wait()
}
