// Package sweep runs families of independent cache-model analyses: a matrix
// of cache configurations against problem sizes, a miss-rate-vs-cache-size
// curve, an associativity study and a tiling study. All problems are square
// (M = K = N = size).
//
// Each analysis is pure, so a Sweeper fans the points out across goroutines
// and reassembles the results in input order.
package sweep

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cachemiss/cachemodel"
)

// CacheConfig names a cache whose set count is derived from size, block
// size and associativity.
type CacheConfig struct {
	Name           string `yaml:"name" json:"name"`
	CacheSizeBytes int64  `yaml:"cache_size_bytes" json:"cache_size_bytes"`
	BlockSizeBytes int64  `yaml:"block_size_bytes" json:"block_size_bytes"`
	Associativity  int64  `yaml:"associativity" json:"associativity"`
}

// Geometry validates the config and derives its layout.
func (c CacheConfig) Geometry() (cachemodel.Geometry, error) {
	g, err := cachemodel.GeometryFor(c.CacheSizeBytes, c.BlockSizeBytes, c.Associativity)
	if err != nil {
		return cachemodel.Geometry{}, fmt.Errorf("cache config %q: %w", c.Name, err)
	}
	return g, nil
}

// Sweeper bounds how many analyses run at once.
type Sweeper struct {
	concurrency int
}

// New returns a Sweeper running at most concurrency analyses in parallel.
// Non-positive concurrency means runtime.GOMAXPROCS(0).
func New(concurrency int) *Sweeper {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Sweeper{concurrency: concurrency}
}

// Concurrency reports the effective parallelism.
func (s *Sweeper) Concurrency() int {
	return s.concurrency
}

// run calls fn(i) for every i in [0, n) with at most s.concurrency calls in
// flight. The first error cancels outstanding work and is returned.
func (s *Sweeper) run(ctx context.Context, name string, n int, fn func(i int) error) error {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	semaphore := make(chan struct{}, s.concurrency)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
		case semaphore <- struct{}{}:
		}
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			if err := fn(i); err != nil {
				fail(err)
			}
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return fmt.Errorf("%s sweep: %w", name, firstErr)
	}
	logrus.Infof("%s sweep: %d points in %v (concurrency=%d)", name, n, time.Since(start), s.concurrency)
	return nil
}

func squareProblem(size, elementSizeBytes int64) cachemodel.Problem {
	return cachemodel.Problem{M: size, K: size, N: size, ElementSizeBytes: elementSizeBytes}
}
