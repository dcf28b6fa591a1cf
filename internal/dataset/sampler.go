package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"ondevice-update/internal/feature"
)

// SamplerOptions configures a parallel sampling pass.
type SamplerOptions struct {
	Spec       ExampleSpec
	Count      int
	Seed       int64
	NumWorkers int
}

// Sample draws opts.Count examples using opts.NumWorkers goroutines. Every
// example index has its own derived seed, so a seeded pass returns the same
// examples in the same order whatever the worker count.
func Sample(parent context.Context, opts SamplerOptions) ([]feature.Example, error) {
	if opts.Count <= 0 {
		return nil, errors.New("sampler: count must be > 0")
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.NumWorkers > opts.Count {
		opts.NumWorkers = opts.Count
	}
	base := opts.Seed
	if base == 0 {
		base = rand.Int63()
	}

	g, ctx := errgroup.WithContext(parent)
	jobs := make(chan int, opts.NumWorkers)
	out := make([]feature.Example, opts.Count)

	g.Go(func() error {
		defer close(jobs)
		return produceJobs(ctx, jobs, opts.Count)
	})

	for w := 0; w < opts.NumWorkers; w++ {
		g.Go(func() error {
			for idx := range jobs {
				ex, err := newGenerator(deriveSeed(base, idx)).Example(opts.Spec)
				if err != nil {
					return fmt.Errorf("sampler: example %d: %w", idx, err)
				}
				out[idx] = ex
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func produceJobs(ctx context.Context, jobs chan<- int, count int) error {
	for idx := 0; idx < count; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case jobs <- idx:
		}
	}
	return nil
}

// deriveSeed mixes the example index into base (splitmix64 finalizer).
func deriveSeed(base int64, idx int) int64 {
	z := uint64(base) + uint64(idx+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return int64(z)
}
