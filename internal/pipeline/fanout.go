package pipeline

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
)

// outcome is the result of one fetch, stored at the key's input position
type outcome[V any] struct {
	Value V
	Err   error
}

// fanOut calls fn once per key. With workers > 1 the calls run on a bounded
// ants pool; otherwise they run in order on the calling goroutine. The
// returned slice is indexed like keys either way.
func fanOut[K, V any](ctx context.Context, workers int, keys []K, fn func(context.Context, K) (V, error)) ([]outcome[V], error) {
	out := make([]outcome[V], len(keys))

	if workers <= 1 || len(keys) <= 1 {
		for i, key := range keys {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				continue
			}
			out[i].Value, out[i].Err = fn(ctx, key)
		}
		return out, nil
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, key := range keys {
		i, key := i, key
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return
			}
			out[i].Value, out[i].Err = fn(ctx, key)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, errors.Wrap(err, "submit task to worker pool")
		}
	}
	wg.Wait()

	return out, nil
}
