package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/denizerdem/turkiye-weather-service/internal/models"
)

// fanOut runs fetch once per province with at most limit fetches in flight.
// Each province's outcome is independent: a fetch reporting ok=false is
// dropped without cancelling or delaying its siblings, and the batch never
// fails as a whole. Results are appended in completion order, so callers must
// treat them as an unordered collection tagged by province. Returns the
// successful outcomes plus the original province count.
func fanOut[T any](ctx context.Context, provinces []models.Province, limit int64, fetch func(context.Context, models.Province) (T, bool)) ([]T, int) {
	sem := semaphore.NewWeighted(limit)
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]T, 0, len(provinces))

	for _, p := range provinces {
		wg.Add(1)
		go func(p models.Province) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			out, ok := fetch(ctx, p)
			if !ok {
				return
			}
			mu.Lock()
			results = append(results, out)
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return results, len(provinces)
}
