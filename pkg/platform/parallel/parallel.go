// Package parallel runs independent tasks with a fixed cap on how many are
// in flight at once. Task failures never cancel siblings; every task settles
// and its outcome is captured independently.
package parallel

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Outcome captures one task's result. Index ties the outcome back to the
// submitted task, since completion order is not start order.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

// Map runs every task with at most limit in flight and returns one outcome
// per task, indexed by submission order. Tasks start in submission order up
// to the limit. A canceled ctx stops launching new tasks and records
// ctx.Err() for the tasks that never ran; tasks already started settle
// normally.
func Map[T any](ctx context.Context, limit int, tasks []func(context.Context) (T, error)) []Outcome[T] {
	if limit < 1 {
		limit = 1
	}

	outcomes := make([]Outcome[T], len(tasks))
	sem := semaphore.NewWeighted(int64(limit))
	var wg sync.WaitGroup

	for i, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = Outcome[T]{Index: i, Err: err}
			continue
		}
		wg.Add(1)
		go func(i int, task func(context.Context) (T, error)) {
			defer wg.Done()
			defer sem.Release(1)
			v, err := task(ctx)
			outcomes[i] = Outcome[T]{Index: i, Value: v, Err: err}
		}(i, task)
	}

	wg.Wait()
	return outcomes
}

// Values filters successful outcomes, preserving submission order.
func Values[T any](outcomes []Outcome[T]) []T {
	out := make([]T, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil {
			out = append(out, o.Value)
		}
	}
	return out
}

// FirstError returns the first failure by submission order, or nil.
func FirstError[T any](outcomes []Outcome[T]) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}
