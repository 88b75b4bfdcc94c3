//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/ext-packager/internal/logger"
)

// errWorkerPanicked is returned when a job panics.
var errWorkerPanicked = errors.New("worker panicked")

// Result is the outcome of a background job.
type Result[T any] struct {
	Value T
	Err   error
}

// Go runs job on its own goroutine and delivers exactly one Result on the returned channel.
// A panic inside job is converted into an error.
func Go[T any](ctx context.Context, name string, job func(context.Context) (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	ctx = logger.WithName(ctx, name)

	go func() {
		var result Result[T]

		defer func() {
			if r := recover(); r != nil {
				logger.ErrorKV(ctx, "Worker panicked", "panic", r)
				result = Result[T]{Err: fmt.Errorf("%w: %v", errWorkerPanicked, r)}
			}

			out <- result
			close(out)
		}()

		logger.Debug(ctx, "Worker started")

		result.Value, result.Err = job(ctx)

		logger.Debug(ctx, "Worker finished")
	}()

	return out
}

// Wait blocks until the job delivers its result or ctx is done.
func Wait[T any](ctx context.Context, results <-chan Result[T]) (T, error) {
	select {
	case r := <-results:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
