package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("%d goroutines, threshold %d", n, threshold)
		}
		return nil
	}
}

// Wrapped annotates errors returned by fn with name.
func Wrapped(name string, fn func(context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return errors.Wrap(err, name)
		}
		return nil
	}
}
