// Package fileproc processes analysis units concurrently.
package fileproc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a unit.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error { return e.Err }

// ProcessingErrors collects multiple processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d units failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e *ProcessingErrors) Unwrap() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		out[i] = pe
	}
	return out
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x suits the mix of file I/O and CGO parsing.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each item is processed, successfully or not.
type ProgressFunc func()

// Workers returns n, or the default worker count when n is not positive.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// Map calls fn for every item on a bounded pool and returns the successful
// results in input order. Failures, panics included, are collected under
// name(item) and do not stop the other items. Once ctx is done, remaining
// items fail with the context error.
func Map[T, R any](
	ctx context.Context,
	items []T,
	workers int,
	name func(T) string,
	fn func(context.Context, T) (R, error),
	onProgress ProgressFunc,
) ([]R, *ProcessingErrors) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]R, len(items))
	ok := make([]bool, len(items))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(Workers(workers))
	for i, item := range items {
		p.Go(func() {
			if onProgress != nil {
				defer onProgress()
			}
			if err := ctx.Err(); err != nil {
				errs.Add(name(item), err)
				return
			}

			var (
				catcher panics.Catcher
				result  R
				err     error
			)
			catcher.Try(func() { result, err = fn(ctx, item) })
			if rec := catcher.Recovered(); rec != nil {
				err = rec.AsError()
			}
			if err != nil {
				errs.Add(name(item), err)
				return
			}
			results[i], ok[i] = result, true
		})
	}
	p.Wait()

	out := make([]R, 0, len(items))
	for i, r := range results {
		if ok[i] {
			out = append(out, r)
		}
	}
	if !errs.HasErrors() {
		return out, nil
	}
	return out, errs
}

// Canceled reports whether every collected error is a context error, as
// opposed to a failure of the work itself.
func (e *ProcessingErrors) Canceled() bool {
	if e == nil || !e.HasErrors() {
		return false
	}
	for _, err := range e.Unwrap() {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return false
		}
	}
	return true
}
