//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"

	"go.uber.org/multierr"
)

// Failure is one item of a batch that could not be processed.
type Failure struct {
	Path string
	Err  error
}

// Error implements error.
func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// Unwrap exposes the cause.
func (f Failure) Unwrap() error {
	return f.Err
}

// Report summarizes a batch operation: how many items succeeded and which failed.
type Report struct {
	Succeeded int
	Failures  []Failure
}

// Success records one processed item.
func (r *Report) Success() {
	r.Succeeded++
}

// Fail records a failed item.
func (r *Report) Fail(path string, err error) {
	r.Failures = append(r.Failures, Failure{Path: path, Err: err})
}

// Merge adds the counts and failures of other.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}

	r.Succeeded += other.Succeeded
	r.Failures = append(r.Failures, other.Failures...)
}

// Failed reports how many items failed.
func (r *Report) Failed() int {
	return len(r.Failures)
}

// Err combines every failure into one error, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f)
	}

	return err
}
