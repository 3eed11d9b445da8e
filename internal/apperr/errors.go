// Package apperr holds the error taxonomy shared by the reconciliation and
// notification passes.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuotaExceeded is wrapped around remote errors that signal rate or
	// quota exhaustion. It aborts the current pass.
	ErrQuotaExceeded = errors.New("remote quota exceeded")

	// ErrNotificationTransient marks a single failed notification that can be
	// retried on the next pass.
	ErrNotificationTransient = errors.New("notification failed")

	// ErrNotificationFatal marks a notification provider outage or quota
	// exhaustion. It aborts the current pass.
	ErrNotificationFatal = errors.New("notification provider unavailable")
)

// ResolutionError is returned when a channel reference cannot be turned into
// a canonical channel ID.
type ResolutionError struct {
	Reference string
	Err       error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resolve channel %q", e.Reference)
	}
	return fmt.Sprintf("resolve channel %q: %v", e.Reference, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// RemoteFetchError wraps a failed remote listing or lookup call.
type RemoteFetchError struct {
	Op  string
	Err error
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

// MissingFieldError reports a remote record that lacks required fields.
type MissingFieldError struct {
	Kind   string
	ID     string
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s %q is missing fields: %s", e.Kind, e.ID, strings.Join(e.Fields, ", "))
}

// Quota wraps err so that errors.Is(err, ErrQuotaExceeded) holds.
func Quota(err error) error {
	return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
}

// AbortsPass reports whether err must stop the whole pass rather than a
// single item.
func AbortsPass(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrNotificationFatal)
}

// MissingFields returns the names of the empty values in fields, in order.
func MissingFields(fields ...Field) []string {
	var missing []string
	for _, f := range fields {
		if f.Value == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// Field is a named value checked by MissingFields.
type Field struct {
	Name  string
	Value string
}
