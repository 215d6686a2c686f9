package weather

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSource is returned when the service has no forecast source configured.
	ErrNoSource = errors.New("no forecast source configured")

	// ErrNotFound is returned when a day has no stored forecast.
	ErrNotFound = errors.New("no forecast for day")
)

// ConstraintViolation is returned when a record is rejected by the store.
type ConstraintViolation struct {
	Day     *int64
	Columns []Column
	Err     error
}

func (e *ConstraintViolation) Error() string {
	var b strings.Builder
	b.WriteString("constraint violation")
	if e.Day != nil {
		fmt.Fprintf(&b, " for day %d", *e.Day)
	}
	if len(e.Columns) > 0 {
		names := make([]string, len(e.Columns))
		for i, c := range e.Columns {
			names[i] = string(c)
		}
		fmt.Fprintf(&b, ": null value in %s", strings.Join(names, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConstraintViolation) Unwrap() error { return e.Err }

// SyncFetchError aborts a sync cycle before any store mutation.
type SyncFetchError struct {
	Source string
	Err    error
}

func (e *SyncFetchError) Error() string {
	return fmt.Sprintf("fetch from %s: %v", e.Source, e.Err)
}

func (e *SyncFetchError) Unwrap() error { return e.Err }

// SyncParseError aborts a sync cycle when the payload cannot be decoded.
type SyncParseError struct {
	Source string
	Err    error
}

func (e *SyncParseError) Error() string {
	return fmt.Sprintf("parse %s payload: %v", e.Source, e.Err)
}

func (e *SyncParseError) Unwrap() error { return e.Err }

// PushError is logged when the companion push fails. It never fails a cycle.
type PushError struct {
	Err error
}

func (e *PushError) Error() string { return fmt.Sprintf("companion push: %v", e.Err) }

func (e *PushError) Unwrap() error { return e.Err }

// NotifyError is logged when the notification cannot be shown. It never fails a cycle.
type NotifyError struct {
	Err error
}

func (e *NotifyError) Error() string { return fmt.Sprintf("notify: %v", e.Err) }

func (e *NotifyError) Unwrap() error { return e.Err }
