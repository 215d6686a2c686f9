package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// FailedInsert is the id returned when an insert is rejected.
const FailedInsert int64 = -1

var (
	// ErrEmptyFilter is returned by Delete when no predicate field is set.
	ErrEmptyFilter = errors.New("delete filter has no predicate")

	// ErrUnknownColumn is returned when a projection names a column the table does not have.
	ErrUnknownColumn = errors.New("unknown column")
)

// SchemaError means the store could not be opened with the requested schema.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// isConstraint reports whether err is an SQLite constraint failure.
func isConstraint(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return strings.Contains(err.Error(), "constraint failed")
}

// isRejection reports whether err only carries per-record rejections from a bulk write.
func isRejection(err error) bool {
	var me *multierror.Error
	return errors.As(err, &me)
}
