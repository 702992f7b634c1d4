// Package repository defines error types that are reused across multiple
// repositories and store implementations. These sentinel values let the
// booking engine and handlers distinguish between failure scenarios
// without inspecting driver errors. ErrTransient in particular marks
// failures where retrying the whole unit of work is safe.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key, such as
// a second passenger with the same email or a seat that is already sold.
var ErrDuplicate = errors.New("duplicate")

// ErrTransient marks lock wait timeouts, deadlocks, dropped connections
// and expired deadlines. The caller may retry the whole transaction.
var ErrTransient = errors.New("transient store failure")

// ErrForbidden is returned when the caller attempts an operation
// on a resource outside its scope, e.g. a manager hiring for a store
// in another airport. Handlers should translate this into a 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be applied because
// of conflicting state. Handlers should translate this into a 409.
var ErrConflict = errors.New("conflict")

// ErrInvalid is returned when the store rejects a value itself, e.g. a
// string wider than its column. Handlers should translate this into a 400.
var ErrInvalid = errors.New("invalid value")

// MySQL server error numbers we classify.
const (
	mysqlDuplicateEntry  = 1062
	mysqlDataTooLong     = 1406
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	mysqlNoReferencedRow = 1452
)

// Classify maps a driver error onto the package sentinels, keeping the
// original error in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %w", ErrDuplicate, err)
		case mysqlLockWaitTimeout, mysqlDeadlock:
			return fmt.Errorf("%w: %w", ErrTransient, err)
		case mysqlNoReferencedRow:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case mysqlDataTooLong:
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		return err
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}
