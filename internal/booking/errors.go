package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/airport-booking/internal/repository"
)

// Error kinds. Every error returned by this package matches exactly one
// of them under errors.Is; handlers map kinds to status codes.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrTransient          = errors.New("transient store error")
	ErrInvariantViolation = errors.New("seat inventory invariant violated")
)

// kindError is a concrete failure that unwraps to its kind.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, msg string) error { return &kindError{msg: msg, kind: kind} }

var (
	ErrFlightNotFound    = newKind(ErrNotFound, "flight not found")
	ErrTicketNotFound    = newKind(ErrNotFound, "ticket not found")
	ErrPassengerNotFound = newKind(ErrNotFound, "passenger not found")

	ErrFlightNotBookable = newKind(ErrConflict, "flight is not open for booking")
	ErrSoldOut           = newKind(ErrConflict, "flight is sold out")
	ErrAlreadyCancelled  = newKind(ErrConflict, "ticket is already cancelled")
	ErrDuplicateOrder    = newKind(ErrConflict, "order number already exists")
	ErrSeatTaken         = newKind(ErrConflict, "seat is already booked")
	ErrInvalidTransition = newKind(ErrConflict, "invalid flight status transition")
	ErrCapacityExceeded  = newKind(ErrConflict, "seat count out of range")

	ErrInvalidSeatClass = newKind(ErrValidation, "invalid seat class")
	ErrDuplicateFlight  = newKind(ErrValidation, "flight number already exists")
)

// validationf builds a one-off validation error.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// storeErr folds store and context failures into the taxonomy. Errors
// that already carry a kind pass through untouched.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrTransient, ErrInvariantViolation} {
		if errors.Is(err, k) {
			return err
		}
	}
	if errors.Is(err, repository.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if errors.Is(err, repository.ErrInvalid) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return err
}
