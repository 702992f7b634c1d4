package booking

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/repository"
)

// Policy bounds each booking or cancellation unit of work.
type Policy struct {
	RefundRate  float64       // fraction of the price returned on cancel
	TxTimeout   time.Duration // deadline of one attempt
	MaxAttempts int           // attempts on transient store failures
}

// DefaultPolicy is the stock policy. NewEngine falls back to its
// TxTimeout and MaxAttempts when those are not positive; RefundRate is
// taken as given, so zero means cancellations refund nothing.
func DefaultPolicy() Policy {
	return Policy{RefundRate: 0.8, TxTimeout: 5 * time.Second, MaxAttempts: 3}
}

// EventSink receives committed ticket changes. Failures are logged by
// the engine and never undo the change.
type EventSink interface {
	TicketBooked(ctx context.Context, t model.Ticket) error
	TicketCancelled(ctx context.Context, t model.Ticket, refundCents int64) error
}

// BookingRequest carries the passenger and seat selection of POST /tickets.
type BookingRequest struct {
	PassengerID     *int64
	Name            string
	Email           string
	Phone           string
	Age             *int
	FlightNumber    string
	SeatNumber      string
	SeatClass       string
	FlightCompanyID *int64
}

// Cancellation is the outcome of a successful cancel.
type Cancellation struct {
	Ticket      model.Ticket
	RefundCents int64
}

// hooks lets tests inject failures between steps of a unit of work.
type hooks struct {
	afterSeatAdjust func(op string) error
}

// Engine books and cancels tickets. Every call runs as one unit of work
// that locks the flight row before touching its seat counter.
type Engine struct {
	store   Store
	fares   *FareCalculator
	policy  Policy
	events  EventSink
	logger  *logrus.Logger
	orderID func() string
	hooks   hooks
}

// NewEngine wires the engine. events may be nil.
func NewEngine(store Store, fares *FareCalculator, policy Policy, events EventSink, logger *logrus.Logger) *Engine {
	if store == nil || fares == nil || logger == nil {
		panic("booking: NewEngine requires store, fares and logger")
	}
	def := DefaultPolicy()
	if policy.TxTimeout <= 0 {
		policy.TxTimeout = def.TxTimeout
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	return &Engine{
		store:   store,
		fares:   fares,
		policy:  policy,
		events:  events,
		logger:  logger,
		orderID: NewOrderNumber,
	}
}

// NewOrderNumber returns TKT- followed by 32 upper-case hex digits of a
// random UUID.
func NewOrderNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Refund applies rate to price, rounding half up.
func Refund(priceCents int64, rate float64) int64 {
	return int64(math.Floor(float64(priceCents)*rate + 0.5))
}

// Book sells one seat. On success the returned ticket is committed and
// the flight's available seats have been decremented in the same unit.
func (e *Engine) Book(ctx context.Context, req BookingRequest) (model.Ticket, error) {
	class, err := validateBooking(&req)
	if err != nil {
		return model.Ticket{}, err
	}

	var t model.Ticket
	err = e.run(ctx, "book", func(ctx context.Context, tx Tx) error {
		passengerID, err := e.resolvePassenger(ctx, tx, req)
		if err != nil {
			return err
		}

		f, err := lockFlight(ctx, tx, req.FlightNumber)
		if err != nil {
			return err
		}
		if !f.Status.Bookable() {
			return ErrFlightNotBookable
		}
		if req.FlightCompanyID != nil && f.FlightCompanyID != nil && *req.FlightCompanyID != *f.FlightCompanyID {
			return validationf("flight %s is not operated by company %d", f.FlightNumber, *req.FlightCompanyID)
		}

		price, err := e.fares.priceTx(ctx, tx, f, class)
		if err != nil {
			return err
		}

		taken, err := tx.SeatTaken(ctx, f.FlightNumber, class, req.SeatNumber)
		if err != nil {
			return err
		}
		if taken {
			return ErrSeatTaken
		}

		if _, err := adjustSeats(ctx, tx, f.FlightNumber, -1); err != nil {
			if errors.Is(err, ErrCapacityExceeded) {
				return ErrSoldOut
			}
			return err
		}
		if err := e.hook("book"); err != nil {
			return err
		}

		t = model.Ticket{
			OrderNumber:   e.orderID(),
			PassengerID:   passengerID,
			FlightNumber:  f.FlightNumber,
			SeatNumber:    req.SeatNumber,
			SeatClass:     class,
			PriceCents:    price,
			BookingStatus: model.BookingConfirmed,
			BookedAt:      time.Now().UTC(),
		}
		if err := tx.InsertTicket(ctx, t); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				if taken, terr := tx.SeatTaken(ctx, f.FlightNumber, class, req.SeatNumber); terr == nil && taken {
					return ErrSeatTaken
				}
				return ErrDuplicateOrder
			}
			return err
		}
		return e.checkInventory(ctx, tx, f.FlightNumber)
	})
	if err != nil {
		return model.Ticket{}, err
	}

	e.logger.WithFields(logrus.Fields{
		"order_number":  t.OrderNumber,
		"flight_number": t.FlightNumber,
		"seat":          t.SeatNumber,
		"seat_class":    t.SeatClass,
		"price_cents":   t.PriceCents,
	}).Info("ticket booked")
	if e.events != nil {
		if perr := e.events.TicketBooked(ctx, t); perr != nil {
			e.logger.WithError(perr).WithField("order_number", t.OrderNumber).Warn("publish ticket.booked failed")
		}
	}
	return t, nil
}

// Cancel voids a confirmed ticket, returns its seat to inventory and
// reports the refund owed.
func (e *Engine) Cancel(ctx context.Context, orderNumber, reason string) (Cancellation, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return Cancellation{}, validationf("order_number is required")
	}
	reason = strings.TrimSpace(reason)
	if tooLong(reason, maxReasonLen) {
		return Cancellation{}, validationf("reason must be at most %d characters", maxReasonLen)
	}

	var out Cancellation
	err := e.run(ctx, "cancel", func(ctx context.Context, tx Tx) error {
		t, err := tx.GetTicket(ctx, orderNumber)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTicketNotFound
			}
			return err
		}
		// Flight first, then ticket: same lock order as Book.
		if _, err := lockFlight(ctx, tx, t.FlightNumber); err != nil {
			return err
		}
		if t, err = tx.LockTicket(ctx, orderNumber); err != nil {
			return err
		}
		if t.BookingStatus == model.BookingCancelled {
			return ErrAlreadyCancelled
		}

		refund := Refund(t.PriceCents, e.policy.RefundRate)
		if err := tx.MarkTicketCancelled(ctx, orderNumber, reason); err != nil {
			return err
		}
		if _, err := adjustSeats(ctx, tx, t.FlightNumber, +1); err != nil {
			return err
		}
		if err := e.hook("cancel"); err != nil {
			return err
		}
		if err := tx.InsertCancellationLog(ctx, model.CancellationLog{
			OrderNumber:  orderNumber,
			FlightNumber: t.FlightNumber,
			Reason:       reason,
			RefundCents:  refund,
			CancelledAt:  time.Now().UTC(),
		}); err != nil {
			return err
		}
		if err := e.checkInventory(ctx, tx, t.FlightNumber); err != nil {
			return err
		}

		t.BookingStatus = model.BookingCancelled
		t.CancellationReason = &reason
		out = Cancellation{Ticket: t, RefundCents: refund}
		return nil
	})
	if err != nil {
		return Cancellation{}, err
	}

	e.logger.WithFields(logrus.Fields{
		"order_number":  orderNumber,
		"flight_number": out.Ticket.FlightNumber,
		"refund_cents":  out.RefundCents,
	}).Info("ticket cancelled")
	if e.events != nil {
		if perr := e.events.TicketCancelled(ctx, out.Ticket, out.RefundCents); perr != nil {
			e.logger.WithError(perr).WithField("order_number", orderNumber).Warn("publish ticket.cancelled failed")
		}
	}
	return out, nil
}

// GetTicket reads a committed ticket.
func (e *Engine) GetTicket(ctx context.Context, orderNumber string) (model.Ticket, error) {
	var t model.Ticket
	err := e.store.InTx(ctx, func(tx Tx) error {
		var err error
		t, err = tx.GetTicket(ctx, strings.TrimSpace(orderNumber))
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTicketNotFound
		}
		return err
	})
	return t, storeErr(err)
}

// TicketsSold counts confirmed tickets of a flight.
func (e *Engine) TicketsSold(ctx context.Context, flightNumber string) (int, error) {
	var n int
	err := e.store.InTx(ctx, func(tx Tx) error {
		f, err := getFlight(ctx, tx, flightNumber)
		if err != nil {
			return err
		}
		n, err = tx.CountConfirmedTickets(ctx, f.FlightNumber)
		return err
	})
	return n, storeErr(err)
}

// run executes fn in a fresh unit of work per attempt and retries the
// whole unit while the failure is transient.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, e.policy.TxTimeout)
		err = storeErr(e.store.InTx(actx, func(tx Tx) error { return fn(actx, tx) }))
		cancel()
		if err == nil || !errors.Is(err, ErrTransient) || ctx.Err() != nil {
			return err
		}
		e.logger.WithError(err).WithFields(logrus.Fields{"op": op, "attempt": attempt}).Warn("retrying unit of work")
		select {
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		case <-ctx.Done():
			return err
		}
	}
	return err
}

// checkInventory recounts confirmed tickets and compares them with the
// locked flight's counter.
func (e *Engine) checkInventory(ctx context.Context, tx Tx, flightNumber string) error {
	f, err := lockFlight(ctx, tx, flightNumber)
	if err != nil {
		return err
	}
	sold, err := tx.CountConfirmedTickets(ctx, flightNumber)
	if err != nil {
		return err
	}
	if f.AvailableSeats != f.TotalSeats-sold {
		e.logger.WithFields(logrus.Fields{
			"critical":        true,
			"flight_number":   flightNumber,
			"total_seats":     f.TotalSeats,
			"available_seats": f.AvailableSeats,
			"confirmed":       sold,
		}).Error("seat inventory mismatch")
		return ErrInvariantViolation
	}
	return nil
}

func (e *Engine) hook(op string) error {
	if e.hooks.afterSeatAdjust == nil {
		return nil
	}
	return e.hooks.afterSeatAdjust(op)
}

// resolvePassenger returns the id of an existing passenger or creates one
// from the request. A concurrent insert of the same email is resolved by
// reading the winner's row.
func (e *Engine) resolvePassenger(ctx context.Context, tx Tx, req BookingRequest) (int64, error) {
	if req.PassengerID != nil {
		p, err := tx.GetPassenger(ctx, *req.PassengerID)
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrPassengerNotFound
		}
		return p.ID, err
	}
	p, err := tx.FindPassengerByEmail(ctx, req.Email)
	if err == nil {
		return p.ID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}
	id, err := tx.InsertPassenger(ctx, model.Passenger{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Age:       req.Age,
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		p, err = tx.FindPassengerByEmail(ctx, req.Email)
		return p.ID, err
	}
	return id, err
}

// Widths of the stored columns. Longer input is rejected up front
// instead of failing the insert.
const (
	maxFlightNumberLen = 10
	maxSeatLen         = 8
	maxNameLen         = 120
	maxEmailLen        = 190
	maxPhoneLen        = 32
	maxReasonLen       = 255
)

func tooLong(s string, n int) bool { return utf8.RuneCountInString(s) > n }

// validateBooking normalizes req in place and returns the parsed class.
func validateBooking(req *BookingRequest) (model.SeatClass, error) {
	req.FlightNumber = strings.ToUpper(strings.TrimSpace(req.FlightNumber))
	req.SeatNumber = model.NormalizeSeat(req.SeatNumber)
	req.Email = model.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.FlightNumber == "" || req.SeatNumber == "" || strings.TrimSpace(req.SeatClass) == "" {
		return "", validationf("flight_number, seat_number and seat_class are required")
	}
	class, ok := model.ParseSeatClass(req.SeatClass)
	if !ok {
		return "", ErrInvalidSeatClass
	}
	switch {
	case tooLong(req.FlightNumber, maxFlightNumberLen):
		return "", validationf("flight_number must be at most %d characters", maxFlightNumberLen)
	case tooLong(req.SeatNumber, maxSeatLen):
		return "", validationf("seat_number must be at most %d characters", maxSeatLen)
	case tooLong(req.Name, maxNameLen):
		return "", validationf("passenger_name must be at most %d characters", maxNameLen)
	case tooLong(req.Email, maxEmailLen):
		return "", validationf("email must be at most %d characters", maxEmailLen)
	case tooLong(req.Phone, maxPhoneLen):
		return "", validationf("phone must be at most %d characters", maxPhoneLen)
	}
	if req.PassengerID == nil {
		if req.Name == "" || req.Email == "" {
			return "", validationf("passenger_name and email are required")
		}
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		return "", validationf("email is not a valid address")
	}
	if req.Age != nil && (*req.Age < 0 || *req.Age > 130) {
		return "", validationf("age must be between 0 and 130")
	}
	return class, nil
}
