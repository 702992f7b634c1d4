package booking_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/airport-booking/internal/booking"
	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/repository"
	"github.com/iliyamo/airport-booking/internal/repository/memstore"
)

func f64(v float64) *float64 { return &v }

type fixture struct {
	store   *memstore.Store
	catalog *booking.Catalog
	fares   *booking.FareCalculator
	engine  *booking.Engine
	logs    *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memstore.New()
	s.PutAirport(model.Airport{ID: "DEL", Name: "Indira Gandhi", City: "Delhi", Country: "India", Latitude: f64(28.5562), Longitude: f64(77.1000)})
	s.PutAirport(model.Airport{ID: "BOM", Name: "Chhatrapati Shivaji", City: "Mumbai", Country: "India", Latitude: f64(19.0896), Longitude: f64(72.8656)})

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hook := test.NewLocal(logger)

	fares := booking.NewFareCalculator(s, booking.DefaultFarePolicy())
	return &fixture{
		store:   s,
		catalog: booking.NewCatalog(s),
		fares:   fares,
		engine:  booking.NewEngine(s, fares, booking.DefaultPolicy(), nil, logger),
		logs:    hook,
	}
}

func (fx *fixture) flight(t *testing.T, number string, seats int) {
	t.Helper()
	_, err := fx.catalog.CreateFlight(context.Background(), booking.FlightSpec{
		FlightNumber:     number,
		DepartureAirport: "DEL",
		ArrivalAirport:   "BOM",
		FlightDate:       time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		DepartureTime:    9 * time.Hour,
		ArrivalTime:      11*time.Hour + 10*time.Minute,
		TotalSeats:       seats,
	})
	require.NoError(t, err)
}

func (fx *fixture) available(t *testing.T, number string) int {
	t.Helper()
	f, err := fx.catalog.GetFlight(context.Background(), number)
	require.NoError(t, err)
	return f.AvailableSeats
}

func (fx *fixture) confirmed(t *testing.T, number string) int {
	t.Helper()
	n, err := fx.engine.TicketsSold(context.Background(), number)
	require.NoError(t, err)
	return n
}

func req(email, flight, seat, class string) booking.BookingRequest {
	return booking.BookingRequest{Name: "Pax " + seat, Email: email, FlightNumber: flight, SeatNumber: seat, SeatClass: class}
}

func TestBookAndCancelScenario(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI101", 2)
	ctx := context.Background()

	t1, err := fx.engine.Book(ctx, req("a@example.com", "AI101", "1A", "Economy"))
	require.NoError(t, err)
	assert.Equal(t, 1, fx.available(t, "AI101"))
	assert.Equal(t, model.BookingConfirmed, t1.BookingStatus)
	assert.Positive(t, t1.PriceCents)

	_, err = fx.engine.Book(ctx, req("b@example.com", "AI101", "1B", "economy"))
	require.NoError(t, err)
	assert.Equal(t, 0, fx.available(t, "AI101"))

	_, err = fx.engine.Book(ctx, req("c@example.com", "AI101", "1C", "Economy"))
	assert.ErrorIs(t, err, booking.ErrConflict)
	assert.ErrorIs(t, err, booking.ErrSoldOut)
	assert.Equal(t, 0, fx.available(t, "AI101"))

	c, err := fx.engine.Cancel(ctx, t1.OrderNumber, "change of plans")
	require.NoError(t, err)
	assert.Equal(t, booking.Refund(t1.PriceCents, 0.8), c.RefundCents)
	assert.Equal(t, 1, fx.available(t, "AI101"))

	got, err := fx.engine.GetTicket(ctx, t1.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.BookingStatus)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, "change of plans", *got.CancellationReason)

	logs := fx.store.Cancellations()
	require.Len(t, logs, 1)
	assert.Equal(t, c.RefundCents, logs[0].RefundCents)
}

func TestPriceRisesWithOccupancy(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI200", 2)
	ctx := context.Background()

	before, err := fx.fares.Price(ctx, "AI200", "Economy")
	require.NoError(t, err)
	_, err = fx.engine.Book(ctx, req("a@example.com", "AI200", "1A", "Economy"))
	require.NoError(t, err)
	_, err = fx.engine.Book(ctx, req("b@example.com", "AI200", "1B", "Economy"))
	require.NoError(t, err)
	after, err := fx.fares.Price(ctx, "AI200", "Economy")
	require.NoError(t, err)
	assert.Less(t, before, after)

	_, err = fx.fares.Price(ctx, "AI200", "Premium")
	assert.ErrorIs(t, err, booking.ErrInvalidSeatClass)
}

func TestNoOversellUnderConcurrency(t *testing.T) {
	const seats = 20
	fx := newFixture(t)
	fx.flight(t, "AI300", seats)

	var wg sync.WaitGroup
	var ok, conflicts, other atomic.Int32
	start := make(chan struct{})
	for i := 0; i < seats+1; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := fx.engine.Book(context.Background(),
				req(fmt.Sprintf("p%d@example.com", i), "AI300", fmt.Sprintf("%dA", i+1), "Economy"))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, booking.ErrConflict):
				conflicts.Add(1)
			default:
				other.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(seats), ok.Load())
	assert.Equal(t, int32(1), conflicts.Load())
	assert.Zero(t, other.Load())
	assert.Equal(t, 0, fx.available(t, "AI300"))
	assert.Equal(t, seats, fx.confirmed(t, "AI300"))
}

func TestSameSeatRaceHasOneWinner(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI301", 10)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := fx.engine.Book(context.Background(),
				req(fmt.Sprintf("s%d@example.com", i), "AI301", "7C", "Business")); err == nil {
				ok.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, 9, fx.available(t, "AI301"))
}

func TestFailureAfterSeatDecrementLeavesNoTrace(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI400", 3)
	boom := errors.New("injected")
	booking.SetAfterSeatAdjust(fx.engine, func(op string) error {
		if op == "book" {
			return boom
		}
		return nil
	})

	_, err := fx.engine.Book(context.Background(), req("x@example.com", "AI400", "2B", "First"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, fx.available(t, "AI400"))
	assert.Equal(t, 0, fx.confirmed(t, "AI400"))
}

func TestFailureDuringCancelKeepsTicket(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI401", 3)
	tk, err := fx.engine.Book(context.Background(), req("x@example.com", "AI401", "2B", "Economy"))
	require.NoError(t, err)

	booking.SetAfterSeatAdjust(fx.engine, func(op string) error {
		if op == "cancel" {
			return errors.New("injected")
		}
		return nil
	})
	_, err = fx.engine.Cancel(context.Background(), tk.OrderNumber, "nope")
	require.Error(t, err)

	got, err := fx.engine.GetTicket(context.Background(), tk.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.BookingStatus)
	assert.Equal(t, 2, fx.available(t, "AI401"))
	assert.Empty(t, fx.store.Cancellations())
}

func TestRoundTripRestoresSeats(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI500", 5)
	ctx := context.Background()

	tk, err := fx.engine.Book(ctx, req("r@example.com", "AI500", "3D", "Business"))
	require.NoError(t, err)
	_, err = fx.engine.Cancel(ctx, tk.OrderNumber, "")
	require.NoError(t, err)
	assert.Equal(t, 5, fx.available(t, "AI500"))
}

func TestCancelTwice(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI600", 2)
	ctx := context.Background()

	tk, err := fx.engine.Book(ctx, req("r@example.com", "AI600", "1A", "Economy"))
	require.NoError(t, err)
	_, err = fx.engine.Cancel(ctx, tk.OrderNumber, "first")
	require.NoError(t, err)

	_, err = fx.engine.Cancel(ctx, tk.OrderNumber, "second")
	assert.ErrorIs(t, err, booking.ErrAlreadyCancelled)
	assert.Equal(t, 2, fx.available(t, "AI600"))

	_, err = fx.engine.Cancel(ctx, "TKT-UNKNOWN", "x")
	assert.ErrorIs(t, err, booking.ErrTicketNotFound)
}

func TestCancelReasonLength(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI610", 2)
	ctx := context.Background()
	tk, err := fx.engine.Book(ctx, req("r@example.com", "AI610", "1A", "Economy"))
	require.NoError(t, err)

	_, err = fx.engine.Cancel(ctx, tk.OrderNumber, strings.Repeat("x", 256))
	assert.ErrorIs(t, err, booking.ErrValidation)
	assert.Equal(t, 1, fx.available(t, "AI610"))

	c, err := fx.engine.Cancel(ctx, tk.OrderNumber, "  "+strings.Repeat("x", 255)+"  ")
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, c.Ticket.BookingStatus)
}

func TestStoreRejectedValueIsValidation(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI620", 2)
	booking.SetAfterSeatAdjust(fx.engine, func(string) error {
		return fmt.Errorf("%w: Error 1406: Data too long for column 'seat_number'", repository.ErrInvalid)
	})
	_, err := fx.engine.Book(context.Background(), req("a@example.com", "AI620", "1A", "Economy"))
	assert.ErrorIs(t, err, booking.ErrValidation)
	assert.Equal(t, 2, fx.available(t, "AI620"))
}

func TestZeroRefundRate(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI630", 2)
	ctx := context.Background()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cases := []struct {
		name   string
		policy booking.Policy
		refund func(price int64) int64
	}{
		{"zero rate refunds nothing", booking.Policy{}, func(int64) int64 { return 0 }},
		{"stock policy", booking.DefaultPolicy(), func(p int64) int64 { return booking.Refund(p, 0.8) }},
	}
	for i, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			eng := booking.NewEngine(fx.store, fx.fares, c.policy, nil, logger)
			tk, err := eng.Book(ctx, req(fmt.Sprintf("z%d@example.com", i), "AI630", fmt.Sprintf("%dA", i+1), "Economy"))
			require.NoError(t, err)
			out, err := eng.Cancel(ctx, tk.OrderNumber, "")
			require.NoError(t, err)
			assert.Equal(t, c.refund(tk.PriceCents), out.RefundCents)
		})
	}
}

func TestDuplicateSeat(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI700", 4)
	ctx := context.Background()

	tk, err := fx.engine.Book(ctx, req("a@example.com", "AI700", "4f", "Economy"))
	require.NoError(t, err)
	assert.Equal(t, "4F", tk.SeatNumber)

	_, err = fx.engine.Book(ctx, req("b@example.com", "AI700", "4F", "Economy"))
	assert.ErrorIs(t, err, booking.ErrSeatTaken)
	assert.Equal(t, 3, fx.available(t, "AI700"))

	// same label in another cabin is a different seat
	_, err = fx.engine.Book(ctx, req("b@example.com", "AI700", "4F", "First"))
	require.NoError(t, err)

	_, err = fx.engine.Cancel(ctx, tk.OrderNumber, "swap")
	require.NoError(t, err)
	_, err = fx.engine.Book(ctx, req("c@example.com", "AI700", "4F", "Economy"))
	require.NoError(t, err)
	assert.Equal(t, 2, fx.available(t, "AI700"))
}

func TestDuplicateOrderNumber(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI701", 4)
	booking.SetOrderIDs(fx.engine, func() string { return "TKT-FIXED" })
	ctx := context.Background()

	_, err := fx.engine.Book(ctx, req("a@example.com", "AI701", "1A", "Economy"))
	require.NoError(t, err)
	_, err = fx.engine.Book(ctx, req("a@example.com", "AI701", "1B", "Economy"))
	assert.ErrorIs(t, err, booking.ErrDuplicateOrder)
	assert.Equal(t, 3, fx.available(t, "AI701"))
}

func TestBookValidation(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI800", 4)
	age := 131
	pid := int64(999)

	cases := []struct {
		name string
		req  booking.BookingRequest
		want error
	}{
		{"missing seat", req("a@example.com", "AI800", "", "Economy"), booking.ErrValidation},
		{"bad class", req("a@example.com", "AI800", "1A", "Premium"), booking.ErrInvalidSeatClass},
		{"bad email", req("nobody", "AI800", "1A", "Economy"), booking.ErrValidation},
		{"bad age", booking.BookingRequest{Name: "A", Email: "a@example.com", Age: &age, FlightNumber: "AI800", SeatNumber: "1A", SeatClass: "Economy"}, booking.ErrValidation},
		{"unknown flight", req("a@example.com", "ZZ999", "1A", "Economy"), booking.ErrFlightNotFound},
		{"unknown passenger id", booking.BookingRequest{PassengerID: &pid, FlightNumber: "AI800", SeatNumber: "1A", SeatClass: "Economy"}, booking.ErrPassengerNotFound},
		{"flight number too long", req("a@example.com", "AI800000000", "1A", "Economy"), booking.ErrValidation},
		{"seat too long", req("a@example.com", "AI800", "123456789A", "Economy"), booking.ErrValidation},
		{"name too long", booking.BookingRequest{Name: strings.Repeat("n", 121), Email: "a@example.com", FlightNumber: "AI800", SeatNumber: "1A", SeatClass: "Economy"}, booking.ErrValidation},
		{"email too long", req(strings.Repeat("e", 180)+"@example.com", "AI800", "1A", "Economy"), booking.ErrValidation},
		{"phone too long", booking.BookingRequest{Name: "A", Email: "a@example.com", Phone: strings.Repeat("9", 33), FlightNumber: "AI800", SeatNumber: "1A", SeatClass: "Economy"}, booking.ErrValidation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := fx.engine.Book(context.Background(), c.req)
			assert.ErrorIs(t, err, c.want)
		})
	}
	assert.Equal(t, 4, fx.available(t, "AI800"))
}

func TestBookRejectsClosedFlightAndWrongCompany(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	company := int64(7)
	_, err := fx.catalog.CreateFlight(ctx, booking.FlightSpec{
		FlightNumber: "AI900", DepartureAirport: "DEL", ArrivalAirport: "BOM",
		FlightDate: time.Date(2026, 12, 2, 0, 0, 0, 0, time.UTC), TotalSeats: 3, FlightCompanyID: &company,
	})
	require.NoError(t, err)

	other := int64(8)
	r := req("a@example.com", "AI900", "1A", "Economy")
	r.FlightCompanyID = &other
	_, err = fx.engine.Book(ctx, r)
	assert.ErrorIs(t, err, booking.ErrValidation)

	require.NoError(t, fx.catalog.SetStatus(ctx, "AI900", model.FlightDeparted))
	_, err = fx.engine.Book(ctx, req("a@example.com", "AI900", "1A", "Economy"))
	assert.ErrorIs(t, err, booking.ErrFlightNotBookable)
}

func TestPassengerReusedByEmail(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI910", 4)
	ctx := context.Background()

	t1, err := fx.engine.Book(ctx, req("Same@Example.com", "AI910", "1A", "Economy"))
	require.NoError(t, err)
	t2, err := fx.engine.Book(ctx, req("same@example.com ", "AI910", "1B", "Economy"))
	require.NoError(t, err)
	assert.Equal(t, t1.PassengerID, t2.PassengerID)

	pid := t1.PassengerID
	t3, err := fx.engine.Book(ctx, booking.BookingRequest{PassengerID: &pid, FlightNumber: "AI910", SeatNumber: "1C", SeatClass: "First"})
	require.NoError(t, err)
	assert.Equal(t, pid, t3.PassengerID)
}

func TestConcurrentFirstBookingsShareOnePassenger(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI911", 10)
	fx.flight(t, "AI912", 10)

	var wg sync.WaitGroup
	ids := make([]int64, 6)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			flight := "AI911"
			if i%2 == 1 {
				flight = "AI912"
			}
			tk, err := fx.engine.Book(context.Background(), req("twin@example.com", flight, fmt.Sprintf("%dB", i), "Economy"))
			if assert.NoError(t, err) {
				ids[i] = tk.PassengerID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestDistinctFlightsDoNotBlock(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI001", 2)
	fx.flight(t, "AI002", 2)

	held := make(chan struct{})
	releaseA := make(chan struct{})
	booking.SetAfterSeatAdjust(fx.engine, func(op string) error {
		select {
		case held <- struct{}{}:
			<-releaseA
		default:
		}
		return nil
	})

	doneA := make(chan error, 1)
	go func() {
		_, err := fx.engine.Book(context.Background(), req("a@example.com", "AI001", "1A", "Economy"))
		doneA <- err
	}()
	<-held

	// A still holds AI001; a booking on AI002 must finish on its own.
	doneB := make(chan error, 1)
	go func() {
		_, err := fx.engine.Book(context.Background(), req("b@example.com", "AI002", "1A", "Economy"))
		doneB <- err
	}()
	select {
	case err := <-doneB:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("booking on AI002 blocked behind AI001")
	}

	close(releaseA)
	require.NoError(t, <-doneA)
	assert.Equal(t, 1, fx.available(t, "AI001"))
	assert.Equal(t, 1, fx.available(t, "AI002"))
}

func TestSameFlightLockTimesOutAsTransient(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI003", 2)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	short := booking.NewEngine(fx.store, fx.fares, booking.Policy{RefundRate: 0.8, TxTimeout: 50 * time.Millisecond, MaxAttempts: 2}, nil, logger)

	held := make(chan struct{})
	releaseA := make(chan struct{})
	booking.SetAfterSeatAdjust(fx.engine, func(string) error {
		close(held)
		<-releaseA
		return nil
	})
	doneA := make(chan error, 1)
	go func() {
		_, err := fx.engine.Book(context.Background(), req("a@example.com", "AI003", "1A", "Economy"))
		doneA <- err
	}()
	<-held

	_, err := short.Book(context.Background(), req("b@example.com", "AI003", "1B", "Economy"))
	assert.ErrorIs(t, err, booking.ErrTransient)

	close(releaseA)
	require.NoError(t, <-doneA)
	assert.Equal(t, 1, fx.available(t, "AI003"))
}

func TestInventoryMismatchIsReported(t *testing.T) {
	fx := newFixture(t)
	fx.store.PutFlight(model.Flight{
		FlightNumber: "BAD1", DepartureAirport: "DEL", ArrivalAirport: "BOM",
		FlightDate: time.Date(2026, 12, 3, 0, 0, 0, 0, time.UTC),
		TotalSeats: 5, AvailableSeats: 3, Status: model.FlightScheduled,
	})

	_, err := fx.engine.Book(context.Background(), req("a@example.com", "BAD1", "1A", "Economy"))
	assert.ErrorIs(t, err, booking.ErrInvariantViolation)
	assert.Equal(t, 3, fx.available(t, "BAD1"))

	entry := fx.logs.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, true, entry.Data["critical"])
}

type recordingSink struct {
	mu        sync.Mutex
	booked    []string
	cancelled []int64
	fail      bool
}

func (r *recordingSink) TicketBooked(_ context.Context, t model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.booked = append(r.booked, t.OrderNumber)
	if r.fail {
		return errors.New("broker down")
	}
	return nil
}

func (r *recordingSink) TicketCancelled(_ context.Context, _ model.Ticket, refund int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, refund)
	return nil
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	fx := newFixture(t)
	fx.flight(t, "AI950", 2)
	sink := &recordingSink{fail: true}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	e := booking.NewEngine(fx.store, fx.fares, booking.DefaultPolicy(), sink, logger)
	ctx := context.Background()

	tk, err := e.Book(ctx, req("a@example.com", "AI950", "1A", "Economy"))
	require.NoError(t, err, "publish failure must not fail the booking")
	c, err := e.Cancel(ctx, tk.OrderNumber, "x")
	require.NoError(t, err)

	_, err = e.Book(ctx, req("a@example.com", "AI950", "1B", "Nope"))
	require.Error(t, err)

	assert.Equal(t, []string{tk.OrderNumber}, sink.booked)
	assert.Equal(t, []int64{c.RefundCents}, sink.cancelled)
}
