package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/repository"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), m
}

var (
	day         = time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	flightRow   = []string{"flight_number", "departure_airport", "arrival_airport", "flight_date", "departure_hour", "arrival_hour", "total_seats", "available_seats", "status", "flight_company_id", "created_at"}
	ticketRow   = []string{"order_number", "passenger_id", "flight_number", "seat_number", "seat_class", "price_cents", "booking_status", "booked_at", "cancellation_reason"}
	lockFlight  = regexp.QuoteMeta(`FROM flights WHERE flight_number = ? FOR UPDATE`)
	lockTicket  = regexp.QuoteMeta(`FROM tickets WHERE order_number = ? FOR UPDATE`)
	insertTkt   = regexp.QuoteMeta(`INSERT INTO tickets`)
	markCancel  = regexp.QuoteMeta(`UPDATE tickets SET booking_status = 'Cancelled', cancellation_reason = ? WHERE order_number = ?`)
	errDeadlock = &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
)

func TestInTx(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name   string
		expect func(m sqlmock.Sqlmock)
		fn     func(tx repository.Tx) error
		want   error
	}{
		{
			name:   "commits on success",
			expect: func(m sqlmock.Sqlmock) { m.ExpectBegin(); m.ExpectCommit() },
			fn:     func(repository.Tx) error { return nil },
		},
		{
			name:   "rolls back when fn fails",
			expect: func(m sqlmock.Sqlmock) { m.ExpectBegin(); m.ExpectRollback() },
			fn:     func(repository.Tx) error { return boom },
			want:   boom,
		},
		{
			name:   "deadlock on commit is transient",
			expect: func(m sqlmock.Sqlmock) { m.ExpectBegin(); m.ExpectCommit().WillReturnError(errDeadlock) },
			fn:     func(repository.Tx) error { return nil },
			want:   repository.ErrTransient,
		},
		{
			name:   "begin failure is transient",
			expect: func(m sqlmock.Sqlmock) { m.ExpectBegin().WillReturnError(mysql.ErrInvalidConn) },
			fn:     func(repository.Tx) error { return errors.New("fn must not run") },
			want:   repository.ErrTransient,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, m := newMock(t)
			c.expect(m)
			err := s.InTx(context.Background(), c.fn)
			if c.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, c.want)
			}
			assert.NoError(t, m.ExpectationsWereMet())
		})
	}
}

func TestTxStatements(t *testing.T) {
	ticket := model.Ticket{
		OrderNumber: "TKT-1", PassengerID: 3, FlightNumber: "AI101", SeatNumber: "12A",
		SeatClass: model.Economy, PriceCents: 845000, BookingStatus: model.BookingConfirmed, BookedAt: day,
	}
	cases := []struct {
		name   string
		expect func(m sqlmock.Sqlmock)
		run    func(ctx context.Context, tx repository.Tx) error
		want   error
	}{
		{
			name: "lock flight takes a row lock",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(lockFlight).WithArgs("AI101").WillReturnRows(sqlmock.NewRows(flightRow).
					AddRow("AI101", "DEL", "BOM", day, "09:00:00", "11:10:00", 180, 179, "scheduled", nil, day))
			},
			run: func(ctx context.Context, tx repository.Tx) error {
				f, err := tx.LockFlight(ctx, "AI101")
				if err == nil && (f.AvailableSeats != 179 || f.DepartureTime != 9*time.Hour) {
					return errors.New("unexpected flight row")
				}
				return err
			},
		},
		{
			name: "lock of missing flight is not found",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(lockFlight).WithArgs("ZZ1").WillReturnRows(sqlmock.NewRows(flightRow))
			},
			run: func(ctx context.Context, tx repository.Tx) error {
				_, err := tx.LockFlight(ctx, "ZZ1")
				return err
			},
			want: repository.ErrNotFound,
		},
		{
			name: "deadlock on flight lock is transient",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(lockFlight).WithArgs("AI101").WillReturnError(errDeadlock)
			},
			run: func(ctx context.Context, tx repository.Tx) error {
				_, err := tx.LockFlight(ctx, "AI101")
				return err
			},
			want: repository.ErrTransient,
		},
		{
			name: "lock ticket takes a row lock",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(lockTicket).WithArgs("TKT-1").WillReturnRows(sqlmock.NewRows(ticketRow).
					AddRow("TKT-1", 3, "AI101", "12A", "Economy", 845000, "Confirmed", day, nil))
			},
			run: func(ctx context.Context, tx repository.Tx) error {
				tk, err := tx.LockTicket(ctx, "TKT-1")
				if err == nil && tk.CancellationReason != nil {
					return errors.New("unexpected reason")
				}
				return err
			},
		},
		{
			name: "sold seat is a duplicate",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(insertTkt).WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'AI101-Economy:12A'"})
			},
			run:  func(ctx context.Context, tx repository.Tx) error { return tx.InsertTicket(ctx, ticket) },
			want: repository.ErrDuplicate,
		},
		{
			name: "value wider than its column is invalid",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(insertTkt).WillReturnError(&mysql.MySQLError{Number: 1406, Message: "Data too long for column 'seat_number'"})
			},
			run:  func(ctx context.Context, tx repository.Tx) error { return tx.InsertTicket(ctx, ticket) },
			want: repository.ErrInvalid,
		},
		{
			name: "cancel updates the ticket",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(markCancel).WithArgs("sick", "TKT-1").WillReturnResult(sqlmock.NewResult(0, 1))
			},
			run: func(ctx context.Context, tx repository.Tx) error { return tx.MarkTicketCancelled(ctx, "TKT-1", "sick") },
		},
		{
			name: "cancel of missing ticket is not found",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(markCancel).WithArgs("sick", "TKT-2").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			run:  func(ctx context.Context, tx repository.Tx) error { return tx.MarkTicketCancelled(ctx, "TKT-2", "sick") },
			want: repository.ErrNotFound,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, m := newMock(t)
			m.ExpectBegin()
			c.expect(m)
			if c.want == nil {
				m.ExpectCommit()
			} else {
				m.ExpectRollback()
			}
			err := s.InTx(context.Background(), func(tx repository.Tx) error {
				return c.run(context.Background(), tx)
			})
			if c.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, c.want)
			}
			assert.NoError(t, m.ExpectationsWereMet())
		})
	}
}
