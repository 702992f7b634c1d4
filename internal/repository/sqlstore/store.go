// Package sqlstore is the MySQL implementation of the booking store and of
// the workforce and report repositories. Units of work run at READ
// COMMITTED; the flight row is locked with SELECT ... FOR UPDATE, so
// every statement issued after the lock observes the latest committed
// tickets of that flight.
package sqlstore

import (
	"context"
	"database/sql"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/report"
	"github.com/iliyamo/airport-booking/internal/repository"
	"github.com/iliyamo/airport-booking/internal/workforce"
)

var (
	_ repository.TxStore   = (*Store)(nil)
	_ workforce.Repository = (*Store)(nil)
	_ report.Reader        = (*Store)(nil)
)

// Store wraps a *sql.DB opened by the database package.
type Store struct {
	db *sql.DB
}

// New returns a Store bound to db.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return repository.Classify(s.db.PingContext(ctx))
}

// InTx runs fn inside a database transaction. The transaction commits when
// fn returns nil and is rolled back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return repository.Classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return repository.Classify(err)
	}
	committed = true
	return nil
}

// ListAirports returns every airport ordered by code.
func (s *Store) ListAirports(ctx context.Context) ([]model.Airport, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+airportCols+` FROM airports ORDER BY airport_id`)
	if err != nil {
		return nil, repository.Classify(err)
	}
	defer rows.Close()
	out := []model.Airport{}
	for rows.Next() {
		a, err := scanAirport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, repository.Classify(rows.Err())
}
