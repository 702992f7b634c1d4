package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/repository"
)

// ListWorkers returns workers of one airport, or all of them when
// airportID is empty.
func (s *Store) ListWorkers(ctx context.Context, airportID string) ([]model.Worker, error) {
	q := `SELECT ` + workerCols + ` FROM workers`
	var args []any
	if airportID != "" {
		q += ` WHERE airport_id = ?`
		args = append(args, airportID)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY worker_id`, args...)
	if err != nil {
		return nil, repository.Classify(err)
	}
	defer rows.Close()
	var out []model.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, repository.Classify(rows.Err())
}

func (s *Store) GetWorker(ctx context.Context, id int64) (model.Worker, error) {
	w, err := scanWorker(s.db.QueryRowContext(ctx, `SELECT `+workerCols+` FROM workers WHERE worker_id = ?`, id))
	if err != nil {
		return w, fmt.Errorf("worker %d: %w", id, repository.Classify(err))
	}
	return w, nil
}

func (s *Store) InsertWorker(ctx context.Context, w model.Worker) (int64, error) {
	const q = `INSERT INTO workers (name, email, age, job, payment_cents, role, airport_id,
		store_id, supervisor_id, hire_date, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var email any
	if w.Email != nil {
		email = *w.Email
	}
	res, err := s.db.ExecContext(ctx, q, w.Name, email, w.Age, w.Job, w.PaymentCents, string(w.Role),
		w.AirportID, idArg(w.StoreID), idArg(w.SupervisorID), w.HireDate.Format("2006-01-02"), string(w.Status))
	if err != nil {
		return 0, fmt.Errorf("worker %s: %w", w.Name, repository.Classify(err))
	}
	id, err := res.LastInsertId()
	return id, repository.Classify(err)
}

// UpdateWorkerJob rewrites job, role and pay. MySQL reports zero affected
// rows for an unchanged row, so a miss is confirmed with a lookup.
func (s *Store) UpdateWorkerJob(ctx context.Context, id int64, job string, role model.Role, paymentCents int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE workers SET job = ?, role = ?, payment_cents = ? WHERE worker_id = ?`,
		job, string(role), paymentCents, id)
	if err != nil {
		return repository.Classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := s.GetWorker(ctx, id)
		return err
	}
	return nil
}

func (s *Store) GetStore(ctx context.Context, id int64) (model.Store, error) {
	st, err := scanStore(s.db.QueryRowContext(ctx, `SELECT `+storeCols+` FROM stores WHERE store_id = ?`, id))
	if err != nil {
		return st, fmt.Errorf("store %d: %w", id, repository.Classify(err))
	}
	return st, nil
}

func (s *Store) ListStores(ctx context.Context, airportID string) ([]model.Store, error) {
	q := `SELECT ` + storeCols + ` FROM stores`
	var args []any
	if airportID != "" {
		q += ` WHERE airport_id = ?`
		args = append(args, airportID)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY store_id`, args...)
	if err != nil {
		return nil, repository.Classify(err)
	}
	defer rows.Close()
	var out []model.Store
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, repository.Classify(rows.Err())
}

// InsertStore fails with ErrNotFound when the airport does not exist.
func (s *Store) InsertStore(ctx context.Context, st model.Store) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stores (name, place, store_type, product_type, airport_id) VALUES (?, ?, ?, ?, ?)`,
		st.Name, st.Place, st.StoreType, st.ProductType, st.AirportID)
	if err != nil {
		return 0, fmt.Errorf("store %s: %w", st.Name, repository.Classify(err))
	}
	id, err := res.LastInsertId()
	return id, repository.Classify(err)
}

func idArg(id *int64) any {
	if id == nil {
		return sql.NullInt64{}
	}
	return *id
}
