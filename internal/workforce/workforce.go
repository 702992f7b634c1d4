// Package workforce holds the airport's staffing rules: hiring, job
// changes, earnings projection, promotion eligibility and payroll.
package workforce

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/repository"
)

// ErrInvalid marks a request that breaks a staffing rule.
var ErrInvalid = errors.New("invalid workforce request")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Repository is the persistence the service needs. Missing rows fail with
// repository.ErrNotFound.
type Repository interface {
	ListWorkers(ctx context.Context, airportID string) ([]model.Worker, error)
	GetWorker(ctx context.Context, id int64) (model.Worker, error)
	InsertWorker(ctx context.Context, w model.Worker) (int64, error)
	UpdateWorkerJob(ctx context.Context, id int64, job string, role model.Role, paymentCents int64) error
	GetStore(ctx context.Context, id int64) (model.Store, error)
	ListStores(ctx context.Context, airportID string) ([]model.Store, error)
	InsertStore(ctx context.Context, s model.Store) (int64, error)
}

// Caller identifies who is performing a request.
type Caller struct {
	Role model.Role
	ID   *int64
}

// HireRequest is the body of POST /workers/hire.
type HireRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Age          int    `json:"age"`
	Job          string `json:"job"`
	Role         string `json:"role"`
	PaymentCents int64  `json:"payment_cents"`
	StoreID      *int64 `json:"store_id"`
	AirportID    string `json:"airport_id"`
}

// JobChange is the body of PATCH /workers/:worker_id/job.
type JobChange struct {
	Job          string `json:"job"`
	Role         string `json:"role"`
	PaymentCents *int64 `json:"payment_cents"`
}

// Earnings is a projected pay figure for a worker.
type Earnings struct {
	WorkerID      int64 `json:"worker_id"`
	Months        int   `json:"months"`
	BonusPercent  int   `json:"bonus_percent"`
	EarningsCents int64 `json:"earnings_cents"`
}

// Promotion reports whether a worker qualifies for promotion.
type Promotion struct {
	WorkerID    int64     `json:"worker_id"`
	Eligible    bool      `json:"eligible"`
	HireDate    time.Time `json:"hire_date"`
	YearsServed float64   `json:"years_served"`
}

// PayrollLine aggregates active workers of one airport.
type PayrollLine struct {
	AirportID           string `json:"airport_id"`
	Workers             int    `json:"workers"`
	TotalPaymentCents   int64  `json:"total_payment_cents"`
	AveragePaymentCents int64  `json:"average_payment_cents"`
}

const (
	minHireAge      = 18
	maxHireAge      = 70
	promotionTenure = 2 // years
	maxPaymentCents = 10_000_000_000

	maxNameLen  = 120
	maxEmailLen = 190
	maxJobLen   = 80
)

func tooLong(s string, n int) bool { return utf8.RuneCountInString(s) > n }

// Service applies staffing rules on top of a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService returns a Service backed by repo.
func NewService(repo Repository) *Service {
	if repo == nil {
		panic("workforce: nil repository")
	}
	return &Service{repo: repo, now: time.Now}
}

// ListWorkers returns workers, optionally restricted to one airport.
func (s *Service) ListWorkers(ctx context.Context, airportID string) ([]model.Worker, error) {
	return s.repo.ListWorkers(ctx, strings.ToUpper(strings.TrimSpace(airportID)))
}

// ListStores returns stores, optionally restricted to one airport.
func (s *Service) ListStores(ctx context.Context, airportID string) ([]model.Store, error) {
	return s.repo.ListStores(ctx, strings.ToUpper(strings.TrimSpace(airportID)))
}

// CreateStore validates and inserts a store.
func (s *Service) CreateStore(ctx context.Context, st model.Store) (model.Store, error) {
	st.Name = strings.TrimSpace(st.Name)
	st.AirportID = strings.ToUpper(strings.TrimSpace(st.AirportID))
	if st.Name == "" || st.AirportID == "" {
		return model.Store{}, invalidf("name and airport_id are required")
	}
	id, err := s.repo.InsertStore(ctx, st)
	if err != nil {
		return model.Store{}, err
	}
	st.ID = id
	return st, nil
}

// Hire validates req for caller and inserts an active worker. Managers
// may only staff stores in their own airport and never hire Admins or
// other Managers.
func (s *Service) Hire(ctx context.Context, caller Caller, req HireRequest) (model.Worker, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Job = strings.TrimSpace(req.Job)
	req.AirportID = strings.ToUpper(strings.TrimSpace(req.AirportID))

	if req.Name == "" {
		return model.Worker{}, invalidf("name is required")
	}
	switch {
	case tooLong(req.Name, maxNameLen):
		return model.Worker{}, invalidf("name must be at most %d characters", maxNameLen)
	case tooLong(req.Job, maxJobLen):
		return model.Worker{}, invalidf("job must be at most %d characters", maxJobLen)
	case tooLong(strings.TrimSpace(req.Email), maxEmailLen):
		return model.Worker{}, invalidf("email must be at most %d characters", maxEmailLen)
	}
	if req.Age < minHireAge || req.Age > maxHireAge {
		return model.Worker{}, invalidf("age must be between %d and %d", minHireAge, maxHireAge)
	}
	if req.PaymentCents <= 0 || req.PaymentCents > maxPaymentCents {
		return model.Worker{}, invalidf("payment must be between 1 and %d cents", int64(maxPaymentCents))
	}
	role, err := resolveRole(req.Role, req.Job)
	if err != nil {
		return model.Worker{}, err
	}

	w := model.Worker{
		Name:         req.Name,
		Age:          req.Age,
		Job:          req.Job,
		PaymentCents: req.PaymentCents,
		Role:         role,
		AirportID:    req.AirportID,
		StoreID:      req.StoreID,
		HireDate:     s.now().UTC().Truncate(24 * time.Hour),
		Status:       model.WorkerActive,
	}
	if e := model.NormalizeEmail(req.Email); e != "" {
		w.Email = &e
	}

	switch caller.Role {
	case model.RoleManager:
		if role == model.RoleAdmin || role == model.RoleManager {
			return model.Worker{}, fmt.Errorf("%w: managers cannot hire %s", repository.ErrForbidden, role)
		}
		if req.StoreID == nil {
			return model.Worker{}, invalidf("manager must specify store_id")
		}
		if caller.ID == nil {
			return model.Worker{}, fmt.Errorf("%w: manager identity missing", repository.ErrForbidden)
		}
		mgr, err := s.repo.GetWorker(ctx, *caller.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return model.Worker{}, fmt.Errorf("%w: manager identity not found", repository.ErrForbidden)
			}
			return model.Worker{}, err
		}
		st, err := s.store(ctx, *req.StoreID)
		if err != nil {
			return model.Worker{}, err
		}
		if st.AirportID != mgr.AirportID {
			return model.Worker{}, fmt.Errorf("%w: store %d is outside your airport", repository.ErrForbidden, st.ID)
		}
		w.AirportID = st.AirportID
		w.SupervisorID = caller.ID
	case model.RoleAdmin:
		if w.AirportID == "" {
			return model.Worker{}, invalidf("airport_id is required")
		}
		if req.StoreID != nil {
			st, err := s.store(ctx, *req.StoreID)
			if err != nil {
				return model.Worker{}, err
			}
			if st.AirportID != w.AirportID {
				return model.Worker{}, invalidf("store %d is not in airport %s", st.ID, w.AirportID)
			}
		}
	default:
		return model.Worker{}, fmt.Errorf("%w: only Admin or Manager can hire", repository.ErrForbidden)
	}

	if (role == model.RoleStoreWorker || role == model.RoleStoreOwner) && w.StoreID == nil {
		return model.Worker{}, invalidf("%s requires store_id", role)
	}

	id, err := s.repo.InsertWorker(ctx, w)
	if err != nil {
		return model.Worker{}, err
	}
	w.ID = id
	return w, nil
}

// ChangeJob updates a worker's title, role and optionally payment. When
// the role is omitted it is inferred from the new title.
func (s *Service) ChangeJob(ctx context.Context, id int64, req JobChange) (model.Worker, error) {
	req.Job = strings.TrimSpace(req.Job)
	if req.Job == "" {
		return model.Worker{}, invalidf("job is required")
	}
	if tooLong(req.Job, maxJobLen) {
		return model.Worker{}, invalidf("job must be at most %d characters", maxJobLen)
	}
	if p := req.PaymentCents; p != nil && (*p <= 0 || *p > maxPaymentCents) {
		return model.Worker{}, invalidf("payment must be between 1 and %d cents", int64(maxPaymentCents))
	}
	w, err := s.repo.GetWorker(ctx, id)
	if err != nil {
		return model.Worker{}, err
	}
	role, err := resolveRole(req.Role, req.Job)
	if err != nil {
		return model.Worker{}, err
	}
	pay := w.PaymentCents
	if req.PaymentCents != nil {
		pay = *req.PaymentCents
	}
	if err := s.repo.UpdateWorkerJob(ctx, id, req.Job, role, pay); err != nil {
		return model.Worker{}, err
	}
	w.Job, w.Role, w.PaymentCents = req.Job, role, pay
	return w, nil
}

// Earnings projects pay over months with a bonus percentage.
func (s *Service) Earnings(ctx context.Context, id int64, months, bonusPercent int) (Earnings, error) {
	if months < 1 || months > 120 {
		return Earnings{}, invalidf("months must be between 1 and 120")
	}
	if bonusPercent < 0 || bonusPercent > 100 {
		return Earnings{}, invalidf("bonus must be between 0 and 100")
	}
	w, err := s.repo.GetWorker(ctx, id)
	if err != nil {
		return Earnings{}, err
	}
	return Earnings{
		WorkerID:      w.ID,
		Months:        months,
		BonusPercent:  bonusPercent,
		EarningsCents: ProjectEarnings(w.PaymentCents, months, bonusPercent),
	}, nil
}

// Promotion reports promotion eligibility as of now.
func (s *Service) Promotion(ctx context.Context, id int64) (Promotion, error) {
	w, err := s.repo.GetWorker(ctx, id)
	if err != nil {
		return Promotion{}, err
	}
	now := s.now()
	return Promotion{
		WorkerID:    w.ID,
		Eligible:    EligibleForPromotion(w, now),
		HireDate:    w.HireDate,
		YearsServed: math.Floor(now.Sub(w.HireDate).Hours()/(24*365.25)*10) / 10,
	}, nil
}

// Payroll aggregates active workers per airport.
func (s *Service) Payroll(ctx context.Context, airportID string) ([]PayrollLine, error) {
	ws, err := s.ListWorkers(ctx, airportID)
	if err != nil {
		return nil, err
	}
	return AggregatePayroll(ws), nil
}

func (s *Service) store(ctx context.Context, id int64) (model.Store, error) {
	st, err := s.repo.GetStore(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return st, invalidf("store %d not found", id)
	}
	return st, err
}

// resolveRole prefers the explicit role and falls back to the job title.
func resolveRole(explicit, job string) (model.Role, error) {
	if strings.TrimSpace(explicit) != "" {
		r, ok := model.ParseRole(explicit)
		if !ok {
			return "", invalidf("unknown role %q", explicit)
		}
		return r, nil
	}
	if r, ok := model.InferRoleFromJob(job); ok {
		return r, nil
	}
	return "", invalidf("role is required when job %q does not imply one", job)
}

// ProjectEarnings is payment × months × (1 + bonus/100), rounded to the
// cent and saturated at math.MaxInt64.
func ProjectEarnings(paymentCents int64, months, bonusPercent int) int64 {
	v := math.Round(float64(paymentCents) * float64(months) * (1 + float64(bonusPercent)/100))
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// EligibleForPromotion requires an active worker hired at least two years
// before now.
func EligibleForPromotion(w model.Worker, now time.Time) bool {
	if w.Status != model.WorkerActive {
		return false
	}
	return !w.HireDate.AddDate(promotionTenure, 0, 0).After(now)
}

// AggregatePayroll sums active workers by airport, ordered by airport id.
func AggregatePayroll(ws []model.Worker) []PayrollLine {
	by := map[string]*PayrollLine{}
	for _, w := range ws {
		if w.Status != model.WorkerActive {
			continue
		}
		l, ok := by[w.AirportID]
		if !ok {
			l = &PayrollLine{AirportID: w.AirportID}
			by[w.AirportID] = l
		}
		l.Workers++
		l.TotalPaymentCents += w.PaymentCents
	}
	out := make([]PayrollLine, 0, len(by))
	for _, l := range by {
		l.AveragePaymentCents = int64(math.Round(float64(l.TotalPaymentCents) / float64(l.Workers)))
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AirportID < out[j].AirportID })
	return out
}
