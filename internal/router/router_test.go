package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/airport-booking/internal/booking"
	"github.com/iliyamo/airport-booking/internal/handler"
	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/report"
	"github.com/iliyamo/airport-booking/internal/repository/memstore"
	"github.com/iliyamo/airport-booking/internal/workforce"
)

func newServer(t *testing.T, opts Options) *echo.Echo {
	t.Helper()
	s := memstore.New()
	s.PutAirport(model.Airport{ID: "DEL", Name: "Indira Gandhi", City: "Delhi", Country: "India"})
	s.PutAirport(model.Airport{ID: "BOM", Name: "Chhatrapati Shivaji", City: "Mumbai", Country: "India"})
	s.PutWorker(model.Worker{ID: 1, Name: "Meera", Age: 41, Job: "Airport manager", PaymentCents: 9_000_000,
		Role: model.RoleManager, AirportID: "DEL", HireDate: time.Now().AddDate(-5, 0, 0), Status: model.WorkerActive})

	logger, _ := test.NewNullLogger()
	fares := booking.NewFareCalculator(s, booking.DefaultFarePolicy())
	engine := booking.NewEngine(s, fares, booking.DefaultPolicy(), nil, logger)
	reports := report.NewService(s)
	staff := workforce.NewService(s)

	e := echo.New()
	Register(e, Handlers{
		Health:     handler.NewHealthHandler(s),
		Flights:    handler.NewFlightHandler(booking.NewCatalog(s), fares, engine),
		Tickets:    handler.NewTicketHandler(engine),
		Passengers: handler.NewPassengerHandler(reports),
		Airports:   handler.NewAirportHandler(s, fares),
		Workers:    handler.NewWorkerHandler(staff),
		Reports:    handler.NewReportHandler(reports, staff),
	}, opts)
	return e
}

func call(e *echo.Echo, method, path, role, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if role != "" {
		req.Header.Set("X-User-Role", role)
		req.Header.Set("X-User-Id", "1")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouteAccess(t *testing.T) {
	e := newServer(t, Options{RoleHeader: "X-User-Role", UserHeader: "X-User-Id"})
	flight := `{"flight_number":"AI7","departure_airport":"DEL","arrival_airport":"BOM",
		"flight_date":"2026-12-01","departure_hour":"06:00","arrival_hour":"08:05","total_seats":10}`

	cases := []struct {
		name   string
		method string
		path   string
		role   string
		body   string
		status int
	}{
		{"health is public", http.MethodGet, "/api/health", "", "", http.StatusOK},
		{"flights are public", http.MethodGet, "/api/flights", "", "", http.StatusOK},
		{"create flight needs role", http.MethodPost, "/api/flights", "", flight, http.StatusUnauthorized},
		{"store worker cannot create flight", http.MethodPost, "/api/flights", "StoreWorker", flight, http.StatusForbidden},
		{"airport staff creates flight", http.MethodPost, "/api/flights", "AirportStaff", flight, http.StatusCreated},
		{"manager lists workers", http.MethodGet, "/api/workers", "Manager", "", http.StatusOK},
		{"manager cannot change jobs", http.MethodPatch, "/api/workers/1/job", "Manager", `{"job":"Director"}`, http.StatusForbidden},
		{"stores are admin only", http.MethodGet, "/api/stores", "manager", "", http.StatusForbidden},
		{"admin lists stores", http.MethodGet, "/api/stores", "admin", "", http.StatusOK},
		{"dashboard needs role", http.MethodGet, "/api/dashboard/stats", "", "", http.StatusUnauthorized},
		{"dashboard for manager", http.MethodGet, "/api/dashboard/stats", "Manager", "", http.StatusOK},
		{"payroll for admin", http.MethodPost, "/api/reports/payroll", "Admin", `{}`, http.StatusOK},
		{"company revenue needs role", http.MethodGet, "/api/flight-companies/7/revenue", "", "", http.StatusUnauthorized},
		{"company revenue hidden from staff", http.MethodGet, "/api/flight-companies/7/revenue", "AirportStaff", "", http.StatusForbidden},
		{"company revenue for manager", http.MethodGet, "/api/flight-companies/7/revenue", "Manager", "", http.StatusOK},
		{"worker count for admin", http.MethodGet, "/api/airports/DEL/workers/count", "Admin", "", http.StatusOK},
		{"worker count hidden from store worker", http.MethodGet, "/api/airports/DEL/workers/count", "StoreWorker", "", http.StatusForbidden},
		{"distance still public", http.MethodGet, "/api/airports/DEL/BOM/distance", "", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/nope", "", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := call(e, tc.method, tc.path, tc.role, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestOptionalMiddlewareIsApplied(t *testing.T) {
	var limited, cached int
	count := func(n *int) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				*n++
				return next(c)
			}
		}
	}
	e := newServer(t, Options{
		RoleHeader: "X-User-Role",
		UserHeader: "X-User-Id",
		RateLimit:  count(&limited),
		Cache:      count(&cached),
	})

	call(e, http.MethodPost, "/api/tickets", "", `{}`)
	call(e, http.MethodPost, "/api/tickets/TKT-1/cancel", "", `{}`)
	call(e, http.MethodGet, "/api/tickets/TKT-1", "", "")
	assert.Equal(t, 2, limited)

	require.Equal(t, http.StatusUnauthorized, call(e, http.MethodGet, "/api/dashboard/stats", "", "").Code)
	assert.Zero(t, cached, "role check runs before the cache")
	call(e, http.MethodGet, "/api/dashboard/stats", "Admin", "")
	assert.Equal(t, 1, cached)
}

func TestWorkerCountRoute(t *testing.T) {
	e := newServer(t, Options{RoleHeader: "X-User-Role", UserHeader: "X-User-Id"})
	rec := call(e, http.MethodGet, "/api/airports/del/workers/count", "Admin", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"airport_id":"DEL","worker_count":1}`, rec.Body.String())
}
