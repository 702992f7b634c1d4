package main

import (
	"time"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/repository/memstore"
)

func coord(v float64) *float64 { return &v }

// seedDemo fills an in-memory store with a few airports, flights over
// the coming days and one Admin, so STORE_DRIVER=memory is usable
// without a database.
func seedDemo(s *memstore.Store, now time.Time) {
	airports := []model.Airport{
		{ID: "DEL", Name: "Indira Gandhi International", City: "Delhi", Country: "India", Latitude: coord(28.5562), Longitude: coord(77.1000)},
		{ID: "BOM", Name: "Chhatrapati Shivaji Maharaj International", City: "Mumbai", Country: "India", Latitude: coord(19.0896), Longitude: coord(72.8656)},
		{ID: "BLR", Name: "Kempegowda International", City: "Bengaluru", Country: "India", Latitude: coord(13.1986), Longitude: coord(77.7066)},
		{ID: "DXB", Name: "Dubai International", City: "Dubai", Country: "UAE", Latitude: coord(25.2532), Longitude: coord(55.3657)},
	}
	for _, a := range airports {
		s.PutAirport(a)
	}

	day := now.Truncate(24 * time.Hour)
	flights := []struct {
		number, from, to string
		offsetDays       int
		dep, arr         time.Duration
		seats            int
	}{
		{"AI101", "DEL", "BOM", 1, 6 * time.Hour, 8*time.Hour + 10*time.Minute, 180},
		{"AI102", "BOM", "DEL", 1, 19 * time.Hour, 21*time.Hour + 15*time.Minute, 180},
		{"6E305", "BLR", "DEL", 2, 23*time.Hour + 40*time.Minute, 2*time.Hour + 30*time.Minute, 186},
		{"EK511", "DEL", "DXB", 3, 4 * time.Hour, 6*time.Hour + 45*time.Minute, 354},
	}
	for _, f := range flights {
		s.PutFlight(model.Flight{
			FlightNumber:     f.number,
			DepartureAirport: f.from,
			ArrivalAirport:   f.to,
			FlightDate:       day.AddDate(0, 0, f.offsetDays),
			DepartureTime:    f.dep,
			ArrivalTime:      f.arr,
			TotalSeats:       f.seats,
			AvailableSeats:   f.seats,
			Status:           model.FlightScheduled,
			CreatedAt:        now,
		})
	}

	s.PutWorker(model.Worker{
		ID:           1,
		Name:         "Operations Admin",
		Age:          45,
		Job:          "Airport admin",
		PaymentCents: 12_000_000,
		Role:         model.RoleAdmin,
		AirportID:    "DEL",
		HireDate:     day.AddDate(-6, 0, 0),
		Status:       model.WorkerActive,
	})
}
