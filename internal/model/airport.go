package model

// Airport is a row in `airports`. Coordinates are optional; a flight
// between airports without coordinates is priced without distance.
type Airport struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (a Airport) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Store is a retail outlet operating inside an airport.
type Store struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Place       string `json:"place"`
	StoreType   string `json:"store_type"`
	ProductType string `json:"product_type"`
	AirportID   string `json:"airport_id"`
}
