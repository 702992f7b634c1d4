// Package booking implements the flight catalog, fare calculator and the
// booking and cancellation engines. All seat inventory changes run inside
// a Store transaction that holds the flight's lock, so available_seats
// always equals total_seats minus the confirmed tickets of the flight.
package booking

import "github.com/iliyamo/airport-booking/internal/repository"

// Store is the transactional store the engines run against; the MySQL
// store and memstore both satisfy it.
type Store = repository.TxStore

// Tx is the surface of one unit of work.
type Tx = repository.Tx
