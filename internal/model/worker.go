package model

import (
	"strings"
	"time"
)

// Role is the privilege level of a worker. Callers present it in the
// role header; comparison is case-insensitive.
type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleManager      Role = "Manager"
	RoleStoreOwner   Role = "StoreOwner"
	RoleAirportStaff Role = "AirportStaff"
	RoleStoreWorker  Role = "StoreWorker"
)

// Roles lists every assignable role.
var Roles = []Role{RoleAdmin, RoleManager, RoleStoreOwner, RoleAirportStaff, RoleStoreWorker}

// ParseRole maps any casing of a role name to the canonical constant.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// jobKeywords is checked in order; the first matching group wins.
var jobKeywords = []struct {
	role  Role
	words []string
}{
	{RoleAdmin, []string{"admin"}},
	{RoleManager, []string{"manager", "supervisor"}},
	{RoleStoreOwner, []string{"owner"}},
	{RoleAirportStaff, []string{"security", "staff", "cleaner", "technician", "ground"}},
	{RoleStoreWorker, []string{"barista", "chef", "cashier", "sales", "waiter", "waitress"}},
}

// InferRoleFromJob guesses a role from a free-text job title. It is only
// consulted when a hire request carries no explicit role, and titles
// matching nothing are rejected rather than defaulted.
func InferRoleFromJob(job string) (Role, bool) {
	j := strings.ToLower(job)
	for _, k := range jobKeywords {
		for _, w := range k.words {
			if strings.Contains(j, w) {
				return k.role, true
			}
		}
	}
	return "", false
}

// WorkerStatus marks whether a worker is on the payroll.
type WorkerStatus string

const (
	WorkerActive   WorkerStatus = "active"
	WorkerInactive WorkerStatus = "inactive"
)

// Worker is an employee of the airport or of one of its stores.
//
// Fields:
//  PaymentCents – monthly payment in minor units.
//  StoreID      – nil for airport-level staff.
//  SupervisorID – worker id of the direct manager, if any.
type Worker struct {
	ID           int64        `json:"worker_id"`
	Name         string       `json:"name"`
	Email        *string      `json:"email,omitempty"`
	Age          int          `json:"age"`
	Job          string       `json:"job"`
	PaymentCents int64        `json:"payment_cents"`
	Role         Role         `json:"role"`
	AirportID    string       `json:"airport_id"`
	StoreID      *int64       `json:"store_id,omitempty"`
	SupervisorID *int64       `json:"supervisor_id,omitempty"`
	HireDate     time.Time    `json:"hire_date"`
	Status       WorkerStatus `json:"status"`
}
