package account

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "active"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type AppointmentType string

const (
	TypeInstant AppointmentType = "instant"
	TypeAdvance AppointmentType = "advance"
	TypeBoth    AppointmentType = "both"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeInstant, TypeAdvance, TypeBoth:
		return true
	}
	return false
}

// Supports reports whether a doctor with this appointment type is offered
// under the given booking mode ("instant" or "advance").
func (t AppointmentType) Supports(mode string) bool {
	return t == TypeBoth || string(t) == mode
}

// DoctorProfile holds the fields that only make sense once an account acts
// as a doctor. It is nil for plain patients and admins.
type DoctorProfile struct {
	Specialty       string          `json:"specialty"`
	Hospital        string          `json:"hospital"`
	Price           float64         `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
	AppointmentType AppointmentType `json:"appointment_type"`
	Cases           int             `json:"cases"`
}

// Account is the single identity record. A doctor/admin signup is stored
// demoted (role=patient, status=pending) with RequestedRole holding the true
// intent; only an approval transition elevates Role.
type Account struct {
	ID            uuid.UUID
	Email         string
	DisplayName   string
	Role          Role
	Status        Status
	RequestedRole *Role
	Profile       *DoctorProfile
	CreatedAt     time.Time
	LastLogin     *time.Time
	ApprovedAt    *time.Time
	RejectedAt    *time.Time
}

// IsBookableDoctor reports whether the account may appear in doctor listings.
func (a *Account) IsBookableDoctor() bool {
	return a.Role == RoleDoctor && a.Status == StatusApproved && a.Profile != nil
}
