package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	// StatusInstant and StatusScheduled are the two active states, chosen at
	// creation time from the booking mode. StatusCompleted is terminal and
	// only reachable through the owning doctor.
	StatusInstant   Status = "instant"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
)

// Active reports whether the appointment still holds its slot.
func (s Status) Active() bool {
	return s == StatusInstant || s == StatusScheduled
}

type Appointment struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Status    Status    `json:"status"`
	Type      string    `json:"appointment_type"` // instant or advance
	CreatedAt time.Time `json:"created_at"`
}

// SlotKey identifies the slot an appointment claims; it doubles as the
// distributed lock key for the reservation critical section.
func SlotKey(doctorID uuid.UUID, date, clock string) string {
	return doctorID.String() + ":" + date + ":" + clock
}

const (
	NotifBookingCreated   = "booking_created"
	NotifResultsAvailable = "results_available"
)

// Notification is a write-once record consumed by an external notification
// UI. Only the recipient flips Read.
type Notification struct {
	ID            uuid.UUID  `json:"id"`
	RecipientID   uuid.UUID  `json:"recipient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Type          string     `json:"type"`
	Message       string     `json:"message"`
	Read          bool       `json:"read"`
	CreatedAt     time.Time  `json:"created_at"`
}

const (
	MessageWelcome       = "welcome"
	MessageBookingNotice = "booking_notice"
	MessageUser          = "user"
)

// Message is a conversation record between a patient and a doctor. The
// welcome kind fires at most once per pair; later bookings append a
// booking_notice instead.
type Message struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Kind      string    `json:"kind"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Automatic reports whether the message was generated by the booking engine
// rather than typed by a person.
func (m Message) Automatic() bool {
	return m.Kind != MessageUser
}
