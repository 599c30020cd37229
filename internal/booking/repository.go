package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrSlotHeld is the storage-level conflict signal: the insert found an
	// active appointment already claiming the slot. The service turns it
	// into ErrSlotTaken or an idempotent success depending on the holder.
	ErrSlotHeld = errors.New("slot already held by an active appointment")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// CreateActiveAppointment inserts with insert-if-absent semantics on the
	// (doctor, date, time) slot restricted to active statuses. Returns
	// ErrSlotHeld when the slot is claimed, without writing anything.
	CreateActiveAppointment(ctx context.Context, a *Appointment) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetActiveForSlot returns the active appointment holding the slot, or
	// ErrAppointmentNotFound when the slot is free.
	GetActiveForSlot(ctx context.Context, doctorID uuid.UUID, date, clock string) (*Appointment, error)

	// CompleteAppointment transitions active -> completed conditionally;
	// ErrAppointmentNotFound when the row was not active anymore.
	CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error)
	// ActiveTimes returns the clock times claimed by active appointments on
	// a doctor's date, for subtracting from the slot catalog.
	ActiveTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)

	// CreateNotification is duplicate-proof per (appointment, type); firing
	// it again for the same pair is a no-op.
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, recipientID uuid.UUID) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, recipientID uuid.UUID) (*Notification, error)

	// InsertWelcomeMessage inserts the pair's welcome message if none exists
	// yet; reports whether this call created it.
	InsertWelcomeMessage(ctx context.Context, m *Message) (bool, error)
	InsertMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, patientID, doctorID uuid.UUID) ([]Message, error)

	// FindMissingNotifications returns appointments whose side-effect
	// notification of the given type never landed. Used by the repair worker.
	FindMissingNotifications(ctx context.Context, notifType string, limit int) ([]Appointment, error)
}
