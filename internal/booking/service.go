package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/booking-core/internal/account"
	"github.com/medibook/booking-core/internal/availability"
	redisclient "github.com/medibook/booking-core/internal/redis"
)

var (
	ErrSlotTaken            = errors.New("slot already booked by another patient")
	ErrSlotBusy             = errors.New("slot is currently being booked, please retry")
	ErrDoctorNotBookable    = errors.New("account is not a bookable doctor")
	ErrModeNotOffered       = errors.New("doctor does not offer this booking mode")
	ErrDateUnavailable      = errors.New("doctor is unavailable on this date")
	ErrNotAppointmentDoctor = errors.New("appointment belongs to another doctor")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrValidation           = errors.New("invalid booking request")
)

// AccountDirectory is the slice of the account store the booking engine
// needs: resolving ids to accounts for validation and side-effect text.
type AccountDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

// BlockLister surfaces the unavailability ledger to the conflict resolver.
type BlockLister interface {
	ListBlocks(ctx context.Context, doctorID uuid.UUID) ([]availability.Block, error)
}

type Service struct {
	repo     Repository
	accounts AccountDirectory
	blocks   BlockLister
	locker   redisclient.Locker
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, accounts AccountDirectory, blocks BlockLister, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		blocks:   blocks,
		locker:   locker,
		log:      log,
		now:      time.Now,
	}
}

type ReserveRequest struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      string // advance mode: YYYY-MM-DD; ignored for instant
	Time      string // advance mode: HH:MM clock slot; instant mode: offer label
	Mode      string // instant or advance
}

// ReserveResult reports the appointment holding the slot after the call.
// Created is false when the same patient already held it: resubmitting an
// accepted reservation is idempotent and returns the existing record.
type ReserveResult struct {
	Appointment *Appointment
	Created     bool
}

// Reserve is the booking conflict resolver. The slot claim itself rides on
// the storage layer's insert-if-absent, so two concurrent attempts for the
// same slot can never both win; the per-slot lock around the critical
// section keeps side effects single-fire.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	if !availability.ValidMode(req.Mode) {
		return nil, fmt.Errorf("%w: unknown booking mode %q", ErrValidation, req.Mode)
	}

	patient, err := s.accounts.GetByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.accounts.GetByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if !doctor.IsBookableDoctor() {
		return nil, ErrDoctorNotBookable
	}
	if !doctor.Profile.AppointmentType.Supports(req.Mode) {
		return nil, ErrModeNotOffered
	}

	now := s.now()

	var date, clock string
	var status Status

	switch req.Mode {
	case availability.ModeInstant:
		if req.Time == "" {
			return nil, fmt.Errorf("%w: instant offer label is required", ErrValidation)
		}
		date, clock, err = availability.ResolveInstantOffer(req.Time, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		status = StatusInstant

	case availability.ModeAdvance:
		if _, err := time.Parse(availability.DateLayout, req.Date); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
		}
		if req.Date < now.Format(availability.DateLayout) {
			return nil, fmt.Errorf("%w: date is in the past", ErrValidation)
		}
		if !availability.IsAdvanceSlot(req.Time) {
			return nil, fmt.Errorf("%w: %q is not an offerable slot", ErrValidation, req.Time)
		}
		blocks, err := s.blocks.ListBlocks(ctx, req.DoctorID)
		if err != nil {
			return nil, fmt.Errorf("load unavailability: %w", err)
		}
		if availability.DayBlocked(blocks, req.Date) {
			return nil, ErrDateUnavailable
		}
		date, clock = req.Date, req.Time
		status = StatusScheduled
	}

	appt := &Appointment{
		ID:        uuid.New(),
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Date:      date,
		Time:      clock,
		Status:    status,
		Type:      req.Mode,
	}

	var result *ReserveResult

	err = s.locker.WithSlotLock(ctx, SlotKey(req.DoctorID, date, clock), func(lockCtx context.Context) error {
		created, err := s.repo.CreateActiveAppointment(lockCtx, appt)
		if err != nil {
			if !errors.Is(err, ErrSlotHeld) {
				return fmt.Errorf("create appointment: %w", err)
			}
			holder, gerr := s.repo.GetActiveForSlot(lockCtx, req.DoctorID, date, clock)
			if gerr != nil {
				// The holder resolved between insert and read; the caller
				// should re-render slots and retry.
				return ErrSlotTaken
			}
			if holder.PatientID == req.PatientID {
				result = &ReserveResult{Appointment: holder, Created: false}
				return nil
			}
			return ErrSlotTaken
		}

		result = &ReserveResult{Appointment: created, Created: true}
		s.fireBookingSideEffects(lockCtx, created, patient, doctor)
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	return result, nil
}

// fireBookingSideEffects creates the doctor's notification and the
// conversation bootstrap. Failures are logged, not propagated: the booking
// already holds its slot, and the repair worker re-fires missing
// notifications.
func (s *Service) fireBookingSideEffects(ctx context.Context, appt *Appointment, patient, doctor *account.Account) {
	notif := &Notification{
		ID:            uuid.New(),
		RecipientID:   appt.DoctorID,
		AppointmentID: &appt.ID,
		Type:          NotifBookingCreated,
		Message:       fmt.Sprintf("New booking from %s on %s at %s", patient.DisplayName, appt.Date, appt.Time),
	}
	if err := s.repo.CreateNotification(ctx, notif); err != nil {
		s.log.Warn().Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("booking notification not created, leaving for repair")
	}

	welcome := &Message{
		ID:        uuid.New(),
		PatientID: appt.PatientID,
		DoctorID:  appt.DoctorID,
		SenderID:  appt.DoctorID,
		Kind:      MessageWelcome,
		Body:      fmt.Sprintf("Hello %s, thank you for booking with %s. You can ask any questions here.", patient.DisplayName, doctor.DisplayName),
	}
	created, err := s.repo.InsertWelcomeMessage(ctx, welcome)
	if err != nil {
		s.log.Warn().Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("welcome message not created")
		return
	}
	if created {
		return
	}

	notice := &Message{
		ID:        uuid.New(),
		PatientID: appt.PatientID,
		DoctorID:  appt.DoctorID,
		SenderID:  appt.PatientID,
		Kind:      MessageBookingNotice,
		Body:      fmt.Sprintf("New booking for %s at %s", appt.Date, appt.Time),
	}
	if err := s.repo.InsertMessage(ctx, notice); err != nil {
		s.log.Warn().Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("booking notice not created")
	}
}

// Complete moves an appointment to its terminal state. Only the owning
// doctor may do this; completing an already completed appointment is a
// no-op returning the terminal record.
func (s *Service) Complete(ctx context.Context, appointmentID, actorDoctorID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != actorDoctorID {
		return nil, ErrNotAppointmentDoctor
	}
	if appt.Status == StatusCompleted {
		return appt, nil
	}

	updated, err := s.repo.CompleteAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost the transition race; return whatever state won.
			return s.repo.GetAppointmentByID(ctx, appointmentID)
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	notif := &Notification{
		ID:            uuid.New(),
		RecipientID:   updated.PatientID,
		AppointmentID: &updated.ID,
		Type:          NotifResultsAvailable,
		Message:       fmt.Sprintf("Your results for the appointment on %s are available", updated.Date),
	}
	if err := s.repo.CreateNotification(ctx, notif); err != nil {
		s.log.Warn().Err(err).
			Str("appointment_id", updated.ID.String()).
			Msg("results notification not created")
	}

	return updated, nil
}

// RepairSideEffects re-fires booking notifications that never landed. Safe
// to run repeatedly: notification creation is duplicate-proof per
// (appointment, type).
func (s *Service) RepairSideEffects(ctx context.Context) (int, error) {
	missing, err := s.repo.FindMissingNotifications(ctx, NotifBookingCreated, 100)
	if err != nil {
		return 0, fmt.Errorf("find missing notifications: %w", err)
	}

	repaired := 0
	for _, appt := range missing {
		patientName := "a patient"
		if patient, err := s.accounts.GetByID(ctx, appt.PatientID); err == nil {
			patientName = patient.DisplayName
		}

		notif := &Notification{
			ID:            uuid.New(),
			RecipientID:   appt.DoctorID,
			AppointmentID: &appt.ID,
			Type:          NotifBookingCreated,
			Message:       fmt.Sprintf("New booking from %s on %s at %s", patientName, appt.Date, appt.Time),
		}
		if err := s.repo.CreateNotification(ctx, notif); err != nil {
			s.log.Warn().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("repair: notification still not created")
			continue
		}
		repaired++
	}

	return repaired, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	return s.repo.ListByDoctor(ctx, doctorID, date)
}

// ActiveTimes returns the clock times already claimed on a doctor's date,
// so the slot view can subtract them from the catalog.
func (s *Service) ActiveTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	return s.repo.ActiveTimes(ctx, doctorID, date)
}

func (s *Service) Notifications(ctx context.Context, recipientID uuid.UUID) ([]Notification, error) {
	return s.repo.ListNotifications(ctx, recipientID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, id, recipientID uuid.UUID) (*Notification, error) {
	return s.repo.MarkNotificationRead(ctx, id, recipientID)
}

func (s *Service) Messages(ctx context.Context, patientID, doctorID uuid.UUID) ([]Message, error) {
	return s.repo.ListMessages(ctx, patientID, doctorID)
}
