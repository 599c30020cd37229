package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotOwner   = errors.New("block belongs to another doctor")
	ErrValidation = errors.New("invalid unavailability request")
)

// Service owns the per-doctor unavailability ledger and renders the calendar
// and slot views on top of it.
type Service struct {
	repo        Repository
	windowYears int
	log         zerolog.Logger
}

func NewService(repo Repository, windowYears int, log zerolog.Logger) *Service {
	if windowYears <= 0 {
		windowYears = 3
	}
	return &Service{repo: repo, windowYears: windowYears, log: log}
}

// AddBlock records a new unavailability range for the doctor. No overlap
// check against existing appointments: a doctor may blank out a range that
// already holds a booking.
func (s *Service) AddBlock(ctx context.Context, doctorID uuid.UUID, date, startTime, endTime string) (*Block, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if _, err := time.Parse(ClockLayout, startTime); err != nil {
		return nil, fmt.Errorf("%w: start time must be HH:MM", ErrValidation)
	}
	if _, err := time.Parse(ClockLayout, endTime); err != nil {
		return nil, fmt.Errorf("%w: end time must be HH:MM", ErrValidation)
	}
	if endTime <= startTime {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrValidation)
	}

	b := &Block{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
	}

	created, err := s.repo.CreateBlock(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Str("date", date).
		Msg("unavailability block added")

	return created, nil
}

func (s *Service) ListBlocks(ctx context.Context, doctorID uuid.UUID) ([]Block, error) {
	return s.repo.ListBlocks(ctx, doctorID)
}

// DeleteBlock removes a block, owner-checked: only the doctor the block
// belongs to may delete it.
func (s *Service) DeleteBlock(ctx context.Context, actorID, blockID uuid.UUID) error {
	b, err := s.repo.GetBlockByID(ctx, blockID)
	if err != nil {
		return err
	}
	if b.DoctorID != actorID {
		return ErrNotOwner
	}
	return s.repo.DeleteBlock(ctx, blockID)
}

// Calendar renders the month grid for a doctor, clamped to the navigable
// window anchored at `now`. Returns the grid plus the month that was
// actually rendered.
func (s *Service) Calendar(ctx context.Context, doctorID uuid.UUID, year int, month time.Month, now time.Time) ([]DayCell, int, time.Month, error) {
	window := WindowFrom(now, s.windowYears)
	year, month = window.Clamp(year, month)

	blocks, err := s.repo.ListBlocks(ctx, doctorID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("list blocks: %w", err)
	}

	return BuildMonth(year, month, now, blocks), year, month, nil
}

// OpenSlots returns the advance clock slots offerable on a date. A date in
// the past or blanked out by a whole-day block offers nothing. Times already
// claimed by active appointments are the booking engine's concern; callers
// subtract those separately.
func (s *Service) OpenSlots(ctx context.Context, doctorID uuid.UUID, date string, now time.Time) ([]string, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if date < now.Format(DateLayout) {
		return nil, nil
	}

	blocks, err := s.repo.ListBlocks(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	if DayBlocked(blocks, date) {
		return nil, nil
	}

	slots := make([]string, len(AdvanceSlots))
	copy(slots, AdvanceSlots)
	return slots, nil
}
