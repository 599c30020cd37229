package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotAdmin         = errors.New("action requires an admin account")
	ErrNoPendingRequest = errors.New("account has no pending role request")
	ErrValidation       = errors.New("invalid account request")
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

type SignUpParams struct {
	Email         string
	DisplayName   string
	RequestedRole Role
	Profile       *DoctorProfile
}

// SignUp creates the account record. Doctor and admin signups are stored
// demoted: the account enters as a patient with a pending elevation request
// and may act as a patient immediately. Plain patient signups are active
// right away.
func (s *Service) SignUp(ctx context.Context, p SignUpParams) (*Account, error) {
	email := strings.TrimSpace(strings.ToLower(p.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrValidation)
	}
	if !p.RequestedRole.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, p.RequestedRole)
	}

	a := &Account{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: strings.TrimSpace(p.DisplayName),
		Role:        RolePatient,
		Status:      StatusActive,
	}

	if p.RequestedRole != RolePatient {
		requested := p.RequestedRole
		a.Status = StatusPending
		a.RequestedRole = &requested
	}

	if p.RequestedRole == RoleDoctor {
		if p.Profile == nil {
			return nil, fmt.Errorf("%w: doctor signup requires a profile", ErrValidation)
		}
		if !p.Profile.AppointmentType.Valid() {
			return nil, fmt.Errorf("%w: unknown appointment type %q", ErrValidation, p.Profile.AppointmentType)
		}
		profile := *p.Profile
		a.Profile = &profile
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.log.Info().
		Str("account_id", created.ID.String()).
		Str("status", string(created.Status)).
		Str("requested_role", string(p.RequestedRole)).
		Msg("account created")

	return created, nil
}

// Approve elevates a pending account to its requested role. Approving an
// already approved account is a no-op returning the terminal state.
func (s *Service) Approve(ctx context.Context, actorID, accountID uuid.UUID) (*Account, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	target, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	switch target.Status {
	case StatusApproved:
		return target, nil
	case StatusPending:
		// fall through to the transition
	default:
		return nil, ErrNoPendingRequest
	}

	if target.RequestedRole == nil {
		return nil, ErrNoPendingRequest
	}

	updated, err := s.repo.TransitionStatus(ctx, accountID, StatusPending, StatusApproved, *target.RequestedRole)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Lost a race with another admin; report whatever state won.
			return s.settled(ctx, accountID, StatusApproved)
		}
		return nil, fmt.Errorf("approve account: %w", err)
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("role", string(updated.Role)).
		Str("admin_id", actorID.String()).
		Msg("role request approved")

	return updated, nil
}

// Reject closes a pending request. The account keeps acting as a patient.
func (s *Service) Reject(ctx context.Context, actorID, accountID uuid.UUID) (*Account, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	target, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	switch target.Status {
	case StatusRejected:
		return target, nil
	case StatusPending:
	default:
		return nil, ErrNoPendingRequest
	}

	updated, err := s.repo.TransitionStatus(ctx, accountID, StatusPending, StatusRejected, RolePatient)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return s.settled(ctx, accountID, StatusRejected)
		}
		return nil, fmt.Errorf("reject account: %w", err)
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("admin_id", actorID.String()).
		Msg("role request rejected")

	return updated, nil
}

// Elevate is the out-of-band operator path: an admin grants a role directly,
// without a pending request. Used to bootstrap the first admin.
func (s *Service) Elevate(ctx context.Context, actorID, accountID uuid.UUID, role Role) (*Account, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	target, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if target.Role == role && target.Status == StatusApproved {
		return target, nil
	}

	updated, err := s.repo.TransitionStatus(ctx, accountID, target.Status, StatusApproved, role)
	if err != nil {
		return nil, fmt.Errorf("elevate account: %w", err)
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("role", string(role)).
		Str("admin_id", actorID.String()).
		Msg("account elevated")

	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

// TouchLastLogin stamps the login time, best effort on the caller's path.
func (s *Service) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return s.repo.TouchLastLogin(ctx, id, time.Now())
}

// ListDoctors returns bookable doctors, optionally filtered by booking mode.
// Pending and rejected elevation requests never show up here: only an
// approval transition produces role=doctor.
func (s *Service) ListDoctors(ctx context.Context, mode string) ([]Account, error) {
	switch mode {
	case "", "instant", "advance":
	default:
		return nil, fmt.Errorf("%w: unknown booking mode %q", ErrValidation, mode)
	}
	return s.repo.ListDoctors(ctx, mode)
}

func (s *Service) ListPending(ctx context.Context, actorID uuid.UUID) ([]Account, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListPending(ctx)
}

// Remove hard-deletes an account. Admin-only; this is the single hard-delete
// path in the system.
func (s *Service) Remove(ctx context.Context, actorID, accountID uuid.UUID) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, accountID); err != nil {
		return err
	}
	s.log.Info().
		Str("account_id", accountID.String()).
		Str("admin_id", actorID.String()).
		Msg("account removed")
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrNotAdmin
		}
		return fmt.Errorf("load actor: %w", err)
	}
	if actor.Role != RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

// settled re-reads the account after a lost transition race and succeeds only
// if the race left it in the expected terminal status.
func (s *Service) settled(ctx context.Context, accountID uuid.UUID, want Status) (*Account, error) {
	current, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if current.Status == want {
		return current, nil
	}
	return nil, ErrNoPendingRequest
}
