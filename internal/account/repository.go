package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Create(ctx context.Context, a *Account) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// TransitionStatus applies a conditional role/status transition: it only
	// fires while the account is still in `from`, clears requested_role and
	// stamps the matching decision timestamp. Returns ErrAccountNotFound when
	// the row was not in `from` anymore (lost race or wrong id).
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, newRole Role) (*Account, error)

	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListDoctors returns approved doctor accounts, optionally filtered to
	// those supporting the given booking mode ("instant"/"advance", "" = all).
	ListDoctors(ctx context.Context, mode string) ([]Account, error)
	ListPending(ctx context.Context) ([]Account, error)
}
