package availability

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrBlockNotFound = errors.New("unavailability block not found")

// Repository contains all DB interactions needed by the ledger.
type Repository interface {
	CreateBlock(ctx context.Context, b *Block) (*Block, error)
	GetBlockByID(ctx context.Context, id uuid.UUID) (*Block, error)
	// ListBlocks returns a doctor's blocks ordered by date descending.
	ListBlocks(ctx context.Context, doctorID uuid.UUID) ([]Block, error)
	DeleteBlock(ctx context.Context, id uuid.UUID) error
}
