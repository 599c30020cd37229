package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block
	err := row.Scan(
		&b.ID,
		&b.DoctorID,
		&b.Date,
		&b.StartTime,
		&b.EndTime,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *PgRepository) CreateBlock(ctx context.Context, b *Block) (*Block, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO unavailability_blocks (id, doctor_id, date, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, doctor_id, date, start_time, end_time, created_at
	`, b.ID, b.DoctorID, b.Date, b.StartTime, b.EndTime)
	return scanBlock(row)
}

func (r *PgRepository) GetBlockByID(ctx context.Context, id uuid.UUID) (*Block, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, date, start_time, end_time, created_at
		FROM unavailability_blocks
		WHERE id = $1
	`, id)
	return scanBlock(row)
}

func (r *PgRepository) ListBlocks(ctx context.Context, doctorID uuid.UUID) ([]Block, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, date, start_time, end_time, created_at
		FROM unavailability_blocks
		WHERE doctor_id = $1
		ORDER BY date DESC, start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM unavailability_blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}
