package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `
	id, email, display_name, role, account_status, requested_role,
	specialty, hospital, price, duration_minutes, appointment_type, cases,
	created_at, last_login, approved_at, rejected_at
`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var requestedRole *string
	var specialty, hospital, apptType *string
	var price *float64
	var duration, cases *int

	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.Role,
		&a.Status,
		&requestedRole,
		&specialty,
		&hospital,
		&price,
		&duration,
		&apptType,
		&cases,
		&a.CreatedAt,
		&a.LastLogin,
		&a.ApprovedAt,
		&a.RejectedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if requestedRole != nil {
		r := Role(*requestedRole)
		a.RequestedRole = &r
	}
	if apptType != nil {
		a.Profile = &DoctorProfile{
			AppointmentType: AppointmentType(*apptType),
		}
		if specialty != nil {
			a.Profile.Specialty = *specialty
		}
		if hospital != nil {
			a.Profile.Hospital = *hospital
		}
		if price != nil {
			a.Profile.Price = *price
		}
		if duration != nil {
			a.Profile.DurationMinutes = *duration
		}
		if cases != nil {
			a.Profile.Cases = *cases
		}
	}

	return &a, nil
}

func profileFields(p *DoctorProfile) (specialty, hospital, apptType *string, price *float64, duration, cases *int) {
	if p == nil {
		return nil, nil, nil, nil, nil, nil
	}
	t := string(p.AppointmentType)
	return &p.Specialty, &p.Hospital, &t, &p.Price, &p.DurationMinutes, &p.Cases
}

func (r *PgRepository) Create(ctx context.Context, a *Account) (*Account, error) {
	var requestedRole *string
	if a.RequestedRole != nil {
		s := string(*a.RequestedRole)
		requestedRole = &s
	}
	specialty, hospital, apptType, price, duration, cases := profileFields(a.Profile)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (
			id, email, display_name, role, account_status, requested_role,
			specialty, hospital, price, duration_minutes, appointment_type, cases,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		RETURNING `+accountColumns+`
	`, a.ID, a.Email, a.DisplayName, a.Role, a.Status, requestedRole,
		specialty, hospital, price, duration, apptType, cases)

	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = $1
	`, email)
	return scanAccount(row)
}

func (r *PgRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, newRole Role) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET role = $2,
		    account_status = $3,
		    requested_role = NULL,
		    approved_at = CASE WHEN $3 = 'approved' THEN now() ELSE approved_at END,
		    rejected_at = CASE WHEN $3 = 'rejected' THEN now() ELSE rejected_at END
		WHERE id = $1
		  AND account_status = $4
		RETURNING `+accountColumns+`
	`, id, newRole, to, from)

	return scanAccount(row)
}

func (r *PgRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET last_login = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PgRepository) ListDoctors(ctx context.Context, mode string) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE role = 'doctor'
		  AND account_status = 'approved'
		  AND ($1 = '' OR appointment_type = $1 OR appointment_type = 'both')
		ORDER BY display_name
	`, mode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func (r *PgRepository) ListPending(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE account_status = 'pending'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	var result []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
