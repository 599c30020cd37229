package booking

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

const appointmentColumns = `id, doctor_id, patient_id, date, "time", status, appointment_type, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&a.Time,
		&a.Status,
		&a.Type,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PgRepository) CreateActiveAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	// The ON CONFLICT arbiter is the partial unique index on active slots;
	// a claimed slot yields no row instead of a duplicate.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, date, "time", status, appointment_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (doctor_id, date, "time") WHERE status IN ('instant', 'scheduled') DO NOTHING
		RETURNING `+appointmentColumns+`
	`, a.ID, a.DoctorID, a.PatientID, a.Date, a.Time, a.Status, a.Type)

	created, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrSlotHeld
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetActiveForSlot(ctx context.Context, doctorID uuid.UUID, date, clock string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND "time" = $3
		  AND status IN ('instant', 'scheduled')
	`, doctorID, date, clock)
	return scanAppointment(row)
}

func (r *PgRepository) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'completed'
		WHERE id = $1
		  AND status IN ('instant', 'scheduled')
		RETURNING `+appointmentColumns+`
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY date DESC, "time" DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND ($2 = '' OR date = $2)
		ORDER BY date DESC, "time" DESC
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *PgRepository) ActiveTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT "time"
		FROM appointments
		WHERE doctor_id = $1 AND date = $2
		  AND status IN ('instant', 'scheduled')
		ORDER BY "time"
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return times, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
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

func (r *PgRepository) CreateNotification(ctx context.Context, n *Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, appointment_id, type, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, now())
		ON CONFLICT (appointment_id, type) WHERE appointment_id IS NOT NULL DO NOTHING
	`, n.ID, n.RecipientID, n.AppointmentID, n.Type, n.Message)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *PgRepository) ListNotifications(ctx context.Context, recipientID uuid.UUID) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient_id, appointment_id, type, message, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
	`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.AppointmentID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) MarkNotificationRead(ctx context.Context, id, recipientID uuid.UUID) (*Notification, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET read = true
		WHERE id = $1 AND recipient_id = $2
		RETURNING id, recipient_id, appointment_id, type, message, read, created_at
	`, id, recipientID)

	var n Notification
	err := row.Scan(&n.ID, &n.RecipientID, &n.AppointmentID, &n.Type, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *PgRepository) InsertWelcomeMessage(ctx context.Context, m *Message) (bool, error) {
	// messages_welcome_key arbitrates: one welcome per (patient, doctor).
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, patient_id, doctor_id, sender_id, kind, body, created_at)
		VALUES ($1, $2, $3, $4, 'welcome', $5, now())
		ON CONFLICT (patient_id, doctor_id) WHERE kind = 'welcome' DO NOTHING
	`, m.ID, m.PatientID, m.DoctorID, m.SenderID, m.Body)
	if err != nil {
		return false, fmt.Errorf("insert welcome message: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) InsertMessage(ctx context.Context, m *Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, patient_id, doctor_id, sender_id, kind, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, m.ID, m.PatientID, m.DoctorID, m.SenderID, m.Kind, m.Body)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *PgRepository) ListMessages(ctx context.Context, patientID, doctorID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, sender_id, kind, body, created_at
		FROM messages
		WHERE patient_id = $1 AND doctor_id = $2
		ORDER BY created_at
	`, patientID, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.SenderID, &m.Kind, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) FindMissingNotifications(ctx context.Context, notifType string, limit int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.status IN ('instant', 'scheduled')
		  AND NOT EXISTS (
			SELECT 1 FROM notifications n
			WHERE n.appointment_id = a.id AND n.type = $1
		  )
		ORDER BY a.created_at
		LIMIT $2
	`, notifType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}
