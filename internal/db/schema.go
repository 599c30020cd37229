package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is applied by cmd/seed. The partial unique indexes are load-bearing:
// appointments_active_slot_key is what makes reservation insert-if-absent, and
// messages_welcome_key is what keeps the welcome message single-fire per pair.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id               uuid PRIMARY KEY,
	email            text NOT NULL UNIQUE,
	display_name     text NOT NULL,
	role             text NOT NULL,
	account_status   text NOT NULL,
	requested_role   text,
	specialty        text,
	hospital         text,
	price            numeric,
	duration_minutes int,
	appointment_type text,
	cases            int,
	created_at       timestamptz NOT NULL DEFAULT now(),
	last_login       timestamptz,
	approved_at      timestamptz,
	rejected_at      timestamptz
);

CREATE TABLE IF NOT EXISTS unavailability_blocks (
	id         uuid PRIMARY KEY,
	doctor_id  uuid NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	date       text NOT NULL,
	start_time text NOT NULL,
	end_time   text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS unavailability_blocks_doctor_idx
	ON unavailability_blocks (doctor_id, date);

CREATE TABLE IF NOT EXISTS appointments (
	id               uuid PRIMARY KEY,
	doctor_id        uuid NOT NULL REFERENCES accounts(id),
	patient_id       uuid NOT NULL REFERENCES accounts(id),
	date             text NOT NULL,
	"time"           text NOT NULL,
	status           text NOT NULL,
	appointment_type text NOT NULL,
	created_at       timestamptz NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_key
	ON appointments (doctor_id, date, "time")
	WHERE status IN ('instant', 'scheduled');

CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id);
CREATE INDEX IF NOT EXISTS appointments_doctor_idx ON appointments (doctor_id, date);

CREATE TABLE IF NOT EXISTS notifications (
	id             uuid PRIMARY KEY,
	recipient_id   uuid NOT NULL REFERENCES accounts(id),
	appointment_id uuid REFERENCES appointments(id),
	type           text NOT NULL,
	message        text NOT NULL,
	read           boolean NOT NULL DEFAULT false,
	created_at     timestamptz NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS notifications_appointment_type_key
	ON notifications (appointment_id, type)
	WHERE appointment_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS notifications_recipient_idx ON notifications (recipient_id);

CREATE TABLE IF NOT EXISTS messages (
	id         uuid PRIMARY KEY,
	patient_id uuid NOT NULL REFERENCES accounts(id),
	doctor_id  uuid NOT NULL REFERENCES accounts(id),
	sender_id  uuid NOT NULL REFERENCES accounts(id),
	kind       text NOT NULL,
	body       text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS messages_welcome_key
	ON messages (patient_id, doctor_id)
	WHERE kind = 'welcome';

CREATE INDEX IF NOT EXISTS messages_pair_idx ON messages (patient_id, doctor_id, created_at);
`

func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
