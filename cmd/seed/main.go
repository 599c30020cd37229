package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/booking-core/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.ApplySchema(context.Background(), pool); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Println("schema applied")

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedAdmin(context.Background(), pool); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if err := seedDoctors(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPendingSignups(context.Background(), pool, 10); err != nil {
		log.Fatalf("seed pending signups: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO accounts (id, email, display_name, role, account_status, created_at, approved_at)
		VALUES ($1, 'admin@medibook.local', 'Operator', 'admin', 'approved', now(), now())
		ON CONFLICT (email) DO NOTHING
	`, uuid.New())
	if err != nil {
		return err
	}
	log.Println("admin seeded")
	return nil
}

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var appointmentTypes = []string{"instant", "advance", "both"}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		email := gofakeit.Email()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		apptType := appointmentTypes[gofakeit.Number(0, len(appointmentTypes)-1)]
		price := float64(gofakeit.Number(20, 200))
		cases := gofakeit.Number(0, 500)

		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (
				id, email, display_name, role, account_status,
				specialty, hospital, price, duration_minutes, appointment_type, cases,
				created_at, approved_at
			)
			VALUES ($1, $2, $3, 'doctor', 'approved', $4, $5, $6, 30, $7, $8, now(), now())
			ON CONFLICT (email) DO NOTHING
		`, id, email, name, spec, gofakeit.Company()+" Hospital", price, apptType, cases)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedPendingSignups(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d pending doctor signups", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		email := gofakeit.Email()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (
				id, email, display_name, role, account_status, requested_role,
				specialty, hospital, price, duration_minutes, appointment_type, cases,
				created_at
			)
			VALUES ($1, $2, $3, 'patient', 'pending', 'doctor', $4, $5, $6, 30, 'advance', 0, now())
			ON CONFLICT (email) DO NOTHING
		`, id, email, name, spec, gofakeit.Company()+" Hospital", float64(gofakeit.Number(20, 200)))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("pending signups seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO accounts (id, email, display_name, role, account_status, created_at)
				VALUES ($1, $2, $3, 'patient', 'active', now())
				ON CONFLICT (email) DO NOTHING
			`, id, email, name)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
