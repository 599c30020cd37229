package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/booking-core/internal/availability"
	"github.com/medibook/booking-core/internal/config"
	"github.com/medibook/booking-core/internal/db"
)

// simulate hammers the reservation endpoint with concurrent workers fighting
// over a small set of slots, then audits the database: a slot with more than
// one active appointment means the conflict engine is broken.

type metrics struct {
	total    int64
	created  int64
	repeated int64 // idempotent resubmits answered with the existing booking
	conflict int64
	errors   int64
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "api-server base URL")
		workers  = flag.Int("workers", 32, "concurrent workers")
		duration = flag.Duration("duration", 15*time.Second, "how long to run")
		doctors  = flag.Int("doctors", 5, "how many doctors to fight over")
		days     = flag.Int("days", 2, "how many future days to book across")
	)
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	doctorIDs, err := loadIDs(pool, `
		SELECT id FROM accounts
		WHERE role = 'doctor' AND account_status = 'approved'
		  AND appointment_type IN ('advance', 'both')
		LIMIT $1
	`, *doctors)
	if err != nil {
		log.Fatalf("load doctors: %v", err)
	}
	patientIDs, err := loadIDs(pool, `
		SELECT id FROM accounts
		WHERE role = 'patient' AND account_status = 'active'
		LIMIT $1
	`, 500)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	if len(doctorIDs) == 0 || len(patientIDs) == 0 {
		log.Fatal("run cmd/seed first: no doctors or patients found")
	}

	dates := make([]string, 0, *days)
	for i := 1; i <= *days; i++ {
		dates = append(dates, time.Now().AddDate(0, 0, i).Format(availability.DateLayout))
	}

	log.Printf("storming %d doctors x %d dates x %d slots with %d workers for %s",
		len(doctorIDs), len(dates), len(availability.AdvanceSlots), *workers, *duration)

	var m metrics
	runCtx, stop := context.WithTimeout(context.Background(), *duration)
	defer stop()

	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			client := &http.Client{Timeout: 5 * time.Second}

			for runCtx.Err() == nil {
				doctor := doctorIDs[rng.Intn(len(doctorIDs))]
				patient := patientIDs[rng.Intn(len(patientIDs))]
				date := dates[rng.Intn(len(dates))]
				slot := availability.AdvanceSlots[rng.Intn(len(availability.AdvanceSlots))]

				reserve(runCtx, client, *baseURL, doctor, patient, date, slot, &m)
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	fmt.Printf("\nresults:\n  total:    %d\n  created:  %d\n  repeated: %d\n  conflict: %d\n  errors:   %d\n",
		atomic.LoadInt64(&m.total),
		atomic.LoadInt64(&m.created),
		atomic.LoadInt64(&m.repeated),
		atomic.LoadInt64(&m.conflict),
		atomic.LoadInt64(&m.errors),
	)

	auditCtx, auditCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer auditCancel()
	violations, err := auditUniqueness(auditCtx, pool)
	if err != nil {
		log.Fatalf("audit error: %v", err)
	}
	if violations > 0 {
		log.Fatalf("UNIQUENESS VIOLATED: %d slots hold more than one active appointment", violations)
	}
	fmt.Println("uniqueness audit ok: no slot holds more than one active appointment")
}

func reserve(ctx context.Context, client *http.Client, baseURL string, doctor, patient uuid.UUID, date, slot string, m *metrics) {
	body, _ := json.Marshal(map[string]string{
		"doctor_id":  doctor.String(),
		"patient_id": patient.String(),
		"date":       date,
		"time":       slot,
		"mode":       "advance",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			atomic.AddInt64(&m.total, 1)
			atomic.AddInt64(&m.errors, 1)
		}
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	atomic.AddInt64(&m.total, 1)
	switch resp.StatusCode {
	case http.StatusCreated:
		atomic.AddInt64(&m.created, 1)
	case http.StatusOK:
		atomic.AddInt64(&m.repeated, 1)
	case http.StatusConflict:
		atomic.AddInt64(&m.conflict, 1)
	default:
		atomic.AddInt64(&m.errors, 1)
	}
}

func loadIDs(pool *pgxpool.Pool, query string, limit int) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func auditUniqueness(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var violations int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT doctor_id, date, "time"
			FROM appointments
			WHERE status IN ('instant', 'scheduled')
			GROUP BY doctor_id, date, "time"
			HAVING count(*) > 1
		) dup
	`).Scan(&violations)
	return violations, err
}
