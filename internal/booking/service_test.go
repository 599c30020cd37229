package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/booking-core/internal/account"
	"github.com/medibook/booking-core/internal/availability"
)

// memStore is a thread-safe in-memory Repository with the same
// insert-if-absent slot semantics the partial unique index provides.
type memStore struct {
	mu        sync.Mutex
	appts     map[uuid.UUID]*Appointment
	bySlot    map[string]uuid.UUID
	notifs    []*Notification
	notifKeys map[string]bool
	msgs      []*Message
	welcome   map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		appts:     make(map[uuid.UUID]*Appointment),
		bySlot:    make(map[string]uuid.UUID),
		notifKeys: make(map[string]bool),
		welcome:   make(map[string]bool),
	}
}

func (s *memStore) CreateActiveAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := SlotKey(a.DoctorID, a.Date, a.Time)
	if _, held := s.bySlot[key]; held {
		return nil, ErrSlotHeld
	}
	cp := *a
	cp.CreatedAt = time.Now()
	s.appts[cp.ID] = &cp
	s.bySlot[key] = cp.ID
	out := cp
	return &out, nil
}

func (s *memStore) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) GetActiveForSlot(_ context.Context, doctorID uuid.UUID, date, clock string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySlot[SlotKey(doctorID, date, clock)]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *s.appts[id]
	return &cp, nil
}

func (s *memStore) CompleteAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok || !a.Status.Active() {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusCompleted
	delete(s.bySlot, SlotKey(a.DoctorID, a.Date, a.Time))
	cp := *a
	return &cp, nil
}

func (s *memStore) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Appointment
	for _, a := range s.appts {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) ListByDoctor(_ context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Appointment
	for _, a := range s.appts {
		if a.DoctorID == doctorID && (date == "" || a.Date == date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) ActiveTimes(_ context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, a := range s.appts {
		if a.DoctorID == doctorID && a.Date == date && a.Status.Active() {
			out = append(out, a.Time)
		}
	}
	return out, nil
}

func (s *memStore) CreateNotification(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.AppointmentID != nil {
		key := n.AppointmentID.String() + ":" + n.Type
		if s.notifKeys[key] {
			return nil
		}
		s.notifKeys[key] = true
	}
	cp := *n
	cp.CreatedAt = time.Now()
	s.notifs = append(s.notifs, &cp)
	return nil
}

func (s *memStore) ListNotifications(_ context.Context, recipientID uuid.UUID) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Notification
	for _, n := range s.notifs {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *memStore) MarkNotificationRead(_ context.Context, id, recipientID uuid.UUID) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifs {
		if n.ID == id && n.RecipientID == recipientID {
			n.Read = true
			cp := *n
			return &cp, nil
		}
	}
	return nil, ErrNotificationNotFound
}

func (s *memStore) InsertWelcomeMessage(_ context.Context, m *Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := m.PatientID.String() + ":" + m.DoctorID.String()
	if s.welcome[key] {
		return false, nil
	}
	s.welcome[key] = true
	cp := *m
	cp.CreatedAt = time.Now()
	s.msgs = append(s.msgs, &cp)
	return true, nil
}

func (s *memStore) InsertMessage(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	cp.CreatedAt = time.Now()
	s.msgs = append(s.msgs, &cp)
	return nil
}

func (s *memStore) ListMessages(_ context.Context, patientID, doctorID uuid.UUID) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.msgs {
		if m.PatientID == patientID && m.DoctorID == doctorID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) FindMissingNotifications(_ context.Context, notifType string, limit int) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Appointment
	for _, a := range s.appts {
		if !a.Status.Active() {
			continue
		}
		if s.notifKeys[a.ID.String()+":"+notifType] {
			continue
		}
		out = append(out, *a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type dirFake struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*account.Account
}

func (d *dirFake) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

type blocksFake struct {
	mu     sync.Mutex
	blocks []availability.Block
}

func (b *blocksFake) ListBlocks(_ context.Context, doctorID uuid.UUID) ([]availability.Block, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []availability.Block
	for _, blk := range b.blocks {
		if blk.DoctorID == doctorID {
			out = append(out, blk)
		}
	}
	return out, nil
}

// passLocker runs the critical section directly; the memStore's own mutex
// stands in for the storage-level arbiter.
type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc    *Service
	store  *memStore
	dir    *dirFake
	blocks *blocksFake
}

func newFixture() *fixture {
	store := newMemStore()
	dir := &dirFake{accounts: make(map[uuid.UUID]*account.Account)}
	blocks := &blocksFake{}
	svc := NewService(store, dir, blocks, passLocker{}, zerolog.Nop())
	svc.now = func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return &fixture{svc: svc, store: store, dir: dir, blocks: blocks}
}

func (f *fixture) addPatient() uuid.UUID {
	id := uuid.New()
	f.dir.accounts[id] = &account.Account{
		ID:          id,
		Email:       fmt.Sprintf("%s@test", id),
		DisplayName: "Patient " + id.String()[:8],
		Role:        account.RolePatient,
		Status:      account.StatusActive,
	}
	return id
}

func (f *fixture) addDoctor(apptType account.AppointmentType) uuid.UUID {
	id := uuid.New()
	f.dir.accounts[id] = &account.Account{
		ID:          id,
		Email:       fmt.Sprintf("%s@test", id),
		DisplayName: "Dr. " + id.String()[:8],
		Role:        account.RoleDoctor,
		Status:      account.StatusApproved,
		Profile: &account.DoctorProfile{
			Specialty:       "Cardiology",
			AppointmentType: apptType,
			DurationMinutes: 30,
		},
	}
	return id
}

func (f *fixture) addPendingDoctor() uuid.UUID {
	id := uuid.New()
	requested := account.RoleDoctor
	f.dir.accounts[id] = &account.Account{
		ID:            id,
		Email:         fmt.Sprintf("%s@test", id),
		DisplayName:   "Dr. Pending",
		Role:          account.RolePatient,
		Status:        account.StatusPending,
		RequestedRole: &requested,
		Profile: &account.DoctorProfile{
			AppointmentType: account.TypeAdvance,
		},
	}
	return id
}

func TestReserveThenConflict(t *testing.T) {
	f := newFixture()
	d1 := f.addDoctor(account.TypeAdvance)
	p1 := f.addPatient()
	p2 := f.addPatient()

	res, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: d1, PatientID: p1, Date: "2025-03-10", Time: "10:00", Mode: "advance",
	})
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if !res.Created {
		t.Error("first reserve should create the appointment")
	}
	if res.Appointment.Status != StatusScheduled {
		t.Errorf("advance booking should be scheduled, got %s", res.Appointment.Status)
	}

	_, err = f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: d1, PatientID: p2, Date: "2025-03-10", Time: "10:00", Mode: "advance",
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for second patient, got %v", err)
	}

	// A different slot on the same date is still free.
	if _, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: d1, PatientID: p2, Date: "2025-03-10", Time: "10:30", Mode: "advance",
	}); err != nil {
		t.Fatalf("adjacent slot should be free: %v", err)
	}
}

func TestReserveIdempotentForSamePatient(t *testing.T) {
	f := newFixture()
	d := f.addDoctor(account.TypeAdvance)
	p := f.addPatient()

	req := ReserveRequest{DoctorID: d, PatientID: p, Date: "2025-03-10", Time: "10:00", Mode: "advance"}

	first, err := f.svc.Reserve(context.Background(), req)
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	second, err := f.svc.Reserve(context.Background(), req)
	if err != nil {
		t.Fatalf("resubmit should not fail: %v", err)
	}
	if second.Created {
		t.Error("resubmit must not create a second row")
	}
	if second.Appointment.ID != first.Appointment.ID {
		t.Error("resubmit must return the existing appointment")
	}

	appts, _ := f.store.ListByPatient(context.Background(), p)
	if len(appts) != 1 {
		t.Fatalf("expected exactly 1 stored appointment, got %d", len(appts))
	}
}

func TestConcurrentReserveSingleWinner(t *testing.T) {
	f := newFixture()
	d := f.addDoctor(account.TypeAdvance)

	const attempts = 40
	patients := make([]uuid.UUID, attempts)
	for i := range patients {
		patients[i] = f.addPatient()
	}

	var wg sync.WaitGroup
	var created, taken int64
	var mu sync.Mutex

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(p uuid.UUID) {
			defer wg.Done()
			res, err := f.svc.Reserve(context.Background(), ReserveRequest{
				DoctorID: d, PatientID: p, Date: "2025-03-10", Time: "10:00", Mode: "advance",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && res.Created:
				created++
			case errors.Is(err, ErrSlotTaken):
				taken++
			default:
				t.Errorf("unexpected outcome: res=%v err=%v", res, err)
			}
		}(patients[i])
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("expected exactly 1 winner, got %d", created)
	}
	if taken != attempts-1 {
		t.Errorf("expected %d conflicts, got %d", attempts-1, taken)
	}

	times, _ := f.store.ActiveTimes(context.Background(), d, "2025-03-10")
	if len(times) != 1 {
		t.Errorf("store holds %d active appointments for the slot, want 1", len(times))
	}
}

func TestWelcomeMessageSingleFire(t *testing.T) {
	f := newFixture()
	d := f.addDoctor(account.TypeAdvance)
	p := f.addPatient()

	for _, slot := range []string{"10:00", "11:00"} {
		if _, err := f.svc.Reserve(context.Background(), ReserveRequest{
			DoctorID: d, PatientID: p, Date: "2025-03-10", Time: slot, Mode: "advance",
		}); err != nil {
			t.Fatalf("reserve %s: %v", slot, err)
		}
	}

	msgs, _ := f.store.ListMessages(context.Background(), p, d)
	var welcomes, notices int
	for _, m := range msgs {
		switch m.Kind {
		case MessageWelcome:
			welcomes++
			if m.SenderID != d {
				t.Error("welcome message should come from the doctor")
			}
			if !m.Automatic() {
				t.Error("welcome message should be automatic")
			}
		case MessageBookingNotice:
			notices++
		}
	}
	if welcomes != 1 {
		t.Errorf("expected exactly 1 welcome message, got %d", welcomes)
	}
	if notices != 1 {
		t.Errorf("expected 1 booking notice for the repeat booking, got %d", notices)
	}
}

func TestBookingNotifiesDoctor(t *testing.T) {
	f := newFixture()
	d := f.addDoctor(account.TypeAdvance)
	p := f.addPatient()

	res, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: d, PatientID: p, Date: "2025-03-10", Time: "10:00", Mode: "advance",
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	notifs, _ := f.store.ListNotifications(context.Background(), d)
	if len(notifs) != 1 {
		t.Fatalf("expected 1 doctor notification, got %d", len(notifs))
	}
	n := notifs[0]
	if n.Type != NotifBookingCreated {
		t.Errorf("expected type %s, got %s", NotifBookingCreated, n.Type)
	}
	if n.AppointmentID == nil || *n.AppointmentID != res.Appointment.ID {
		t.Error("notification should reference the appointment")
	}
}

func TestInstantOfferResolvedAtBooking(t *testing.T) {
	f := newFixture()
	d := f.addDoctor(account.TypeInstant)
	p := f.addPatient()

	res, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: d, PatientID: p, Time: "+1h", Mode: "instant",
	})
	if err != nil {
		t.Fatalf("reserve instant: %v", err)
	}
	appt := res.Appointment
	if appt.Status != StatusInstant {
		t.Errorf("instant booking should have instant status, got %s", appt.Status)
	}
	// The label is resolved against the fixture clock (2025-03-01 12:00).
	if appt.Date != "2025-03-01" || appt.Time != "13:00" {
		t.Errorf("+1h should resolve to 2025-03-01 13:00, got %s %s", appt.Date, appt.Time)
	}
}

func TestReserveEligibility(t *testing.T) {
	f := newFixture()
	p := f.addPatient()

	pending := f.addPendingDoctor()
	if _, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: pending, PatientID: p, Date: "2025-03-10", Time: "10:00", Mode: "advance",
	}); !errors.Is(err, ErrDoctorNotBookable) {
		t.Errorf("pending doctor: expected ErrDoctorNotBookable, got %v", err)
	}

	advanceOnly := f.addDoctor(account.TypeAdvance)
	if _, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: advanceOnly, PatientID: p, Time: "now", Mode: "instant",
	}); !errors.Is(err, ErrModeNotOffered) {
		t.Errorf("advance-only doctor in instant mode: expected ErrModeNotOffered, got %v", err)
	}

	if _, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: uuid.New(), PatientID: p, Date: "2025-03-10", Time: "10:00", Mode: "advance",
	}); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("unknown doctor: expected ErrDoctorNotFound, got %v", err)
	}

	d := f.addDoctor(account.TypeAdvance)
	if _, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: d, PatientID: uuid.New(), Date: "2025-03-10", Time: "10:00", Mode: "advance",
	}); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("unknown patient: expected ErrPatientNotFound, got %v", err)
	}
}

func TestReserveValidation(t *testing.T) {
	f := newFixture()
	d := f.addDoctor(account.TypeBoth)
	p := f.addPatient()

	cases := []struct {
		name string
		req  ReserveRequest
	}{
		{"unknown mode", ReserveRequest{DoctorID: d, PatientID: p, Date: "2025-03-10", Time: "10:00", Mode: "someday"}},
		{"bad date", ReserveRequest{DoctorID: d, PatientID: p, Date: "10/03/2025", Time: "10:00", Mode: "advance"}},
		{"past date", ReserveRequest{DoctorID: d, PatientID: p, Date: "2025-02-01", Time: "10:00", Mode: "advance"}},
		{"off-grid slot", ReserveRequest{DoctorID: d, PatientID: p, Date: "2025-03-10", Time: "10:15", Mode: "advance"}},
		{"unknown offer", ReserveRequest{DoctorID: d, PatientID: p, Time: "tomorrow", Mode: "instant"}},
		{"empty offer", ReserveRequest{DoctorID: d, PatientID: p, Mode: "instant"}},
	}
	for _, tc := range cases {
		if _, err := f.svc.Reserve(context.Background(), tc.req); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestReserveOnBlockedDate(t *testing.T) {
	f := newFixture()
	d := f.addDoctor(account.TypeAdvance)
	p := f.addPatient()

	f.blocks.blocks = append(f.blocks.blocks, availability.Block{
		ID: uuid.New(), DoctorID: d, Date: "2025-03-10", StartTime: "00:00", EndTime: "23:59",
	})

	if _, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: d, PatientID: p, Date: "2025-03-10", Time: "10:00", Mode: "advance",
	}); !errors.Is(err, ErrDateUnavailable) {
		t.Fatalf("expected ErrDateUnavailable, got %v", err)
	}

	// Partial blocks leave the date bookable.
	f.blocks.blocks[0].StartTime = "09:00"
	f.blocks.blocks[0].EndTime = "11:00"
	if _, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: d, PatientID: p, Date: "2025-03-10", Time: "14:00", Mode: "advance",
	}); err != nil {
		t.Fatalf("partial block should not blank the date: %v", err)
	}
}

func TestCompleteLifecycle(t *testing.T) {
	f := newFixture()
	d := f.addDoctor(account.TypeAdvance)
	other := f.addDoctor(account.TypeAdvance)
	p := f.addPatient()

	res, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: d, PatientID: p, Date: "2025-03-10", Time: "10:00", Mode: "advance",
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	apptID := res.Appointment.ID

	if _, err := f.svc.Complete(context.Background(), apptID, other); !errors.Is(err, ErrNotAppointmentDoctor) {
		t.Fatalf("expected ErrNotAppointmentDoctor for other doctor, got %v", err)
	}

	done, err := f.svc.Complete(context.Background(), apptID, d)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}

	notifs, _ := f.store.ListNotifications(context.Background(), p)
	var results int
	for _, n := range notifs {
		if n.Type == NotifResultsAvailable {
			results++
		}
	}
	if results != 1 {
		t.Fatalf("expected 1 results notification for the patient, got %d", results)
	}

	// Completing again is a no-op and fires nothing new.
	again, err := f.svc.Complete(context.Background(), apptID, d)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if again.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", again.Status)
	}
	notifs, _ = f.store.ListNotifications(context.Background(), p)
	results = 0
	for _, n := range notifs {
		if n.Type == NotifResultsAvailable {
			results++
		}
	}
	if results != 1 {
		t.Errorf("second complete duplicated the results notification: %d", results)
	}

	// The slot frees up once the appointment is no longer active.
	if _, err := f.svc.Reserve(context.Background(), ReserveRequest{
		DoctorID: d, PatientID: p, Date: "2025-03-10", Time: "10:00", Mode: "advance",
	}); err != nil {
		t.Fatalf("completed appointment should release the slot: %v", err)
	}

	if _, err := f.svc.Complete(context.Background(), uuid.New(), d); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestRepairSideEffects(t *testing.T) {
	f := newFixture()
	d := f.addDoctor(account.TypeAdvance)
	p := f.addPatient()

	// An appointment persisted without its notification, as if the process
	// died between the insert and the side effects.
	orphan := &Appointment{
		ID:        uuid.New(),
		DoctorID:  d,
		PatientID: p,
		Date:      "2025-03-10",
		Time:      "10:00",
		Status:    StatusScheduled,
		Type:      "advance",
	}
	if _, err := f.store.CreateActiveAppointment(context.Background(), orphan); err != nil {
		t.Fatalf("seed orphan: %v", err)
	}

	repaired, err := f.svc.RepairSideEffects(context.Background())
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("expected 1 repaired notification, got %d", repaired)
	}

	notifs, _ := f.store.ListNotifications(context.Background(), d)
	if len(notifs) != 1 || notifs[0].Type != NotifBookingCreated {
		t.Fatalf("expected the booking notification to be recreated, got %v", notifs)
	}

	// Nothing left to repair on the second run.
	repaired, err = f.svc.RepairSideEffects(context.Background())
	if err != nil {
		t.Fatalf("second repair: %v", err)
	}
	if repaired != 0 {
		t.Errorf("expected 0 on second run, got %d", repaired)
	}
}
