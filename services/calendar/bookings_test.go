package calendar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"

	"inkflow/models"
	"inkflow/services/arbiter"
)

type memHoldStore struct {
	mu   sync.Mutex
	recs map[string]models.HoldRecord
}

func newMemHoldStore() *memHoldStore {
	return &memHoldStore{recs: make(map[string]models.HoldRecord)}
}

func (m *memHoldStore) PutIfAbsent(_ context.Context, key string, rec models.HoldRecord, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[key]; ok {
		return false, nil
	}
	m.recs[key] = rec
	return true, nil
}

func (m *memHoldStore) Put(_ context.Context, key string, rec models.HoldRecord, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[key] = rec
	return nil
}

func (m *memHoldStore) Get(_ context.Context, key string) (*models.HoldRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memHoldStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, key)
	return nil
}

func newTestBookings(events *fakeEvents) (*Bookings, *memHoldStore) {
	store := newMemHoldStore()
	arb := arbiter.New(store, nil, zap.NewNop(), 30*time.Minute)
	svc := NewService(events, arb, zap.NewNop(), athens, 30*time.Minute)
	arb.Calendar = svc
	return NewBookings(svc, arb), store
}

func TestBookingsCreateConfirmsAndDropsHold(t *testing.T) {
	t.Parallel()
	events := &fakeEvents{}
	b, store := newTestBookings(events)

	req := models.BookingRequest{
		CustomerName:  "Μαρία Π.",
		CustomerPhone: "6912345678",
		Date:          "2026-09-07",
		Time:          "14:00",
		TattooPrice:   120,
		UserID:        "cust-1",
	}
	eventID, err := b.CreateBooking(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if eventID == "" {
		t.Fatal("no event ID returned")
	}
	if len(events.events) != 1 {
		t.Fatalf("calendar has %d events, want 1", len(events.events))
	}
	if rec, _ := store.Get(context.Background(), "2026-09-07T14:00"); rec != nil {
		t.Error("hold must be dropped after confirmation")
	}
}

func TestBookingsCreateRefusesForeignHold(t *testing.T) {
	t.Parallel()
	events := &fakeEvents{}
	b, _ := newTestBookings(events)

	ctx := context.Background()
	if _, err := b.Arbiter.RequestHold(ctx, "2026-09-07T14:00", "other-user", 0); err != nil {
		t.Fatalf("seed hold: %v", err)
	}

	_, err := b.CreateBooking(ctx, models.BookingRequest{
		CustomerName:  "Μαρία Π.",
		CustomerPhone: "6912345678",
		Date:          "2026-09-07",
		Time:          "14:00",
		TattooPrice:   120,
		UserID:        "cust-1",
	})
	if !errors.Is(err, arbiter.ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}
	if len(events.events) != 0 {
		t.Error("no event may be created for a held slot")
	}
}

func TestBookingsCreateReusesOwnHold(t *testing.T) {
	t.Parallel()
	events := &fakeEvents{}
	b, _ := newTestBookings(events)

	ctx := context.Background()
	// The availability scan already held this slot for the same user.
	if _, err := b.Arbiter.RequestHold(ctx, "2026-09-07T14:00", "cust-1", 0); err != nil {
		t.Fatalf("seed hold: %v", err)
	}

	if _, err := b.CreateBooking(ctx, models.BookingRequest{
		CustomerName:  "Μαρία Π.",
		CustomerPhone: "6912345678",
		Date:          "2026-09-07",
		Time:          "14:00",
		TattooPrice:   120,
		UserID:        "cust-1",
	}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("calendar has %d events, want 1", len(events.events))
	}
}

func TestBookingsCreateRefusesFullSlot(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 9, 7, 14, 0, 0, 0, athens)
	events := &fakeEvents{events: []*gcal.Event{
		timedEvent("ev1", start, start.Add(time.Hour)),
		timedEvent("ev2", start, start.Add(time.Hour)),
	}}
	b, _ := newTestBookings(events)

	_, err := b.CreateBooking(context.Background(), models.BookingRequest{
		CustomerName:  "Μαρία Π.",
		CustomerPhone: "6912345678",
		Date:          "2026-09-07",
		Time:          "14:00",
		TattooPrice:   100,
		UserID:        "cust-1",
	})
	if !errors.Is(err, arbiter.ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}
}
