// Package arbiter decides which of several concurrent booking attempts wins a
// calendar slot. A hold is a short-lived reservation living only in the hold
// store; the calendar stays the system of record for confirmed bookings.
package arbiter

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inkflow/models"
)

// CalendarBackend is the slice of the calendar adapter the arbiter needs.
type CalendarBackend interface {
	// HasConflict reports whether the calendar already has a blocking event
	// in [start, end).
	HasConflict(ctx context.Context, start, end time.Time) (bool, error)
	// CreateBooking inserts the confirmed event and returns its ID.
	CreateBooking(ctx context.Context, req models.BookingRequest) (string, error)
}

// Arbiter serializes concurrent access to booking slots through conditional
// writes on the hold store.
type Arbiter struct {
	Store    HoldStore
	Calendar CalendarBackend
	Logger   *zap.Logger
	HoldTTL  time.Duration

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func New(store HoldStore, cal CalendarBackend, logger *zap.Logger, ttl time.Duration) *Arbiter {
	return &Arbiter{
		Store:    store,
		Calendar: cal,
		Logger:   logger,
		HoldTTL:  ttl,
		Now:      time.Now,
	}
}

// tokenFor encodes the slot key into the token so confirm/release can find
// the record without a secondary index.
func tokenFor(slotKey string) string {
	return slotKey + "|" + uuid.New().String()
}

func slotKeyOf(token string) (string, error) {
	idx := strings.LastIndex(token, "|")
	if idx <= 0 || idx == len(token)-1 {
		return "", ErrInvalidToken
	}
	return token[:idx], nil
}

// RequestHold places a hold on slotKey for holder, valid for ttl (the
// arbiter default when ttl is zero). It succeeds only when no unexpired hold
// by another holder exists; a repeat request by the same holder refreshes
// the hold and succeeds.
func (a *Arbiter) RequestHold(ctx context.Context, slotKey, holder string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = a.HoldTTL
	}
	now := a.Now()
	rec := models.HoldRecord{
		Token:     tokenFor(slotKey),
		Holder:    holder,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	ok, err := a.Store.PutIfAbsent(ctx, slotKey, rec, ttl)
	if err != nil {
		return "", err
	}
	if ok {
		a.Logger.Debug("slot hold placed",
			zap.String("slot", slotKey), zap.String("holder", holder))
		return rec.Token, nil
	}

	existing, err := a.Store.Get(ctx, slotKey)
	if err != nil {
		return "", err
	}
	// The record may have expired between the failed SetNX and the read, or
	// the store may lack native expiry; check the timestamp either way.
	if existing == nil || existing.Expired(now) || existing.Holder == holder {
		// Take over through delete-and-retry: the conditional write stays
		// the only arbiter. An unconditional overwrite here would let two
		// takeovers of the same expired record both win.
		if err := a.Store.Delete(ctx, slotKey); err != nil {
			return "", err
		}
		ok, err = a.Store.PutIfAbsent(ctx, slotKey, rec, ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return rec.Token, nil
		}
	}

	return "", ErrSlotUnavailable
}

// Confirm promotes a hold to a confirmed calendar booking. The hold must
// still exist, be unexpired, and belong to the same holder; otherwise the
// caller must restart from an availability check.
func (a *Arbiter) Confirm(ctx context.Context, token, holder string, req models.BookingRequest) (string, error) {
	slotKey, err := slotKeyOf(token)
	if err != nil {
		return "", err
	}

	rec, err := a.Store.Get(ctx, slotKey)
	if err != nil {
		return "", err
	}
	if rec == nil || rec.Expired(a.Now()) || rec.Token != token || rec.Holder != holder {
		return "", ErrHoldExpired
	}

	eventID, err := a.Calendar.CreateBooking(ctx, req)
	if err != nil {
		return "", err
	}

	if derr := a.Store.Delete(ctx, slotKey); derr != nil {
		// The booking exists; the stale hold will age out via TTL.
		a.Logger.Warn("failed to delete hold after confirm",
			zap.String("slot", slotKey), zap.Error(derr))
	}

	a.Logger.Info("booking confirmed",
		zap.String("slot", slotKey),
		zap.String("holder", holder),
		zap.String("event", eventID))
	return eventID, nil
}

// Release drops the hold behind token regardless of its expiry state.
// Releasing a missing or foreign hold is a no-op.
func (a *Arbiter) Release(ctx context.Context, token string) error {
	slotKey, err := slotKeyOf(token)
	if err != nil {
		return nil
	}
	rec, err := a.Store.Get(ctx, slotKey)
	if err != nil || rec == nil {
		return nil
	}
	if rec.Token != token {
		// Slot was re-held by someone else; leave their hold alone.
		return nil
	}
	if err := a.Store.Delete(ctx, slotKey); err != nil {
		a.Logger.Warn("failed to release hold", zap.String("slot", slotKey), zap.Error(err))
	}
	return nil
}

// CheckAvailability asks the calendar whether the slot window is free of
// blocking events. Holds are deliberately ignored here: a slot can read free
// from the calendar and still be unavailable to a second conversation.
func (a *Arbiter) CheckAvailability(ctx context.Context, start time.Time, duration time.Duration) (bool, error) {
	busy, err := a.Calendar.HasConflict(ctx, start, start.Add(duration))
	if err != nil {
		return false, err
	}
	return !busy, nil
}

// HeldByOther reports whether slotKey carries an unexpired hold from a
// holder other than the given one. Used by availability scans.
func (a *Arbiter) HeldByOther(ctx context.Context, slotKey, holder string) (bool, error) {
	rec, err := a.Store.Get(ctx, slotKey)
	if err != nil {
		return false, err
	}
	if rec == nil || rec.Expired(a.Now()) {
		return false, nil
	}
	return rec.Holder != holder, nil
}
