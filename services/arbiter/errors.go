package arbiter

import "errors"

var (
	// ErrSlotUnavailable means another in-flight conversation already holds the slot.
	ErrSlotUnavailable = errors.New("slot unavailable: held by another conversation")
	// ErrHoldExpired means the hold lapsed or was taken over before confirmation.
	ErrHoldExpired = errors.New("hold expired")
	// ErrInvalidToken means the hold token does not parse.
	ErrInvalidToken = errors.New("invalid hold token")
)
