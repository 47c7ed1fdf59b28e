package calendar

import "errors"

// ErrRescheduleIncomplete marks a reschedule that removed the original
// booking but failed to create the replacement. The caller must surface
// this to the customer so the appointment is not silently lost.
var ErrRescheduleIncomplete = errors.New("reschedule incomplete: original booking cancelled, new booking not created")
