package scheduling

import "errors"

// Every failure mode of the engine is a sentinel so the API layer can map
// it to a stable HTTP response with errors.Is.
var (
	ErrSelfBookingDenied    = errors.New("cannot book an appointment with yourself")
	ErrProviderNotFound     = errors.New("provider not found")
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrPastSlot             = errors.New("appointment slot is in the past")
	ErrOutsideAvailability  = errors.New("provider is not available at this time")
	ErrSlotBlocked          = errors.New("slot falls within a blocked interval")
	ErrSlotTaken            = errors.New("provider already has an appointment at this time")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrForbidden            = errors.New("not allowed to act on this appointment")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrCannotDeleteActive   = errors.New("only pending or cancelled appointments can be deleted")
	ErrRescheduleNotPending = errors.New("only pending appointments can be rescheduled")

	ErrInvalidRuleWindow   = errors.New("availability rule start must be before end")
	ErrDuplicateRuleDay    = errors.New("at most one availability rule per day")
	ErrInvalidRuleDay      = errors.New("availability rule day must be between 0 and 6")

	// ErrCalendarBusy means another booking holds the provider's calendar
	// lock; the caller should retry shortly.
	ErrCalendarBusy = errors.New("provider calendar is busy, retry")

	ErrBlockedIntervalNotFound = errors.New("blocked interval not found")
	ErrBlockedIntervalInPast   = errors.New("cannot block an interval in the past")
	ErrBlockedIntervalInverted = errors.New("blocked interval end must be after start")
	ErrBlockedIntervalOverlap  = errors.New("interval overlaps an existing blocked interval")

	// ErrStoreUnavailable wraps connectivity failures from the persistent
	// store. Not retried here; retry policy belongs to the transport.
	ErrStoreUnavailable = errors.New("store unavailable")
)
