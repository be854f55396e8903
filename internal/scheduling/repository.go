package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Window bounds a blocked-interval query. A zero From or To leaves that
// side unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

// Repository contains all store interactions needed by the engine. The
// engine treats everything it reads as a value object for the duration of
// one operation; nothing is cached across calls.
type Repository interface {
	GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error)

	// GetActiveRule returns the active availability rule for (professional,
	// dayOfWeek), or nil when the professional has no rule that day.
	GetActiveRule(ctx context.Context, professionalID uuid.UUID, dayOfWeek int) (*AvailabilityRule, error)
	ListAvailability(ctx context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error)
	// ReplaceAvailability swaps the professional's full weekly rule set in
	// one transaction.
	ReplaceAvailability(ctx context.Context, professionalID uuid.UUID, rules []AvailabilityRule) ([]AvailabilityRule, error)

	// ListBlockedIntervals returns intervals that could intersect the
	// window; the precise overlap check happens in memory.
	ListBlockedIntervals(ctx context.Context, professionalID uuid.UUID, window Window) ([]BlockedInterval, error)
	InsertBlockedInterval(ctx context.Context, bi BlockedInterval) (*BlockedInterval, error)
	DeleteBlockedInterval(ctx context.Context, professionalID, id uuid.UUID) error
	// DeleteBlockedIntervalsEndedBefore prunes housekeeping rows; returns
	// the number removed.
	DeleteBlockedIntervalsEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ListActiveAppointments returns the provider's pending and confirmed
	// appointments on a YYYY-MM-DD date.
	ListActiveAppointments(ctx context.Context, providerID uuid.UUID, date string) ([]Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsForActor(ctx context.Context, actorID uuid.UUID, filter ListFilter) ([]Appointment, int, error)
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
}
