package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/prosante/appointment-scheduling/internal/redis"
	"github.com/prosante/appointment-scheduling/internal/timeutil"
)

// Service is the scheduling engine. It composes the availability matcher,
// the blocked-interval checker and the appointment conflict checker, and
// enforces the appointment lifecycle. Every operation re-reads store state;
// nothing is held between calls.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		logger: logger,
		now:    time.Now,
	}
}

// CreateInput carries a validated create request. Field-shape validation
// (name lengths, phone pattern, duration bounds) happens in the transport
// layer before the engine runs.
type CreateInput struct {
	ProviderID       uuid.UUID
	PatientFirstName string
	PatientLastName  string
	PatientPhone     string
	Reason           string
	Date             string
	Time             string
	Duration         int
	Notes            *string
}

// CreateAppointment validates a booking request against the provider's
// weekly availability, blocked intervals and existing active appointments,
// then persists it in pending state. The conflict checks and the insert run
// inside a per-provider lock; the store's exclusion constraint backs the
// lock up.
func (s *Service) CreateAppointment(ctx context.Context, requesterID uuid.UUID, in CreateInput) (*Appointment, error) {
	if in.ProviderID == requesterID {
		return nil, ErrSelfBookingDenied
	}

	if _, err := s.repo.GetProfessionalByID(ctx, in.ProviderID); err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	start, err := timeutil.ToInstant(in.Date, in.Time)
	if err != nil {
		return nil, err
	}
	if !start.After(s.now()) {
		return nil, ErrPastSlot
	}
	end := timeutil.AddMinutes(start, in.Duration)

	var created *Appointment

	err = s.locker.WithProviderLock(ctx, in.ProviderID, func(lockCtx context.Context) error {
		if err := s.checkSlot(lockCtx, in.ProviderID, in.Date, in.Time, start, end, uuid.Nil); err != nil {
			return err
		}

		appt, err := s.repo.InsertAppointment(lockCtx, Appointment{
			ID:               uuid.New(),
			RequesterID:      requesterID,
			ProviderID:       in.ProviderID,
			PatientFirstName: in.PatientFirstName,
			PatientLastName:  in.PatientLastName,
			PatientPhone:     in.PatientPhone,
			Reason:           in.Reason,
			Date:             in.Date,
			Time:             in.Time,
			Duration:         in.Duration,
			Status:           StatusPending,
			Notes:            in.Notes,
			StartsAt:         start,
			EndsAt:           end,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarBusy
		}
		return nil, err
	}

	// Notification dispatch is an external concern; mark the trigger point.
	s.logger.Info().
		Str("event", "appointment_created").
		Str("appointment_id", created.ID.String()).
		Str("provider_id", created.ProviderID.String()).
		Msg("notify provider of new appointment request")

	return created, nil
}

// checkSlot runs the availability, blocked-interval and appointment
// conflict checks in order; the first failure wins.
func (s *Service) checkSlot(ctx context.Context, providerID uuid.UUID, date, clock string, start, end time.Time, exclude uuid.UUID) error {
	within, err := s.isWithinAvailability(ctx, providerID, date, clock)
	if err != nil {
		return err
	}
	if !within {
		return ErrOutsideAvailability
	}

	blocked, err := s.hasBlockingConflict(ctx, providerID, start, end)
	if err != nil {
		return err
	}
	if blocked {
		return ErrSlotBlocked
	}

	conflict, err := s.hasAppointmentConflict(ctx, providerID, date, start, end, exclude)
	if err != nil {
		return err
	}
	if conflict {
		return ErrSlotTaken
	}
	return nil
}

// UpdateAppointment applies a patch on behalf of the actor, enforcing the
// status state machine and per-role permissions, and re-validating the slot
// when a pending appointment is being moved.
func (s *Service) UpdateAppointment(ctx context.Context, appointmentID, actorID uuid.UUID, patch AppointmentPatch) (*Appointment, error) {
	current, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if actorID != current.RequesterID && actorID != current.ProviderID {
		return nil, ErrForbidden
	}
	isProvider := actorID == current.ProviderID

	if patch.Status != nil {
		if err := validateTransition(current.Status, *patch.Status, isProvider); err != nil {
			return nil, err
		}
	}

	next := *current
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.Notes != nil {
		next.Notes = patch.Notes
	}
	if patch.Reason != nil {
		next.Reason = *patch.Reason
	}

	if !patch.HasSlotChange() {
		updated, err := s.repo.UpdateAppointment(ctx, next)
		if err != nil {
			return nil, err
		}
		s.logStatusChange(current, updated)
		return updated, nil
	}

	// Slot fields may only move while the appointment is still pending.
	if current.Status != StatusPending {
		return nil, ErrRescheduleNotPending
	}

	if patch.Date != nil {
		next.Date = *patch.Date
	}
	if patch.Time != nil {
		next.Time = *patch.Time
	}
	if patch.Duration != nil {
		next.Duration = *patch.Duration
	}

	start, err := timeutil.ToInstant(next.Date, next.Time)
	if err != nil {
		return nil, err
	}
	if !start.After(s.now()) {
		return nil, ErrPastSlot
	}
	end := timeutil.AddMinutes(start, next.Duration)
	next.StartsAt = start
	next.EndsAt = end

	var updated *Appointment
	err = s.locker.WithProviderLock(ctx, current.ProviderID, func(lockCtx context.Context) error {
		// The appointment's own row is excluded so an unchanged or shifted
		// slot never conflicts with itself.
		if err := s.checkSlot(lockCtx, current.ProviderID, next.Date, next.Time, start, end, current.ID); err != nil {
			return err
		}
		u, err := s.repo.UpdateAppointment(lockCtx, next)
		if err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarBusy
		}
		return nil, err
	}

	s.logStatusChange(current, updated)
	return updated, nil
}

// DeleteAppointment removes an appointment; only the requester or provider
// may do so, and only while it is pending or cancelled.
func (s *Service) DeleteAppointment(ctx context.Context, appointmentID, actorID uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return err
	}

	if actorID != appt.RequesterID && actorID != appt.ProviderID {
		return ErrForbidden
	}

	if appt.Status != StatusPending && appt.Status != StatusCancelled {
		return ErrCannotDeleteActive
	}

	return s.repo.DeleteAppointment(ctx, appointmentID)
}

// GetAppointment returns one appointment, visible only to its requester or
// provider.
func (s *Service) GetAppointment(ctx context.Context, appointmentID, actorID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actorID != appt.RequesterID && actorID != appt.ProviderID {
		return nil, ErrForbidden
	}
	return appt, nil
}

// ListAppointments returns the actor's appointments (as requester or
// provider) with optional filters. Returns the page and the total count.
func (s *Service) ListAppointments(ctx context.Context, actorID uuid.UUID, filter ListFilter) ([]Appointment, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 50 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListAppointmentsForActor(ctx, actorID, filter)
}

// GetProfessional exposes the directory lookup consumed during validation.
func (s *Service) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return s.repo.GetProfessionalByID(ctx, id)
}

// validateTransition enforces the lifecycle table:
//
//	pending   -> confirmed  provider only
//	pending   -> cancelled  requester or provider
//	confirmed -> completed  provider only
//	confirmed -> cancelled  requester or provider
//
// cancelled and completed are terminal. A transition missing from the table
// is invalid; a listed transition by the wrong actor is forbidden.
func validateTransition(from, to AppointmentStatus, isProvider bool) error {
	switch {
	case from == StatusPending && to == StatusConfirmed:
		if !isProvider {
			return ErrForbidden
		}
	case from == StatusPending && to == StatusCancelled:
	case from == StatusConfirmed && to == StatusCompleted:
		if !isProvider {
			return ErrForbidden
		}
	case from == StatusConfirmed && to == StatusCancelled:
	default:
		return ErrInvalidTransition
	}
	return nil
}

func (s *Service) logStatusChange(before, after *Appointment) {
	if before.Status == after.Status {
		return
	}
	s.logger.Info().
		Str("event", "appointment_status_changed").
		Str("appointment_id", after.ID.String()).
		Str("from", string(before.Status)).
		Str("to", string(after.Status)).
		Msg("notify counterpart of status change")
}
