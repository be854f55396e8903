package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prosante/appointment-scheduling/internal/timeutil"
)

// isWithinAvailability reports whether the provider's weekly schedule
// accepts a slot starting at (date, clock). The rule window is treated as a
// closed interval for the slot start: a booking may begin exactly at
// end_time and run past it.
func (s *Service) isWithinAvailability(ctx context.Context, providerID uuid.UUID, date, clock string) (bool, error) {
	dayOfWeek, err := timeutil.DayOfWeek(date)
	if err != nil {
		return false, err
	}

	rule, err := s.repo.GetActiveRule(ctx, providerID, dayOfWeek)
	if err != nil {
		return false, fmt.Errorf("load availability rule: %w", err)
	}
	if rule == nil {
		// No rule for that day means unavailable by default.
		return false, nil
	}

	slot, err := timeutil.ParseClock(clock)
	if err != nil {
		return false, err
	}
	start, err := timeutil.ParseClock(rule.StartTime)
	if err != nil {
		return false, fmt.Errorf("rule start time for provider %s: %w", providerID, err)
	}
	end, err := timeutil.ParseClock(rule.EndTime)
	if err != nil {
		return false, fmt.Errorf("rule end time for provider %s: %w", providerID, err)
	}

	return start <= slot && slot <= end, nil
}

// hasBlockingConflict reports whether [candidateStart, candidateEnd)
// overlaps any of the provider's one-off blocked intervals. The store does
// a coarse window filter; the precise half-open check happens here.
func (s *Service) hasBlockingConflict(ctx context.Context, providerID uuid.UUID, candidateStart, candidateEnd time.Time) (bool, error) {
	blocks, err := s.repo.ListBlockedIntervals(ctx, providerID, Window{From: candidateStart, To: candidateEnd})
	if err != nil {
		return false, fmt.Errorf("load blocked intervals: %w", err)
	}

	for _, b := range blocks {
		if timeutil.IntervalsOverlap(candidateStart, candidateEnd, b.StartDatetime, b.EndDatetime) {
			return true, nil
		}
	}
	return false, nil
}

// hasAppointmentConflict reports whether the candidate interval overlaps
// any pending or confirmed appointment of the provider on the same date.
// exclude removes the appointment being rescheduled so it cannot conflict
// with itself; pass uuid.Nil on create.
func (s *Service) hasAppointmentConflict(ctx context.Context, providerID uuid.UUID, date string, candidateStart, candidateEnd time.Time, exclude uuid.UUID) (bool, error) {
	existing, err := s.repo.ListActiveAppointments(ctx, providerID, date)
	if err != nil {
		return false, fmt.Errorf("load active appointments: %w", err)
	}

	for _, a := range existing {
		if exclude != uuid.Nil && a.ID == exclude {
			continue
		}
		start, err := timeutil.ToInstant(a.Date, a.Time)
		if err != nil {
			return false, fmt.Errorf("stored appointment %s has invalid slot: %w", a.ID, err)
		}
		end := timeutil.AddMinutes(start, a.Duration)
		if timeutil.IntervalsOverlap(candidateStart, candidateEnd, start, end) {
			return true, nil
		}
	}
	return false, nil
}
