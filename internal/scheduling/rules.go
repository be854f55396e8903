package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prosante/appointment-scheduling/internal/timeutil"
)

// ValidateWeeklyRules checks a full weekly rule set before it replaces a
// professional's schedule: day within 0..6, HH:MM times, start strictly
// before end, at most one rule per day.
func ValidateWeeklyRules(rules []AvailabilityRule) error {
	seen := make(map[int]bool, len(rules))
	for _, r := range rules {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return ErrInvalidRuleDay
		}
		if seen[r.DayOfWeek] {
			return ErrDuplicateRuleDay
		}
		seen[r.DayOfWeek] = true

		start, err := timeutil.ParseClock(r.StartTime)
		if err != nil {
			return err
		}
		end, err := timeutil.ParseClock(r.EndTime)
		if err != nil {
			return err
		}
		if start >= end {
			return ErrInvalidRuleWindow
		}
	}
	return nil
}

// ReplaceAvailability swaps the professional's entire weekly schedule.
// Rules are never patched individually; the set is validated and replaced
// wholesale. Only the owner may edit their schedule.
func (s *Service) ReplaceAvailability(ctx context.Context, professionalID, actorID uuid.UUID, rules []AvailabilityRule) ([]AvailabilityRule, error) {
	if actorID != professionalID {
		return nil, ErrForbidden
	}
	if _, err := s.repo.GetProfessionalByID(ctx, professionalID); err != nil {
		return nil, err
	}
	if err := ValidateWeeklyRules(rules); err != nil {
		return nil, err
	}

	for i := range rules {
		rules[i].ID = uuid.New()
		rules[i].ProfessionalID = professionalID
	}
	return s.repo.ReplaceAvailability(ctx, professionalID, rules)
}

func (s *Service) ListAvailability(ctx context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error) {
	return s.repo.ListAvailability(ctx, professionalID)
}

// CreateBlockedInterval adds a one-off unavailability period. The interval
// must be well-formed, start in the future, and not overlap any existing
// block of the same professional. The overlap rule is checked here, not
// enforced by storage.
func (s *Service) CreateBlockedInterval(ctx context.Context, professionalID, actorID uuid.UUID, start, end time.Time, reason string) (*BlockedInterval, error) {
	if actorID != professionalID {
		return nil, ErrForbidden
	}
	if !end.After(start) {
		return nil, ErrBlockedIntervalInverted
	}
	if start.Before(s.now()) {
		return nil, ErrBlockedIntervalInPast
	}

	existing, err := s.repo.ListBlockedIntervals(ctx, professionalID, Window{From: start, To: end})
	if err != nil {
		return nil, fmt.Errorf("load blocked intervals: %w", err)
	}
	for _, b := range existing {
		if timeutil.IntervalsOverlap(start, end, b.StartDatetime, b.EndDatetime) {
			return nil, ErrBlockedIntervalOverlap
		}
	}

	return s.repo.InsertBlockedInterval(ctx, BlockedInterval{
		ID:             uuid.New(),
		ProfessionalID: professionalID,
		StartDatetime:  start,
		EndDatetime:    end,
		Reason:         reason,
	})
}

func (s *Service) ListBlockedIntervals(ctx context.Context, professionalID uuid.UUID, window Window) ([]BlockedInterval, error) {
	return s.repo.ListBlockedIntervals(ctx, professionalID, window)
}

func (s *Service) DeleteBlockedInterval(ctx context.Context, professionalID, actorID, id uuid.UUID) error {
	if actorID != professionalID {
		return ErrForbidden
	}
	return s.repo.DeleteBlockedInterval(ctx, professionalID, id)
}

// PruneBlockedIntervals removes blocks that ended more than retention ago.
// Called by the retention worker.
func (s *Service) PruneBlockedIntervals(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	n, err := s.repo.DeleteBlockedIntervalsEndedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune blocked intervals: %w", err)
	}
	if n > 0 {
		s.logger.Info().Int64("removed", n).Time("cutoff", cutoff).Msg("pruned old blocked intervals")
	}
	return n, nil
}
