package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/prosante/appointment-scheduling/internal/redis"
)

// memRepo is an in-memory Repository for engine tests.
type memRepo struct {
	professionals map[uuid.UUID]Professional
	rules         map[uuid.UUID][]AvailabilityRule
	blocked       map[uuid.UUID][]BlockedInterval
	appointments  map[uuid.UUID]Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{
		professionals: make(map[uuid.UUID]Professional),
		rules:         make(map[uuid.UUID][]AvailabilityRule),
		blocked:       make(map[uuid.UUID][]BlockedInterval),
		appointments:  make(map[uuid.UUID]Appointment),
	}
}

func (m *memRepo) addProfessional(id uuid.UUID) {
	m.professionals[id] = Professional{ID: id, FirstName: "Test", LastName: "Pro", Profession: "physio"}
}

func (m *memRepo) GetProfessionalByID(_ context.Context, id uuid.UUID) (*Professional, error) {
	p, ok := m.professionals[id]
	if !ok {
		return nil, ErrProfessionalNotFound
	}
	return &p, nil
}

func (m *memRepo) GetActiveRule(_ context.Context, professionalID uuid.UUID, dayOfWeek int) (*AvailabilityRule, error) {
	for _, r := range m.rules[professionalID] {
		if r.DayOfWeek == dayOfWeek && r.IsActive {
			rule := r
			return &rule, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ListAvailability(_ context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error) {
	rules := append([]AvailabilityRule(nil), m.rules[professionalID]...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].DayOfWeek < rules[j].DayOfWeek })
	return rules, nil
}

func (m *memRepo) ReplaceAvailability(_ context.Context, professionalID uuid.UUID, rules []AvailabilityRule) ([]AvailabilityRule, error) {
	m.rules[professionalID] = append([]AvailabilityRule(nil), rules...)
	return rules, nil
}

func (m *memRepo) ListBlockedIntervals(_ context.Context, professionalID uuid.UUID, window Window) ([]BlockedInterval, error) {
	var result []BlockedInterval
	for _, b := range m.blocked[professionalID] {
		if !window.From.IsZero() && !b.EndDatetime.After(window.From) {
			continue
		}
		if !window.To.IsZero() && !b.StartDatetime.Before(window.To) {
			continue
		}
		result = append(result, b)
	}
	return result, nil
}

func (m *memRepo) InsertBlockedInterval(_ context.Context, bi BlockedInterval) (*BlockedInterval, error) {
	bi.CreatedAt = time.Now()
	m.blocked[bi.ProfessionalID] = append(m.blocked[bi.ProfessionalID], bi)
	return &bi, nil
}

func (m *memRepo) DeleteBlockedInterval(_ context.Context, professionalID, id uuid.UUID) error {
	blocks := m.blocked[professionalID]
	for i, b := range blocks {
		if b.ID == id {
			m.blocked[professionalID] = append(blocks[:i], blocks[i+1:]...)
			return nil
		}
	}
	return ErrBlockedIntervalNotFound
}

func (m *memRepo) DeleteBlockedIntervalsEndedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for pid, blocks := range m.blocked {
		var kept []BlockedInterval
		for _, b := range blocks {
			if b.EndDatetime.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, b)
		}
		m.blocked[pid] = kept
	}
	return removed, nil
}

func (m *memRepo) ListActiveAppointments(_ context.Context, providerID uuid.UUID, date string) ([]Appointment, error) {
	var result []Appointment
	for _, a := range m.appointments {
		if a.ProviderID == providerID && a.Date == date &&
			(a.Status == StatusPending || a.Status == StatusConfirmed) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memRepo) ListAppointmentsForActor(_ context.Context, actorID uuid.UUID, filter ListFilter) ([]Appointment, int, error) {
	var result []Appointment
	for _, a := range m.appointments {
		if a.RequesterID != actorID && a.ProviderID != actorID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.ProviderID != uuid.Nil && a.ProviderID != filter.ProviderID {
			continue
		}
		if filter.RequesterID != uuid.Nil && a.RequesterID != filter.RequesterID {
			continue
		}
		if filter.DateFrom != "" && a.Date < filter.DateFrom {
			continue
		}
		if filter.DateTo != "" && a.Date > filter.DateTo {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Time < result[j].Time
	})
	total := len(result)
	if filter.Offset >= len(result) {
		return nil, total, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

func (m *memRepo) InsertAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	m.appointments[a.ID] = a
	return &a, nil
}

func (m *memRepo) UpdateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	if _, ok := m.appointments[a.ID]; !ok {
		return nil, ErrAppointmentNotFound
	}
	a.UpdatedAt = time.Now()
	m.appointments[a.ID] = a
	return &a, nil
}

func (m *memRepo) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	if _, ok := m.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(m.appointments, id)
	return nil
}

// passLocker runs the critical section inline, single test process.
type passLocker struct{}

func (passLocker) WithProviderLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// busyLocker simulates a calendar lock held by someone else.
type busyLocker struct{}

func (busyLocker) WithProviderLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}
