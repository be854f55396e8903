package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// All tests run against a frozen clock: Sunday 2026-03-01 12:00 UTC.
// 2026-03-02 is the following Monday.
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const monday = "2026-03-02"

func newTestService(repo *memRepo) *Service {
	svc := NewService(repo, passLocker{}, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

// setupProvider registers a provider with a Monday 09:00-18:00 rule.
func setupProvider(repo *memRepo) uuid.UUID {
	providerID := uuid.New()
	repo.addProfessional(providerID)
	repo.rules[providerID] = []AvailabilityRule{{
		ID:             uuid.New(),
		ProfessionalID: providerID,
		DayOfWeek:      1,
		StartTime:      "09:00",
		EndTime:        "18:00",
		IsActive:       true,
	}}
	return providerID
}

func createInput(providerID uuid.UUID, date, clock string, duration int) CreateInput {
	return CreateInput{
		ProviderID:       providerID,
		PatientFirstName: "Jean",
		PatientLastName:  "Dupont",
		PatientPhone:     "0612345678",
		Reason:           "consultation de suivi",
		Date:             date,
		Time:             clock,
		Duration:         duration,
	}
}

func TestCreateAppointment_SelfBooking(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)

	_, err := svc.CreateAppointment(context.Background(), providerID, createInput(providerID, monday, "10:00", 30))
	if !errors.Is(err, ErrSelfBookingDenied) {
		t.Fatalf("expected ErrSelfBookingDenied, got %v", err)
	}
}

func TestCreateAppointment_ProviderNotFound(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	_, err := svc.CreateAppointment(context.Background(), requester, createInput(uuid.New(), monday, "10:00", 30))
	if !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestCreateAppointment_PastSlot(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	// Sunday noon is "now"; an earlier Sunday time is in the past.
	_, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, "2026-03-01", "09:00", 30))
	if !errors.Is(err, ErrPastSlot) {
		t.Fatalf("expected ErrPastSlot, got %v", err)
	}

	// Exactly now is also rejected: the slot must be strictly in the future.
	_, err = svc.CreateAppointment(context.Background(), requester, createInput(providerID, "2026-03-01", "12:00", 30))
	if !errors.Is(err, ErrPastSlot) {
		t.Fatalf("expected ErrPastSlot for slot == now, got %v", err)
	}
}

func TestCreateAppointment_InvalidTimeFormat(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	_, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, "03/02/2026", "10:00", 30))
	if err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestCreateAppointment_AvailabilityGate(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	// 08:59 is one minute before the Monday window opens.
	_, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "08:59", 30))
	if !errors.Is(err, ErrOutsideAvailability) {
		t.Fatalf("expected ErrOutsideAvailability at 08:59, got %v", err)
	}

	// 09:00 is exactly the window start.
	if _, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "09:00", 30)); err != nil {
		t.Fatalf("expected success at 09:00, got %v", err)
	}

	// 18:00 still passes: the rule is a closed interval at slot start, and
	// the booking may run past closing.
	if _, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "18:00", 30)); err != nil {
		t.Fatalf("expected success at 18:00, got %v", err)
	}

	// Tuesday has no rule at all.
	_, err = svc.CreateAppointment(context.Background(), requester, createInput(providerID, "2026-03-03", "10:00", 30))
	if !errors.Is(err, ErrOutsideAvailability) {
		t.Fatalf("expected ErrOutsideAvailability on a day without a rule, got %v", err)
	}
}

func TestCreateAppointment_InactiveRule(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	repo.rules[providerID][0].IsActive = false
	requester := uuid.New()
	repo.addProfessional(requester)

	_, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30))
	if !errors.Is(err, ErrOutsideAvailability) {
		t.Fatalf("expected ErrOutsideAvailability with inactive rule, got %v", err)
	}
}

func TestCreateAppointment_BlockedInterval(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	repo.blocked[providerID] = []BlockedInterval{{
		ID:             uuid.New(),
		ProfessionalID: providerID,
		StartDatetime:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		EndDatetime:    time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		Reason:         "formation",
	}}

	_, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "11:30", 60))
	if !errors.Is(err, ErrSlotBlocked) {
		t.Fatalf("expected ErrSlotBlocked, got %v", err)
	}

	// Starting exactly when the block ends is fine (half-open intervals).
	if _, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "12:00", 30)); err != nil {
		t.Fatalf("expected success at block end, got %v", err)
	}
}

func TestCreateAppointment_DoubleBooking(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	r1 := uuid.New()
	r2 := uuid.New()
	repo.addProfessional(r1)
	repo.addProfessional(r2)

	if _, err := svc.CreateAppointment(context.Background(), r1, createInput(providerID, monday, "10:00", 30)); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	_, err := svc.CreateAppointment(context.Background(), r2, createInput(providerID, monday, "10:15", 30))
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for overlapping booking, got %v", err)
	}

	// Back-to-back is allowed.
	if _, err := svc.CreateAppointment(context.Background(), r2, createInput(providerID, monday, "10:30", 30)); err != nil {
		t.Fatalf("expected success for touching slot, got %v", err)
	}
}

func TestCreateAppointment_CancelledFreesSlot(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	appt, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	cancelled := StatusCancelled
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, requester, AppointmentPatch{Status: &cancelled}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30)); err != nil {
		t.Fatalf("expected cancelled slot to be bookable again, got %v", err)
	}
}

func TestCreateAppointment_CalendarBusy(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, busyLocker{}, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	_, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30))
	if !errors.Is(err, ErrCalendarBusy) {
		t.Fatalf("expected ErrCalendarBusy, got %v", err)
	}
}

func TestUpdateAppointment_Permissions(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	stranger := uuid.New()
	repo.addProfessional(requester)
	repo.addProfessional(stranger)

	appt, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	confirmed := StatusConfirmed
	completed := StatusCompleted

	// A third party may not touch the appointment at all.
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, stranger, AppointmentPatch{Status: &confirmed}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}

	// The requester may not confirm.
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, requester, AppointmentPatch{Status: &confirmed}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for requester confirm, got %v", err)
	}

	// The provider confirms.
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, providerID, AppointmentPatch{Status: &confirmed}); err != nil {
		t.Fatalf("provider confirm failed: %v", err)
	}

	// The requester may not complete.
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, requester, AppointmentPatch{Status: &completed}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for requester complete, got %v", err)
	}
}

func TestUpdateAppointment_TransitionTable(t *testing.T) {
	cases := []struct {
		name       string
		from, to   AppointmentStatus
		asProvider bool
		want       error
	}{
		{"pending->confirmed by provider", StatusPending, StatusConfirmed, true, nil},
		{"pending->confirmed by requester", StatusPending, StatusConfirmed, false, ErrForbidden},
		{"pending->cancelled by requester", StatusPending, StatusCancelled, false, nil},
		{"pending->cancelled by provider", StatusPending, StatusCancelled, true, nil},
		{"pending->completed", StatusPending, StatusCompleted, true, ErrInvalidTransition},
		{"confirmed->completed by provider", StatusConfirmed, StatusCompleted, true, nil},
		{"confirmed->completed by requester", StatusConfirmed, StatusCompleted, false, ErrForbidden},
		{"confirmed->cancelled by requester", StatusConfirmed, StatusCancelled, false, nil},
		{"confirmed->pending", StatusConfirmed, StatusPending, true, ErrInvalidTransition},
		{"completed->pending", StatusCompleted, StatusPending, true, ErrInvalidTransition},
		{"completed->cancelled", StatusCompleted, StatusCancelled, true, ErrInvalidTransition},
		{"cancelled->confirmed", StatusCancelled, StatusConfirmed, true, ErrInvalidTransition},
	}

	for _, c := range cases {
		got := validateTransition(c.from, c.to, c.asProvider)
		if !errors.Is(got, c.want) && !(got == nil && c.want == nil) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, got)
		}
	}
}

func TestUpdateAppointment_RescheduleExcludesSelf(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	appt, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	// Rescheduling to the slot it already occupies must not self-conflict.
	sameTime := "10:00"
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, requester, AppointmentPatch{Time: &sameTime}); err != nil {
		t.Fatalf("no-op reschedule failed: %v", err)
	}

	// Shifting by 15 minutes into its own old window is fine too.
	shifted := "10:15"
	updated, err := svc.UpdateAppointment(context.Background(), appt.ID, requester, AppointmentPatch{Time: &shifted})
	if err != nil {
		t.Fatalf("overlapping self-reschedule failed: %v", err)
	}
	if updated.Time != "10:15" {
		t.Fatalf("expected time 10:15, got %s", updated.Time)
	}
}

func TestUpdateAppointment_RescheduleConflicts(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	first, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30))
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	second, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "11:00", 30))
	if err != nil {
		t.Fatalf("second booking failed: %v", err)
	}
	_ = first

	conflicting := "10:15"
	if _, err := svc.UpdateAppointment(context.Background(), second.ID, requester, AppointmentPatch{Time: &conflicting}); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken on conflicting reschedule, got %v", err)
	}
}

func TestUpdateAppointment_DurationChangeRechecked(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	first, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30))
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if _, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:30", 30)); err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	// Stretching the first appointment into the second must fail even
	// though date and time are untouched.
	longer := 60
	if _, err := svc.UpdateAppointment(context.Background(), first.ID, requester, AppointmentPatch{Duration: &longer}); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken on duration stretch, got %v", err)
	}
}

func TestUpdateAppointment_RescheduleNotPending(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	appt, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	confirmed := StatusConfirmed
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, providerID, AppointmentPatch{Status: &confirmed}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	newTime := "11:00"
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, requester, AppointmentPatch{Time: &newTime}); !errors.Is(err, ErrRescheduleNotPending) {
		t.Fatalf("expected ErrRescheduleNotPending, got %v", err)
	}
}

func TestUpdateAppointment_NotFound(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	notes := "n/a"

	_, err := svc.UpdateAppointment(context.Background(), uuid.New(), uuid.New(), AppointmentPatch{Notes: &notes})
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestDeleteAppointment(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	stranger := uuid.New()
	repo.addProfessional(requester)

	appt, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	if err := svc.DeleteAppointment(context.Background(), appt.ID, stranger); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger delete, got %v", err)
	}

	confirmed := StatusConfirmed
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, providerID, AppointmentPatch{Status: &confirmed}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	if err := svc.DeleteAppointment(context.Background(), appt.ID, requester); !errors.Is(err, ErrCannotDeleteActive) {
		t.Fatalf("expected ErrCannotDeleteActive for confirmed delete, got %v", err)
	}

	cancelled := StatusCancelled
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, requester, AppointmentPatch{Status: &cancelled}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if err := svc.DeleteAppointment(context.Background(), appt.ID, requester); err != nil {
		t.Fatalf("delete of cancelled appointment failed: %v", err)
	}

	if err := svc.DeleteAppointment(context.Background(), appt.ID, requester); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound after delete, got %v", err)
	}
}

func TestGetAppointment_Visibility(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	appt, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, "10:00", 30))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	if _, err := svc.GetAppointment(context.Background(), appt.ID, providerID); err != nil {
		t.Fatalf("provider read failed: %v", err)
	}
	if _, err := svc.GetAppointment(context.Background(), appt.ID, uuid.New()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider read, got %v", err)
	}
}

func TestListAppointments_PaginationClamp(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)

	clocks := []string{"09:00", "09:30", "10:00", "10:30"}
	for _, c := range clocks {
		if _, err := svc.CreateAppointment(context.Background(), requester, createInput(providerID, monday, c, 30)); err != nil {
			t.Fatalf("booking at %s failed: %v", c, err)
		}
	}

	page, total, err := svc.ListAppointments(context.Background(), requester, ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected total 4, got %d", total)
	}
	if len(page) != 2 || page[0].Time != "09:30" {
		t.Fatalf("unexpected page: %+v", page)
	}

	// Oversized limit is clamped, not rejected.
	page, _, err = svc.ListAppointments(context.Background(), requester, ListFilter{Limit: 5000})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 4 {
		t.Fatalf("expected 4 results, got %d", len(page))
	}
}

// TestLifecycleScenario walks the full flow: book, conflict, confirm,
// no-op reschedule attempt, complete, then no further edits.
func TestLifecycleScenario(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	providerID := setupProvider(repo)
	requester := uuid.New()
	repo.addProfessional(requester)
	ctx := context.Background()

	appt, err := svc.CreateAppointment(ctx, requester, createInput(providerID, monday, "10:00", 30))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if appt.Status != StatusPending {
		t.Fatalf("expected pending, got %s", appt.Status)
	}

	if _, err := svc.CreateAppointment(ctx, requester, createInput(providerID, monday, "10:15", 30)); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	sameTime := "10:00"
	if _, err := svc.UpdateAppointment(ctx, appt.ID, requester, AppointmentPatch{Time: &sameTime}); err != nil {
		t.Fatalf("no-op reschedule while pending failed: %v", err)
	}

	confirmed := StatusConfirmed
	if _, err := svc.UpdateAppointment(ctx, appt.ID, providerID, AppointmentPatch{Status: &confirmed}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	completed := StatusCompleted
	final, err := svc.UpdateAppointment(ctx, appt.ID, providerID, AppointmentPatch{Status: &completed})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}

	pending := StatusPending
	if _, err := svc.UpdateAppointment(ctx, appt.ID, providerID, AppointmentPatch{Status: &pending}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition out of completed, got %v", err)
	}
}
