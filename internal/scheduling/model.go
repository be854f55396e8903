package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Terminal reports whether no further status transition is allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Professional is owned by the directory store; the engine only reads it.
type Professional struct {
	ID         uuid.UUID
	FirstName  string
	LastName   string
	Profession string
	Phone      *string
	Email      *string
	Address    *string
	City       *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AvailabilityRule is a recurring weekly booking window. DayOfWeek uses
// 0=Sunday, matching timeutil.DayOfWeek. StartTime/EndTime are HH:MM
// wall-clock strings.
type AvailabilityRule struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	DayOfWeek      int
	StartTime      string
	EndTime        string
	IsActive       bool
}

// BlockedInterval is a one-off period during which a professional is
// unavailable regardless of weekly rules.
type BlockedInterval struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	StartDatetime  time.Time
	EndDatetime    time.Time
	Reason         string
	CreatedAt      time.Time
}

// Appointment is booked by a requester on a provider's calendar on behalf
// of a patient. Date is YYYY-MM-DD, Time is HH:MM, Duration is minutes.
// StartsAt/EndsAt are derived from (Date, Time, Duration) at write time and
// back the storage-level non-overlap constraint.
type Appointment struct {
	ID               uuid.UUID
	RequesterID      uuid.UUID
	ProviderID       uuid.UUID
	PatientFirstName string
	PatientLastName  string
	PatientPhone     string
	Reason           string
	Date             string
	Time             string
	Duration         int
	Status           AppointmentStatus
	Notes            *string
	StartsAt         time.Time
	EndsAt           time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AppointmentPatch carries the mutable fields of an update request. Nil
// means "leave unchanged".
type AppointmentPatch struct {
	Status   *AppointmentStatus
	Date     *string
	Time     *string
	Duration *int
	Notes    *string
	Reason   *string
}

// HasSlotChange reports whether the patch moves the appointment's slot.
func (p AppointmentPatch) HasSlotChange() bool {
	return p.Date != nil || p.Time != nil || p.Duration != nil
}

// ListFilter narrows an appointment listing. Zero values mean no filter.
type ListFilter struct {
	Status      AppointmentStatus
	RequesterID uuid.UUID
	ProviderID  uuid.UUID
	DateFrom    string
	DateTo      string
	Limit       int
	Offset      int
}
