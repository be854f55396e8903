package api

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prosante/appointment-scheduling/internal/scheduling"
	"github.com/prosante/appointment-scheduling/internal/timeutil"
)

// phoneRe is the national (French) phone pattern: +33 or 0 prefix followed
// by nine digits.
var phoneRe = regexp.MustCompile(`^(\+33|0)[1-9](\d{2}){4}$`)

const (
	minNameLen     = 2
	minReasonLen   = 5
	maxNotesLen    = 500
	minDuration    = 15
	maxDuration    = 480
	maxBlockReason = 200
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type CreateAppointmentRequest struct {
	ProviderID       string  `json:"provider_id"`
	PatientFirstName string  `json:"patient_first_name"`
	PatientLastName  string  `json:"patient_last_name"`
	PatientPhone     string  `json:"patient_phone"`
	Reason           string  `json:"reason"`
	AppointmentDate  string  `json:"appointment_date"`
	AppointmentTime  string  `json:"appointment_time"`
	Duration         int     `json:"duration"`
	Notes            *string `json:"notes,omitempty"`
}

// Validate checks field shape before the engine runs and converts the
// request into engine input. Duration defaults to 30 minutes when omitted.
func (r *CreateAppointmentRequest) Validate() (scheduling.CreateInput, error) {
	providerID, err := uuid.Parse(r.ProviderID)
	if err != nil {
		return scheduling.CreateInput{}, invalid("provider_id", "must be a valid UUID")
	}
	if len(strings.TrimSpace(r.PatientFirstName)) < minNameLen {
		return scheduling.CreateInput{}, invalid("patient_first_name", "at least 2 characters required")
	}
	if len(strings.TrimSpace(r.PatientLastName)) < minNameLen {
		return scheduling.CreateInput{}, invalid("patient_last_name", "at least 2 characters required")
	}
	if !phoneRe.MatchString(r.PatientPhone) {
		return scheduling.CreateInput{}, invalid("patient_phone", "invalid phone number")
	}
	if len(strings.TrimSpace(r.Reason)) < minReasonLen {
		return scheduling.CreateInput{}, invalid("reason", "at least 5 characters required")
	}
	if !timeutil.ValidDate(r.AppointmentDate) {
		return scheduling.CreateInput{}, invalid("appointment_date", "expected YYYY-MM-DD")
	}
	if !timeutil.ValidClock(r.AppointmentTime) {
		return scheduling.CreateInput{}, invalid("appointment_time", "expected HH:MM")
	}
	duration := r.Duration
	if duration == 0 {
		duration = 30
	}
	if duration < minDuration || duration > maxDuration {
		return scheduling.CreateInput{}, invalid("duration", "must be between 15 and 480 minutes")
	}
	if r.Notes != nil && len(*r.Notes) > maxNotesLen {
		return scheduling.CreateInput{}, invalid("notes", "at most 500 characters")
	}

	return scheduling.CreateInput{
		ProviderID:       providerID,
		PatientFirstName: strings.TrimSpace(r.PatientFirstName),
		PatientLastName:  strings.TrimSpace(r.PatientLastName),
		PatientPhone:     r.PatientPhone,
		Reason:           strings.TrimSpace(r.Reason),
		Date:             r.AppointmentDate,
		Time:             r.AppointmentTime,
		Duration:         duration,
		Notes:            r.Notes,
	}, nil
}

type UpdateAppointmentRequest struct {
	Status          *string `json:"status,omitempty"`
	AppointmentDate *string `json:"appointment_date,omitempty"`
	AppointmentTime *string `json:"appointment_time,omitempty"`
	Duration        *int    `json:"duration,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	Reason          *string `json:"reason,omitempty"`
}

func (r *UpdateAppointmentRequest) Validate() (scheduling.AppointmentPatch, error) {
	var patch scheduling.AppointmentPatch

	if r.Status != nil {
		st := scheduling.AppointmentStatus(*r.Status)
		if !scheduling.ValidStatus(st) {
			return patch, invalid("status", "unknown status")
		}
		patch.Status = &st
	}
	if r.AppointmentDate != nil {
		if !timeutil.ValidDate(*r.AppointmentDate) {
			return patch, invalid("appointment_date", "expected YYYY-MM-DD")
		}
		patch.Date = r.AppointmentDate
	}
	if r.AppointmentTime != nil {
		if !timeutil.ValidClock(*r.AppointmentTime) {
			return patch, invalid("appointment_time", "expected HH:MM")
		}
		patch.Time = r.AppointmentTime
	}
	if r.Duration != nil {
		if *r.Duration < minDuration || *r.Duration > maxDuration {
			return patch, invalid("duration", "must be between 15 and 480 minutes")
		}
		patch.Duration = r.Duration
	}
	if r.Notes != nil {
		if len(*r.Notes) > maxNotesLen {
			return patch, invalid("notes", "at most 500 characters")
		}
		patch.Notes = r.Notes
	}
	if r.Reason != nil {
		if len(strings.TrimSpace(*r.Reason)) < minReasonLen {
			return patch, invalid("reason", "at least 5 characters required")
		}
		patch.Reason = r.Reason
	}
	return patch, nil
}

type AvailabilityRuleRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  bool   `json:"is_active"`
}

type ReplaceAvailabilityRequest struct {
	Availabilities []AvailabilityRuleRequest `json:"availabilities"`
}

func (r *ReplaceAvailabilityRequest) Rules() []scheduling.AvailabilityRule {
	rules := make([]scheduling.AvailabilityRule, 0, len(r.Availabilities))
	for _, a := range r.Availabilities {
		rules = append(rules, scheduling.AvailabilityRule{
			DayOfWeek: a.DayOfWeek,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			IsActive:  a.IsActive,
		})
	}
	return rules
}

type CreateBlockedIntervalRequest struct {
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
	Reason        string `json:"reason"`
}

func (r *CreateBlockedIntervalRequest) Validate() (start, end time.Time, reason string, err error) {
	start, err = time.Parse(time.RFC3339, r.StartDatetime)
	if err != nil {
		return start, end, "", invalid("start_datetime", "expected RFC 3339 timestamp")
	}
	end, err = time.Parse(time.RFC3339, r.EndDatetime)
	if err != nil {
		return start, end, "", invalid("end_datetime", "expected RFC 3339 timestamp")
	}
	reason = strings.TrimSpace(r.Reason)
	if reason == "" || len(reason) > maxBlockReason {
		return start, end, "", invalid("reason", "required, at most 200 characters")
	}
	return start, end, reason, nil
}

// Responses

type AppointmentResponse struct {
	ID               uuid.UUID `json:"id"`
	RequesterID      uuid.UUID `json:"requester_id"`
	ProviderID       uuid.UUID `json:"provider_id"`
	PatientFirstName string    `json:"patient_first_name"`
	PatientLastName  string    `json:"patient_last_name"`
	PatientPhone     string    `json:"patient_phone"`
	Reason           string    `json:"reason"`
	AppointmentDate  string    `json:"appointment_date"`
	AppointmentTime  string    `json:"appointment_time"`
	Duration         int       `json:"duration"`
	Status           string    `json:"status"`
	Notes            *string   `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               a.ID,
		RequesterID:      a.RequesterID,
		ProviderID:       a.ProviderID,
		PatientFirstName: a.PatientFirstName,
		PatientLastName:  a.PatientLastName,
		PatientPhone:     a.PatientPhone,
		Reason:           a.Reason,
		AppointmentDate:  a.Date,
		AppointmentTime:  a.Time,
		Duration:         a.Duration,
		Status:           string(a.Status),
		Notes:            a.Notes,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Pagination   Pagination            `json:"pagination"`
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

type AvailabilityRuleResponse struct {
	ID        uuid.UUID `json:"id"`
	DayOfWeek int       `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsActive  bool      `json:"is_active"`
}

func toRuleResponses(rules []scheduling.AvailabilityRule) []AvailabilityRuleResponse {
	out := make([]AvailabilityRuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, AvailabilityRuleResponse{
			ID:        r.ID,
			DayOfWeek: r.DayOfWeek,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			IsActive:  r.IsActive,
		})
	}
	return out
}

type BlockedIntervalResponse struct {
	ID            uuid.UUID `json:"id"`
	StartDatetime time.Time `json:"start_datetime"`
	EndDatetime   time.Time `json:"end_datetime"`
	Reason        string    `json:"reason"`
}

func toBlockedResponses(blocks []scheduling.BlockedInterval) []BlockedIntervalResponse {
	out := make([]BlockedIntervalResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, BlockedIntervalResponse{
			ID:            b.ID,
			StartDatetime: b.StartDatetime,
			EndDatetime:   b.EndDatetime,
			Reason:        b.Reason,
		})
	}
	return out
}

type ProfessionalResponse struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Profession string    `json:"profession"`
	Phone      *string   `json:"phone,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Address    *string   `json:"address,omitempty"`
	City       *string   `json:"city,omitempty"`
}
