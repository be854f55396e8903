package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prosante/appointment-scheduling/internal/scheduling"
	"github.com/prosante/appointment-scheduling/internal/timeutil"
)

func createAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		input, err := req.Validate()
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), ActorID(r.Context()), input)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id, ActorID(r.Context()))
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := scheduling.ListFilter{
			Status:   scheduling.AppointmentStatus(q.Get("status")),
			DateFrom: q.Get("date_from"),
			DateTo:   q.Get("date_to"),
		}
		if filter.Status != "" && !scheduling.ValidStatus(filter.Status) {
			writeError(w, http.StatusBadRequest, "validation_error", "unknown status filter")
			return
		}
		if raw := q.Get("provider_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_error", "provider_id must be a valid UUID")
				return
			}
			filter.ProviderID = id
		}
		if raw := q.Get("requester_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_error", "requester_id must be a valid UUID")
				return
			}
			filter.RequesterID = id
		}
		filter.Limit, _ = strconv.Atoi(q.Get("limit"))
		filter.Offset, _ = strconv.Atoi(q.Get("offset"))

		appts, total, err := svc.ListAppointments(r.Context(), ActorID(r.Context()), filter)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, AppointmentListResponse{
			Appointments: out,
			Pagination: Pagination{
				Limit:   filter.Limit,
				Offset:  filter.Offset,
				Total:   total,
				HasMore: filter.Offset+len(out) < total,
			},
		})
	}
}

func updateAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patch, err := req.Validate()
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}

		appt, err := svc.UpdateAppointment(r.Context(), id, ActorID(r.Context()), patch)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		if err := svc.DeleteAppointment(r.Context(), id, ActorID(r.Context())); err != nil {
			handleSchedulingError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func getProfessionalHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		p, err := svc.GetProfessional(r.Context(), id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ProfessionalResponse{
			ID:         p.ID,
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			Profession: p.Profession,
			Phone:      p.Phone,
			Email:      p.Email,
			Address:    p.Address,
			City:       p.City,
		})
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// handleSchedulingError maps every engine sentinel to a stable HTTP
// response.
func handleSchedulingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrSelfBookingDenied):
		writeError(w, http.StatusBadRequest, "self_booking_denied", err.Error())
	case errors.Is(err, scheduling.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, scheduling.ErrProfessionalNotFound):
		writeError(w, http.StatusNotFound, "professional_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrBlockedIntervalNotFound):
		writeError(w, http.StatusNotFound, "blocked_interval_not_found", err.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, scheduling.ErrPastSlot):
		writeError(w, http.StatusUnprocessableEntity, "past_slot", err.Error())
	case errors.Is(err, scheduling.ErrOutsideAvailability):
		writeError(w, http.StatusUnprocessableEntity, "outside_availability", err.Error())
	case errors.Is(err, scheduling.ErrSlotBlocked):
		writeError(w, http.StatusConflict, "slot_blocked", err.Error())
	case errors.Is(err, scheduling.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, scheduling.ErrCalendarBusy):
		writeError(w, http.StatusConflict, "calendar_busy", err.Error())
	case errors.Is(err, scheduling.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, scheduling.ErrRescheduleNotPending):
		writeError(w, http.StatusConflict, "reschedule_not_pending", err.Error())
	case errors.Is(err, scheduling.ErrCannotDeleteActive):
		writeError(w, http.StatusConflict, "cannot_delete_active", err.Error())
	case errors.Is(err, scheduling.ErrInvalidRuleWindow),
		errors.Is(err, scheduling.ErrDuplicateRuleDay),
		errors.Is(err, scheduling.ErrInvalidRuleDay):
		writeError(w, http.StatusBadRequest, "invalid_availability_rules", err.Error())
	case errors.Is(err, scheduling.ErrBlockedIntervalInverted),
		errors.Is(err, scheduling.ErrBlockedIntervalInPast):
		writeError(w, http.StatusBadRequest, "invalid_blocked_interval", err.Error())
	case errors.Is(err, scheduling.ErrBlockedIntervalOverlap):
		writeError(w, http.StatusConflict, "blocked_interval_overlap", err.Error())
	case errors.Is(err, timeutil.ErrInvalidTimeFormat):
		writeError(w, http.StatusBadRequest, "invalid_time_format", err.Error())
	case errors.Is(err, scheduling.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "persistent store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
