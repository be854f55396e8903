package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prosante/appointment-scheduling/internal/scheduling"
)

func listAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		rules, err := svc.ListAvailability(r.Context(), professionalID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"availabilities": toRuleResponses(rules),
		})
	}
}

func replaceAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req ReplaceAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rules, err := svc.ReplaceAvailability(r.Context(), professionalID, ActorID(r.Context()), req.Rules())
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"availabilities": toRuleResponses(rules),
		})
	}
}

func listBlockedIntervalsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var window scheduling.Window
		if raw := r.URL.Query().Get("from"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_error", "from must be an RFC 3339 timestamp")
				return
			}
			window.From = t
		}
		if raw := r.URL.Query().Get("to"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_error", "to must be an RFC 3339 timestamp")
				return
			}
			window.To = t
		}

		blocks, err := svc.ListBlockedIntervals(r.Context(), professionalID, window)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"blocked_intervals": toBlockedResponses(blocks),
		})
	}
}

func createBlockedIntervalHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		var req CreateBlockedIntervalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		start, end, reason, err := req.Validate()
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}

		bi, err := svc.CreateBlockedInterval(r.Context(), professionalID, ActorID(r.Context()), start, end, reason)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BlockedIntervalResponse{
			ID:            bi.ID,
			StartDatetime: bi.StartDatetime,
			EndDatetime:   bi.EndDatetime,
			Reason:        bi.Reason,
		})
	}
}

func deleteBlockedIntervalHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}
		intervalID, ok := parseIDParam(w, r, "intervalID")
		if !ok {
			return
		}

		if err := svc.DeleteBlockedInterval(r.Context(), professionalID, ActorID(r.Context()), intervalID); err != nil {
			handleSchedulingError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
