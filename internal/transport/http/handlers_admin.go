package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bankguard/internal/security"
	id "bankguard/pkg/domain"
	dErrors "bankguard/pkg/domain-errors"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
	defaultStatsDays  = 7
	maxStatsDays      = 90
)

// handleAuditList implements GET /admin/audit with filters passed as query
// parameters: actor_id, action, entity_type, entity_id, from, to (RFC 3339)
// and limit.
func (h *Handler) handleAuditList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := security.Filter{
		ActorID:    q.Get("actor_id"),
		Action:     security.Action(q.Get("action")),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Limit:      defaultAuditLimit,
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "from must be an RFC 3339 timestamp"))
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "to must be an RFC 3339 timestamp"))
			return
		}
		filter.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditLimit {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 1000"))
			return
		}
		filter.Limit = n
	}

	events, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// handleAuditStats implements GET /admin/audit/stats?days=N, aggregating the
// trailing N days.
func (h *Handler) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	days := defaultStatsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxStatsDays {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "days must be between 1 and 90"))
			return
		}
		days = n
	}

	to := time.Now()
	stats, err := h.audit.Stats(r.Context(), to.AddDate(0, 0, -days), to)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleDeviceList implements GET /users/{user_id}/devices.
func (h *Handler) handleDeviceList(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "user_id must be a valid uuid"))
		return
	}

	devices, err := h.devices.ListDevices(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleDeviceTrust implements POST /devices/{device_id}/trust.
func (h *Handler) handleDeviceTrust(w http.ResponseWriter, r *http.Request) {
	h.setDeviceTrust(w, r, true)
}

// handleDeviceRevoke implements DELETE /devices/{device_id}/trust.
func (h *Handler) handleDeviceRevoke(w http.ResponseWriter, r *http.Request) {
	h.setDeviceTrust(w, r, false)
}

func (h *Handler) setDeviceTrust(w http.ResponseWriter, r *http.Request, trusted bool) {
	deviceID, err := id.ParseDeviceID(chi.URLParam(r, "device_id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "device_id must be a valid uuid"))
		return
	}

	if trusted {
		err = h.devices.Trust(r.Context(), deviceID)
	} else {
		err = h.devices.RevokeTrust(r.Context(), deviceID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID.String(),
		"trusted":   trusted,
	})
}
