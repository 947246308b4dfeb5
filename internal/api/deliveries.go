package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-alarms/internal/audit"
)

func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.trail == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "delivery trail disabled")
		return
	}

	q := r.URL.Query()
	var filter audit.Filter

	if v := q.Get("class"); v != "" {
		class, ok := parseInstance(v)
		if !ok {
			writeBadRequest(w, "class must be an instance number 0-4194303")
			return
		}
		filter.Class = &class
	}

	switch outcome := q.Get("outcome"); outcome {
	case "", audit.OutcomeSent, audit.OutcomeFailed:
		filter.Outcome = outcome
	default:
		writeBadRequest(w, "outcome must be sent or failed")
		return
	}

	var ok bool
	if filter.Limit, ok = parseOptionalInt(q.Get("limit")); !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, ok = parseOptionalInt(q.Get("offset")); !ok {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	res, err := s.trail.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing deliveries", "error", err)
		writeInternalError(w, "failed to list deliveries")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseOptionalInt parses a non-negative integer; empty means zero.
func parseOptionalInt(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
