package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-alarms/internal/notification"
)

// ClassResponse is the JSON form of a notification class.
type ClassResponse struct {
	Instance    uint32              `json:"instance"`
	Device      uint32              `json:"device"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Priorities  PrioritiesResponse  `json:"priorities"`
	AckRequired string              `json:"ack_required"`
	Recipients  []RecipientResponse `json:"recipients"`
}

// PrioritiesResponse names the per-transition priorities.
type PrioritiesResponse struct {
	ToOffNormal uint8 `json:"to_offnormal"`
	ToFault     uint8 `json:"to_fault"`
	ToNormal    uint8 `json:"to_normal"`
}

// RecipientResponse is one recipient list entry. Bit strings are rendered
// in protocol order (valid_days starts with Monday).
type RecipientResponse struct {
	Recipient   string `json:"recipient"`
	ValidDays   string `json:"valid_days"`
	From        string `json:"from"`
	To          string `json:"to"`
	ProcessID   uint32 `json:"process_id"`
	Confirmed   bool   `json:"confirmed"`
	Transitions string `json:"transitions"`
}

func (s *Server) handleListClasses(w http.ResponseWriter, _ *http.Request) {
	classes := s.classes.List()
	out := make([]ClassResponse, 0, len(classes))
	for _, c := range classes {
		out = append(out, classResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notification_classes": out,
		"count":                len(out),
	})
}

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	instance, ok := parseInstance(chi.URLParam(r, "id"))
	if !ok {
		writeBadRequest(w, "id must be an instance number 0-4194303")
		return
	}

	c, err := s.classes.Get(instance)
	if err != nil {
		if errors.Is(err, notification.ErrClassNotFound) {
			writeNotFound(w, "notification class not found")
			return
		}
		s.logger.Error("getting notification class", "class", instance, "error", err)
		writeInternalError(w, "failed to get notification class")
		return
	}
	writeJSON(w, http.StatusOK, classResponse(c))
}

func classResponse(c *notification.Class) ClassResponse {
	recs := c.Recipients()
	out := ClassResponse{
		Instance:    c.Instance,
		Device:      c.Device,
		Name:        c.Name,
		Description: c.Description,
		Priorities: PrioritiesResponse{
			ToOffNormal: c.Priorities[notification.TransitionToOffNormal],
			ToFault:     c.Priorities[notification.TransitionToFault],
			ToNormal:    c.Priorities[notification.TransitionToNormal],
		},
		AckRequired: c.AckRequired.String(),
		Recipients:  make([]RecipientResponse, 0, len(recs)),
	}
	for _, rec := range recs {
		r := RecipientResponse{
			ValidDays:   rec.ValidDays.String(),
			From:        rec.From.String(),
			To:          rec.To.String(),
			ProcessID:   rec.ProcessID,
			Confirmed:   rec.Confirmed,
			Transitions: rec.Transitions.String(),
		}
		if rec.Recipient != nil {
			r.Recipient = rec.Recipient.String()
		}
		out.Recipients = append(out.Recipients, r)
	}
	return out
}
