package api

import (
	"context"
	"net/http"
	"sort"
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
	Devices    int               `json:"devices"`
	Classes    int               `json:"notification_classes"`
}

// Health status values.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

// handleHealth runs every component check. Any failure turns the response
// into a 503 so load balancers and supervisors see it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  statusOK,
		Version: s.version,
		Devices: s.directory.Len(),
		Classes: len(s.classes.List()),
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		resp.Components = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := s.checks[name].HealthCheck(ctx); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = statusDegraded
			continue
		}
		resp.Components[name] = statusOK
	}

	status := http.StatusOK
	if resp.Status != statusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
