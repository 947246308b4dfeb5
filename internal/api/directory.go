package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// EndpointResponse is the resolved delivery target of a device.
type EndpointResponse struct {
	Device    uint32 `json:"device"`
	Transport string `json:"transport"`
	Kind      string `json:"kind"`
	Address   string `json:"address"`
}

// handleGetDirectoryEntry returns where notifications for a device would be
// sent right now.
func (s *Server) handleGetDirectoryEntry(w http.ResponseWriter, r *http.Request) {
	device, ok := parseInstance(chi.URLParam(r, "device"))
	if !ok {
		writeBadRequest(w, "device must be an instance number 0-4194303")
		return
	}

	ep, found := s.directory.Lookup(device)
	if !found {
		writeNotFound(w, "device has not announced itself")
		return
	}

	writeJSON(w, http.StatusOK, EndpointResponse{
		Device:    device,
		Transport: ep.Transport.Name(),
		Kind:      ep.Transport.Kind(),
		Address:   ep.Address.String(),
	})
}

// parseInstance parses a decimal object instance.
func parseInstance(s string) (uint32, bool) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n > bacnet.MaxInstance {
		return 0, false
	}
	return uint32(n), true
}
