package handler

import "net/http"

// GetFleetSnapshot handles GET /fleet.
func (s *Server) GetFleetSnapshot(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	entries, err := s.fleet.Snapshot(r.Context(), scope)
	if err != nil {
		s.respondError(w, r, err, "fleet not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}
