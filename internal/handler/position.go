package handler

import (
	"net/http"

	"github.com/pkordes/shuttle-fleet/internal/service"
)

// ReportPositionRequest is the body of POST /services/{id}/positions.
// Both coordinates are required; pointers tell a missing field from zero.
type ReportPositionRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

const defaultHistoryLimit = 100

// ReportPosition handles POST /services/{id}/positions.
func (s *Server) ReportPosition(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body ReportPositionRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Lat == nil || body.Lng == nil {
		requestError(w, "lat and lng are required")
		return
	}

	fix, err := s.positions.Report(r.Context(), scope, id, *body.Lat, *body.Lng)
	if err != nil {
		s.respondError(w, r, err, "service not found")
		return
	}
	writeJSON(w, http.StatusCreated, fix)
}

// LatestPosition handles GET /services/{id}/positions/latest.
// A service that has not reported yet answers 204 with no body.
func (s *Server) LatestPosition(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		requestError(w, err.Error())
		return
	}

	fix, found, err := s.positions.LatestFor(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, r, err, "service not found")
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, fix)
}

// PositionHistory handles GET /services/{id}/positions?limit=.
// limit defaults to 100 and is capped at service.MaxHistory.
func (s *Server) PositionHistory(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	n := defaultHistoryLimit
	if limit != nil {
		n = min(*limit, service.MaxHistory)
	}

	fixes, err := s.positions.History(r.Context(), scope, id, n)
	if err != nil {
		s.respondError(w, r, err, "service not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": fixes})
}
