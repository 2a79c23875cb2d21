package handler

import (
	"net/http"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// Pagination is the page metadata of list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// AlertList is the body of GET /alerts.
type AlertList struct {
	Data       []domain.Alert `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// ListActiveAlerts handles GET /alerts.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=50, max=200).
func (s *Server) ListActiveAlerts(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	params := domain.NewPaginationParams(page, limit)

	alerts, total, err := s.alerts.ListActiveAlerts(r.Context(), scope, params)
	if err != nil {
		s.respondError(w, r, err, "alert not found")
		return
	}
	writeJSON(w, http.StatusOK, AlertList{
		Data: alerts,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// RunAnomalyScan handles POST /alerts/scan. It scans the caller's tenant
// synchronously and reports how many services were analyzed and alerted.
func (s *Server) RunAnomalyScan(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	result, err := s.alerts.Scan(r.Context(), scope)
	if err != nil {
		s.respondError(w, r, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
