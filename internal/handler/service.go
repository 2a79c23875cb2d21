package handler

import (
	"net/http"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// CreateServiceRequest is the body of POST /services.
type CreateServiceRequest struct {
	ScheduledStart time.Time          `json:"scheduled_start"`
	Shift          string             `json:"shift"`
	Stops          []string           `json:"stops"`
	BusID          openapi_types.UUID `json:"bus_id"`
	DriverID       openapi_types.UUID `json:"driver_id"`
}

// CloneServiceRequest is the body of POST /services/{id}/clone.
type CloneServiceRequest struct {
	Date openapi_types.Date `json:"date"`
}

// ServiceResponse is a domain.Service plus its derived route summary.
type ServiceResponse struct {
	domain.Service
	RouteSummary string `json:"route_summary"`
}

func serviceToResponse(s domain.Service) ServiceResponse {
	return ServiceResponse{Service: s, RouteSummary: s.RouteSummary()}
}

// CreateService handles POST /services.
func (s *Server) CreateService(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	var body CreateServiceRequest
	if !decodeBody(w, r, &body) {
		return
	}

	created, err := s.services.Create(r.Context(), scope, domain.Service{
		ScheduledStart: body.ScheduledStart,
		Shift:          body.Shift,
		Stops:          body.Stops,
		BusID:          body.BusID,
		DriverID:       body.DriverID,
	})
	if err != nil {
		s.respondError(w, r, err, "service not found")
		return
	}
	writeJSON(w, http.StatusCreated, serviceToResponse(created))
}

// GetService handles GET /services/{id}.
func (s *Server) GetService(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		requestError(w, err.Error())
		return
	}

	svc, err := s.services.GetByID(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, r, err, "service not found")
		return
	}
	writeJSON(w, http.StatusOK, serviceToResponse(svc))
}

// ListActiveServices handles GET /services/active.
func (s *Server) ListActiveServices(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	services, err := s.services.ListActive(r.Context(), scope)
	if err != nil {
		s.respondError(w, r, err, "service not found")
		return
	}
	data := make([]ServiceResponse, len(services))
	for i, svc := range services {
		data[i] = serviceToResponse(svc)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

// CloneService handles POST /services/{id}/clone.
func (s *Server) CloneService(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body CloneServiceRequest
	if !decodeBody(w, r, &body) {
		return
	}

	clone, err := s.services.Clone(r.Context(), scope, id, body.Date.Time)
	if err != nil {
		s.respondError(w, r, err, "service not found")
		return
	}
	writeJSON(w, http.StatusCreated, serviceToResponse(clone))
}

// transition returns the handler of POST /services/{id}/{start|finish|cancel}.
func (s *Server) transition(target domain.ServiceState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeOf(w, r)
		if !ok {
			return
		}
		id, err := pathUUID(r, "id")
		if err != nil {
			requestError(w, err.Error())
			return
		}

		svc, err := s.services.Transition(r.Context(), scope, id, target)
		if err != nil {
			s.respondError(w, r, err, "service not found")
			return
		}
		writeJSON(w, http.StatusOK, serviceToResponse(svc))
	}
}
