package handler

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// CheckInRequest is the body of PUT /services/{id}/attendance/{workerId}.
type CheckInRequest struct {
	Status domain.AttendanceStatus `json:"status"`
}

// BulkCheckInRequest is the body of POST /services/{id}/attendance.
type BulkCheckInRequest struct {
	Entries []domain.AttendanceEntry `json:"entries"`
}

// BulkCheckInResult is the outcome of one bulk entry. Record is set on
// success and Error on failure.
type BulkCheckInResult struct {
	WorkerID openapi_types.UUID       `json:"worker_id"`
	Record   *domain.AttendanceRecord `json:"record,omitempty"`
	Error    *ErrorDetail             `json:"error,omitempty"`
}

// CheckInWorker handles PUT /services/{id}/attendance/{workerId}.
func (s *Server) CheckInWorker(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	workerID, err := pathUUID(r, "workerId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body CheckInRequest
	if !decodeBody(w, r, &body) {
		return
	}

	rec, err := s.attendance.SetStatus(r.Context(), scope, id, workerID, body.Status)
	if err != nil {
		s.respondError(w, r, err, "service not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// BulkCheckIn handles POST /services/{id}/attendance. The response is 200
// even when some entries fail; each entry carries its own outcome.
func (s *Server) BulkCheckIn(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var body BulkCheckInRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Entries) == 0 {
		requestError(w, "entries must not be empty")
		return
	}

	results, err := s.attendance.BulkSet(r.Context(), scope, id, body.Entries)
	if err != nil {
		s.respondError(w, r, err, "service not found")
		return
	}

	out := make([]BulkCheckInResult, len(results))
	for i, res := range results {
		out[i] = BulkCheckInResult{WorkerID: res.WorkerID}
		if res.Err != nil {
			_, eb := errorStatus(res.Err, "service not found")
			out[i].Error = &eb.Error
			continue
		}
		rec := res.Record
		out[i].Record = &rec
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

// ListAttendance handles GET /services/{id}/attendance.
func (s *Server) ListAttendance(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		requestError(w, err.Error())
		return
	}

	records, err := s.attendance.ListForService(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, r, err, "service not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": records})
}
