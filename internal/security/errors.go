package security

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the uniform error body: a machine-readable code plus the
// correlation id so callers can quote it when reporting problems.
type ErrorResponse struct {
	Error         string `json:"error"`
	Detail        string `json:"detail,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// WriteJSONError writes the uniform error body with the given status.
func WriteJSONError(w http.ResponseWriter, r *http.Request, status int, code string) {
	WriteJSONErrorDetail(w, r, status, code, "")
}

// WriteJSONErrorDetail is WriteJSONError with a human-readable detail line.
func WriteJSONErrorDetail(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	cid := CorrelationIDFromContext(r.Context())
	if cid != "" {
		w.Header().Set(CorrelationIDHeader, cid)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:         code,
		Detail:        detail,
		CorrelationID: cid,
	})
}
