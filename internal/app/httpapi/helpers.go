package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ujamaadao/backend/internal/errors"
)

type errorBody struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps service errors to their declared status; anything else is
// an opaque 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if svcErr := errors.GetServiceError(err); svcErr != nil {
		if svcErr.HTTPStatus >= http.StatusInternalServerError {
			s.log.WithError(err).Error("request failed")
		}
		writeJSON(w, svcErr.HTTPStatus, errorBody{
			Error:   svcErr.Message,
			Code:    string(svcErr.Code),
			Details: svcErr.Details,
		})
		return
	}
	s.log.WithError(err).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error: "internal server error",
		Code:  string(errors.CodeInternal),
	})
}

// decodeJSON parses the request body strictly, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Validation("invalid request body: " + err.Error())
	}
	return nil
}
