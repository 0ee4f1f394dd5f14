package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/crm"
	"github.com/sells-group/estate-crm/internal/store"
)

type errorEnvelope struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"requestId"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{
		Error:     errorBody{Code: code, Message: message, Details: details},
		RequestID: requestIDFrom(r.Context()),
	})
}

// writeFailure maps a domain error onto an HTTP response.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError && crm.KindOf(err) == "" {
		zap.L().Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		message = "internal server error"
	}
	writeError(w, r, status, code, message, nil)
}

func classify(err error) (int, string) {
	switch crm.KindOf(err) {
	case crm.KindValidation:
		return http.StatusBadRequest, "validation_error"
	case crm.KindNoRecords:
		return http.StatusUnprocessableEntity, "no_records"
	case crm.KindNotFound:
		return http.StatusNotFound, "not_found"
	case crm.KindPersistence:
		return http.StatusInternalServerError, "persistence_error"
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal_error"
}

// decodeBody decodes a JSON body into dst and runs struct validation. It
// writes the error response itself and reports false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "request is invalid", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out = append(out, field+" is required")
		case "max":
			out = append(out, field+" must be at most "+fe.Param()+" characters")
		default:
			out = append(out, field+" is invalid")
		}
	}
	return out
}
