// Package respond writes JSON responses and maps classified errors to HTTP
// statuses without leaking backend detail to clients.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"community-hub/internal/apierror"
	"community-hub/internal/domain/entity"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CodeInvalidInput is the code of 400 responses.
const CodeInvalidInput = "INVALID_INPUT"

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// headers are already sent
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// BadRequest writes a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: msg, Code: CodeInvalidInput})
}

// FromError writes the response for err.
//
// Validation errors become 400 with their own message. Classified errors get
// the status of their kind and their user-facing message. Anything else is a
// 500 with a generic message; its detail is only logged, sanitized.
func FromError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var ve *entity.ValidationError
	if errors.As(err, &ve) {
		BadRequest(w, ve.Error())
		return
	}
	if errors.Is(err, entity.ErrInvalidInput) {
		BadRequest(w, err.Error())
		return
	}

	var ce *apierror.Error
	if errors.As(err, &ce) {
		code := StatusOf(ce.Kind)
		if code >= http.StatusInternalServerError {
			slog.Default().Error("backend request failed",
				slog.String("operation", ce.Operation),
				slog.String("kind", string(ce.Kind)),
				slog.String("error", SanitizeError(ce.Raw)))
		}
		if ce.Kind == apierror.KindServiceUnavailable {
			w.Header().Set("Retry-After", "30")
		}
		JSON(w, code, ErrorBody{Error: ce.Message, Code: ce.Code})
		return
	}

	slog.Default().Error("internal server error", slog.String("error", SanitizeError(err)))
	JSON(w, http.StatusInternalServerError, ErrorBody{
		Error: apierror.MessageUnexpected,
		Code:  apierror.CodeUnknown,
	})
}

// StatusOf returns the HTTP status for an error kind.
func StatusOf(kind apierror.Kind) int {
	switch kind {
	case apierror.KindNetwork, apierror.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case apierror.KindAuth:
		return http.StatusUnauthorized
	case apierror.KindPermissionDenied:
		return http.StatusForbidden
	case apierror.KindNotFound:
		return http.StatusNotFound
	case apierror.KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
