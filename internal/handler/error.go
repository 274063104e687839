// Package handler holds the JSON response helpers shared by the API handlers.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dukerupert/tramhuong/internal/domain"
	"github.com/dukerupert/tramhuong/internal/telemetry"
)

// errorBody is the JSON error envelope. Detail repeats the message for
// clients that only read a top-level detail string.
type errorBody struct {
	Error  errorPayload `json:"error"`
	Detail string       `json:"detail"`
}

type errorPayload struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	case domain.ETIMEOUT:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse logs err and writes it as JSON. Internal errors are reported
// to Sentry and shown with a generic message only.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		ValidationErrorResponse(w, r, err)
		return
	}

	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	message := domain.ErrorMessage(err)

	logger := zerolog.Ctx(r.Context())
	if status >= 500 {
		logger.Error().Err(err).Str("code", code).Str("op", domain.ErrorOp(err)).Int("status", status).Msg("request failed")
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]any{
			"op":   domain.ErrorOp(err),
			"path": r.URL.Path,
		})
	} else {
		logger.Info().Err(err).Str("code", code).Int("status", status).Msg("request rejected")
	}

	writeError(w, status, errorPayload{Code: code, Message: message})
}

// ValidationErrorResponse writes a 400 listing every invalid field. Errors
// that are not validation errors fall back to ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	fields := domain.GetValidationFields(err)
	if fields == nil {
		ErrorResponse(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("op", domain.ErrorOp(err)).
		Interface("fields", fields).
		Msg("validation failed")

	writeError(w, http.StatusBadRequest, errorPayload{
		Code:    domain.EINVALID,
		Message: domain.ErrorMessage(err),
		Fields:  fields,
	})
}

// NotFoundResponse answers requests no route matched.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "Không tìm thấy trang yêu cầu"))
}

// InternalErrorResponse wraps err as internal and writes it.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "unexpected error"))
}

func writeError(w http.ResponseWriter, status int, payload errorPayload) {
	detail := payload.Message
	if len(payload.Fields) > 0 {
		detail = fieldSummary(payload.Fields)
	}
	WriteJSON(w, status, errorBody{Error: payload, Detail: detail})
}

// fieldSummary returns a stable single-line summary of field messages for
// clients that show one alert.
func fieldSummary(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for field, msg := range fields {
		parts = append(parts, field+": "+msg)
	}
	slices.Sort(parts)
	return strings.Join(parts, "; ")
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a JSON body into dst. Malformed or oversized bodies become
// EINVALID or ETOOLARGE errors.
func DecodeJSON(r *http.Request, dst any) error {
	const op = "handler.decode"
	if r.Body == nil {
		return domain.Invalid(op, "Thiếu dữ liệu yêu cầu")
	}

	err := json.NewDecoder(r.Body).Decode(dst)
	var maxErr *http.MaxBytesError
	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &maxErr):
		return domain.Errorf(domain.ETOOLARGE, op, "Request body too large")
	case errors.Is(err, io.EOF):
		return domain.Invalid(op, "Thiếu dữ liệu yêu cầu")
	case errors.As(err, &typeErr):
		return domain.NewValidationError(op, typeErr.Field, fmt.Sprintf("Giá trị không hợp lệ, cần kiểu %s", typeErr.Type))
	default:
		return domain.WrapError(err, domain.EINVALID, op, "Dữ liệu JSON không hợp lệ")
	}
}
