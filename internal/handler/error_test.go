package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/tramhuong/internal/domain"
)

type errorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Detail string `json:"detail"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var response errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{domain.ETIMEOUT, http.StatusGatewayTimeout},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.expected {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.expected)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "order not found",
			err:            &domain.Error{Code: domain.ENOTFOUND, Op: "order.get", Message: domain.ErrOrderNotFound.Message},
			expectedStatus: http.StatusNotFound,
			expectedCode:   domain.ENOTFOUND,
		},
		{
			name:           "insufficient stock",
			err:            domain.ErrInsufficientStock,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.EINVALID,
		},
		{
			name:           "conflict",
			err:            domain.Conflict("order.create", "order number already exists"),
			expectedStatus: http.StatusConflict,
			expectedCode:   domain.ECONFLICT,
		},
		{
			name:           "plain error is internal",
			err:            errors.New("pq: connection refused"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   domain.EINTERNAL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders/x", nil)
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, tt.err)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			response := decodeError(t, rec)
			if response.Error.Code != tt.expectedCode {
				t.Errorf("error.code = %q, want %q", response.Error.Code, tt.expectedCode)
			}
			if response.Detail != response.Error.Message {
				t.Errorf("detail = %q, want %q", response.Detail, response.Error.Message)
			}
		})
	}
}

func TestErrorResponse_InternalHidesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/cart/s", nil)
	rec := httptest.NewRecorder()

	err := domain.Internal(errors.New("dial tcp 10.0.0.5:5432"), "cart.get", "failed to load cart")
	ErrorResponse(rec, req, err)

	response := decodeError(t, rec)
	if strings.Contains(response.Error.Message, "10.0.0.5") || strings.Contains(response.Error.Message, "failed to load cart") {
		t.Errorf("internal details leaked: %q", response.Error.Message)
	}
	if response.Error.Message != domain.ErrorMessage(err) {
		t.Errorf("message = %q, want generic message", response.Error.Message)
	}
}

func TestValidationErrorResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	rec := httptest.NewRecorder()

	err := domain.NewValidationError("checkout.build", "phone", "Số điện thoại không hợp lệ")
	err = domain.AddFieldError(err, "email", "Email không hợp lệ")

	ErrorResponse(rec, req, err)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	response := decodeError(t, rec)
	if response.Error.Code != domain.EINVALID {
		t.Errorf("error.code = %q, want %q", response.Error.Code, domain.EINVALID)
	}
	if len(response.Error.Fields) != 2 {
		t.Errorf("fields count = %d, want 2", len(response.Error.Fields))
	}
	if response.Error.Fields["phone"] != "Số điện thoại không hợp lệ" {
		t.Errorf("fields[phone] = %q", response.Error.Fields["phone"])
	}
	if want := "email: Email không hợp lệ; phone: Số điện thoại không hợp lệ"; response.Detail != want {
		t.Errorf("detail = %q, want %q", response.Detail, want)
	}
}

func TestValidationErrorResponse_NonValidationError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	rec := httptest.NewRecorder()

	ValidationErrorResponse(rec, req, domain.ErrEmptyCart)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if response := decodeError(t, rec); response.Error.Message != domain.ErrEmptyCart.Message {
		t.Errorf("message = %q, want %q", response.Error.Message, domain.ErrEmptyCart.Message)
	}
}

func TestConvenienceResponses(t *testing.T) {
	t.Run("NotFoundResponse", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NotFoundResponse(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("InternalErrorResponse", func(t *testing.T) {
		rec := httptest.NewRecorder()
		InternalErrorResponse(rec, httptest.NewRequest(http.MethodGet, "/api/", nil), nil)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Quantity int `json:"quantity"`
	}

	tests := []struct {
		name      string
		body      string
		wantCode  string
		wantField string
	}{
		{name: "valid", body: `{"quantity":2}`},
		{name: "empty body", body: ``, wantCode: domain.EINVALID},
		{name: "malformed", body: `{"quantity":`, wantCode: domain.EINVALID},
		{name: "wrong type", body: `{"quantity":"two"}`, wantCode: domain.EINVALID, wantField: "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/cart/s/add", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)

			if got := domain.ErrorCode(err); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
			if tt.wantField != "" {
				if _, ok := domain.GetValidationFields(err)[tt.wantField]; !ok {
					t.Errorf("expected field error on %q, got %v", tt.wantField, err)
				}
			}
		})
	}
}
