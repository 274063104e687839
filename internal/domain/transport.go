package domain

import (
	"fmt"
	"net/http"
)

// TransportError is returned by the API client when a request never got a
// usable answer: the network failed, the circuit was open, or the server
// replied with a non-2xx status.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Code       string
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": transport failure"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CodeForStatus maps an HTTP status received from the API to an error code.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return EINVALID
	case http.StatusNotFound:
		return ENOTFOUND
	case http.StatusConflict:
		return ECONFLICT
	case http.StatusRequestEntityTooLarge:
		return ETOOLARGE
	case http.StatusTooManyRequests:
		return ERATELIMIT
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return EUNAVAILABLE
	case http.StatusGatewayTimeout:
		return ETIMEOUT
	}
	return EINTERNAL
}
