package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrMalformedEnvelope is returned when a 2xx body does not have the expected shape
	ErrMalformedEnvelope = errors.New("malformed response envelope")
)

// Error is the normalized failure produced for every unsuccessful upstream call.
// Status is 0 when the request never produced an HTTP response.
type Error struct {
	Status  int
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError converts any error into an *Error, keeping an existing one intact
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Message: err.Error(), Err: err}
}

// StatusOf returns the upstream HTTP status carried by err, or 0
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is an upstream 401
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// errorFromBody builds an *Error from a non-2xx response body. The message
// comes from "message", then a string "error", then the status text.
// Non-JSON bodies only populate Detail.
func errorFromBody(status int, body []byte) *Error {
	apiErr := &Error{Status: status}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		var msg string
		if raw, ok := payload["message"]; ok && json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg
		}
		if raw, ok := payload["error"]; ok {
			var detail string
			if json.Unmarshal(raw, &detail) == nil {
				apiErr.Detail = detail
				if apiErr.Message == "" {
					apiErr.Message = detail
				}
			} else {
				apiErr.Detail = string(raw)
			}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" {
		apiErr.Detail = text
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if apiErr.Message == "" {
		apiErr.Message = "request failed"
	}
	return apiErr
}
