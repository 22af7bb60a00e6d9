package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
)

// Result is the typed outcome of an upstream operation. Exactly one of Value
// (when OK) or Err (when not OK) is meaningful.
type Result[T any] struct {
	OK    bool
	Value T
	Err   *Error
}

// Ok wraps a successful value
func Ok[T any](v T) Result[T] {
	return Result[T]{OK: true, Value: v}
}

// Fail wraps err as a failed result
func Fail[T any](err error) Result[T] {
	apiErr := AsError(err)
	if apiErr == nil {
		apiErr = &Error{Message: "unknown error"}
	}
	return Result[T]{Err: apiErr}
}

// Message returns the human-readable failure message, or "" on success
func (r Result[T]) Message() string {
	if r.OK || r.Err == nil {
		return ""
	}
	return r.Err.Message
}

// Call performs req and decodes the unwrapped payload into T. A 204 yields
// the zero T. 2xx bodies that signal failure become failed results.
func Call[T any](ctx context.Context, c *Client, creds Credentials, req Request) Result[T] {
	resp, err := c.Do(ctx, creds, req)
	if err != nil {
		return Fail[T](err)
	}

	var value T
	if resp.Status == http.StatusNoContent || len(resp.Body) == 0 {
		return Ok(value)
	}

	if err := CheckEnvelope(resp.Status, resp.Body); err != nil {
		return Fail[T](err)
	}

	if err := json.Unmarshal(Unwrap(resp.Body), &value); err != nil {
		return Fail[T](&Error{
			Status:  resp.Status,
			Message: "unexpected response from server",
			Err:     ErrMalformedEnvelope,
		})
	}
	return Ok(value)
}
