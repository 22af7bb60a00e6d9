package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// maxUnwrapDepth bounds data.data.data nesting
const maxUnwrapDepth = 3

// listKeys are the collection members tolerated inside a listing payload
var listKeys = []string{"items", "results", "docs", "blogs", "packages", "contacts", "users", "faqs"}

// Envelope is the canonical outer shape of upstream responses. Auth flows use
// Status ("success"), admin routes use Success; both carry Data and Message.
type Envelope struct {
	Status  string          `json:"status,omitempty"`
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Failed reports whether the envelope explicitly signals failure
func (e *Envelope) Failed() bool {
	if e.Success != nil && !*e.Success {
		return true
	}
	return e.Status != "" && e.Status != "success"
}

// ParseEnvelope decodes body as an Envelope. Non-object bodies (raw arrays,
// scalars) yield an envelope whose Data is the body itself.
func ParseEnvelope(body json.RawMessage) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Envelope{}, nil
	}
	if trimmed[0] != '{' {
		return &Envelope{Data: json.RawMessage(trimmed)}, nil
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return &env, nil
}

// CheckEnvelope turns a 2xx body that signals failure into an *Error
func CheckEnvelope(status int, body json.RawMessage) error {
	env, err := ParseEnvelope(body)
	if err != nil {
		return &Error{Status: status, Message: "unexpected response from server", Err: err}
	}
	if env.Failed() {
		msg := env.Message
		if msg == "" {
			msg = "request was not successful"
		}
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return &Error{Status: status, Message: msg}
	}
	return nil
}

// Unwrap returns the payload carried by body: the "data" member of an object
// body, followed through nested data.data, or body itself otherwise.
func Unwrap(body json.RawMessage) json.RawMessage {
	current := json.RawMessage(bytes.TrimSpace(body))
	for depth := 0; depth < maxUnwrapDepth; depth++ {
		if len(current) == 0 || current[0] != '{' {
			return current
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil {
			return current
		}
		data, ok := obj["data"]
		data = bytes.TrimSpace(data)
		if !ok || len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return current
		}
		current = data
	}
	return current
}

// UnwrapList extracts the items of a listing response. It accepts raw arrays,
// a data envelope around an array, and objects holding the array under one of
// keys or a well-known collection name.
func UnwrapList(body json.RawMessage, keys ...string) ([]json.RawMessage, error) {
	payload := Unwrap(body)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return []json.RawMessage{}, nil
	}

	switch payload[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return items, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(payload, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		candidates := append(append([]string{}, keys...), listKeys...)
		for _, key := range candidates {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err == nil {
				if items == nil {
					items = []json.RawMessage{}
				}
				return items, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: no list in payload", ErrMalformedEnvelope)
}
