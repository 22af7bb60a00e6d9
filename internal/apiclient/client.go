// Package apiclient builds requests against the upstream REST backend and
// normalizes its responses and failures at a single boundary.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const bearerPrefix = "Bearer "

// Credentials supplies the cookies sent with a credentialed request.
// *http.Request satisfies it, so inbound browser cookies can be forwarded as-is.
type Credentials interface {
	Cookies() []*http.Cookie
}

// CookieList is a fixed set of cookies usable as Credentials
type CookieList []*http.Cookie

// Cookies returns the list itself
func (l CookieList) Cookies() []*http.Cookie {
	return l
}

// Request describes one upstream call. Path is relative to the client's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON-encoded unless json.RawMessage or []byte
	Header http.Header
}

// Response is an upstream reply. Body is nil when the upstream sent no content.
type Response struct {
	Status  int
	Header  http.Header
	Cookies []*http.Cookie
	Body    json.RawMessage
}

// Client represents an HTTP client for the upstream backend API
type Client struct {
	baseURL    string
	cookieName string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a new API client. baseURL includes the API prefix
// (e.g. http://backend/api/v1); cookieName names the session cookie whose
// value is sent as a bearer token.
func New(baseURL, cookieName string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		cookieName: cookieName,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.With().Str("component", "apiclient").Logger(),
	}
}

// BaseURL returns the upstream base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CookieName returns the name of the session cookie
func (c *Client) CookieName() string {
	return c.cookieName
}

// Do sends req to the upstream. Cookies from creds are forwarded, and the
// session cookie (if present) is also attached as a bearer token unless req
// already carries an Authorization header.
//
// On a non-2xx reply both the response and an *Error are returned. A 204
// reply has a nil Body and is never parsed.
func (c *Client) Do(ctx context.Context, creds Credentials, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	endpoint := joinURL(c.baseURL, r.Path)
	if len(r.Query) > 0 {
		endpoint += "?" + r.Query.Encode()
	}

	body, err := encodeBody(r.Body)
	if err != nil {
		return nil, &Error{Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &Error{Message: "failed to create request", Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	c.attachCredentials(req, creds)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.logger.Debug().Str("method", method).Str("path", req.URL.Path).Msg("Upstream request canceled")
			return nil, &Error{Message: "request canceled", Err: ctxErr}
		}
		c.logger.Error().Err(err).Str("method", method).Str("path", req.URL.Path).Msg("Upstream request failed")
		return nil, &Error{Message: "unable to reach server", Err: err}
	}
	defer resp.Body.Close()

	out := &Response{
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Cookies: resp.Cookies(),
	}

	if resp.StatusCode == http.StatusNoContent {
		return out, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", req.URL.Path).Msg("Failed to read upstream response")
		return nil, &Error{Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromBody(resp.StatusCode, data)
		// 401 is the expected "not logged in" answer
		if resp.StatusCode != http.StatusUnauthorized {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("method", method).
				Str("path", req.URL.Path).
				Str("message", apiErr.Message).
				Msg("Upstream request returned error")
		}
		if len(bytes.TrimSpace(data)) > 0 {
			out.Body = data
		}
		return out, apiErr
	}

	if len(bytes.TrimSpace(data)) > 0 {
		out.Body = data
	}
	return out, nil
}

func (c *Client) attachCredentials(req *http.Request, creds Credentials) {
	if creds == nil {
		return
	}
	for _, cookie := range creds.Cookies() {
		if cookie == nil || cookie.Name == "" {
			continue
		}
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
		if cookie.Name == c.cookieName && cookie.Value != "" && req.Header.Get("Authorization") == "" {
			req.Header.Set("Authorization", bearerPrefix+cookie.Value)
		}
	}
}

func encodeBody(v any) (io.Reader, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(b) == 0 {
			return nil, nil
		}
		return bytes.NewReader(b), nil
	case []byte:
		if len(b) == 0 {
			return nil, nil
		}
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

// IsCanceled reports whether err came from a canceled or expired context
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
