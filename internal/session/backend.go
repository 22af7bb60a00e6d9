package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/voyago-dev/voyago/internal/apiclient"
	"github.com/voyago-dev/voyago/internal/auth"
)

// Grant is what a successful login or signup hands back
type Grant struct {
	User  *auth.User
	Token string
}

// SignupInput holds the fields of a signup form
type SignupInput struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// ProfileUpdate is a partial update of the current user; nil fields are left alone
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// Empty reports whether the update changes nothing
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil
}

// Backend is the upstream side of the session. Errors are *apiclient.Error.
type Backend interface {
	CurrentUser(ctx context.Context) (*auth.User, error)
	Login(ctx context.Context, email, password string) (*Grant, error)
	Signup(ctx context.Context, in SignupInput) (*Grant, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*auth.User, error)
}

// HTTPBackend talks to the upstream /users endpoints through an apiclient.Client
type HTTPBackend struct {
	client *apiclient.Client
	creds  apiclient.Credentials

	mu    sync.Mutex
	token *string // overrides the session cookie after login/logout
}

// NewHTTPBackend binds client to the given credentials (browser cookies or a token store)
func NewHTTPBackend(client *apiclient.Client, creds apiclient.Credentials) *HTTPBackend {
	return &HTTPBackend{client: client, creds: creds}
}

// Cookies implements apiclient.Credentials, substituting the session cookie
// once this backend has logged in or out.
func (b *HTTPBackend) Cookies() []*http.Cookie {
	var base []*http.Cookie
	if b.creds != nil {
		base = b.creds.Cookies()
	}

	b.mu.Lock()
	override := b.token
	b.mu.Unlock()
	if override == nil {
		return base
	}

	name := b.client.CookieName()
	out := make([]*http.Cookie, 0, len(base)+1)
	for _, c := range base {
		if c != nil && c.Name != name {
			out = append(out, c)
		}
	}
	if *override != "" {
		out = append(out, &http.Cookie{Name: name, Value: *override})
	}
	return out
}

func (b *HTTPBackend) setToken(token string) {
	b.mu.Lock()
	b.token = &token
	b.mu.Unlock()
}

// CurrentUser probes GET /users/me
func (b *HTTPBackend) CurrentUser(ctx context.Context) (*auth.User, error) {
	resp, err := b.client.Do(ctx, b, apiclient.Request{Method: http.MethodGet, Path: "/users/me"})
	if err != nil {
		return nil, err
	}
	return decodeUser(resp)
}

// Login calls POST /users/login
func (b *HTTPBackend) Login(ctx context.Context, email, password string) (*Grant, error) {
	resp, err := b.client.Do(ctx, b, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/users/login",
		Body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, err
	}
	return b.grantFrom(resp)
}

// Signup calls POST /users/signup
func (b *HTTPBackend) Signup(ctx context.Context, in SignupInput) (*Grant, error) {
	resp, err := b.client.Do(ctx, b, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/users/signup",
		Body:   in,
	})
	if err != nil {
		return nil, err
	}
	return b.grantFrom(resp)
}

// Logout calls GET /users/logout. The override token is cleared even on failure.
func (b *HTTPBackend) Logout(ctx context.Context) error {
	_, err := b.client.Do(ctx, b, apiclient.Request{Method: http.MethodGet, Path: "/users/logout"})
	b.setToken("")
	return err
}

// UpdateProfile calls PATCH /users/me
func (b *HTTPBackend) UpdateProfile(ctx context.Context, update ProfileUpdate) (*auth.User, error) {
	resp, err := b.client.Do(ctx, b, apiclient.Request{
		Method: http.MethodPatch,
		Path:   "/users/me",
		Body:   update,
	})
	if err != nil {
		return nil, err
	}
	return decodeUser(resp)
}

func (b *HTTPBackend) grantFrom(resp *apiclient.Response) (*Grant, error) {
	user, err := decodeUser(resp)
	if err != nil {
		return nil, err
	}

	env, _ := apiclient.ParseEnvelope(resp.Body)
	token := ""
	if env != nil {
		token = env.Token
	}
	for _, c := range resp.Cookies {
		if c.Name == b.client.CookieName() && c.Value != "" {
			token = c.Value
		}
	}
	if token != "" {
		b.setToken(token)
	}

	return &Grant{User: user, Token: token}, nil
}

// wireUser accepts both "id" and Mongo-style "_id"
type wireUser struct {
	ID      string `json:"id"`
	MongoID string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// decodeUser reads a user out of {status, data:{user}} or {data:{...user}}
func decodeUser(resp *apiclient.Response) (*auth.User, error) {
	if resp == nil || len(resp.Body) == 0 {
		return nil, malformed(resp)
	}
	if err := apiclient.CheckEnvelope(resp.Status, resp.Body); err != nil {
		return nil, err
	}

	payload := apiclient.Unwrap(resp.Body)
	var holder struct {
		User json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(payload, &holder); err == nil && len(holder.User) > 0 {
		payload = holder.User
	}

	var w wireUser
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, malformed(resp)
	}
	id := w.ID
	if id == "" {
		id = w.MongoID
	}
	if id == "" {
		return nil, malformed(resp)
	}

	return &auth.User{
		ID:    id,
		Name:  w.Name,
		Email: w.Email,
		Role:  auth.ParseRole(w.Role),
	}, nil
}

func malformed(resp *apiclient.Response) error {
	status := http.StatusBadGateway
	if resp != nil && resp.Status >= http.StatusBadRequest {
		status = resp.Status
	}
	return &apiclient.Error{
		Status:  status,
		Message: "unexpected response from server",
		Err:     apiclient.ErrMalformedEnvelope,
	}
}
