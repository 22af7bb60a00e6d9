package auth

import (
	"net/http"
	"time"
)

// TokenStore defines the interface for token storage operations
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(backendURL, token string) error
	LoadToken(backendURL string) (string, error)
	DeleteToken(backendURL string) error
}

// defaultTokenStore implements TokenStore using the OS keyring
type defaultTokenStore struct{}

var Default TokenStore = &defaultTokenStore{}

func (d *defaultTokenStore) SaveToken(backendURL, token string) error {
	return SaveToken(backendURL, token)
}

func (d *defaultTokenStore) LoadToken(backendURL string) (string, error) {
	return LoadToken(backendURL)
}

func (d *defaultTokenStore) DeleteToken(backendURL string) error {
	return DeleteToken(backendURL)
}

// Session binds a TokenStore to one backend. It persists the tokens a
// session store hands it and presents the stored token as the session
// cookie on upstream requests.
type Session struct {
	Tokens     TokenStore
	BackendURL string
	CookieName string
}

// SaveToken stores token; the keyring keeps no expiry, the token carries its own
func (s *Session) SaveToken(token string, _ time.Time) error {
	return s.Tokens.SaveToken(s.BackendURL, token)
}

// ClearToken forgets the stored token
func (s *Session) ClearToken() error {
	return s.Tokens.DeleteToken(s.BackendURL)
}

// Token returns the stored token or ErrNotAuthenticated
func (s *Session) Token() (string, error) {
	token, err := s.Tokens.LoadToken(s.BackendURL)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNotAuthenticated
	}
	return token, nil
}

// Cookies returns the stored token as the session cookie, or nothing
func (s *Session) Cookies() []*http.Cookie {
	token, err := s.Token()
	if err != nil {
		return nil
	}
	return []*http.Cookie{{Name: s.CookieName, Value: token}}
}
