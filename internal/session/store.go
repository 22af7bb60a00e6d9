// Package session owns the authenticated identity of one client. A Store is
// the only writer of its session; everyone else reads Snapshots.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/voyago-dev/voyago/internal/apiclient"
	"github.com/voyago-dev/voyago/internal/auth"
	"github.com/voyago-dev/voyago/internal/validation"
)

// HomePath is where the store navigates after logout
const HomePath = "/"

// State is the resolution state of a session
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// Snapshot is a point-in-time copy of the session
type Snapshot struct {
	State State
	User  *auth.User
}

func (s Snapshot) IsLoading() bool       { return s.State == StateLoading }
func (s Snapshot) IsAuthenticated() bool { return s.State == StateAuthenticated && s.User != nil }
func (s Snapshot) IsAdmin() bool         { return s.IsAuthenticated() && s.User.IsAdmin() }

// TokenSink persists the session token outside the store (browser cookie, OS keyring)
type TokenSink interface {
	SaveToken(token string, expires time.Time) error
	ClearToken() error
}

// Navigator moves the client somewhere after a session change
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

// Navigate calls f(path)
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Option configures a Store
type Option func(*Store)

// WithTokenSink sets where tokens are persisted
func WithTokenSink(sink TokenSink) Option {
	return func(s *Store) { s.sink = sink }
}

// WithNavigator sets the navigation hook used by Logout
func WithNavigator(nav Navigator) Option {
	return func(s *Store) { s.nav = nav }
}

// WithLogger sets the store logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.logger = log.With().Str("component", "session").Logger() }
}

// Store is the single owner of one client's session
type Store struct {
	backend  Backend
	sink     TokenSink
	nav      Navigator
	validate *validator.Validate
	logger   zerolog.Logger

	mu    sync.RWMutex
	state State
	user  *auth.User
	epoch uint64 // bumped on every committed change; stale results compare against it

	ready     chan struct{}
	readyOnce sync.Once
}

// NewStore creates a store in the loading state
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		validate: validation.New(),
		logger:   zerolog.Nop(),
		state:    StateLoading,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current session
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Ready is closed once the session has been resolved for the first time
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until the session is resolved or ctx is done
func (s *Store) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-s.ready:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Initialize probes the current user. A 401 silently ends the session and
// drops the stored token; any other failure is logged and resolves to
// unauthenticated.
// If ctx ends first, or the session changed meanwhile, the probe result is
// discarded, but a still-loading session is settled as unauthenticated.
func (s *Store) Initialize(ctx context.Context) Snapshot {
	s.mu.RLock()
	start := s.epoch
	s.mu.RUnlock()

	user, err := s.backend.CurrentUser(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || s.epoch != start {
		if s.state == StateLoading {
			s.setLocked(StateUnauthenticated, nil)
		}
		return s.snapshotLocked()
	}

	switch {
	case err == nil:
		s.setLocked(StateAuthenticated, user)
	case apiclient.IsUnauthorized(err):
		s.clearLocked()
	default:
		s.logger.Warn().Err(err).Msg("Failed to resolve current user")
		s.setLocked(StateUnauthenticated, nil)
	}
	return s.snapshotLocked()
}

type credentialsInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates with email and password. Failures come back as a
// result carrying a human-readable message.
func (s *Store) Login(ctx context.Context, email, password string) apiclient.Result[*auth.User] {
	if err := s.validate.Struct(credentialsInput{Email: email, Password: password}); err != nil {
		return invalid[*auth.User](err)
	}

	start := s.currentEpoch()
	grant, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return apiclient.Fail[*auth.User](err)
	}
	return s.commitGrant(ctx, start, grant)
}

// Signup registers a new account and starts its session
func (s *Store) Signup(ctx context.Context, name, email, password, passwordConfirm string) apiclient.Result[*auth.User] {
	in := SignupInput{Name: name, Email: email, Password: password, PasswordConfirm: passwordConfirm}
	if err := s.validate.Struct(in); err != nil {
		return invalid[*auth.User](err)
	}

	start := s.currentEpoch()
	grant, err := s.backend.Signup(ctx, in)
	if err != nil {
		return apiclient.Fail[*auth.User](err)
	}
	return s.commitGrant(ctx, start, grant)
}

// Logout ends the session upstream and clears it locally no matter how the
// upstream call went, then navigates home. The upstream error, if any, is
// returned for logging only.
func (s *Store) Logout(ctx context.Context) error {
	err := s.backend.Logout(ctx)
	if err != nil && !apiclient.IsUnauthorized(err) {
		s.logger.Warn().Err(err).Msg("Upstream logout failed; clearing local session anyway")
	}

	s.clear()
	if s.nav != nil {
		s.nav.Navigate(HomePath)
	}
	return err
}

// UpdateProfile sends a partial update and replaces the user with the
// server's representation. A 401 ends the session.
func (s *Store) UpdateProfile(ctx context.Context, update ProfileUpdate) apiclient.Result[*auth.User] {
	s.mu.RLock()
	start := s.epoch
	authenticated := s.state == StateAuthenticated
	s.mu.RUnlock()

	if !authenticated {
		return apiclient.Fail[*auth.User](&apiclient.Error{Status: http.StatusUnauthorized, Message: "You are not logged in"})
	}
	if update.Empty() {
		return invalid[*auth.User](nil)
	}
	if err := s.validate.Struct(update); err != nil {
		return invalid[*auth.User](err)
	}

	user, err := s.backend.UpdateProfile(ctx, update)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			s.clear()
		}
		return apiclient.Fail[*auth.User](err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return apiclient.Fail[*auth.User](&apiclient.Error{Message: "request canceled", Err: ctx.Err()})
	}
	if s.epoch != start || s.state != StateAuthenticated {
		return apiclient.Fail[*auth.User](&apiclient.Error{Status: http.StatusConflict, Message: "session changed during update"})
	}
	s.setLocked(StateAuthenticated, user)
	return apiclient.Ok(user.Clone())
}

// commitGrant installs a login or signup result unless the session changed
// after start was taken. The token is only persisted when the grant commits.
func (s *Store) commitGrant(ctx context.Context, start uint64, grant *Grant) apiclient.Result[*auth.User] {
	if ctx.Err() != nil {
		return apiclient.Fail[*auth.User](&apiclient.Error{Message: "request canceled", Err: ctx.Err()})
	}
	if grant == nil || grant.User == nil {
		return apiclient.Fail[*auth.User](&apiclient.Error{
			Status:  http.StatusBadGateway,
			Message: "unexpected response from server",
			Err:     apiclient.ErrMalformedEnvelope,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != start {
		return apiclient.Fail[*auth.User](&apiclient.Error{Status: http.StatusConflict, Message: "session changed during login"})
	}

	// Sink writes happen under s.mu so a concurrent clear cannot interleave
	if s.sink != nil && grant.Token != "" {
		var expires time.Time
		if claims, err := auth.PeekToken(grant.Token); err == nil {
			expires = claims.Expiry()
		}
		if err := s.sink.SaveToken(grant.Token, expires); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to persist session token")
		}
	}
	s.setLocked(StateAuthenticated, grant.User)

	return apiclient.Ok(grant.User.Clone())
}

func (s *Store) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// clearLocked ends the session and drops the persisted token. Caller holds s.mu.
func (s *Store) clearLocked() {
	s.setLocked(StateUnauthenticated, nil)
	if s.sink != nil {
		if err := s.sink.ClearToken(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to clear session token")
		}
	}
}

// setLocked commits a state change. Caller holds s.mu.
func (s *Store) setLocked(state State, user *auth.User) {
	s.state = state
	s.user = user.Clone()
	s.epoch++
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{State: s.state, User: s.user.Clone()}
}

func invalid[T any](err error) apiclient.Result[T] {
	msg := "nothing to update"
	if err != nil {
		msg = validation.Message(err)
	}
	return apiclient.Fail[T](&apiclient.Error{Status: http.StatusBadRequest, Message: msg})
}
