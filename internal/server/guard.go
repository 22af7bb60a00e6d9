package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voyago-dev/voyago/internal/auth"
	"github.com/voyago-dev/voyago/internal/session"
)

const (
	defaultLoginPath = "/login"
	defaultHomePath  = "/"
)

// GuardOptions controls a protected route
type GuardOptions struct {
	RequireAuth bool
	RedirectTo  string
	Role        auth.Role // optional; users without it are sent home
}

// GuardOption configures GuardOptions
type GuardOption func(*GuardOptions)

// GuestOnly inverts the guard: signed-in users are redirected away
// (login and signup pages)
func GuestOnly() GuardOption {
	return func(o *GuardOptions) { o.RequireAuth = false }
}

// RedirectTo overrides the redirect target
func RedirectTo(path string) GuardOption {
	return func(o *GuardOptions) { o.RedirectTo = path }
}

// RequireRole restricts the route to one role
func RequireRole(role auth.Role) GuardOption {
	return func(o *GuardOptions) { o.Role = role }
}

// NewGuardOptions returns the defaults (auth required) with opts applied
func NewGuardOptions(opts ...GuardOption) GuardOptions {
	o := GuardOptions{RequireAuth: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.RedirectTo == "" {
		if o.RequireAuth {
			o.RedirectTo = defaultLoginPath
		} else {
			o.RedirectTo = defaultHomePath
		}
	}
	return o
}

// Action is what a guard decided to do with a request
type Action int

const (
	ActionWait Action = iota
	ActionRender
	ActionRedirect
	ActionForbid
)

// Decision is the outcome of Decide
type Decision struct {
	Action   Action
	Location string
}

// Decide maps a session snapshot onto a guard action. An unresolved session
// always waits; nothing is rendered before resolution.
func Decide(snap session.Snapshot, o GuardOptions) Decision {
	if snap.IsLoading() {
		return Decision{Action: ActionWait}
	}

	authenticated := snap.IsAuthenticated()
	switch {
	case o.RequireAuth && !authenticated:
		return Decision{Action: ActionRedirect, Location: o.RedirectTo}
	case !o.RequireAuth && authenticated:
		return Decision{Action: ActionRedirect, Location: o.RedirectTo}
	case o.RequireAuth && o.Role != "" && snap.User.Role != o.Role:
		return Decision{Action: ActionForbid, Location: defaultHomePath}
	default:
		return Decision{Action: ActionRender}
	}
}

// Guard protects page routes. Redirects and the loading page abort the
// chain so the protected handler never writes anything.
func (s *Server) Guard(opts ...GuardOption) gin.HandlerFunc {
	o := NewGuardOptions(opts...)
	return func(c *gin.Context) {
		d := Decide(s.resolveSession(c), o)
		switch d.Action {
		case ActionRender:
			c.Next()
		case ActionRedirect, ActionForbid:
			c.Redirect(http.StatusFound, d.Location)
			c.Abort()
		default:
			c.Header("Cache-Control", "no-store")
			c.Header("Refresh", "1")
			c.HTML(http.StatusOK, "loading.html", gin.H{})
			c.Abort()
		}
	}
}

// GuardAPI protects JSON routes, answering 401/403 instead of redirecting
func (s *Server) GuardAPI(opts ...GuardOption) gin.HandlerFunc {
	o := NewGuardOptions(opts...)
	return func(c *gin.Context) {
		d := Decide(s.resolveSession(c), o)
		switch d.Action {
		case ActionRender:
			c.Next()
		case ActionForbid:
			respondFailure(c, http.StatusForbidden, "You do not have permission to perform this action", "")
			c.Abort()
		case ActionRedirect:
			respondFailure(c, http.StatusUnauthorized, "You are not logged in", "")
			c.Abort()
		default:
			c.Header("Retry-After", "1")
			respondFailure(c, http.StatusServiceUnavailable, "Session is still loading", "")
			c.Abort()
		}
	}
}
