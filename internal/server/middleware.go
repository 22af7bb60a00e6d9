package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voyago-dev/voyago/internal/auth"
	"github.com/voyago-dev/voyago/internal/session"
)

const (
	bearerPrefix = "Bearer "

	ctxKeyStore     = "session_store"
	ctxKeyRequestID = "request_id"
	ctxKeyNavigate  = "navigate_to"

	headerRequestID = "X-Request-ID"
)

// requestIDMiddleware propagates or assigns an X-Request-ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("request_id", requestID(c)).
			Msg("HTTP request")
	}
}

// sessionMiddleware gives every request its own session store bound to the
// browser's cookies. The store is resolved lazily by resolveSession.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sink := &cookieSink{
			c:      c,
			name:   s.config.Session.CookieName,
			secure: s.config.IsProduction(),
		}
		store := session.NewStore(
			session.NewHTTPBackend(s.client, c.Request),
			session.WithTokenSink(sink),
			session.WithNavigator(session.NavigatorFunc(func(path string) {
				c.Set(ctxKeyNavigate, path)
			})),
			session.WithLogger(s.logger.With().Str("request_id", requestID(c)).Logger()),
		)
		c.Set(ctxKeyStore, store)
		c.Next()
	}
}

// GetStore returns the request's session store
func GetStore(c *gin.Context) (*session.Store, bool) {
	v, exists := c.Get(ctxKeyStore)
	if !exists {
		return nil, false
	}
	store, ok := v.(*session.Store)
	return store, ok
}

// resolveSession initializes the request's store once and returns its snapshot
func (s *Server) resolveSession(c *gin.Context) session.Snapshot {
	store, ok := GetStore(c)
	if !ok {
		return session.Snapshot{State: session.StateUnauthenticated}
	}
	if snap := store.Snapshot(); !snap.IsLoading() {
		return snap
	}
	return store.Initialize(c.Request.Context())
}

// navigateTarget returns where the store asked to navigate, or fallback
func navigateTarget(c *gin.Context, fallback string) string {
	if path := c.GetString(ctxKeyNavigate); path != "" {
		return path
	}
	return fallback
}

// cookieSink writes the session token to the browser as an HttpOnly cookie
type cookieSink struct {
	c      *gin.Context
	name   string
	secure bool
}

func (s *cookieSink) SaveToken(token string, expires time.Time) error {
	cookie := &http.Cookie{
		Name:     s.name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
		cookie.MaxAge = int(time.Until(expires).Seconds())
		if cookie.MaxAge <= 0 {
			cookie.MaxAge = -1
		}
	}
	http.SetCookie(s.c.Writer, cookie)
	return nil
}

func (s *cookieSink) ClearToken() error {
	http.SetCookie(s.c.Writer, &http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// sessionToken returns the bearer token of the request, from the Authorization
// header or the session cookie
func (s *Server) sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimPrefix(h, bearerPrefix)
	}
	if cookie, err := c.Cookie(s.config.Session.CookieName); err == nil {
		return cookie
	}
	return ""
}

// claimedActor returns the user ID inside the session token. The signature is
// not checked here, so the value only becomes an audit actor once the
// upstream has accepted the token.
func (s *Server) claimedActor(c *gin.Context) string {
	claims, err := auth.PeekToken(s.sessionToken(c))
	if err != nil {
		return ""
	}
	return claims.UserID
}

// forwardHeaders copies the browser headers the upstream needs
func forwardHeaders(r *http.Request) http.Header {
	h := http.Header{}
	if v := r.Header.Get("Authorization"); v != "" {
		h.Set("Authorization", v)
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		h.Set("Accept-Language", v)
	}
	return h
}
