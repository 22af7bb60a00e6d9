package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/voyago-dev/voyago/internal/apiclient"
	userauth "github.com/voyago-dev/voyago/internal/auth"
	"github.com/voyago-dev/voyago/internal/cli/auth"
	"github.com/voyago-dev/voyago/internal/cli/userconfig"
	"github.com/voyago-dev/voyago/internal/config"
	"github.com/voyago-dev/voyago/internal/logger"
	"github.com/voyago-dev/voyago/internal/session"
)

const (
	// DefaultBackendURL is used when nothing else names a backend
	DefaultBackendURL = "http://localhost:5000"

	backendEnv    = "VOYAGO_BACKEND_URL"
	sessionCookie = "jwt"
)

var errSessionExpired = errors.New("session expired or invalid. Please run 'voyago login' again")

// tokenStore is swapped out in tests
var tokenStore auth.TokenStore = auth.Default

// resolveBackendURL picks the backend from the --backend flag, then
// VOYAGO_BACKEND_URL, then the backend of the last sign-in
func resolveBackendURL(cmd *cobra.Command) (string, error) {
	url := ""
	if f := cmd.Flag("backend"); f != nil {
		url = f.Value.String()
	}
	if url == "" {
		url = os.Getenv(backendEnv)
	}
	if url == "" {
		saved, err := userconfig.CurrentBackend()
		if err != nil {
			return "", err
		}
		url = saved
	}
	if url == "" {
		url = DefaultBackendURL
	}

	url = strings.TrimRight(url, "/")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("backend URL must start with http:// or https://, got %q", url)
	}
	return url, nil
}

// cliLogger reports upstream failures on stderr only with --debug
func cliLogger(cmd *cobra.Command) zerolog.Logger {
	log := logger.New(cmd.ErrOrStderr(), "console")
	if f := cmd.Flag("debug"); f != nil && f.Value.String() == "true" {
		return log.Level(zerolog.DebugLevel)
	}
	return log.Level(zerolog.Disabled)
}

// sessionEnv is the process-wide session for one backend
type sessionEnv struct {
	backendURL string
	tokens     *auth.Session
	store      *session.Store
}

// newSession builds the CLI's single session store. The stored token is
// sent as the session cookie; login and logout update the keyring.
func newSession(cmd *cobra.Command) (*sessionEnv, error) {
	backendURL, err := resolveBackendURL(cmd)
	if err != nil {
		return nil, err
	}

	log := cliLogger(cmd)
	tokens := &auth.Session{Tokens: tokenStore, BackendURL: backendURL, CookieName: sessionCookie}
	client := apiclient.New(backendURL+config.APIPrefix, sessionCookie, 0, log)
	store := session.NewStore(
		session.NewHTTPBackend(client, tokens),
		session.WithTokenSink(tokens),
		session.WithLogger(log),
	)

	return &sessionEnv{backendURL: backendURL, tokens: tokens, store: store}, nil
}

// requireSession resolves the stored token against the backend. A token
// whose own expiry has passed is dropped without a round trip.
func (e *sessionEnv) requireSession(cmd *cobra.Command) (session.Snapshot, error) {
	token, err := e.tokens.Token()
	if err != nil {
		return session.Snapshot{}, err
	}
	if claims, err := userauth.PeekToken(token); err == nil && claims.Expired(time.Now()) {
		if err := e.tokens.ClearToken(); err != nil {
			log := cliLogger(cmd)
			log.Warn().Err(err).Msg("Failed to clear expired token")
		}
		return session.Snapshot{State: session.StateUnauthenticated}, errSessionExpired
	}

	snap := e.store.Initialize(cmd.Context())
	if !snap.IsAuthenticated() {
		return snap, errSessionExpired
	}
	return snap, nil
}
