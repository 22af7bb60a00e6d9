package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/voyago-dev/voyago/internal/cli/auth"
	"github.com/voyago-dev/voyago/internal/cli/userconfig"
)

// mockTokenStore is a simple in-memory token store for testing
type mockTokenStore struct {
	tokens map[string]string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{
		tokens: make(map[string]string),
	}
}

func (m *mockTokenStore) SaveToken(backendURL, token string) error {
	m.tokens[backendURL] = token
	return nil
}

func (m *mockTokenStore) LoadToken(backendURL string) (string, error) {
	token, exists := m.tokens[backendURL]
	if !exists {
		return "", auth.ErrNotAuthenticated
	}
	return token, nil
}

func (m *mockTokenStore) DeleteToken(backendURL string) error {
	delete(m.tokens, backendURL)
	return nil
}

// setupTestEnvironment isolates the user config and keyring for one test
func setupTestEnvironment(t *testing.T) *mockTokenStore {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv(backendEnv, "")
	t.Setenv("VOYAGO_EMAIL", "")
	t.Setenv("VOYAGO_PASSWORD", "")

	store := newMockTokenStore()
	previous := tokenStore
	tokenStore = store
	t.Cleanup(func() { tokenStore = previous })
	return store
}

func testToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "user-123", "exp": exp.Unix()})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// mockAPIServer mimics the upstream /users endpoints
func mockAPIServer(t *testing.T, token string) (*httptest.Server, *int32) {
	t.Helper()

	var calls int32
	var mu sync.Mutex
	name := "Test User"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		mu.Lock()
		defer mu.Unlock()
		authorized := r.Header.Get("Authorization") == "Bearer "+token

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/users/login":
			var req map[string]string
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode request: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req["email"] != "test@example.com" || req["password"] != "password123" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"status":"fail","message":"Incorrect email or password"}`))
				return
			}
			fmt.Fprintf(w, `{"status":"success","token":%q,"data":{"user":{"id":"user-123","name":%q,"email":"test@example.com","role":"admin"}}}`, token, name)

		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/users/signup":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"status":"success","token":%q,"data":{"user":{"id":"user-456","name":"New User","email":"new@example.com","role":"user"}}}`, token)

		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/users/me":
			if !authorized {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"status":"fail","message":"You are not logged in"}`))
				return
			}
			fmt.Fprintf(w, `{"status":"success","data":{"data":{"id":"user-123","name":%q,"email":"test@example.com","role":"admin"}}}`, name)

		case r.Method == http.MethodPatch && r.URL.Path == "/api/v1/users/me":
			if !authorized {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			name = req["name"]
			fmt.Fprintf(w, `{"status":"success","data":{"user":{"id":"user-123","name":%q,"email":"test@example.com","role":"admin"}}}`, name)

		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/users/logout":
			w.Write([]byte(`{"status":"success"}`))

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// execute runs args against a command tree shaped like the voyago root
func execute(args ...string) (string, error) {
	root := &cobra.Command{Use: "voyago", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("backend", "", "")
	root.PersistentFlags().Bool("debug", false, "")
	root.AddCommand(NewLoginCmd(), NewSignupCmd(), NewLogoutCmd(), NewWhoamiCmd(), NewProfileCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLoginCommand_SuccessfulLogin(t *testing.T) {
	store := setupTestEnvironment(t)
	token := testToken(t, time.Now().Add(time.Hour))
	srv, _ := mockAPIServer(t, token)

	out, err := execute("login", "--backend", srv.URL, "--email", "test@example.com", "--password", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if !strings.Contains(out, "Login successful") {
		t.Errorf("expected success message, got %q", out)
	}
	if !strings.Contains(out, "Role: Admin") {
		t.Errorf("expected admin role line, got %q", out)
	}
	if store.tokens[srv.URL] != token {
		t.Errorf("expected token to be stored for %s", srv.URL)
	}

	saved, err := userconfig.CurrentBackend()
	if err != nil {
		t.Fatalf("failed to read user config: %v", err)
	}
	if saved != srv.URL {
		t.Errorf("expected backend %s to be remembered, got %q", srv.URL, saved)
	}
}

func TestLoginCommand_Rejected(t *testing.T) {
	store := setupTestEnvironment(t)
	srv, _ := mockAPIServer(t, "unused")

	_, err := execute("login", "--backend", srv.URL, "--email", "test@example.com", "--password", "wrong")
	if err == nil {
		t.Fatal("expected login to fail")
	}

	expected := "login failed: Incorrect email or password"
	if err.Error() != expected {
		t.Errorf("expected error '%s', got '%s'", expected, err.Error())
	}
	if len(store.tokens) != 0 {
		t.Errorf("expected no stored token, got %v", store.tokens)
	}
}

func TestLoginCommand_MissingEmail(t *testing.T) {
	setupTestEnvironment(t)

	_, err := execute("login", "--password", "password123")
	if err == nil {
		t.Fatal("expected error when email is missing, got nil")
	}

	expected := "email is required (use --email flag or VOYAGO_EMAIL env var)"
	if err.Error() != expected {
		t.Errorf("expected error '%s', got '%s'", expected, err.Error())
	}
}

func TestLoginCommand_PrefillsLastEmail(t *testing.T) {
	store := setupTestEnvironment(t)
	srv, _ := mockAPIServer(t, "tok")

	if err := userconfig.RememberLogin(srv.URL, "test@example.com", time.Now()); err != nil {
		t.Fatal(err)
	}

	if _, err := execute("login", "--backend", srv.URL, "--password", "password123"); err != nil {
		t.Fatalf("login with remembered email failed: %v", err)
	}
	if store.tokens[srv.URL] != "tok" {
		t.Errorf("expected token to be stored, got %v", store.tokens)
	}

	st, err := userconfig.Read()
	if err != nil {
		t.Fatal(err)
	}
	acct, ok := st.Account(srv.URL)
	if !ok || acct.Email != "test@example.com" || acct.LastLogin.IsZero() {
		t.Errorf("expected account to be remembered, got %+v", acct)
	}
}

func TestValidEmail(t *testing.T) {
	if err := validEmail("a@example.com"); err != nil {
		t.Errorf("expected valid email, got %v", err)
	}
	for _, bad := range []string{"", "nope", "a@"} {
		if err := validEmail(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestLoginCommand_EnvVarCredentials(t *testing.T) {
	store := setupTestEnvironment(t)
	srv, _ := mockAPIServer(t, "env-token")

	t.Setenv(backendEnv, srv.URL)
	t.Setenv("VOYAGO_EMAIL", "test@example.com")
	t.Setenv("VOYAGO_PASSWORD", "password123")

	if _, err := execute("login"); err != nil {
		t.Fatalf("login with env credentials failed: %v", err)
	}
	if store.tokens[srv.URL] != "env-token" {
		t.Errorf("expected env-token to be stored, got %v", store.tokens)
	}
}

func TestWhoamiCommand(t *testing.T) {
	store := setupTestEnvironment(t)
	exp := time.Now().Add(2 * time.Hour)
	token := testToken(t, exp)
	srv, _ := mockAPIServer(t, token)

	_, err := execute("whoami", "--backend", srv.URL)
	if err == nil || err.Error() != auth.ErrNotAuthenticated.Error() {
		t.Fatalf("expected not authenticated error, got %v", err)
	}

	store.tokens[srv.URL] = token
	out, err := execute("whoami", "--backend", srv.URL)
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}
	for _, want := range []string{"user-123", "Test User", "test@example.com", "admin", "Session expires"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestWhoamiCommand_RejectedToken(t *testing.T) {
	store := setupTestEnvironment(t)
	srv, _ := mockAPIServer(t, "good-token")
	store.tokens[srv.URL] = "stale-token"

	_, err := execute("whoami", "--backend", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "session expired") {
		t.Errorf("expected session expired error, got %v", err)
	}
	if _, ok := store.tokens[srv.URL]; ok {
		t.Error("expected rejected token to be deleted")
	}
}

func TestWhoamiCommand_ExpiredTokenSkipsBackend(t *testing.T) {
	store := setupTestEnvironment(t)
	expired := testToken(t, time.Now().Add(-time.Minute))
	srv, calls := mockAPIServer(t, expired)
	store.tokens[srv.URL] = expired

	_, err := execute("whoami", "--backend", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "session expired") {
		t.Errorf("expected session expired error, got %v", err)
	}
	if n := atomic.LoadInt32(calls); n != 0 {
		t.Errorf("expected no backend calls for an expired token, got %d", n)
	}
	if _, ok := store.tokens[srv.URL]; ok {
		t.Error("expected expired token to be deleted")
	}
}

func TestLogoutCommand(t *testing.T) {
	store := setupTestEnvironment(t)
	srv, calls := mockAPIServer(t, "tok")

	out, err := execute("logout", "--backend", srv.URL)
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !strings.Contains(out, "Not logged in.") {
		t.Errorf("expected not logged in message, got %q", out)
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Errorf("expected no upstream call without a token")
	}

	store.tokens[srv.URL] = "tok"
	out, err = execute("logout", "--backend", srv.URL)
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !strings.Contains(out, "Logged out") {
		t.Errorf("expected logged out message, got %q", out)
	}
	if _, ok := store.tokens[srv.URL]; ok {
		t.Error("expected token to be deleted")
	}
}

func TestLogoutCommand_BackendDown(t *testing.T) {
	store := setupTestEnvironment(t)
	backend := "http://127.0.0.1:1"
	store.tokens[backend] = "tok"

	if _, err := execute("logout", "--backend", backend); err != nil {
		t.Fatalf("logout should succeed locally: %v", err)
	}
	if _, ok := store.tokens[backend]; ok {
		t.Error("expected token to be deleted even when the backend is unreachable")
	}
}

func TestProfileCommand_Update(t *testing.T) {
	store := setupTestEnvironment(t)
	srv, _ := mockAPIServer(t, "tok")
	store.tokens[srv.URL] = "tok"

	out, err := execute("profile", "--backend", srv.URL, "--name", "Ada Lovelace")
	if err != nil {
		t.Fatalf("profile update failed: %v", err)
	}
	if !strings.Contains(out, "Profile updated") || !strings.Contains(out, "Ada Lovelace") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestSignupCommand(t *testing.T) {
	store := setupTestEnvironment(t)
	srv, calls := mockAPIServer(t, "signup-token")

	_, err := execute("signup", "--backend", srv.URL,
		"--name", "New User", "--email", "new@example.com",
		"--password", "secret", "--password-confirm", "different")
	if err == nil || err.Error() != "signup failed: passwords do not match" {
		t.Fatalf("expected confirmation mismatch, got %v", err)
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Error("expected mismatch to be rejected before any request")
	}

	out, err := execute("signup", "--backend", srv.URL,
		"--name", "New User", "--email", "new@example.com", "--password", "secret")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if !strings.Contains(out, "Account created") {
		t.Errorf("expected success message, got %q", out)
	}
	if store.tokens[srv.URL] != "signup-token" {
		t.Errorf("expected signup token to be stored, got %v", store.tokens)
	}
}

func TestResolveBackendURL(t *testing.T) {
	setupTestEnvironment(t)

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("backend", "", "")

	url, err := resolveBackendURL(cmd)
	if err != nil || url != DefaultBackendURL {
		t.Errorf("expected default backend, got %q (%v)", url, err)
	}

	if err := userconfig.RememberLogin("http://saved.example.com", "a@example.com", time.Now()); err != nil {
		t.Fatal(err)
	}
	if url, _ := resolveBackendURL(cmd); url != "http://saved.example.com" {
		t.Errorf("expected saved backend, got %q", url)
	}

	t.Setenv(backendEnv, "http://env.example.com/")
	if url, _ := resolveBackendURL(cmd); url != "http://env.example.com" {
		t.Errorf("expected env backend without trailing slash, got %q", url)
	}

	cmd.Flags().Set("backend", "https://flag.example.com")
	if url, _ := resolveBackendURL(cmd); url != "https://flag.example.com" {
		t.Errorf("expected flag backend, got %q", url)
	}

	cmd.Flags().Set("backend", "ftp://nope")
	if _, err := resolveBackendURL(cmd); err == nil {
		t.Error("expected error for non-http backend")
	}
}
