package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("upstream-secret"))
	require.NoError(t, err)
	return signed
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "jwt" {
			return c
		}
	}
	return nil
}

func authBackend(t *testing.T, token string) *httptest.Server {
	return mockBackend(t, map[string]http.HandlerFunc{
		"POST /api/v1/users/login": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["email"] != "a@b.com" || body["password"] != "x" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"status":"fail","message":"Incorrect email or password"}`))
				return
			}
			w.Write([]byte(`{"status":"success","token":"` + token + `","data":{"user":{"id":"1","name":"A","role":"user"}}}`))
		},
		"POST /api/v1/users/signup": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"status":"success","token":"` + token + `","data":{"user":{"id":"2","name":"B","role":"user"}}}`))
		},
		"GET /api/v1/users/logout": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"success"}`))
		},
		"PATCH /api/v1/users/me": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			w.Write([]byte(`{"status":"success","data":{"user":{"id":"u1","name":"` + body["name"] + `","role":"user"}}}`))
		},
	})
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, "1", exp)
	s := newTestServer(t, authBackend(t, token).URL, "development")

	w := doRequest(s, http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"x"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"user":{"id":"1","name":"A","email":"","role":"user"}}`, string(resp.Data))

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.WithinDuration(t, exp, cookie.Expires, time.Second)
}

func TestLogin_Rejected(t *testing.T) {
	s := newTestServer(t, authBackend(t, "unused").URL, "development")

	w := doRequest(s, http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "Incorrect email or password", resp.Message)
	assert.Nil(t, sessionCookie(w))
}

func TestLogin_BindingErrors(t *testing.T) {
	s := newTestServer(t, authBackend(t, "unused").URL, "development")

	w := doRequest(s, http.MethodPost, "/api/auth/login", `{"password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email is required", decodeResponse(t, w).Message)

	w = doRequest(s, http.MethodPost, "/api/auth/login", `{"email":"nope","password":"x"}`, "")
	assert.Equal(t, "email must be a valid email address", decodeResponse(t, w).Message)
}

func TestSignup(t *testing.T) {
	token := signedToken(t, "2", time.Now().Add(time.Hour))
	s := newTestServer(t, authBackend(t, token).URL, "production")

	w := doRequest(s, http.MethodPost, "/api/auth/signup",
		`{"name":"B","email":"b@b.com","password":"secret","passwordConfirm":"other"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "passwords do not match", decodeResponse(t, w).Message)

	w = doRequest(s, http.MethodPost, "/api/auth/signup",
		`{"name":"B","email":"b@b.com","password":"secret","passwordConfirm":"secret"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
}

func TestLogout_ClearsCookieAndRedirectsHome(t *testing.T) {
	s := newTestServer(t, authBackend(t, "unused").URL, "development")

	w := doRequest(s, http.MethodPost, "/api/auth/logout", "", userToken)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "/", resp.Redirect)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestLogoutPage_RedirectsHomeEvenWhenUpstreamIsDown(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1", "development")

	w := doRequest(s, http.MethodGet, "/logout", "", userToken)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	require.NotNil(t, sessionCookie(w))
}

func TestCurrentUser(t *testing.T) {
	s := newTestServer(t, authBackend(t, "unused").URL, "development")

	w := doRequest(s, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(s, http.MethodGet, "/api/auth/me", "", userToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeResponse(t, w).Data), `"id":"u1"`)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t, authBackend(t, "unused").URL, "development")

	w := doRequest(s, http.MethodPatch, "/api/auth/profile", `{"name":"Una"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(s, http.MethodPatch, "/api/auth/profile", `{"name":"Una"}`, userToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(decodeResponse(t, w).Data), `"name":"Una"`)

	w = doRequest(s, http.MethodPatch, "/api/auth/profile", `{}`, userToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "nothing to update", decodeResponse(t, w).Message)
}
