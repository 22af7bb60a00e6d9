package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voyago-dev/voyago/internal/auth"
	"github.com/voyago-dev/voyago/internal/session"
	"github.com/voyago-dev/voyago/internal/validation"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest represents a signup request
type SignupRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

// UserPayload wraps the user returned by auth routes
type UserPayload struct {
	User *auth.User `json:"user"`
}

// @Summary Login
// @Description Authenticate with email and password; sets the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, validation.Message(err), "")
		return
	}

	store, _ := GetStore(c)
	res := store.Login(c.Request.Context(), req.Email, req.Password)
	if !res.OK {
		s.relayError(c, res.Err)
		return
	}

	s.logger.Info().Str("user_id", res.Value.ID).Str("request_id", requestID(c)).Msg("User logged in")
	respondData(c, http.StatusOK, UserPayload{User: res.Value}, "Logged in successfully")
}

// @Summary Signup
// @Description Create an account; sets the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Router /api/auth/signup [post]
func (s *Server) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, validation.Message(err), "")
		return
	}

	store, _ := GetStore(c)
	res := store.Signup(c.Request.Context(), req.Name, req.Email, req.Password, req.PasswordConfirm)
	if !res.OK {
		s.relayError(c, res.Err)
		return
	}

	s.logger.Info().Str("user_id", res.Value.ID).Str("request_id", requestID(c)).Msg("User signed up")
	respondData(c, http.StatusCreated, UserPayload{User: res.Value}, "Account created successfully")
}

// @Summary Logout
// @Description End the session upstream and clear the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} Response
// @Router /api/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	store, _ := GetStore(c)
	// Local state is cleared whatever the upstream says
	_ = store.Logout(c.Request.Context())

	c.JSON(http.StatusOK, Response{
		Success:  true,
		Message:  "Logged out",
		Redirect: navigateTarget(c, session.HomePath),
	})
}

// logoutPage is the link target used by the page shells
func (s *Server) logoutPage(c *gin.Context) {
	store, _ := GetStore(c)
	_ = store.Logout(c.Request.Context())
	c.Redirect(http.StatusFound, navigateTarget(c, session.HomePath))
}

// @Summary Current user
// @Description Resolve the session behind the request's cookies
// @Tags auth
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /api/auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	snap := s.resolveSession(c)
	if !snap.IsAuthenticated() {
		respondFailure(c, http.StatusUnauthorized, "You are not logged in", "")
		return
	}
	respondData(c, http.StatusOK, UserPayload{User: snap.User}, "")
}

// @Summary Update profile
// @Description Partially update the signed-in user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body session.ProfileUpdate true "Fields to change"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /api/auth/profile [patch]
func (s *Server) updateProfile(c *gin.Context) {
	var req session.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, validation.Message(err), "")
		return
	}

	if snap := s.resolveSession(c); !snap.IsAuthenticated() {
		respondFailure(c, http.StatusUnauthorized, "You are not logged in", "")
		return
	}

	store, _ := GetStore(c)
	res := store.UpdateProfile(c.Request.Context(), req)
	if !res.OK {
		s.relayError(c, res.Err)
		return
	}
	respondData(c, http.StatusOK, UserPayload{User: res.Value}, "Profile updated successfully")
}
