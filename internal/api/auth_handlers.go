package api

import (
	"net/http"

	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/models"

	"github.com/gin-gonic/gin"
)

const stateCookie = "synapse_oauth_state"

type signUpRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleSignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	session, err := s.svc.Accounts.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	session, err := s.svc.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Tokens are stateless; the client discards its copy.
func (s *Server) handleLogout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGoogleLogin(c *gin.Context) {
	if s.svc.Google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "google sign-in is not configured"})
		return
	}
	state, err := auth.NewState()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/auth/google", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, s.svc.Google.AuthCodeURL(state))
}

func (s *Server) handleGoogleCallback(c *gin.Context) {
	if s.svc.Google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "google sign-in is not configured"})
		return
	}
	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		badRequest(c, "invalid oauth state")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/auth/google", "", c.Request.TLS != nil, true)

	code := c.Query("code")
	if code == "" {
		badRequest(c, "missing authorization code")
		return
	}
	gu, err := s.svc.Google.Exchange(c.Request.Context(), code)
	if err != nil {
		s.logger.Warn("google exchange failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google sign-in failed"})
		return
	}
	session, err := s.svc.Accounts.LoginWithGoogle(c.Request.Context(), gu)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleGetMe(c *gin.Context) {
	userID, _ := auth.UserID(c)
	user, err := s.svc.Accounts.Me(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleUpdateMe(c *gin.Context) {
	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "invalid profile update")
		return
	}
	userID, _ := auth.UserID(c)
	user, err := s.svc.Accounts.UpdateProfile(c.Request.Context(), userID, update)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
