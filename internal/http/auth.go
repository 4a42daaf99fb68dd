package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/secretkeeper/internal/apipaths"
	"github.com/secretkeeper/internal/constants"
	"github.com/secretkeeper/internal/db"
	"github.com/secretkeeper/internal/domain"
	"github.com/secretkeeper/internal/validation"
)

// register creates a local account and logs it in
func (s *Server) register(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := s.accounts.Register(ctx, c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		switch {
		case domain.IsConflictError(err):
			c.String(http.StatusBadRequest, constants.MsgUserAlreadyExists)
		case domain.IsValidationError(err):
			c.String(http.StatusBadRequest, domain.PublicMessage(err))
		default:
			s.logger.ErrorContext(ctx, "registration failed", "error", err)
			c.String(http.StatusInternalServerError, constants.MsgRegistrationFailed)
		}
		return
	}

	s.startSession(c, user)
}

// login runs the local strategy. Every authentication failure looks the same
// to the client.
func (s *Server) login(c *gin.Context) {
	ctx := c.Request.Context()
	email := validation.NormalizeEmail(c.PostForm("username"))
	password := c.PostForm("password")

	if email == "" || password == "" {
		s.logger.InfoContext(ctx, "login rejected", "reason", "missing credentials")
		c.Redirect(http.StatusFound, apipaths.Login)
		return
	}

	user, err := s.local.Authenticate(ctx, email, password)
	if err != nil {
		if domain.IsAuthFailure(err) {
			s.logger.InfoContext(ctx, "login rejected", "reason", domain.PublicMessage(err))
			c.Redirect(http.StatusFound, apipaths.Login)
			return
		}
		s.logger.ErrorContext(ctx, "login failed", "error", err)
		c.String(http.StatusInternalServerError, constants.MsgServerError)
		return
	}

	s.startSession(c, user)
}

// logout ends the current session
func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(constants.SessionCookieName); err == nil && token != "" {
		if err := s.sessions.Destroy(c.Request.Context(), token); err != nil {
			s.logger.ErrorContext(c.Request.Context(), "failed to destroy session", "error", err)
			c.String(http.StatusInternalServerError, constants.MsgServerError)
			return
		}
	}

	s.clearSessionCookie(c)
	c.Redirect(http.StatusFound, apipaths.Home)
}

// googleLogin sends the browser to the provider's consent page
func (s *Server) googleLogin(c *gin.Context) {
	if s.provider == nil {
		c.String(http.StatusNotFound, constants.MsgGoogleNotConfigured)
		return
	}

	state := uuid.NewString()
	s.setStateCookie(c, state)
	c.Redirect(http.StatusFound, s.provider.AuthCodeURL(state))
}

// googleCallback completes the federated flow
func (s *Server) googleCallback(c *gin.Context) {
	if s.provider == nil {
		c.String(http.StatusNotFound, constants.MsgGoogleNotConfigured)
		return
	}
	ctx := c.Request.Context()

	expected, _ := c.Cookie(constants.OAuthStateCookieName)
	s.clearStateCookie(c)

	if providerErr := c.Query("error"); providerErr != "" {
		s.logger.InfoContext(ctx, "federated login rejected", "reason", "provider returned error", "provider_error", providerErr)
		c.Redirect(http.StatusFound, apipaths.Login)
		return
	}

	state := c.Query("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		s.logger.WarnContext(ctx, "federated login rejected", "reason", "state mismatch")
		c.Redirect(http.StatusFound, apipaths.Login)
		return
	}

	identity, err := s.provider.Exchange(ctx, c.Query("code"))
	if err != nil {
		s.logger.WarnContext(ctx, "federated login rejected", "reason", "exchange failed", "error", err)
		c.Redirect(http.StatusFound, apipaths.Login)
		return
	}

	user, err := s.federated.Authenticate(ctx, identity)
	if err != nil {
		if domain.IsAuthFailure(err) {
			s.logger.InfoContext(ctx, "federated login rejected", "reason", domain.PublicMessage(err))
			c.Redirect(http.StatusFound, apipaths.Login)
			return
		}
		s.logger.ErrorContext(ctx, "federated login failed", "error", err)
		c.String(http.StatusInternalServerError, constants.MsgServerError)
		return
	}

	s.startSession(c, user)
}

// startSession replaces any session the browser presented with a new one for
// user and redirects to the secrets page
func (s *Server) startSession(c *gin.Context, user *db.User) {
	ctx := c.Request.Context()

	if old, err := c.Cookie(constants.SessionCookieName); err == nil && old != "" {
		if err := s.sessions.Destroy(ctx, old); err != nil {
			s.logger.WarnContext(ctx, "failed to destroy previous session", "error", err)
		}
	}

	token, expiresAt, err := s.sessions.Serialize(ctx, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to establish session", "user_id", user.ID, "error", err)
		c.String(http.StatusInternalServerError, constants.MsgSessionLoginFailed)
		return
	}

	s.setSessionCookie(c, token, expiresAt)
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	c.Redirect(http.StatusFound, apipaths.Secrets)
}
