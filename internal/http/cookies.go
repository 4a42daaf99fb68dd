package http

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secretkeeper/internal/apipaths"
	"github.com/secretkeeper/internal/constants"
)

// setSessionCookie stores token until expiresAt. The cookie is httpOnly and
// SameSite=Lax; Secure follows configuration.
func (s *Server) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(math.Ceil(expiresAt.Sub(s.now()).Seconds()))
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.SessionCookieName, token, maxAge, "/", "", s.config.Session.SecureCookie, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.SessionCookieName, "", -1, "/", "", s.config.Session.SecureCookie, true)
}

// setStateCookie remembers the OAuth state until the provider redirects back
func (s *Server) setStateCookie(c *gin.Context, state string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.OAuthStateCookieName, state, int(constants.OAuthStateTTL.Seconds()),
		apipaths.GoogleLogin, "", s.config.Session.SecureCookie, true)
}

func (s *Server) clearStateCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.OAuthStateCookieName, "", -1, apipaths.GoogleLogin, "", s.config.Session.SecureCookie, true)
}
