package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secretkeeper/internal/apipaths"
	"github.com/secretkeeper/internal/constants"
	"github.com/secretkeeper/internal/db"
)

const contextKeyUser = "user"

// securityHeadersMiddleware adds security-related HTTP headers
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		// Prevent clickjacking
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// HSTS (only if using HTTPS)
		if c.Request.TLS != nil {
			c.Writer.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// cacheControlMiddleware keeps authenticated pages and auth flows out of caches
func cacheControlMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if apipaths.IsSensitive(path) || path == apipaths.Health {
			c.Writer.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Writer.Header().Set("Pragma", "no-cache")
			c.Writer.Header().Set("Expires", "0")
		} else if strings.HasPrefix(path, apipaths.Static+"/") {
			c.Writer.Header().Set("Cache-Control", "public, max-age=3600")
		}

		c.Next()
	}
}

// loggerMiddleware logs HTTP requests
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.InfoContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"remote_addr", c.Request.RemoteAddr,
		)
	}
}

// formBodyLimitMiddleware limits the size of request bodies on writes and
// parses the form up front. Handlers only run with a fully read form, so a
// truncated body can never surface as empty fields.
func formBodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.String(http.StatusRequestEntityTooLarge, "Request body too large")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

		var err error
		if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
			err = c.Request.ParseMultipartForm(maxBytes)
		} else {
			err = c.Request.ParseForm()
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.String(http.StatusRequestEntityTooLarge, "Request body too large")
			} else {
				c.String(http.StatusBadRequest, "Invalid form body")
			}
			c.Abort()
			return
		}
		c.Next()
	}
}

// sessionMiddleware resolves the session cookie on every request. A cookie
// that no longer maps to a live session is cleared and the request continues
// anonymously.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(constants.SessionCookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		user, err := s.sessions.Deserialize(c.Request.Context(), token)
		if err != nil {
			s.logger.ErrorContext(c.Request.Context(), "failed to load session", "error", err)
			c.String(http.StatusInternalServerError, constants.MsgServerError)
			c.Abort()
			return
		}
		if user == nil {
			s.clearSessionCookie(c)
			c.Next()
			return
		}

		c.Set(contextKeyUser, user)
		c.Next()
	}
}

// requireAuth redirects anonymous requests to the login page
func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUser(c); !ok {
			c.Redirect(http.StatusFound, apipaths.Login)
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUser returns the user attached by sessionMiddleware
func currentUser(c *gin.Context) (*db.User, bool) {
	if value, exists := c.Get(contextKeyUser); exists {
		if user, ok := value.(*db.User); ok && user != nil {
			return user, true
		}
	}
	return nil, false
}
