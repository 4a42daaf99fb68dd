package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secretkeeper/internal/apipaths"
)

const healthTimeout = 2 * time.Second

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.engine.GET(apipaths.Health, s.health)

	// Public pages
	s.engine.GET(apipaths.Home, s.homePage)
	s.engine.GET(apipaths.Login, s.loginPage)
	s.engine.GET(apipaths.Register, s.registerPage)

	// Local authentication
	s.engine.POST(apipaths.Register, s.register)
	s.engine.POST(apipaths.Login, s.login)
	s.engine.GET(apipaths.Logout, s.logout)

	// Federated authentication
	s.engine.GET(apipaths.GoogleLogin, s.googleLogin)
	s.engine.GET(apipaths.GoogleCallback, s.googleCallback)

	// Pages that require a session
	private := s.engine.Group("/")
	private.Use(requireAuth())
	{
		private.GET(apipaths.Secrets, s.secretsPage)
		private.GET(apipaths.Submit, s.submitPage)
		private.POST(apipaths.Submit, s.submitSecret)
	}

	// Serve static files
	if staticDirExists(s.config.StaticDir) {
		s.engine.Static(apipaths.Static, s.config.StaticDir)
	}
}

// health reports whether the store is reachable
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := s.database.PingContext(ctx); err != nil {
		s.logger.ErrorContext(ctx, "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "secretkeeper",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "secretkeeper",
	})
}
