package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secretkeeper/internal/apipaths"
	"github.com/secretkeeper/internal/constants"
	"github.com/secretkeeper/internal/domain"
)

func (s *Server) pageData(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	_, authenticated := currentUser(c)
	data["Authenticated"] = authenticated
	data["GoogleEnabled"] = s.provider != nil
	return data
}

func (s *Server) homePage(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", s.pageData(c, nil))
}

func (s *Server) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", s.pageData(c, nil))
}

func (s *Server) registerPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", s.pageData(c, nil))
}

// secretsPage renders the caller's secret
func (s *Server) secretsPage(c *gin.Context) {
	user, _ := currentUser(c)

	secret, err := s.accounts.Secret(c.Request.Context(), user.ID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// The account was removed after the session loaded
		c.Redirect(http.StatusFound, apipaths.Login)
		return
	}
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "failed to read secret", "user_id", user.ID, "error", err)
		c.String(http.StatusInternalServerError, constants.MsgServerError)
		return
	}

	c.HTML(http.StatusOK, "secrets.html", s.pageData(c, gin.H{"Secret": secret}))
}

func (s *Server) submitPage(c *gin.Context) {
	c.HTML(http.StatusOK, "submit.html", s.pageData(c, nil))
}

// submitSecret overwrites the caller's secret
func (s *Server) submitSecret(c *gin.Context) {
	user, _ := currentUser(c)

	secret, ok := c.GetPostForm("secret")
	if !ok {
		c.String(http.StatusBadRequest, domain.PublicMessage(
			domain.WrapValidationError("secret", errors.New("secret is required"))))
		return
	}

	if err := s.accounts.SubmitSecret(c.Request.Context(), user.ID, secret); err != nil {
		if domain.IsValidationError(err) {
			c.String(http.StatusBadRequest, domain.PublicMessage(err))
			return
		}
		s.logger.ErrorContext(c.Request.Context(), "failed to store secret", "user_id", user.ID, "error", err)
		c.String(http.StatusInternalServerError, constants.MsgServerError)
		return
	}

	c.Redirect(http.StatusFound, apipaths.Secrets)
}
