package gateway

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userKey    = "user"
	csrfCookie = "csrftoken"
)

func (g *Gateway) sessionToken(c *gin.Context) string {
	token, err := c.Cookie(g.config.Session.CookieName)
	if err != nil {
		return ""
	}
	return token
}

// requireUser rejects requests without a live session and stores the
// caller for the handlers behind it.
func (g *Gateway) requireUser(c *gin.Context) {
	user, err := g.services.Accounts.Authenticate(c.Request.Context(), g.sessionToken(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.Set(userKey, user)
	c.Next()
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userKey).(*models.User)
}

func (g *Gateway) setSessionCookie(c *gin.Context, sess *session.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.config.Session.CookieName, sess.Token, int(g.config.Session.TTL.Seconds()), "/",
		g.config.HTTP.CookieDomain, g.config.HTTP.CookieSecure, true)
}

// clearSessionCookies expires the session and CSRF cookies on every path
// the storefront may have set them on.
func (g *Gateway) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	for _, name := range []string{g.config.Session.CookieName, csrfCookie} {
		for _, path := range []string{"/", "/api"} {
			c.SetCookie(name, "", -1, path, g.config.HTTP.CookieDomain, g.config.HTTP.CookieSecure, name != csrfCookie)
		}
	}
}

// bindJSON decodes the body into dst; an empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}

func parseID(c *gin.Context, what string) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound(what + " not found")
	}
	return uint(id), nil
}

func (g *Gateway) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			g.logger.Error("Request failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(requestIDKey)),
				zap.Error(err))
		}
		body := gin.H{"error": appErr.Message}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		c.AbortWithStatusJSON(appErr.Status, body)
		return
	}

	g.logger.Error("Request failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
