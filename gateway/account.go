package gateway

import (
	"net/http"

	"github.com/example/storefront/pkg/account"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type newsletterRequest struct {
	Email string `json:"email"`
}

// register godoc
// @Summary Create an account and start a session
// @Tags account
// @Param body body account.Registration true "account details"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]string
// @Router /auth/register [post]
func (g *Gateway) register(c *gin.Context) {
	var req account.Registration
	if err := bindJSON(c, &req); err != nil {
		g.respondError(c, err)
		return
	}
	user, sess, err := g.services.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	g.setSessionCookie(c, sess)
	c.JSON(http.StatusCreated, user)
}

func (g *Gateway) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		g.respondError(c, err)
		return
	}
	user, sess, err := g.services.Accounts.Login(c.Request.Context(), req.Username, req.Password, g.sessionToken(c))
	if err != nil {
		g.respondError(c, err)
		return
	}
	g.setSessionCookie(c, sess)
	c.JSON(http.StatusOK, user)
}

// logout always succeeds so the client can drop its state.
func (g *Gateway) logout(c *gin.Context) {
	g.services.Accounts.Logout(c.Request.Context(), g.sessionToken(c))
	g.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (g *Gateway) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (g *Gateway) updateMe(c *gin.Context) {
	payload := map[string]interface{}{}
	if err := bindJSON(c, &payload); err != nil {
		g.respondError(c, err)
		return
	}
	user, err := g.services.Accounts.UpdateProfile(c.Request.Context(), currentUser(c).ID, payload)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (g *Gateway) subscribeNewsletter(c *gin.Context) {
	var req newsletterRequest
	if err := bindJSON(c, &req); err != nil {
		g.respondError(c, err)
		return
	}
	if err := g.services.Accounts.SubscribeNewsletter(c.Request.Context(), req.Email); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Successfully subscribed to newsletter"})
}
