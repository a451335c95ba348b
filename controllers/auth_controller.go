package controllers

import (
	"net/http"

	"chat-meter/config"
	"chat-meter/middleware"
	"chat-meter/models"
	"chat-meter/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Login handles API authentication and returns a JWT token
func (h *Handler) Login(c *gin.Context) {
	var credentials models.Credentials
	if err := c.ShouldBindJSON(&credentials); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials payload"})
		return
	}

	state, err := h.Auth.Login(credentials.Username, credentials.Password)
	if err != nil {
		config.Log.WithField("username", credentials.Username).Info("Login failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrInvalidCredentials.Error()})
		return
	}
	account := state.Account()

	token, expiresAt, err := h.Tokens.Issue(account)
	if err != nil {
		config.Log.WithError(err).Error("Failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	config.Log.WithField("username", account.Name).Info("API login")
	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"token":        token,
		"expires_at":   expiresAt,
		"username":     account.Name,
		"display_name": account.Label(),
		"role":         account.Role,
		"quota":        h.Chat.Quota(state),
	})
}

// GetCurrentUser returns the logged-in account with today's quota position
func (h *Handler) GetCurrentUser(c *gin.Context) {
	state := middleware.AccountState(c)
	account := state.Account()

	c.JSON(http.StatusOK, gin.H{
		"username":     account.Name,
		"display_name": account.Label(),
		"role":         account.Role,
		"daily_cap":    account.DailyCap,
		"spent_usd":    services.Round(state.Spent(), 6),
		"quota":        h.Chat.Quota(state),
	})
}

// Logout revokes the bearer token, or drops the session cookie. The account's
// conversation stays in memory for the next login.
func (h *Handler) Logout(c *gin.Context) {
	if v, ok := c.Get(middleware.CtxClaims); ok {
		if claims, ok := v.(*models.Claims); ok {
			h.Tokens.Revoke(claims)
		}
	}

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		config.Log.WithError(err).Warn("Failed to clear session")
	}

	config.Log.WithField("username", c.GetString(middleware.CtxUsername)).Info("Logout")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
