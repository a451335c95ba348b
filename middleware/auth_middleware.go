package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"chat-meter/models"
	"chat-meter/services"
)

// Keys shared with the controllers.
const (
	SessionUserKey = "username"

	CtxUsername = "username"
	CtxRole     = "role"
	CtxState    = "account_state"
	CtxClaims   = "claims"
)

// RequirePageLogin protects the HTML pages. Visitors without a session cookie are
// sent to the login form.
func RequirePageLogin(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, _ := sessions.Default(c).Get(SessionUserKey).(string)
		if name == "" || !attach(c, auth, name) {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAPILogin protects the JSON API. A bearer token wins over the session cookie.
func RequireAPILogin(auth *services.AuthService, tokens *services.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			// Format token: "Bearer <token>"
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			if !attach(c, auth, claims.Username) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown account"})
				return
			}
			c.Set(CtxClaims, claims)
			c.Next()
			return
		}

		name, _ := sessions.Default(c).Get(SessionUserKey).(string)
		if name == "" || !attach(c, auth, name) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": services.ErrNotAuthenticated.Error()})
			return
		}
		c.Next()
	}
}

// AdminOnly must run after one of the login middlewares.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRole) != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// AccountState returns the record attached by the login middleware.
func AccountState(c *gin.Context) *services.AccountState {
	v, ok := c.Get(CtxState)
	if !ok {
		return nil
	}
	state, _ := v.(*services.AccountState)
	return state
}

func attach(c *gin.Context, auth *services.AuthService, name string) bool {
	state, err := auth.Resume(name)
	if err != nil {
		return false
	}
	account := state.Account()
	c.Set(CtxUsername, account.Name)
	c.Set(CtxRole, account.Role)
	c.Set(CtxState, state)
	return true
}
