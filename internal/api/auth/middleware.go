package auth

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// UserIDKey is the context key holding the authenticated user id.
const UserIDKey = "user_id"

const bearerPrefix = "Bearer "

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Authenticate(token string) (uint, error)
}

// Provider guards routes with bearer tokens.
type Provider struct {
	verifier TokenVerifier
}

// New creates a new auth provider.
func New(verifier TokenVerifier) *Provider {
	return &Provider{verifier: verifier}
}

// RequireAuth rejects requests without a valid bearer token.
// A missing or malformed header is answered with 401, a token that fails verification with 403.
func (p *Provider) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, bearerPrefix)
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Authorization token missing or invalid"})
			c.Abort()
			return
		}

		userID, err := p.verifier.Authenticate(token)
		if err != nil {
			log.Debug("rejected bearer token", "path", c.FullPath(), "error", err)
			c.JSON(http.StatusForbidden, gin.H{"message": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the id set by RequireAuth.
func UserID(c *gin.Context) uint {
	return c.MustGet(UserIDKey).(uint)
}
