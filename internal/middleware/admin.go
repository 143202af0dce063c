package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Context keys set by RequireAdmin.
const (
	ContextAuthSubject = "auth_subject"
	ContextAuthMethod  = "auth_method"
)

// AdminMiddleware guards admin endpoints. A request is admitted with either a
// Bearer JWT carrying the admin role or an X-API-Key matching the configured
// key. The key is only kept as a bcrypt hash.
type AdminMiddleware struct {
	auth    *AuthMiddleware
	keyHash []byte
	logger  *logrus.Logger
}

// NewAdminMiddleware creates the admin guard. Either credential may be empty;
// with neither configured every admin request is rejected.
func NewAdminMiddleware(jwtSecret, apiKey string, bcryptCost int, logger *logrus.Logger) (*AdminMiddleware, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	am := &AdminMiddleware{auth: NewAuthMiddleware(jwtSecret), logger: logger}

	if apiKey != "" {
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			bcryptCost = bcrypt.DefaultCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcryptCost)
		if err != nil {
			return nil, err
		}
		am.keyHash = hash
	}
	if !am.auth.Enabled() && am.keyHash == nil {
		logger.Warn("No admin credentials configured, admin endpoints are locked")
	}
	return am, nil
}

// Auth returns the token authority used for Bearer tokens.
func (am *AdminMiddleware) Auth() *AuthMiddleware {
	return am.auth
}

// RequireAdmin aborts with 401 unless the request carries admin credentials.
func (am *AdminMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-Key"); key != "" {
			if am.keyHash != nil && bcrypt.CompareHashAndPassword(am.keyHash, []byte(key)) == nil {
				c.Set(ContextAuthSubject, "api_key")
				c.Set(ContextAuthMethod, "api_key")
				c.Next()
				return
			}
			abortUnauthorized(c, "Invalid API key")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Admin credentials required")
			return
		}

		// Bearer prefix is case-insensitive (RFC 6750).
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "bearer") || tokenParts[1] == "" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := am.auth.ValidateToken(tokenParts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortUnauthorized(c, "Token expired")
				return
			}
			abortUnauthorized(c, "Invalid token")
			return
		}
		if claims.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody("Admin role required"))
			return
		}

		c.Set(ContextAuthSubject, claims.Subject)
		c.Set(ContextAuthMethod, "jwt")
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(message))
}

// errorBody matches the API response envelope.
func errorBody(message string) gin.H {
	return gin.H{
		"success":   false,
		"error":     message,
		"timestamp": time.Now().UTC(),
	}
}
