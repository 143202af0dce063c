// Package middleware provides the gin middleware shared by the API: admin
// authentication, tracing and request metrics.
package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role claim granting access to mutating endpoints.
const RoleAdmin = "admin"

// ErrInvalidToken is returned for tokens that parse but carry bad claims.
var ErrInvalidToken = errors.New("invalid token")

// JWTClaims represents the JWT token claims.
type JWTClaims struct {
	// Role is the caller's role; only RoleAdmin is recognized.
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware signs and validates HS256 tokens.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware creates a new token authority.
//
// Parameters:
//
//	secretKey: Secret key for signing tokens.
//
// Returns:
//
//	*AuthMiddleware: Initialized authority.
func NewAuthMiddleware(secretKey string) *AuthMiddleware {
	return &AuthMiddleware{
		secretKey: []byte(secretKey),
	}
}

// Enabled reports whether a signing secret is configured.
func (am *AuthMiddleware) Enabled() bool {
	return len(am.secretKey) > 0
}

// GenerateToken creates a new JWT token for subject.
//
// Parameters:
//
//	subject: Caller identifier.
//	role: Role claim.
//	duration: Token validity duration.
//
// Returns:
//
//	string: Signed token string.
//	error: Error if generation fails.
func (am *AuthMiddleware) GenerateToken(subject, role string, duration time.Duration) (string, error) {
	if !am.Enabled() {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := &JWTClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(am.secretKey)
}

// ValidateToken validates a JWT token and returns claims.
//
// Parameters:
//
//	tokenString: Token string to validate.
//
// Returns:
//
//	*JWTClaims: Token claims.
//	error: Error if validation fails.
func (am *AuthMiddleware) ValidateToken(tokenString string) (*JWTClaims, error) {
	if !am.Enabled() {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return am.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
