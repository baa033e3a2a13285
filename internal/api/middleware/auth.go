// Package middleware provides HTTP middleware for the Gin router.
//
// Go Learning Note — Middleware Pattern (Gin):
// In Gin, middleware is any function with the signature `gin.HandlerFunc`, which
// is `func(*gin.Context)`. Middleware functions form a chain: each one runs,
// optionally calls c.Next() to pass control to the next handler, and can call
// c.Abort() to stop the chain.
package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"geosafe/internal/domain/entities"
)

// Context keys for the authenticated caller.
const (
	UserIDKey   = "user_id"
	UserNameKey = "user_name"
	UserRoleKey = "user_role"

	RoleAdmin = "admin"

	// TriggerKeyHeader carries the shared secret on internal trigger calls.
	TriggerKeyHeader = "X-Trigger-Key"
)

// Claims is the bearer token payload. The subject is the user ID.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for userID.
func IssueToken(secret []byte, issuer, userID, name, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Authenticate identifies the caller from an optional bearer token. A request
// without an Authorization header proceeds as the guest user; a header that
// is present but invalid is rejected.
//
// Go Learning Note — jwt.ParseWithClaims:
// Passing a *Claims decodes the payload straight into our struct. WithValidMethods
// pins the algorithm so a token signed with "none" or an asymmetric key
// cannot slip through the keyfunc.
func Authenticate(secret []byte, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(UserIDKey, entities.GuestReporter)
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims,
			func(*jwt.Token) (interface{}, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
		)
		if err != nil || !token.Valid || claims.Subject == "" {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(UserNameKey, claims.Name)
		c.Set(UserRoleKey, claims.Role)
		c.Next()
	}
}

// RequireUser rejects guests. Must run after Authenticate.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == entities.GuestReporter {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin lets only the admin role through.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// RequireTriggerKey guards internal endpoints with a shared secret. An empty
// key disables the endpoints entirely.
func RequireTriggerKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		got := c.GetHeader(TriggerKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid trigger key"})
			return
		}
		c.Next()
	}
}

// GetUserID returns the caller set by Authenticate, or the guest user if
// Authenticate did not run.
func GetUserID(c *gin.Context) string {
	if id := c.GetString(UserIDKey); id != "" {
		return id
	}
	return entities.GuestReporter
}

func GetUserName(c *gin.Context) string {
	return c.GetString(UserNameKey)
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(UserRoleKey) == RoleAdmin
}
