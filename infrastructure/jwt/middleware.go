// Package jwt provides HMAC bearer-token authentication for gin routes.
package jwt

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const claimsKey = "claims"

// Claims are the token claims accepted by the API.
type Claims struct {
	Sub string `json:"sub"`
	jwt.RegisteredClaims
}

var errSigningMethod = errors.New("unexpected signing method")

// Middleware rejects requests without a valid HS256/384/512 bearer token signed with secret.
// An empty secret disables authentication.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if header == "" || !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errSigningMethod
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the claims stored by Middleware.
func GetClaims(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// Sign issues an HS256 token for subject. Used by the CLI and tests.
func Sign(secret, subject string, registered jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Sub: subject, RegisteredClaims: registered})
	return token.SignedString([]byte(secret))
}
