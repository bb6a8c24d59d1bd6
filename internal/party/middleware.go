package party

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const callerContextKey = "deal_caller"

// Claims are the token claims issued by the platform auth service.
type Claims struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Middleware parses the bearer token issued by the auth subsystem and stores
// the resolved Caller in the request context. Requests without a valid token
// are rejected before reaching any deal handler.
func Middleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid subject"})
			return
		}

		WithCaller(c, Caller{
			UserID: userID,
			Name:   claims.Name,
			Roles:  NewRoleSet(claims.Roles...),
		})
		c.Next()
	}
}

// WithCaller stores the caller on the request context. Middleware calls it
// after token validation; handler tests can call it directly.
func WithCaller(c *gin.Context, caller Caller) {
	c.Set(callerContextKey, caller)
}

// FromContext returns the Caller resolved by Middleware.
func FromContext(c *gin.Context) (Caller, bool) {
	v, ok := c.Get(callerContextKey)
	if !ok {
		return Caller{}, false
	}
	caller, ok := v.(Caller)
	return caller, ok
}
