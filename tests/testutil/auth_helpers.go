package testutil

import (
	"net/http"
	"strings"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gatsishub/gatsishub-api/middleware"
	"github.com/gin-gonic/gin"
)

// RoleHeader lets a test request claim a role the way the Auth0 role claim would
const RoleHeader = "X-Test-Role"

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, role string, scopes []string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  "https://test.auth0.com/",
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Scope: strings.Join(scopes, " "),
			Role:  role,
		},
	}
}

// SetMockAuthContext sets up a mock authenticated context for testing
func SetMockAuthContext(c *gin.Context, userID, role string) {
	c.Set("user_id", userID)
	c.Set("validated_claims", MockValidatedClaims(userID, role, nil))
	c.Set("access_token", "test-token-"+userID)
}

// MockAuthMiddleware authenticates every request as auth0ID
func MockAuthMiddleware(auth0ID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetMockAuthContext(c, auth0ID, role)
		c.Next()
	}
}

// BearerAuthMiddleware stands in for JWT validation: the bearer token is taken
// as the Auth0 subject and the role comes from RoleHeader. EventSource style
// ?access_token= is accepted as well.
func BearerAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Failed to validate JWT.",
				},
			})
			return
		}

		SetMockAuthContext(c, token, c.GetHeader(RoleHeader))
		c.Set("access_token", token)
		c.Next()
	}
}

// CreateTestContext creates a test Gin context
func CreateTestContext() (*gin.Context, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	c, engine := gin.CreateTestContext(nil)
	return c, engine
}
