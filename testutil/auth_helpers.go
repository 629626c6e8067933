package testutil

import (
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/tablefire/ordering-api/middleware"
	"github.com/tablefire/ordering-api/models"
)

// MockValidatedClaims creates ValidatedClaims as the JWT middleware would
func MockValidatedClaims(subject, role string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  "https://test.auth0.com/",
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Role: role,
		},
	}
}

// MockAuthMiddleware stands in for token validation and user resolution.
// A nil user leaves the request unauthenticated.
func MockAuthMiddleware(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user == nil {
			c.Next()
			return
		}
		c.Set(middleware.ContextUserID, user.Auth0ID)
		c.Set(middleware.ContextClaims, MockValidatedClaims(user.Auth0ID, user.Role))
		c.Set(middleware.ContextCurrentUser, user)
		c.Next()
	}
}
