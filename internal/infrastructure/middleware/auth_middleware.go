package middleware

import (
	"strings"

	"framewire/internal/core/domain"
	"framewire/internal/core/services"
	"framewire/pkg/errors"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// AuthMiddleware validates the bearer token and stores its claims on the context.
// With enabled=false every request passes as an anonymous operator.
func AuthMiddleware(authService services.AuthService, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Set(claimsKey, &services.Claims{Username: "anonymous", Role: domain.RoleOperator})
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			// browsers cannot set headers on websocket upgrades
			token = c.Query("access_token")
		}
		if token == "" {
			abortWith(c, errors.NewUnauthorizedError("authorization header required"))
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			abortWith(c, errors.NewUnauthorizedError(err.Error()))
			return
		}

		c.Set(claimsKey, claims)
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// RequireRole rejects callers whose token carries a lower role than required.
func RequireRole(authService services.AuthService, required domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		if err := authService.CheckRole(claims, required); err != nil {
			if claims == nil {
				abortWith(c, errors.NewUnauthorizedError("authentication required"))
				return
			}
			abortWith(c, errors.NewForbiddenError("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthMiddleware.
func ClaimsFrom(c *gin.Context) (*services.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*services.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abortWith(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
		"error":   string(appErr.Code),
		"message": appErr.Message,
	})
}
