package http

import (
	"net/http"

	"framewire/internal/core/services"
	"framewire/pkg/errors"

	"github.com/gin-gonic/gin"
)

// AuthHandler exchanges refresh tokens for access tokens. Tokens themselves are
// issued offline with `framewire token`.
type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,max=2048"`
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("refresh_token is required"))
		return
	}

	claims, err := h.authService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.Error(errors.NewUnauthorizedError("invalid refresh token"))
		return
	}

	accessToken, err := h.authService.GenerateToken(claims.UserID, claims.Username, claims.Role)
	if err != nil {
		c.Error(errors.NewInternalError("failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"expires_in":   int(h.authService.AccessTokenTTL().Seconds()),
	})
}
