package services

import (
	"errors"
	"time"

	"framewire/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("insufficient role")
)

type AuthService interface {
	GenerateToken(userID domain.UserID, username string, role domain.UserRole) (string, error)
	GenerateRefreshToken(userID domain.UserID, username string, role domain.UserRole) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
	CheckRole(claims *Claims, required domain.UserRole) error
	AccessTokenTTL() time.Duration
}

type Claims struct {
	UserID   domain.UserID   `json:"user_id"`
	Username string          `json:"username"`
	Role     domain.UserRole `json:"role"`
	Refresh  bool            `json:"refresh,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	jwtSecret       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewAuthService(jwtSecret string, accessTokenTTL, refreshTokenTTL time.Duration) AuthService {
	return &authService{
		jwtSecret:       []byte(jwtSecret),
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

func (s *authService) AccessTokenTTL() time.Duration { return s.accessTokenTTL }

func (s *authService) GenerateToken(userID domain.UserID, username string, role domain.UserRole) (string, error) {
	return s.sign(userID, username, role, false, s.accessTokenTTL)
}

func (s *authService) GenerateRefreshToken(userID domain.UserID, username string, role domain.UserRole) (string, error) {
	return s.sign(userID, username, role, true, s.refreshTokenTTL)
}

func (s *authService) sign(userID domain.UserID, username string, role domain.UserRole, refresh bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		Refresh:  refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken accepts access tokens only.
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Refresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.Refresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// CheckRole reports whether claims carry at least the required role.
func (s *authService) CheckRole(claims *Claims, required domain.UserRole) error {
	if claims == nil {
		return ErrUnauthorized
	}
	if roleLevel(claims.Role) < roleLevel(required) {
		return ErrForbidden
	}
	return nil
}

func roleLevel(role domain.UserRole) int {
	switch role {
	case domain.RoleViewer:
		return 1
	case domain.RoleOperator:
		return 2
	}
	return 0
}
