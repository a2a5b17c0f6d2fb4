package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/playsquare/gridgame-backend/internal/apperror"
)

const tokenLifetime = 24 * time.Hour

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

type AuthService interface {
	GenerateToken(userID string) (string, error)
	VerifyToken(tokenString string) (string, error)
}

type authService struct {
	secretKey []byte
}

func NewAuthService(secretKey string) AuthService {
	return &authService{
		secretKey: []byte(secretKey),
	}
}

func (that *authService) GenerateToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(tokenLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(that.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyToken returns the user id the token was issued for.
func (that *authService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", errUnexpectedSigningMethod, token.Header["alg"])
		}

		return that.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrInvalidCredentials, err)
	}

	userID, err := token.Claims.GetSubject()
	if err != nil || userID == "" {
		return "", fmt.Errorf("%w: token has no subject", apperror.ErrInvalidCredentials)
	}

	return userID, nil
}
