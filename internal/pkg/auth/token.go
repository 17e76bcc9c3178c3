package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
)

// TokenConfig defines verification token settings
type TokenConfig struct {
	SecretKey string
	TokenTTL  time.Duration
	Issuer    string
}

// TokenService issues and validates the short-lived signed tokens carried
// in verification magic links. The token embeds everything the identity
// callback needs, so no pending-verification state is kept in process.
type TokenService struct {
	config TokenConfig
}

// NewTokenService creates a new TokenService
func NewTokenService(config TokenConfig) *TokenService {
	return &TokenService{config: config}
}

// VerificationClaims defines the verification token content
type VerificationClaims struct {
	Email      string `json:"email"`
	TelegramID int64  `json:"telegramId"`
	Handle     string `json:"handle"`
	jwt.RegisteredClaims
}

// IssueVerificationToken creates a signed token binding an email address to
// the telegram identity captured at flow-entry time
func (s *TokenService) IssueVerificationToken(email string, telegramID int64, handle string) (string, error) {
	now := time.Now()
	claims := &VerificationClaims{
		Email:      email,
		TelegramID: telegramID,
		Handle:     handle,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			Subject:   email,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign verification token: %w", err)
	}
	return signed, nil
}

// ValidateVerificationToken validates a token from the callback link and
// returns its claims
func (s *TokenService) ValidateVerificationToken(tokenString string) (*VerificationClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &VerificationClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*VerificationClaims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrTokenInvalid
	}
	if claims.Email == "" || claims.TelegramID == 0 {
		return nil, apperrors.ErrTokenInvalid
	}
	return claims, nil
}
