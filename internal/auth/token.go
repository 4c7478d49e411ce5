package auth

import (
	"fmt"
	"time"

	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager handles JWT access token generation and validation. Token
// issuance normally lives in the identity system; generation here backs the
// admin bootstrap path and tests.
type TokenManager struct {
	secret       string
	accessExpiry time.Duration
}

func NewTokenManager(secret string, accessExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:       secret,
		accessExpiry: accessExpiry,
	}
}

// GenerateAccessToken creates a signed access token for the user.
func (tm *TokenManager) GenerateAccessToken(userID, email, role string) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies a token's signature and expiry and returns its claims.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}

	return claims, nil
}
