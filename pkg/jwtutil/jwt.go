package jwtutil

import (
	"time"

	"stocksync-service/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	signingKey = []byte("secret-key")
	expiration = 24 * time.Hour
)

// Initialize sets the signing key and token lifetime from configuration
func Initialize(cfg *config.JWTConfig) {
	signingKey = []byte(cfg.SigningKey)
	expiration = cfg.ExpirationTime
}

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	Email  string `json:"email"`
	UserID uint   `json:"user_id"`
	Role   string `json:"role,omitempty"` // User's role, e.g. "admin" or "operator"
	jwt.RegisteredClaims
}

// GenerateToken creates a JWT token with user information
func GenerateToken(email string, userID uint, role string) (string, error) {
	claims := UserClaims{
		Email:  email,
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return signingKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
