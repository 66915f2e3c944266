package services

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var JWTSecret = []byte(getJWTSecret())

func getJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "dev_jwt_secret_super_secure"
	}
	return secret
}

const (
	accessTokenTTL  = time.Hour * 24
	refreshTokenTTL = time.Hour * 24 * 30
)

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func signToken(userID uint, tokenType string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    userID,
		"token_type": tokenType,
		"exp":        time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(JWTSecret)
}

// GenerateTokenPair issues a fresh access/refresh pair for a user. Both carry
// a token_type claim so one cannot be used in place of the other.
func GenerateTokenPair(userID uint) (Credentials, error) {
	access, err := signToken(userID, "access", accessTokenTTL)
	if err != nil {
		return Credentials{}, err
	}
	refresh, err := signToken(userID, "refresh", refreshTokenTTL)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

func validateToken(tokenString, wantType string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return JWTSecret, nil
	})

	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token")
	}

	if tokenType, _ := claims["token_type"].(string); tokenType != wantType {
		return 0, errors.New("wrong token type")
	}

	// MapClaims parses numbers as float64
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, errors.New("invalid user_id claim")
	}
	return uint(userIDFloat), nil
}

// ValidateAccessToken parses the JWT string and returns the user ID if valid
func ValidateAccessToken(tokenString string) (uint, error) {
	return validateToken(tokenString, "access")
}

// ValidateRefreshToken checks a refresh token and returns the user ID it was
// issued to.
func ValidateRefreshToken(tokenString string) (uint, error) {
	return validateToken(tokenString, "refresh")
}
