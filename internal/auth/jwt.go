package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 168 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var jwtSecret string

func InitJWTSecret() error {
	jwtSecret = os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	return nil
}

// Claims carried by both token kinds; Type distinguishes them so a
// refresh token can never pass access verification or vice versa.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// IssueTokens returns a short-lived access token and a long-lived
// refresh token for the given user.
func IssueTokens(userID uint, username string, isAdmin bool) (access string, refresh string, err error) {
	access, err = sign(userID, username, isAdmin, tokenTypeAccess, AccessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = sign(userID, username, isAdmin, tokenTypeRefresh, RefreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func sign(userID uint, username string, isAdmin bool, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		IsAdmin:  isAdmin,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// VerifyAccessToken validates an access token and returns its claims.
func VerifyAccessToken(tokenString string) (*Claims, error) {
	return verify(tokenString, tokenTypeAccess)
}

// RefreshAccessToken validates a refresh token and issues a fresh
// access token for the same identity.
func RefreshAccessToken(refreshToken string) (string, error) {
	claims, err := verify(refreshToken, tokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return sign(claims.UserID, claims.Username, claims.IsAdmin, tokenTypeAccess, AccessTokenTTL)
}

func verify(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Type != wantType {
		return nil, fmt.Errorf("invalid or expired token")
	}
	return claims, nil
}
