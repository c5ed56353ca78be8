package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/coder-ph/m-fua-services/internal/apperr"
)

var (
	jwtSecret       []byte
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
	resetTokenTTL   = 30 * time.Minute
)

// Configure sets the signing secret and token lifetimes. Must run before the
// server starts accepting requests.
func Configure(secret string, accessTTL, refreshTTL, resetTTL time.Duration) {
	jwtSecret = []byte(secret)
	if accessTTL > 0 {
		accessTokenTTL = accessTTL
	}
	if refreshTTL > 0 {
		refreshTokenTTL = refreshTTL
	}
	if resetTTL > 0 {
		resetTokenTTL = resetTTL
	}
}

// ResetTTL is the lifetime of password reset tokens.
func ResetTTL() time.Duration {
	return resetTokenTTL
}

// Claims carried by access and refresh tokens.
type Claims struct {
	Role      string `json:"role"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func issueToken(userID int64, role, tokenType string, ttl time.Duration) (string, error) {
	claims := Claims{
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func IssueAccessToken(userID int64, role string) (string, error) {
	return issueToken(userID, role, "access", accessTokenTTL)
}

func IssueRefreshToken(userID int64, role string) (string, error) {
	return issueToken(userID, role, "refresh", refreshTokenTTL)
}

// Sign signs prebuilt claims with the configured secret. Intended for tests
// that need a token with specific registered claims.
func Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

// Parse verifies a token of the given type and returns the subject id and
// role. Expiry is reported distinctly from other parse failures so the HTTP
// layer can tell the caller which of the two happened.
func Parse(tokenStr, wantType string) (int64, string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, "", apperr.Authentication("token has expired")
		}
		return 0, "", apperr.Authentication("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, "", apperr.Authentication("invalid token")
	}
	if claims.TokenType != wantType {
		return 0, "", apperr.Authentication("invalid token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", apperr.Authentication("invalid token")
	}
	return userID, claims.Role, nil
}
