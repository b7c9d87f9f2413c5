package security

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStatus is the outcome of inspecting a bearer token without verifying
// its signature. Only the server can verify; the client only needs expiry.
type TokenStatus int

const (
	TokenMalformed TokenStatus = iota
	TokenExpired
	TokenValid
)

func (s TokenStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenExpired:
		return "expired"
	default:
		return "malformed"
	}
}

var ErrMissingExpiry = errors.New("token has no exp claim")

// AccessClaims is the payload the StratoLift API puts in its tokens.
type AccessClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var unverified = jwt.NewParser()

// InspectToken decodes the payload segment and returns its claims. The
// header and signature are not read.
func InspectToken(tokenStr string) (*AccessClaims, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("decode token: %w: want 3 segments, got %d", jwt.ErrTokenMalformed, len(parts))
	}
	payload, err := unverified.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}
	claims := &AccessClaims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	if claims.ExpiresAt == nil {
		return nil, ErrMissingExpiry
	}
	return claims, nil
}

// ValidateToken classifies tokenStr at instant now. A token is valid while
// exp, in milliseconds, is strictly greater than now in milliseconds.
func ValidateToken(tokenStr string, now time.Time) TokenStatus {
	claims, err := InspectToken(tokenStr)
	if err != nil {
		return TokenMalformed
	}
	if claims.ExpiresAt.Time.UnixMilli() > now.UnixMilli() {
		return TokenValid
	}
	return TokenExpired
}

func IsTokenValid(tokenStr string, now time.Time) bool {
	return ValidateToken(tokenStr, now) == TokenValid
}

// GenerateAccessToken signs an HS512 token. Only the mock backend issues tokens.
func GenerateAccessToken(secret string, userID string, email string, role string, ttl time.Duration, now time.Time) (string, error) {
	claims := AccessClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies the signature and expiry of tokenStr.
func ParseAccessToken(tokenStr string, secret string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
