package security

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "token-test-secret"

func rawToken(header, payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + ".c2ln"
}

func TestValidateToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	future, err := GenerateAccessToken(testSecret, "u1", "a@b.com", "technician", time.Hour, now)
	require.NoError(t, err)
	past, err := GenerateAccessToken(testSecret, "u1", "a@b.com", "technician", -time.Hour, now)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  TokenStatus
	}{
		{"future exp", future, TokenValid},
		{"past exp", past, TokenExpired},
		{"empty", "", TokenMalformed},
		{"single segment", "abc", TokenMalformed},
		{"two segments", "abc.def", TokenMalformed},
		{"four segments", future + ".extra", TokenMalformed},
		{"bad base64 payload", "eyJhbGciOiJIUzI1NiJ9.!!!.sig", TokenMalformed},
		{"payload not json", rawToken(`{"alg":"HS256"}`, "not-json"), TokenMalformed},
		{"missing exp", rawToken(`{"alg":"HS256"}`, `{"id":"u1"}`), TokenMalformed},
		{"exp not numeric", rawToken(`{"alg":"HS256"}`, `{"exp":"tomorrow"}`), TokenMalformed},
		{"unsigned but well formed", rawToken(`{"alg":"HS256","typ":"JWT"}`, `{"exp":1700003600}`), TokenValid},
		{"header without alg", rawToken(`{"typ":"JWT"}`, `{"exp":1800000000}`), TokenValid},
		{"unregistered alg", rawToken(`{"alg":"ES256K"}`, `{"exp":1800000000}`), TokenValid},
		{"header not json", rawToken(`garbage`, `{"exp":1800000000}`), TokenValid},
		{"empty payload segment", "eyJhbGciOiJIUzI1NiJ9..sig", TokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateToken(tt.token, now))
			assert.Equal(t, tt.want == TokenValid, IsTokenValid(tt.token, now))
		})
	}
}

func TestValidateTokenBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token, err := GenerateAccessToken(testSecret, "u1", "a@b.com", "user", 0, now)
	require.NoError(t, err)

	assert.Equal(t, TokenExpired, ValidateToken(token, now), "exp equal to now is expired")
	assert.Equal(t, TokenValid, ValidateToken(token, now.Add(-time.Millisecond)))
}

func TestInspectTokenClaims(t *testing.T) {
	now := time.Now()
	token, err := GenerateAccessToken(testSecret, "u42", "tech@x.com", "technician", time.Minute, now)
	require.NoError(t, err)

	claims, err := InspectToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u42", claims.UserID)
	assert.Equal(t, "tech@x.com", claims.Email)
	assert.Equal(t, "technician", claims.Role)
	assert.Equal(t, now.Add(time.Minute).Unix(), claims.ExpiresAt.Unix())

	_, err = InspectToken(rawToken(`{"alg":"HS256"}`, `{"id":"u1"}`))
	assert.ErrorIs(t, err, ErrMissingExpiry)
}

func TestParseAccessToken(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, "u1", "a@b.com", "user", time.Minute, time.Now())
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	_, err = ParseAccessToken(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateAccessToken(testSecret, "u1", "a@b.com", "user", -time.Minute, time.Now())
	require.NoError(t, err)
	_, err = ParseAccessToken(expired, testSecret)
	assert.Error(t, err)
}

func TestTokenStatusString(t *testing.T) {
	assert.Equal(t, "valid", TokenValid.String())
	assert.Equal(t, "expired", TokenExpired.String())
	assert.Equal(t, "malformed", TokenMalformed.String())
}
