package util

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(7, "secret")
	require.NoError(t, err)

	tenantID, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(7), tenantID)
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT(7, "secret-a")
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret-b")
	assert.Error(t, err)
}

func TestParseJWTGarbage(t *testing.T) {
	_, err := ParseJWT("not.a.token", "secret")
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", ExtractToken(r))

	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", ExtractToken(r))

	r.Header.Set("Authorization", "Token abc123")
	assert.Equal(t, "", ExtractToken(r))
}
