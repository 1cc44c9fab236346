package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderToken_RoundTrip(t *testing.T) {
	tok, err := NewOrderToken("s3cret", "o-42", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), tok.Exp, 5*time.Second)

	id, err := ParseOrderToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "o-42", id)
}

func TestParseOrderToken_Rejects(t *testing.T) {
	good, err := NewOrderToken("s3cret", "o-42", time.Hour)
	require.NoError(t, err)
	expired, err := NewOrderToken("s3cret", "o-42", -time.Minute)
	require.NoError(t, err)
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "o-42", "exp": time.Now().Add(time.Hour).Unix(), "role": "CUSTOMER",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := []struct {
		name, secret, raw string
	}{
		{"wrong key", "other", good.Token},
		{"expired", "s3cret", expired.Token},
		{"no audience", "s3cret", foreign},
		{"garbage", "s3cret", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOrderToken(tt.secret, tt.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
