package utils // package utils provides helpers for issuing and checking order access tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that are malformed, expired,
// signed with another key or not issued for an order.
var ErrInvalidToken = errors.New("invalid order token")

const orderAudience = "seat-order"

// OrderToken is a signed HS256 JWT granting access to one order.  The
// order ID travels in the subject claim.
type OrderToken struct {
	Token string    // the serialized JWT
	Exp   time.Time // UTC expiration time
}

// NewOrderToken signs a token for orderID that expires after ttl.
func NewOrderToken(secret, orderID string, ttl time.Duration) (OrderToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   orderID,
		Audience:  jwt.ClaimStrings{orderAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return OrderToken{}, fmt.Errorf("sign order token: %w", err)
	}
	return OrderToken{Token: signed, Exp: exp}, nil
}

// ParseOrderToken verifies raw and returns the order ID it grants access to.
func ParseOrderToken(secret, raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(orderAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
