package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "indica-onboarding"

type claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Codec signs and verifies session cookies (HS256).
type Codec struct {
	secret []byte
	nowFn  func() time.Time
}

// NewCodec builds a codec for secret.
func NewCodec(secret string) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	return &Codec{secret: []byte(secret), nowFn: time.Now}, nil
}

// WithClock overrides the time provider (used primarily in tests).
func (c *Codec) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		c.nowFn = nowFn
	}
}

// Issue returns a signed token for record.
func (c *Codec) Issue(record Record) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(record.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
		SessionID: record.ID,
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the session id it carries.
func (c *Codec) Parse(raw string) (string, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFn),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed.SessionID == "" {
		return "", fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	return parsed.SessionID, nil
}
