// Package realtime issues subscription tokens and delivers status messages
// to browsers subscribed to a single status channel.
package realtime

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dukex/nodebase/pkg/status"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenTTL = 5 * time.Minute
	TokenIssuer     = "nodebase"
)

var ErrInvalidToken = errors.New("invalid subscription token")

// Claims scope a token to exactly one channel.
type Claims struct {
	Channel string   `json:"channel"`
	Topics  []string `json:"topics"`
	jwt.RegisteredClaims
}

// AllowsTopic reports whether the token grants topic.
func (c *Claims) AllowsTopic(topic string) bool {
	return slices.Contains(c.Topics, topic)
}

// Token is what a subscriber presents to the gateway.
type Token struct {
	Channel   string    `json:"channel"`
	Topics    []string  `json:"topics"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Tokens signs and verifies subscription tokens with HS256.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("realtime token secret is required")
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue creates a token for channel on behalf of userID.
func (t *Tokens) Issue(channel status.Channel, userID string) (*Token, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	topics := []string{status.Topic}

	claims := &Claims{
		Channel: channel.Name(),
		Topics:  topics,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign subscription token: %w", err)
	}

	return &Token{
		Channel:   claims.Channel,
		Topics:    topics,
		Token:     signed,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// Verify checks the signature and expiry and that the channel is well formed.
func (t *Tokens) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}

		return t.secret, nil
	}, jwt.WithIssuer(TokenIssuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	channel, err := status.ParseChannel(claims.Channel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if channel.UserID != claims.Subject {
		return nil, fmt.Errorf("%w: channel does not belong to subject", ErrInvalidToken)
	}

	return claims, nil
}
