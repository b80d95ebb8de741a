package web

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDLocal   = "userID"
	sessionIssuer = "nodebase-api"
)

var errMissingSession = errors.New("missing or invalid session")

// NewSessionToken signs a session token for userID.
func NewSessionToken(secret, userID string, ttl time.Duration) (string, error) {
	if secret == "" || userID == "" {
		return "", errors.New("secret and user id are required")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// SessionAuth rejects requests without a valid bearer session token and
// stores the caller's user id in the request locals.
func SessionAuth(secret string) fiber.Handler {
	key := []byte(secret)

	return func(c fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return unauthorized(c, errMissingSession.Error())
		}

		claims := &jwt.RegisteredClaims{}

		_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}

			return key, nil
		}, jwt.WithIssuer(sessionIssuer), jwt.WithExpirationRequired())
		if err != nil || claims.Subject == "" {
			return unauthorized(c, errMissingSession.Error())
		}

		c.Locals(userIDLocal, claims.Subject)

		return c.Next()
	}
}

// UserID returns the authenticated caller, or "" outside SessionAuth.
func UserID(c fiber.Ctx) string {
	userID, _ := c.Locals(userIDLocal).(string)

	return userID
}
