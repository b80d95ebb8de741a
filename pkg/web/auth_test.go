package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAuth_SetsUserID(t *testing.T) {
	app := fiber.New()
	app.Use(SessionAuth("secret"))
	app.Get("/me", func(c fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	token, err := NewSessionToken("secret", "user-42", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "user-42", string(body))
}

func TestSessionAuth_RejectsExpired(t *testing.T) {
	app := fiber.New()
	app.Use(SessionAuth("secret"))
	app.Get("/me", func(c fiber.Ctx) error { return c.SendString(UserID(c)) })

	token, err := NewSessionToken("secret", "user-42", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNewSessionToken_RequiresInputs(t *testing.T) {
	_, err := NewSessionToken("", "user", time.Minute)
	assert.Error(t, err)

	_, err = NewSessionToken("secret", "", time.Minute)
	assert.Error(t, err)
}
