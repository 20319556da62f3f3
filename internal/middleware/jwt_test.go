package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTProtectedExposesGraderLocals(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/grading", func(c *fiber.Ctx) error {
		if c.Locals("user_id") != uint(42) || c.Locals("user_role") != "teacher" {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	token := signToken(t, "secret", jwt.MapClaims{
		"sub":   "42",
		"roles": []interface{}{" Teacher ", "admin"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/grading", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/grading", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	wrongKey := signToken(t, "other", jwt.MapClaims{"sub": 1})
	for _, header := range []string{"", "Token abc", "Bearer ", "Bearer " + wrongKey} {
		req := httptest.NewRequest(http.MethodGet, "/grading", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, header)
	}
}

func TestRateLimitKeysByUser(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(c.QueryInt("user")))
		return c.Next()
	})
	app.Post("/submit", RateLimit("grading-submit", 1, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	status := func(user string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/submit?user="+user, nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusOK, status("1"))
	require.Equal(t, fiber.StatusTooManyRequests, status("1"))
	require.Equal(t, fiber.StatusOK, status("2"))
}
