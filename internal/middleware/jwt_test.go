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

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTProtectedPopulatesLocals(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":   c.Locals("user_id"),
			"role": c.Locals("user_role"),
			"name": c.Locals("user_name"),
		})
	})

	token := signedToken(t, "secret", jwt.MapClaims{
		"sub":  "42",
		"role": "Reviewer",
		"name": "Counselor Dana",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	cases := map[string]string{
		"missing":   "",
		"scheme":    "Token abc",
		"signature": "Bearer " + signedToken(t, "other", jwt.MapClaims{"sub": "1"}),
		"expired":   "Bearer " + signedToken(t, "secret", jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Hour).Unix()}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestNormalizeUserID(t *testing.T) {
	id, err := normalizeUserID(float64(7))
	require.NoError(t, err)
	require.Equal(t, uint(7), id)

	_, err = normalizeUserID(float64(-1))
	require.Error(t, err)

	require.Equal(t, "reviewer", normalizeRole([]interface{}{"", " Reviewer "}))
}

func TestSurfaceOf(t *testing.T) {
	require.Equal(t, "reviewer", surfaceOf("/api/v1/reviewer/notifications"))
	require.Equal(t, "admin", surfaceOf("/api/v1/admin"))
	require.Empty(t, surfaceOf("/api/v1/administrators"))
	require.Empty(t, surfaceOf("/api/v1/catalog/institutions"))
}
