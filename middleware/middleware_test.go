package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blog-challenge-system/models"
	"blog-challenge-system/services"
	"blog-challenge-system/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func status(t *testing.T, app *fiber.App, path string, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestServiceTokenMiddleware(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }

	disabled := fiber.New()
	disabled.Get("/job", ServiceTokenMiddleware(""), ok)
	assert.Equal(t, http.StatusServiceUnavailable, status(t, disabled, "/job", map[string]string{"X-Service-Token": "anything"}))

	app := fiber.New()
	app.Get("/job", ServiceTokenMiddleware("s3cret"), ok)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong header", map[string]string{"X-Service-Token": "nope"}, http.StatusUnauthorized},
		{"wrong bearer", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"header", map[string]string{"X-Service-Token": "s3cret"}, http.StatusNoContent},
		{"bearer", map[string]string{"Authorization": "Bearer s3cret"}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status(t, app, "/job", tt.headers))
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	db := testutil.NewTestDB(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	auth := services.NewAuthService(db, "mw-secret", time.Hour, clock)
	ctx := t.Context()

	_, err := auth.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)
	userToken, _, err := auth.Login(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)

	admin, err := auth.Register(ctx, "Root", "root@example.com", "hunter22")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", admin.ID).Update("is_admin", true).Error)
	adminToken, _, err := auth.Login(ctx, "root@example.com", "hunter22")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/me", AuthMiddleware(auth), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	app.Get("/admin", AuthMiddleware(auth), RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	bearer := func(tok string) map[string]string { return map[string]string{"Authorization": "Bearer " + tok} }

	assert.Equal(t, http.StatusUnauthorized, status(t, app, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, status(t, app, "/me", map[string]string{"Authorization": userToken}))
	assert.Equal(t, http.StatusUnauthorized, status(t, app, "/me", bearer("not-a-jwt")))
	assert.Equal(t, http.StatusOK, status(t, app, "/me", bearer(userToken)))

	assert.Equal(t, http.StatusForbidden, status(t, app, "/admin", bearer(userToken)))
	assert.Equal(t, http.StatusNoContent, status(t, app, "/admin", bearer(adminToken)))

	clock.Advance(2 * time.Hour)
	assert.Equal(t, http.StatusUnauthorized, status(t, app, "/me", bearer(userToken)))
}
