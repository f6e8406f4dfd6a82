package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/app/services"
	"github.com/amirphl/nightpulse/config"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret-key-32-characters"

func newTestAuth(t *testing.T) (*AuthMiddleware, services.TokenService) {
	t.Helper()
	tokens, err := services.NewTokenService(time.Hour, "", "", false, "", "", testSecret)
	require.NoError(t, err)
	m := NewAuthMiddleware(tokens,
		config.AdminConfig{Emails: []string{" Boss@Example.com "}, UIDs: []string{"admin-uid"}},
		config.CronConfig{Secret: "cron-secret"})
	return m, tokens
}

func issue(t *testing.T, tokens services.TokenService, uid, email string) string {
	t.Helper()
	token, err := tokens.IssueToken(uid, email)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, app *fiber.App, target string, headers map[string]string) (int, dto.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body dto.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func errorCode(body dto.APIResponse) string {
	detail, _ := body.Error.(map[string]any)
	code, _ := detail["code"].(string)
	return code
}

func echoIdentity(c fiber.Ctx) error {
	uid, _ := GetUIDFromContext(c)
	return c.JSON(dto.APIResponse{Success: true, Data: fiber.Map{"uid": uid, "email": GetEmailFromContext(c)}})
}

func TestAuthenticate(t *testing.T) {
	m, tokens := newTestAuth(t)
	app := fiber.New()
	app.Get("/me", m.Authenticate(), echoIdentity)

	status, body := doRequest(t, app, "/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", errorCode(body))

	status, body = doRequest(t, app, "/me", map[string]string{"Authorization": "Token abc"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_AUTHORIZATION_FORMAT", errorCode(body))

	status, body = doRequest(t, app, "/me", map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_INVALID", errorCode(body))

	token := issue(t, tokens, "user-1", "User@Example.com")
	status, body = doRequest(t, app, "/me", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, fiber.StatusOK, status)
	data := body.Data.(map[string]any)
	assert.Equal(t, "user-1", data["uid"])
	assert.Equal(t, "user@example.com", data["email"])
}

func TestOptionalAuth(t *testing.T) {
	m, tokens := newTestAuth(t)
	app := fiber.New()
	app.Get("/maybe", m.OptionalAuth(), echoIdentity)

	status, body := doRequest(t, app, "/maybe", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "", body.Data.(map[string]any)["uid"])

	status, body = doRequest(t, app, "/maybe", map[string]string{"Authorization": "Bearer garbage"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "", body.Data.(map[string]any)["uid"])

	token := issue(t, tokens, "user-2", "")
	status, body = doRequest(t, app, "/maybe", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "user-2", body.Data.(map[string]any)["uid"])
}

func TestRequireAdmin(t *testing.T) {
	m, tokens := newTestAuth(t)
	app := fiber.New()
	app.Get("/admin", m.Authenticate(), m.RequireAdmin(), echoIdentity)

	tests := []struct {
		name   string
		uid    string
		email  string
		status int
	}{
		{name: "email on allow-list", uid: "someone", email: "boss@example.com", status: fiber.StatusOK},
		{name: "uid on allow-list", uid: "admin-uid", status: fiber.StatusOK},
		{name: "ordinary user", uid: "user-3", email: "user@example.com", status: fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := issue(t, tokens, tt.uid, tt.email)
			status, body := doRequest(t, app, "/admin", map[string]string{"Authorization": "Bearer " + token})
			assert.Equal(t, tt.status, status)
			if tt.status == fiber.StatusForbidden {
				assert.Equal(t, "FORBIDDEN", errorCode(body))
			}
		})
	}

	noAuth := fiber.New()
	noAuth.Get("/admin", m.RequireAdmin(), echoIdentity)
	status, _ := doRequest(t, noAuth, "/admin", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestCronAuth(t *testing.T) {
	m, _ := newTestAuth(t)
	app := fiber.New()
	app.Get("/cron", m.CronAuth(), echoIdentity)

	status, _ := doRequest(t, app, "/cron?key=cron-secret", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = doRequest(t, app, "/cron", map[string]string{"x-cron-key": "cron-secret"})
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = doRequest(t, app, "/cron", map[string]string{"Authorization": "Bearer cron-secret"})
	assert.Equal(t, fiber.StatusOK, status)

	status, body := doRequest(t, app, "/cron?key=wrong", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CRON_KEY", errorCode(body))

	tokens, err := services.NewTokenService(time.Hour, "", "", false, "", "", testSecret)
	require.NoError(t, err)
	disabled := NewAuthMiddleware(tokens, config.AdminConfig{}, config.CronConfig{})
	closed := fiber.New()
	closed.Get("/cron", disabled.CronAuth(), echoIdentity)
	status, body = doRequest(t, closed, "/cron?key=", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "CRON_DISABLED", errorCode(body))
}
