package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"atrium/internal/config"
	"atrium/internal/store"
)

func authTestApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", &store.Store{})
		return c.Next()
	})
	registerAuthRoutes(app)
	return app
}

func TestLogin_MissingFieldsReturnsValidationError(t *testing.T) {
	cfg := dispatcherTestConfig()
	cfg.Auth.Local.Enabled = true
	app := authTestApp(cfg)

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"email":"","password":""}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "VALIDATION_ERROR" {
		t.Fatalf("code = %q, want VALIDATION_ERROR", body.Code)
	}
	details, ok := body.Details.([]interface{})
	if !ok || len(details) != 2 {
		t.Fatalf("details = %v, want both email and password", body.Details)
	}
}

func TestLogin_LocalAuthDisabled(t *testing.T) {
	cfg := dispatcherTestConfig()
	cfg.Auth.Local.Enabled = false
	app := authTestApp(cfg)

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestLogout_ClearsSessionCookie(t *testing.T) {
	app := authTestApp(dispatcherTestConfig())

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	found := false
	for _, sc := range resp.Header.Values("Set-Cookie") {
		if strings.HasPrefix(sc, "atrium_session=") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an expiring atrium_session cookie, got %v", resp.Header.Values("Set-Cookie"))
	}
}

func TestOIDCCallback_StateMismatchRejected(t *testing.T) {
	cfg := dispatcherTestConfig()
	cfg.Auth.OIDC.Enabled = true
	app := authTestApp(cfg)

	req := httptest.NewRequest("GET", "/auth/oidc/callback?code=abc&state=tampered", nil)
	req.Header.Set("Cookie", oidcStateCookieName+"=original")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "OIDC_STATE_MISMATCH" {
		t.Fatalf("code = %q, want OIDC_STATE_MISMATCH", body.Code)
	}
}

func TestOIDCLoginStart_DisabledRejected(t *testing.T) {
	app := authTestApp(dispatcherTestConfig())

	resp, err := app.Test(httptest.NewRequest("GET", "/auth/oidc/login", nil), -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}
