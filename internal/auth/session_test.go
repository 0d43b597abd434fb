package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"atrium/internal/config"
)

func TestIssueAndParseSessionCookie_RoundTrip(t *testing.T) {
	app := fiber.New()
	cfg := &config.Config{}
	cfg.Auth.Session.Secret = "test-secret"
	cfg.Auth.Session.CookieName = "atrium_session_test"
	cfg.Auth.Session.TTLMinutes = 60

	userID := uuid.New()
	orgID := uuid.New()
	resolver := NewResolver(cfg)

	app.Get("/set", func(c *fiber.Ctx) error {
		if err := IssueSessionCookie(c, cfg, userID, RoleAdmin, &orgID); err != nil {
			t.Fatalf("IssueSessionCookie error: %v", err)
		}
		return c.SendStatus(http.StatusOK)
	})

	app.Get("/get", func(c *fiber.Ctx) error {
		ev := resolver.EvidenceFromRequest(c)
		if ev.Kind != EvidenceVerified {
			return c.Status(http.StatusUnauthorized).SendString("unauthorized")
		}
		claims := ev.Claims
		if claims.UserID != userID.String() {
			t.Fatalf("expected uid %s, got %s", userID.String(), claims.UserID)
		}
		if claims.OrganizationID != orgID.String() {
			t.Fatalf("expected org %s, got %s", orgID.String(), claims.OrganizationID)
		}
		if claims.Role != string(RoleAdmin) {
			t.Fatalf("expected role admin, got %s", claims.Role)
		}
		if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
			t.Fatalf("expected future ExpiresAt, got %#v", claims.ExpiresAt)
		}
		return c.SendStatus(http.StatusOK)
	})

	// First call /set to obtain a session cookie.
	req := httptest.NewRequest(http.MethodGet, "/set", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test(/set) error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /set, got %d", resp.StatusCode)
	}

	cookies := resp.Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected at least one cookie")
	}

	// Now call /get with the cookie.
	req2 := httptest.NewRequest(http.MethodGet, "/get", nil)
	for _, c := range cookies {
		req2.AddCookie(c)
	}
	resp2, err := app.Test(req2, -1)
	if err != nil {
		t.Fatalf("app.Test(/get) error: %v", err)
	}
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /get, got %d", resp2.StatusCode)
	}
}

func TestParseSessionToken_RejectsTamperedToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.Session.Secret = "test-secret"

	userID := uuid.New()
	token := signedTestToken(t, "wrong-secret", userID.String(), string(RoleSuperAdmin), "")

	if _, err := parseSessionToken(token, cfg.Auth.Session.Secret); err == nil {
		t.Fatalf("expected error for token signed with a different secret")
	}
}
