package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"atrium/internal/config"
)

func signedTestToken(t *testing.T, secret, uid, role, org string) string {
	t.Helper()

	claims := SessionClaims{
		UserID:         uid,
		Role:           role,
		OrganizationID: org,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}
	return signed
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.Session.Secret = "test-secret"
	return cfg
}

func TestResolve_VerifiedAdmin(t *testing.T) {
	cfg := testConfig()
	r := NewResolver(cfg)

	userID := uuid.New()
	orgID := uuid.New()

	ev := Evidence{
		Kind: EvidenceVerified,
		Claims: &SessionClaims{
			UserID:         userID.String(),
			Role:           string(RoleAdmin),
			OrganizationID: orgID.String(),
		},
	}

	p, err := r.Resolve(ev)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if p.UserID != userID {
		t.Fatalf("expected user %v, got %v", userID, p.UserID)
	}
	if p.Role != RoleAdmin {
		t.Fatalf("expected role admin, got %s", p.Role)
	}
	if p.OrganizationID == nil || *p.OrganizationID != orgID {
		t.Fatalf("expected org %v, got %#v", orgID, p.OrganizationID)
	}
}

// Same evidence in, same principal out.
func TestResolve_Idempotent(t *testing.T) {
	cfg := testConfig()
	r := NewResolver(cfg)

	ev := Evidence{
		Kind: EvidenceVerified,
		Claims: &SessionClaims{
			UserID:         uuid.New().String(),
			Role:           string(RoleAdmin),
			OrganizationID: uuid.New().String(),
		},
	}

	p1, err1 := r.Resolve(ev)
	p2, err2 := r.Resolve(ev)
	if err1 != nil || err2 != nil {
		t.Fatalf("Resolve errors: %v, %v", err1, err2)
	}
	if p1.UserID != p2.UserID || p1.Role != p2.Role {
		t.Fatalf("expected identical principals, got %#v and %#v", p1, p2)
	}
	if (p1.OrganizationID == nil) != (p2.OrganizationID == nil) {
		t.Fatalf("expected identical org scope")
	}
}

// A non-superadmin without an organization in its claims is malformed
// evidence, not a reduced principal.
func TestResolve_AdminWithoutOrgFailsClosed(t *testing.T) {
	r := NewResolver(testConfig())

	ev := Evidence{
		Kind: EvidenceVerified,
		Claims: &SessionClaims{
			UserID: uuid.New().String(),
			Role:   string(RoleAdmin),
		},
	}

	if _, err := r.Resolve(ev); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestResolve_SuperAdminWithOrgFailsClosed(t *testing.T) {
	r := NewResolver(testConfig())

	ev := Evidence{
		Kind: EvidenceVerified,
		Claims: &SessionClaims{
			UserID:         uuid.New().String(),
			Role:           string(RoleSuperAdmin),
			OrganizationID: uuid.New().String(),
		},
	}

	if _, err := r.Resolve(ev); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestResolve_NoEvidence(t *testing.T) {
	r := NewResolver(testConfig())

	if _, err := r.Resolve(Evidence{Kind: EvidenceNone}); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func legacyEvidence(authed, role string) Evidence {
	return Evidence{
		Kind:                EvidenceLegacyCookies,
		LegacyAuthenticated: authed,
		LegacyRole:          role,
	}
}

func TestResolve_LegacyDisabledByDefault(t *testing.T) {
	r := NewResolver(testConfig())

	if _, err := r.Resolve(legacyEvidence("true", "admin")); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated when legacy cookies are disabled, got %v", err)
	}
}

func TestResolve_LegacyEnabledNonProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "development"
	cfg.Auth.LegacyCookies.Enabled = true
	r := NewResolver(cfg)

	p, err := r.Resolve(legacyEvidence("true", "admin"))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if p.Role != RoleAdmin {
		t.Fatalf("expected role admin, got %s", p.Role)
	}
	if p.OrganizationID != nil {
		t.Fatalf("legacy principal must not carry an organization")
	}
	if p.Scoped() {
		t.Fatalf("legacy principal must not be usable for tenant data access")
	}
}

func TestResolve_LegacyRefusedInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "production"
	cfg.Auth.LegacyCookies.Enabled = true
	r := NewResolver(cfg)

	if _, err := r.Resolve(legacyEvidence("true", "admin")); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated in production, got %v", err)
	}
}

// The role cookie is client-writable, so the legacy path may never
// grant the platform tier no matter what the cookie says.
func TestResolve_LegacySuperadminCookieRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "development"
	cfg.Auth.LegacyCookies.Enabled = true
	r := NewResolver(cfg)

	if _, err := r.Resolve(legacyEvidence("true", "superadmin")); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated for superadmin role cookie, got %v", err)
	}
}

func TestResolve_LegacyRequiresAuthenticatedFlag(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "development"
	cfg.Auth.LegacyCookies.Enabled = true
	r := NewResolver(cfg)

	if _, err := r.Resolve(legacyEvidence("1", "admin")); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated for non-true flag, got %v", err)
	}
}
