package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"atrium/internal/config"
)

// ErrUnauthenticated means no usable session evidence was present on
// the request. Unparseable evidence resolves to this too: ambiguity
// fails closed.
var ErrUnauthenticated = errors.New("unauthenticated")

// Legacy cookie pair set by the pre-migration login flow. The role
// cookie is plaintext and client-writable, which is why this path is
// gated and can never grant superadmin.
const (
	legacyAuthCookieName = "isAuthenticated"
	legacyRoleCookieName = "userRole"
)

// EvidenceKind tags the provenance of session evidence.
type EvidenceKind int

const (
	EvidenceNone EvidenceKind = iota
	// EvidenceVerified is a session token whose signature verified.
	EvidenceVerified
	// EvidenceLegacyCookies is the unsigned cookie pair. Untrusted.
	EvidenceLegacyCookies
)

// Evidence is the tagged variant of everything a request can present
// as proof of identity. Exactly one branch is populated per kind.
type Evidence struct {
	Kind EvidenceKind

	// Claims is set when Kind == EvidenceVerified.
	Claims *SessionClaims

	// LegacyAuthenticated and LegacyRole hold the raw cookie pair when
	// Kind == EvidenceLegacyCookies.
	LegacyAuthenticated string
	LegacyRole          string
}

// Resolver turns request evidence into a Principal. Resolution is a
// pure function of the evidence: same cookies in, same principal out.
type Resolver struct {
	cfg *config.Config
}

func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// EvidenceFromRequest extracts session evidence from the request
// cookies. The signed session token is always preferred over the
// legacy pair; a token that fails verification is NOT downgraded to
// the legacy path, it yields EvidenceNone.
func (r *Resolver) EvidenceFromRequest(c *fiber.Ctx) Evidence {
	if raw := c.Cookies(sessionCookieName(r.cfg)); raw != "" {
		secret := r.cfg.Auth.Session.Secret
		if secret == "" {
			return Evidence{Kind: EvidenceNone}
		}
		claims, err := parseSessionToken(raw, secret)
		if err != nil {
			return Evidence{Kind: EvidenceNone}
		}
		return Evidence{Kind: EvidenceVerified, Claims: claims}
	}

	authed := c.Cookies(legacyAuthCookieName)
	role := c.Cookies(legacyRoleCookieName)
	if authed != "" && role != "" {
		return Evidence{
			Kind:                EvidenceLegacyCookies,
			LegacyAuthenticated: authed,
			LegacyRole:          role,
		}
	}

	return Evidence{Kind: EvidenceNone}
}

// Resolve maps evidence to a Principal or fails with
// ErrUnauthenticated. Ordered trust hierarchy: verified claims first,
// then the gated legacy pair, then nothing.
func (r *Resolver) Resolve(ev Evidence) (Principal, error) {
	switch ev.Kind {
	case EvidenceVerified:
		return r.resolveVerified(ev.Claims)
	case EvidenceLegacyCookies:
		return r.resolveLegacy(ev)
	default:
		return Principal{}, ErrUnauthenticated
	}
}

func (r *Resolver) resolveVerified(claims *SessionClaims) (Principal, error) {
	if claims == nil {
		return Principal{}, ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Principal{}, ErrUnauthenticated
	}

	role, ok := ParseRole(claims.Role)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}

	p := Principal{UserID: userID, Role: role}
	if claims.OrganizationID != "" {
		orgID, err := uuid.Parse(claims.OrganizationID)
		if err != nil {
			return Principal{}, ErrUnauthenticated
		}
		p.OrganizationID = &orgID
	}

	// user/admin need an organization, superadmin must not have one.
	if !p.Scoped() {
		return Principal{}, ErrUnauthenticated
	}

	return p, nil
}

// resolveLegacy honors the unsigned cookie pair only when explicitly
// enabled for a non-production environment. The role cookie is client
// writable, so it is capped below superadmin and the resulting
// principal carries no organization, which keeps it away from tenant
// data.
func (r *Resolver) resolveLegacy(ev Evidence) (Principal, error) {
	if !r.cfg.Auth.LegacyCookies.Enabled || r.cfg.IsProduction() {
		return Principal{}, ErrUnauthenticated
	}

	if ev.LegacyAuthenticated != "true" {
		return Principal{}, ErrUnauthenticated
	}

	role, ok := ParseRole(ev.LegacyRole)
	if !ok || role == RoleSuperAdmin {
		return Principal{}, ErrUnauthenticated
	}

	return Principal{Role: role}, nil
}
