package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"atrium/internal/config"
)

const defaultSessionCookieName = "atrium_session"

// SessionClaims are the JWT claims carried by the signed session
// cookie. This single signed token replaces the old plaintext
// isAuthenticated/userRole cookie pair.
type SessionClaims struct {
	UserID         string `json:"uid"`
	Role           string `json:"role"`
	OrganizationID string `json:"org,omitempty"`
	jwt.RegisteredClaims
}

func sessionCookieName(cfg *config.Config) string {
	if name := cfg.Auth.Session.CookieName; name != "" {
		return name
	}
	return defaultSessionCookieName
}

// IssueSessionCookie signs an HS256 session token for the given user
// and sets it as an HTTP-only cookie on the response.
func IssueSessionCookie(c *fiber.Ctx, cfg *config.Config, userID uuid.UUID, role Role, organizationID *uuid.UUID) error {
	secret := cfg.Auth.Session.Secret
	if secret == "" {
		return nil
	}

	ttlMinutes := cfg.Auth.Session.TTLMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 1440 // default 24h
	}

	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(ttlMinutes) * time.Minute)

	claims := SessionClaims{
		UserID: userID.String(),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if organizationID != nil {
		claims.OrganizationID = organizationID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName(cfg),
		Value:    signed,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
		Path:     "/",
	})

	return nil
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *fiber.Ctx, cfg *config.Config) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName(cfg),
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
		Path:     "/",
	})
}

func parseSessionToken(raw, secret string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthenticated
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, ErrUnauthenticated
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrUnauthenticated
	}

	return claims, nil
}
