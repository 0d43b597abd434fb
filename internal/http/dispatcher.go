package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"atrium/internal/auth"
	"atrium/internal/authz"
	"atrium/internal/metrics"
)

// publicPrefixes bypass the route dispatcher entirely: API surfaces
// with their own auth, webhooks (signature-gated), and operational
// endpoints.
var publicPrefixes = []string{
	"/v1",
	"/auth",
	"/webhooks",
	"/healthz",
	"/metrics",
}

// dispatcherMiddleware is the single place UI-path access decisions
// happen. It strips the locale segment, asks the role authorizer, and
// either forwards the request or answers with a locale-preserving
// redirect.
func dispatcherMiddleware(az *authz.Authorizer, locales *authz.Locales) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		for _, prefix := range publicPrefixes {
			if matchSegmentPrefix(path, prefix) {
				return c.Next()
			}
		}
		if isStaticAsset(path) {
			return c.Next()
		}

		locale, rest := locales.Split(path)
		if prev, ok := c.Locals("locale").(string); ok && prev != "" {
			// Second pass after a locale-strip restart; keep the locale
			// extracted on the first pass.
			locale = prev
		} else {
			c.Locals("locale", locale)
		}

		var principal *auth.Principal
		if p, ok := principalFrom(c); ok {
			principal = &p
		}

		decision := az.Decide(rest, principal)

		role := ""
		if principal != nil {
			role = string(principal.Role)
		}
		metrics.RecordAuthDecision(decision.Allow, role)

		if !decision.Allow {
			return c.Redirect(authz.Prefix(locale, decision.RedirectTo), fiber.StatusFound)
		}

		if rest != path {
			// Re-route the locale-stripped path so handlers register
			// without locale prefixes. Locals survive the restart.
			c.Path(rest)
			return c.RestartRouting()
		}

		return c.Next()
	}
}

// requestLocale returns the locale the dispatcher extracted, or the
// given fallback.
func requestLocale(c *fiber.Ctx, fallback string) string {
	if loc, ok := c.Locals("locale").(string); ok && loc != "" {
		return loc
	}
	return fallback
}

func matchSegmentPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// isStaticAsset treats any dotted final segment as a static file.
func isStaticAsset(path string) bool {
	last := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		last = path[i+1:]
	}
	return strings.Contains(last, ".")
}
