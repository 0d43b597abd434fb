package authz

import (
	"sort"
	"strings"

	"atrium/internal/auth"
	"atrium/internal/config"
)

// Entry is one row of the route policy table. An empty AllowedRoles
// set means the prefix is public.
type Entry struct {
	PathPrefix     string
	AllowedRoles   []auth.Role
	RedirectTarget string

	// RedirectAuthenticated sends already-authenticated requests away
	// from this prefix (prevents re-login loops on sign-in pages).
	RedirectAuthenticated bool
}

// Decision is the outcome of authorizing one request path.
type Decision struct {
	Allow      bool
	RedirectTo string
}

var allow = Decision{Allow: true}

func deny(target string) Decision {
	return Decision{Allow: false, RedirectTo: target}
}

const loginPath = "/login"

// defaultPolicy is the full route policy in one place. Handlers do not
// repeat role checks; changing access rules means changing this table.
func defaultPolicy() []Entry {
	return []Entry{
		{PathPrefix: "/login", RedirectAuthenticated: true},
		{PathPrefix: "/sign-in", RedirectAuthenticated: true},
		{PathPrefix: "/superadmin", AllowedRoles: []auth.Role{auth.RoleSuperAdmin}, RedirectTarget: loginPath},
		{PathPrefix: "/admin", AllowedRoles: []auth.Role{auth.RoleAdmin, auth.RoleSuperAdmin}, RedirectTarget: loginPath},
	}
}

// Authorizer decides path-level access by role. The table is immutable
// after construction; no per-request state.
type Authorizer struct {
	entries []Entry
	enabled bool
}

// NewAuthorizer builds the authorizer from config. auth.enabled=false
// is the deployment-owned escape hatch that disables every check; it
// lives in config so an always-open policy cannot be shipped by code.
func NewAuthorizer(cfg *config.Config) *Authorizer {
	return NewAuthorizerWithPolicy(cfg, defaultPolicy())
}

func NewAuthorizerWithPolicy(cfg *config.Config, entries []Entry) *Authorizer {
	// Longest prefix wins, so order by specificity up front.
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].PathPrefix) > len(sorted[j].PathPrefix)
	})

	return &Authorizer{
		entries: sorted,
		enabled: cfg.Auth.Enabled,
	}
}

// Decide authorizes a locale-stripped request path for the given
// principal (nil means unauthenticated). Redirect targets are returned
// without a locale prefix; the dispatcher re-applies the request's
// locale.
func (a *Authorizer) Decide(path string, p *auth.Principal) Decision {
	if !a.enabled {
		return allow
	}

	entry, ok := a.match(path)
	if !ok {
		// No policy entry: pass through.
		return allow
	}

	if entry.RedirectAuthenticated {
		if p != nil {
			return deny("/")
		}
		return allow
	}

	if len(entry.AllowedRoles) == 0 {
		return allow
	}

	target := entry.RedirectTarget
	if target == "" {
		target = loginPath
	}

	if p == nil {
		return deny(target)
	}
	for _, role := range entry.AllowedRoles {
		if p.Role == role {
			return allow
		}
	}
	return deny(target)
}

func (a *Authorizer) match(path string) (Entry, bool) {
	for _, e := range a.entries {
		if matchPrefix(path, e.PathPrefix) {
			return e, true
		}
	}
	return Entry{}, false
}

// matchPrefix matches whole path segments: "/admin" matches "/admin"
// and "/admin/users" but not "/administrators".
func matchPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	return path[len(prefix)] == '/'
}
