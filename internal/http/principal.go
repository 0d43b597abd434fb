package http

import (
	"github.com/gofiber/fiber/v2"

	"atrium/internal/auth"
	"atrium/internal/db"
	"atrium/internal/store"
)

// principalFromAPIKey builds a Principal from a stored API key.
// Platform admin keys act as superadmin; organization keys get the
// user tier scoped to their organization.
func principalFromAPIKey(k db.ApiKey) auth.Principal {
	p := auth.Principal{Role: auth.RoleUser}

	if k.CreatedBy.Valid {
		p.UserID = k.CreatedBy.UUID
	}

	if k.IsAdmin {
		p.Role = auth.RoleSuperAdmin
		return p
	}

	if k.OrganizationID.Valid {
		orgID := k.OrganizationID.UUID
		p.OrganizationID = &orgID
	}

	return p
}

// principalFrom fetches the resolved principal for this request, if
// the auth middleware attached one.
func principalFrom(c *fiber.Ctx) (auth.Principal, bool) {
	p, ok := c.Locals("principal").(auth.Principal)
	return p, ok
}

// scopedQuerier returns the request's data-access interface with the
// tenant scope guard applied for the resolved principal.
func scopedQuerier(c *fiber.Ctx) (store.Querier, auth.Principal, bool) {
	p, ok := principalFrom(c)
	if !ok {
		return nil, auth.Principal{}, false
	}
	st, ok := c.Locals("store").(*store.Store)
	if !ok || st == nil {
		return nil, auth.Principal{}, false
	}
	return store.ScopeToPrincipal(p, st.Querier()), p, true
}
