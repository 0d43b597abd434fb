package http

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"atrium/internal/db"
	"atrium/internal/store"
)

type OrganizationView struct {
	ID      string  `json:"id"`
	Slug    string  `json:"slug"`
	Name    string  `json:"name"`
	LogoURL *string `json:"logoUrl,omitempty"`
}

type OrganizationResponse struct {
	Success      bool              `json:"success"`
	Organization *OrganizationView `json:"organization,omitempty"`
}

type UpdateOrganizationRequest struct {
	Name    *string `json:"name,omitempty"`
	LogoURL *string `json:"logoUrl,omitempty"`
}

type OrgUserView struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
	Role  string  `json:"role"`
}

type OrgUserListResponse struct {
	Success bool          `json:"success"`
	Users   []OrgUserView `json:"users"`
}

func organizationView(o db.Organization) *OrganizationView {
	v := &OrganizationView{
		ID:   o.ID.String(),
		Slug: o.Slug,
		Name: o.Name,
	}
	if o.LogoUrl.Valid {
		logo := o.LogoUrl.String
		v.LogoURL = &logo
	}
	return v
}

// getOrganizationHandler returns the admin's own organization. The
// principal, not a query parameter, names the tenant.
func getOrganizationHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	p, ok := principalFrom(c)
	if !ok {
		return unauthenticatedJSON(c)
	}
	if p.OrganizationID == nil {
		return notFoundJSON(c)
	}

	org, err := db.New(st.DB).GetOrganizationByID(c.Context(), *p.OrganizationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundJSON(c)
		}
		return storeErrorJSON(c, err)
	}

	return c.JSON(OrganizationResponse{Success: true, Organization: organizationView(org)})
}

func updateOrganizationHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	p, ok := principalFrom(c)
	if !ok {
		return unauthenticatedJSON(c)
	}
	if p.OrganizationID == nil {
		return notFoundJSON(c)
	}

	var req UpdateOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestJSON(c)
	}

	q := db.New(st.DB)
	org, err := q.GetOrganizationByID(c.Context(), *p.OrganizationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundJSON(c)
		}
		return storeErrorJSON(c, err)
	}

	name := org.Name
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return validationFailed(c, []FieldError{{Field: "name", Message: "name must not be empty"}})
		}
		name = trimmed
	}

	logo := org.LogoUrl
	if req.LogoURL != nil {
		if strings.TrimSpace(*req.LogoURL) == "" {
			logo = sql.NullString{}
		} else {
			logo = sql.NullString{String: *req.LogoURL, Valid: true}
		}
	}

	updated, err := q.UpdateOrganization(c.Context(), db.UpdateOrganizationParams{
		ID:      org.ID,
		Name:    name,
		LogoUrl: logo,
	})
	if err != nil {
		return storeErrorJSON(c, err)
	}

	return c.JSON(OrganizationResponse{Success: true, Organization: organizationView(updated)})
}

// listOrgUsersHandler lists the members of the principal's
// organization through the scope guard.
func listOrgUsersHandler(c *fiber.Ctx) error {
	q, _, ok := scopedQuerier(c)
	if !ok {
		return unauthenticatedJSON(c)
	}

	filter := store.Filter{}
	if org := c.Query("organizationId"); org != "" {
		filter["organization_id"] = org
	}

	rows, err := q.FindMany(c.Context(), "users", filter)
	if err != nil {
		return storeErrorJSON(c, err)
	}

	users := make([]OrgUserView, 0, len(rows))
	for _, row := range rows {
		u := OrgUserView{
			ID:    row.String("id"),
			Email: row.String("email"),
			Role:  row.String("role"),
		}
		if !row.IsNull("name") {
			name := row.String("name")
			u.Name = &name
		}
		users = append(users, u)
	}

	return c.JSON(OrgUserListResponse{Success: true, Users: users})
}
