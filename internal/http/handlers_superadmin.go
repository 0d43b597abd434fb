package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"atrium/internal/db"
	"atrium/internal/store"
)

// Superadmin surfaces operate across tenants. The route dispatcher has
// already required the superadmin tier; handlers here use the raw
// querier and the typed queries directly.

type OrganizationListResponse struct {
	Success       bool               `json:"success"`
	Organizations []OrganizationView `json:"organizations"`
}

type CreateOrganizationRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func listOrganizationsHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	orgs, err := db.New(st.DB).ListOrganizations(c.Context())
	if err != nil {
		return storeErrorJSON(c, err)
	}

	views := make([]OrganizationView, 0, len(orgs))
	for _, o := range orgs {
		views = append(views, *organizationView(o))
	}
	return c.JSON(OrganizationListResponse{Success: true, Organizations: views})
}

func createOrganizationHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	var req CreateOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestJSON(c)
	}

	var fields []FieldError
	slug := strings.TrimSpace(strings.ToLower(req.Slug))
	if slug == "" {
		fields = append(fields, FieldError{Field: "slug", Message: "slug is required"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		fields = append(fields, FieldError{Field: "name", Message: "name is required"})
	}
	if len(fields) > 0 {
		return validationFailed(c, fields)
	}

	q := db.New(st.DB)
	if _, err := q.GetOrganizationBySlug(c.Context(), slug); err == nil {
		return validationFailed(c, []FieldError{{Field: "slug", Message: "slug is already taken"}})
	} else if !errors.Is(err, sql.ErrNoRows) {
		return storeErrorJSON(c, err)
	}

	org, err := q.CreateOrganization(c.Context(), db.CreateOrganizationParams{
		ID:   uuid.New(),
		Slug: slug,
		Name: name,
	})
	if err != nil {
		return storeErrorJSON(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(OrganizationResponse{
		Success:      true,
		Organization: organizationView(org),
	})
}

func getAnyOrganizationHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFoundJSON(c)
	}

	org, err := db.New(st.DB).GetOrganizationByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundJSON(c)
		}
		return storeErrorJSON(c, err)
	}

	return c.JSON(OrganizationResponse{Success: true, Organization: organizationView(org)})
}

func listAnyOrgUsersHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFoundJSON(c)
	}

	users, err := db.New(st.DB).ListUsersByOrganization(c.Context(), uuid.NullUUID{UUID: id, Valid: true})
	if err != nil {
		return storeErrorJSON(c, err)
	}

	views := make([]OrgUserView, 0, len(users))
	for _, u := range users {
		v := OrgUserView{
			ID:    u.ID.String(),
			Email: u.Email,
			Role:  u.Role,
		}
		if u.Name.Valid {
			name := u.Name.String
			v.Name = &name
		}
		views = append(views, v)
	}
	return c.JSON(OrgUserListResponse{Success: true, Users: views})
}

type UpsertSubscriptionRequest struct {
	Plan             string          `json:"plan"`
	Status           string          `json:"status"`
	CurrentPeriodEnd *time.Time      `json:"currentPeriodEnd,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

// upsertSubscriptionHandler sets an organization's single subscription
// row. Plan changes come from the billing back office, hence the
// superadmin-only placement.
func upsertSubscriptionHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	orgID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFoundJSON(c)
	}

	var req UpsertSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestJSON(c)
	}

	var fields []FieldError
	if strings.TrimSpace(req.Plan) == "" {
		fields = append(fields, FieldError{Field: "plan", Message: "plan is required"})
	}
	switch req.Status {
	case "active", "past_due", "canceled", "trialing":
	default:
		fields = append(fields, FieldError{Field: "status", Message: "status must be one of: active, past_due, canceled, trialing"})
	}
	if len(fields) > 0 {
		return validationFailed(c, fields)
	}

	q := db.New(st.DB)
	if _, err := q.GetOrganizationByID(c.Context(), orgID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundJSON(c)
		}
		return storeErrorJSON(c, err)
	}

	var periodEnd sql.NullTime
	if req.CurrentPeriodEnd != nil {
		periodEnd = sql.NullTime{Time: *req.CurrentPeriodEnd, Valid: true}
	}
	var metadata pqtype.NullRawMessage
	if len(req.Metadata) > 0 {
		metadata = pqtype.NullRawMessage{RawMessage: req.Metadata, Valid: true}
	}

	sub, err := q.UpsertSubscription(c.Context(), db.UpsertSubscriptionParams{
		ID:               uuid.New(),
		OrganizationID:   orgID,
		Plan:             strings.TrimSpace(req.Plan),
		Status:           req.Status,
		CurrentPeriodEnd: periodEnd,
		Metadata:         metadata,
	})
	if err != nil {
		return storeErrorJSON(c, err)
	}

	view := SubscriptionView{
		ID:             sub.ID.String(),
		OrganizationID: sub.OrganizationID.String(),
		Plan:           sub.Plan,
		Status:         sub.Status,
	}
	if sub.CurrentPeriodEnd.Valid {
		t := sub.CurrentPeriodEnd.Time
		view.CurrentPeriodEnd = &t
	}
	if sub.Metadata.Valid {
		view.Metadata = json.RawMessage(sub.Metadata.RawMessage)
	}

	return c.JSON(SubscriptionResponse{Success: true, Subscription: &view})
}
