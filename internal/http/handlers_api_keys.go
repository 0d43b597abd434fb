package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"atrium/internal/store"
)

type ApiKeyView struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId,omitempty"`
	Label          string `json:"label"`
	Revoked        bool   `json:"revoked"`
}

type ApiKeyListResponse struct {
	Success bool         `json:"success"`
	Keys    []ApiKeyView `json:"keys"`
}

type CreateApiKeyRequest struct {
	Label              string `json:"label"`
	RateLimitPerMinute *int   `json:"rateLimitPerMinute,omitempty"`
}

type CreateApiKeyResponse struct {
	Success bool        `json:"success"`
	Key     string      `json:"key,omitempty"`
	Record  *ApiKeyView `json:"record,omitempty"`
}

func apiKeyFromRow(row store.Row) ApiKeyView {
	return ApiKeyView{
		ID:             row.String("id"),
		OrganizationID: row.String("organization_id"),
		Label:          row.String("label"),
		Revoked:        !row.IsNull("revoked_at"),
	}
}

func listApiKeysHandler(c *fiber.Ctx) error {
	q, _, ok := scopedQuerier(c)
	if !ok {
		return unauthenticatedJSON(c)
	}

	filter := store.Filter{}
	if org := c.Query("organizationId"); org != "" {
		filter["organization_id"] = org
	}

	rows, err := q.FindMany(c.Context(), "api_keys", filter)
	if err != nil {
		return storeErrorJSON(c, err)
	}

	keys := make([]ApiKeyView, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, apiKeyFromRow(row))
	}

	return c.JSON(ApiKeyListResponse{Success: true, Keys: keys})
}

// createApiKeyHandler mints a fresh organization key. Key material is
// generated server-side and returned exactly once.
func createApiKeyHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	p, ok := principalFrom(c)
	if !ok {
		return unauthenticatedJSON(c)
	}
	if p.OrganizationID == nil {
		// Platform keys are provisioned via config, not this endpoint.
		return notFoundJSON(c)
	}

	var req CreateApiKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestJSON(c)
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return validationFailed(c, []FieldError{{Field: "label", Message: "label is required"}})
	}

	raw, record, err := st.CreateRandomAPIKey(c.Context(), label, *p.OrganizationID, p.UserID, req.RateLimitPerMinute)
	if err != nil {
		return storeErrorJSON(c, err)
	}

	view := ApiKeyView{
		ID:             record.ID.String(),
		OrganizationID: record.OrganizationID.UUID.String(),
		Label:          record.Label,
	}
	return c.Status(fiber.StatusCreated).JSON(CreateApiKeyResponse{
		Success: true,
		Key:     raw,
		Record:  &view,
	})
}

// revokeApiKeyHandler soft-revokes a key. The scoped lookup guarantees
// an admin can only see, and therefore only revoke, keys owned by
// their own organization.
func revokeApiKeyHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	q, _, ok := scopedQuerier(c)
	if !ok {
		return unauthenticatedJSON(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFoundJSON(c)
	}

	if _, err := q.FindUnique(c.Context(), "api_keys", store.Filter{"id": id}); err != nil {
		return storeErrorJSON(c, err)
	}

	if err := st.RevokeAPIKey(c.Context(), id); err != nil {
		return storeErrorJSON(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}
