package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"atrium/internal/store"
)

type ProductPayload struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int64  `json:"priceCents,omitempty"`
	Active      *bool   `json:"active,omitempty"`

	// OrganizationID in the payload is ignored for scoped principals;
	// the guard stamps the principal's organization. Only superadmins
	// may address an organization directly.
	OrganizationID *string `json:"organizationId,omitempty"`
}

type ProductView struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organizationId"`
	Name           string  `json:"name"`
	Description    *string `json:"description,omitempty"`
	PriceCents     int64   `json:"priceCents"`
	Active         bool    `json:"active"`
}

type ProductListResponse struct {
	Success  bool          `json:"success"`
	Products []ProductView `json:"products"`
}

type ProductResponse struct {
	Success bool         `json:"success"`
	Product *ProductView `json:"product,omitempty"`
}

func productFromRow(row store.Row) ProductView {
	v := ProductView{
		ID:             row.String("id"),
		OrganizationID: row.String("organization_id"),
		Name:           row.String("name"),
		PriceCents:     row.Int64("price_cents"),
		Active:         row.Bool("active"),
	}
	if !row.IsNull("description") {
		desc := row.String("description")
		v.Description = &desc
	}
	return v
}

func listProductsHandler(c *fiber.Ctx) error {
	q, _, ok := scopedQuerier(c)
	if !ok {
		return unauthenticatedJSON(c)
	}

	filter := store.Filter{}
	// Client-supplied organization filters are validated by the scope
	// guard: a mismatch answers as not-found.
	if org := c.Query("organizationId"); org != "" {
		filter["organization_id"] = org
	}
	if active := c.Query("active"); active != "" {
		filter["active"] = active == "true"
	}

	rows, err := q.FindMany(c.Context(), "products", filter)
	if err != nil {
		return storeErrorJSON(c, err)
	}

	products := make([]ProductView, 0, len(rows))
	for _, row := range rows {
		products = append(products, productFromRow(row))
	}

	return c.JSON(ProductListResponse{Success: true, Products: products})
}

func getProductHandler(c *fiber.Ctx) error {
	q, _, ok := scopedQuerier(c)
	if !ok {
		return unauthenticatedJSON(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFoundJSON(c)
	}

	row, err := q.FindUnique(c.Context(), "products", store.Filter{"id": id})
	if err != nil {
		return storeErrorJSON(c, err)
	}

	p := productFromRow(row)
	return c.JSON(ProductResponse{Success: true, Product: &p})
}

func validateProductPayload(req ProductPayload, creating bool) []FieldError {
	var fields []FieldError
	if creating || req.Name != nil {
		if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
			fields = append(fields, FieldError{Field: "name", Message: "name is required"})
		}
	}
	if req.PriceCents != nil && *req.PriceCents < 0 {
		fields = append(fields, FieldError{Field: "priceCents", Message: "priceCents must not be negative"})
	}
	return fields
}

func createProductHandler(c *fiber.Ctx) error {
	q, p, ok := scopedQuerier(c)
	if !ok {
		return unauthenticatedJSON(c)
	}

	var req ProductPayload
	if err := c.BodyParser(&req); err != nil {
		return badRequestJSON(c)
	}
	if fields := validateProductPayload(req, true); len(fields) > 0 {
		return validationFailed(c, fields)
	}

	data := store.Row{
		"name":   strings.TrimSpace(*req.Name),
		"active": true,
	}
	if req.Description != nil {
		data["description"] = *req.Description
	}
	if req.PriceCents != nil {
		data["price_cents"] = *req.PriceCents
	}
	if req.Active != nil {
		data["active"] = *req.Active
	}
	// A superadmin creates on behalf of an organization named in the
	// payload; scoped principals have it stamped by the guard.
	if p.IsSuperAdmin() {
		if req.OrganizationID == nil {
			return validationFailed(c, []FieldError{{Field: "organizationId", Message: "organizationId is required"}})
		}
		orgID, err := uuid.Parse(*req.OrganizationID)
		if err != nil {
			return validationFailed(c, []FieldError{{Field: "organizationId", Message: "organizationId must be a UUID"}})
		}
		data["organization_id"] = orgID
	}

	row, err := q.Create(c.Context(), "products", data)
	if err != nil {
		return storeErrorJSON(c, err)
	}

	out := productFromRow(row)
	return c.Status(fiber.StatusCreated).JSON(ProductResponse{Success: true, Product: &out})
}

func updateProductHandler(c *fiber.Ctx) error {
	q, _, ok := scopedQuerier(c)
	if !ok {
		return unauthenticatedJSON(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFoundJSON(c)
	}

	var req ProductPayload
	if err := c.BodyParser(&req); err != nil {
		return badRequestJSON(c)
	}
	if fields := validateProductPayload(req, false); len(fields) > 0 {
		return validationFailed(c, fields)
	}

	data := store.Row{}
	if req.Name != nil {
		data["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		data["description"] = *req.Description
	}
	if req.PriceCents != nil {
		data["price_cents"] = *req.PriceCents
	}
	if req.Active != nil {
		data["active"] = *req.Active
	}

	affected, err := q.Update(c.Context(), "products", store.Filter{"id": id}, data)
	if err != nil {
		return storeErrorJSON(c, err)
	}
	if affected == 0 {
		return notFoundJSON(c)
	}

	row, err := q.FindUnique(c.Context(), "products", store.Filter{"id": id})
	if err != nil {
		return storeErrorJSON(c, err)
	}

	out := productFromRow(row)
	return c.JSON(ProductResponse{Success: true, Product: &out})
}

func deleteProductHandler(c *fiber.Ctx) error {
	q, _, ok := scopedQuerier(c)
	if !ok {
		return unauthenticatedJSON(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFoundJSON(c)
	}

	affected, err := q.Delete(c.Context(), "products", store.Filter{"id": id})
	if err != nil {
		return storeErrorJSON(c, err)
	}
	if affected == 0 {
		return notFoundJSON(c)
	}

	return c.JSON(fiber.Map{"success": true})
}
