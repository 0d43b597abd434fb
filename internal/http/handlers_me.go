package http

import (
	"github.com/gofiber/fiber/v2"

	"atrium/internal/db"
	"atrium/internal/store"
)

type MeResponse struct {
	Success      bool            `json:"success"`
	Code         string          `json:"code,omitempty"`
	Error        string          `json:"error,omitempty"`
	User         *LoginUser      `json:"user,omitempty"`
	Organization *MeOrganization `json:"organization,omitempty"`
}

type MeOrganization struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func meHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	p, ok := principalFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(MeResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "User context is not available for this request",
		})
	}

	q := db.New(st.DB)
	user, err := q.GetUserByID(c.Context(), p.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(MeResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}

	var org *MeOrganization
	if p.OrganizationID != nil {
		o, err := q.GetOrganizationByID(c.Context(), *p.OrganizationID)
		if err == nil {
			org = &MeOrganization{
				ID:   o.ID.String(),
				Slug: o.Slug,
				Name: o.Name,
			}
		}
	}

	return c.Status(fiber.StatusOK).JSON(MeResponse{
		Success:      true,
		User:         loginUserFromRow(user),
		Organization: org,
	})
}
