package http

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"atrium/internal/store"
)

type SubscriptionView struct {
	ID               string          `json:"id"`
	OrganizationID   string          `json:"organizationId"`
	Plan             string          `json:"plan"`
	Status           string          `json:"status"`
	CurrentPeriodEnd *time.Time      `json:"currentPeriodEnd,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

type SubscriptionResponse struct {
	Success      bool              `json:"success"`
	Subscription *SubscriptionView `json:"subscription,omitempty"`
}

func subscriptionFromRow(row store.Row) SubscriptionView {
	v := SubscriptionView{
		ID:             row.String("id"),
		OrganizationID: row.String("organization_id"),
		Plan:           row.String("plan"),
		Status:         row.String("status"),
	}
	if !row.IsNull("current_period_end") {
		t := row.Time("current_period_end")
		v.CurrentPeriodEnd = &t
	}
	if !row.IsNull("metadata") {
		if raw := row.String("metadata"); raw != "" {
			v.Metadata = json.RawMessage(raw)
		}
	}
	return v
}

// getSubscriptionHandler returns the organization's subscription (at
// most one exists per tenant). Absent subscription answers not-found.
func getSubscriptionHandler(c *fiber.Ctx) error {
	q, _, ok := scopedQuerier(c)
	if !ok {
		return unauthenticatedJSON(c)
	}

	row, err := q.FindUnique(c.Context(), "subscriptions", store.Filter{})
	if err != nil {
		return storeErrorJSON(c, err)
	}

	sub := subscriptionFromRow(row)
	return c.JSON(SubscriptionResponse{Success: true, Subscription: &sub})
}
