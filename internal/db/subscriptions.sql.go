package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const subscriptionColumns = `id, organization_id, plan, status, current_period_end, metadata, created_at, updated_at`

func scanSubscription(row *sql.Row) (Subscription, error) {
	var s Subscription
	err := row.Scan(
		&s.ID,
		&s.OrganizationID,
		&s.Plan,
		&s.Status,
		&s.CurrentPeriodEnd,
		&s.Metadata,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

const getSubscriptionByOrganization = `
SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE organization_id = $1`

func (q *Queries) GetSubscriptionByOrganization(ctx context.Context, organizationID uuid.UUID) (Subscription, error) {
	return scanSubscription(q.db.QueryRowContext(ctx, getSubscriptionByOrganization, organizationID))
}

// UpsertSubscription creates or replaces the single subscription row an
// organization is allowed to have.
const upsertSubscription = `
INSERT INTO subscriptions (id, organization_id, plan, status, current_period_end, metadata)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (organization_id) DO UPDATE
SET plan = EXCLUDED.plan,
    status = EXCLUDED.status,
    current_period_end = EXCLUDED.current_period_end,
    metadata = EXCLUDED.metadata,
    updated_at = now()
RETURNING ` + subscriptionColumns

type UpsertSubscriptionParams struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	Plan             string
	Status           string
	CurrentPeriodEnd sql.NullTime
	Metadata         pqtype.NullRawMessage
}

func (q *Queries) UpsertSubscription(ctx context.Context, arg UpsertSubscriptionParams) (Subscription, error) {
	row := q.db.QueryRowContext(ctx, upsertSubscription,
		arg.ID,
		arg.OrganizationID,
		arg.Plan,
		arg.Status,
		arg.CurrentPeriodEnd,
		arg.Metadata,
	)
	return scanSubscription(row)
}

const deleteSubscriptionByOrganization = `
DELETE FROM subscriptions WHERE organization_id = $1`

func (q *Queries) DeleteSubscriptionByOrganization(ctx context.Context, organizationID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteSubscriptionByOrganization, organizationID)
	return err
}
