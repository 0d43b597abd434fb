package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const apiKeyColumns = `id, organization_id, key_hash, label, is_admin, rate_limit_per_minute, created_by, revoked_at, created_at`

func scanApiKey(row *sql.Row) (ApiKey, error) {
	var k ApiKey
	err := row.Scan(
		&k.ID,
		&k.OrganizationID,
		&k.KeyHash,
		&k.Label,
		&k.IsAdmin,
		&k.RateLimitPerMinute,
		&k.CreatedBy,
		&k.RevokedAt,
		&k.CreatedAt,
	)
	return k, err
}

const insertAPIKey = `
INSERT INTO api_keys (id, organization_id, key_hash, label, is_admin, rate_limit_per_minute, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + apiKeyColumns

type InsertAPIKeyParams struct {
	ID                 uuid.UUID
	OrganizationID     uuid.NullUUID
	KeyHash            string
	Label              string
	IsAdmin            bool
	RateLimitPerMinute sql.NullInt32
	CreatedBy          uuid.NullUUID
}

func (q *Queries) InsertAPIKey(ctx context.Context, arg InsertAPIKeyParams) (ApiKey, error) {
	row := q.db.QueryRowContext(ctx, insertAPIKey,
		arg.ID,
		arg.OrganizationID,
		arg.KeyHash,
		arg.Label,
		arg.IsAdmin,
		arg.RateLimitPerMinute,
		arg.CreatedBy,
	)
	return scanApiKey(row)
}

const getAPIKeyByHash = `
SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`

func (q *Queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (ApiKey, error) {
	return scanApiKey(q.db.QueryRowContext(ctx, getAPIKeyByHash, keyHash))
}

const revokeAPIKey = `
UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`

func (q *Queries) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, revokeAPIKey, id)
	return err
}
