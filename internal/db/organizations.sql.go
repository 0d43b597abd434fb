package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const orgColumns = `id, slug, name, logo_url, created_at, updated_at`

func scanOrganization(row *sql.Row) (Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Slug, &o.Name, &o.LogoUrl, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const createOrganization = `
INSERT INTO organizations (id, slug, name, logo_url)
VALUES ($1, $2, $3, $4)
RETURNING ` + orgColumns

type CreateOrganizationParams struct {
	ID      uuid.UUID
	Slug    string
	Name    string
	LogoUrl sql.NullString
}

func (q *Queries) CreateOrganization(ctx context.Context, arg CreateOrganizationParams) (Organization, error) {
	row := q.db.QueryRowContext(ctx, createOrganization, arg.ID, arg.Slug, arg.Name, arg.LogoUrl)
	return scanOrganization(row)
}

const getOrganizationByID = `
SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`

func (q *Queries) GetOrganizationByID(ctx context.Context, id uuid.UUID) (Organization, error) {
	return scanOrganization(q.db.QueryRowContext(ctx, getOrganizationByID, id))
}

const getOrganizationBySlug = `
SELECT ` + orgColumns + ` FROM organizations WHERE slug = $1`

func (q *Queries) GetOrganizationBySlug(ctx context.Context, slug string) (Organization, error) {
	return scanOrganization(q.db.QueryRowContext(ctx, getOrganizationBySlug, slug))
}

const updateOrganization = `
UPDATE organizations
SET name = $2, logo_url = $3, updated_at = now()
WHERE id = $1
RETURNING ` + orgColumns

type UpdateOrganizationParams struct {
	ID      uuid.UUID
	Name    string
	LogoUrl sql.NullString
}

func (q *Queries) UpdateOrganization(ctx context.Context, arg UpdateOrganizationParams) (Organization, error) {
	return scanOrganization(q.db.QueryRowContext(ctx, updateOrganization, arg.ID, arg.Name, arg.LogoUrl))
}

const listOrganizations = `
SELECT ` + orgColumns + ` FROM organizations ORDER BY created_at`

func (q *Queries) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := q.db.QueryContext(ctx, listOrganizations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Slug, &o.Name, &o.LogoUrl, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const deleteOrganization = `
DELETE FROM organizations WHERE id = $1`

func (q *Queries) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteOrganization, id)
	return err
}
