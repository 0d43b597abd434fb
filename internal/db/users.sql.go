package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const userColumns = `id, email, name, role, organization_id, auth_provider, auth_subject, password_hash, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Role,
		&u.OrganizationID,
		&u.AuthProvider,
		&u.AuthSubject,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const createUser = `
INSERT INTO users (id, email, name, role, organization_id, auth_provider, auth_subject, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + userColumns

type CreateUserParams struct {
	ID             uuid.UUID
	Email          string
	Name           sql.NullString
	Role           string
	OrganizationID uuid.NullUUID
	AuthProvider   string
	AuthSubject    sql.NullString
	PasswordHash   sql.NullString
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.ID,
		arg.Email,
		arg.Name,
		arg.Role,
		arg.OrganizationID,
		arg.AuthProvider,
		arg.AuthSubject,
		arg.PasswordHash,
	)
	return scanUser(row)
}

const getUserByID = `
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `
SELECT ` + userColumns + ` FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByProviderSubject = `
SELECT ` + userColumns + ` FROM users WHERE auth_provider = $1 AND auth_subject = $2`

type GetUserByProviderSubjectParams struct {
	AuthProvider string
	AuthSubject  sql.NullString
}

func (q *Queries) GetUserByProviderSubject(ctx context.Context, arg GetUserByProviderSubjectParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByProviderSubject, arg.AuthProvider, arg.AuthSubject))
}

const updateUserProfile = `
UPDATE users
SET name = $2, email = $3, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserProfileParams struct {
	ID    uuid.UUID
	Name  sql.NullString
	Email string
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserProfile, arg.ID, arg.Name, arg.Email))
}

const updateUserRole = `
UPDATE users
SET role = $2, organization_id = $3, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserRoleParams struct {
	ID             uuid.UUID
	Role           string
	OrganizationID uuid.NullUUID
}

func (q *Queries) UpdateUserRole(ctx context.Context, arg UpdateUserRoleParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserRole, arg.ID, arg.Role, arg.OrganizationID))
}

const deleteUser = `
DELETE FROM users WHERE id = $1`

func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteUser, id)
	return err
}

const listUsersByOrganization = `
SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 ORDER BY created_at`

func (q *Queries) ListUsersByOrganization(ctx context.Context, organizationID uuid.NullUUID) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsersByOrganization, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID,
			&u.Email,
			&u.Name,
			&u.Role,
			&u.OrganizationID,
			&u.AuthProvider,
			&u.AuthSubject,
			&u.PasswordHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}
