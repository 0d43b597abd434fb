package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"atrium/internal/auth"
	"atrium/internal/config"
	"atrium/internal/db"
	"atrium/internal/store"
)

// Run applies bootstrap configuration for users and organizations. It
// is designed to be idempotent and safe to run multiple times.
func Run(ctx context.Context, cfg *config.Config, st *store.Store) error {
	if cfg == nil || st == nil {
		return nil
	}
	if len(cfg.Bootstrap.Users) == 0 && len(cfg.Bootstrap.Organizations) == 0 {
		return nil
	}

	q := db.New(st.DB)

	// Organizations first so that user references are valid.
	for i := range cfg.Bootstrap.Organizations {
		if err := bootstrapOrganization(ctx, q, &cfg.Bootstrap.Organizations[i]); err != nil {
			return err
		}
	}

	// Only superadmins are created from the flat user list; everyone
	// else needs an organization, which the rosters below supply.
	for i := range cfg.Bootstrap.Users {
		if !cfg.Bootstrap.Users[i].IsSuperAdmin {
			continue
		}
		if err := bootstrapUser(ctx, q, &cfg.Bootstrap.Users[i], uuid.NullUUID{}, auth.RoleSuperAdmin); err != nil {
			return err
		}
	}

	// Organization membership rosters.
	for i := range cfg.Bootstrap.Organizations {
		if err := bootstrapMembers(ctx, q, &cfg.Bootstrap.Organizations[i], cfg.Bootstrap.Users); err != nil {
			return err
		}
	}

	return nil
}

func bootstrapOrganization(ctx context.Context, q *db.Queries, o *config.BootstrapOrgConfig) error {
	slug := strings.TrimSpace(strings.ToLower(o.Slug))
	if slug == "" {
		return nil
	}

	_, err := q.GetOrganizationBySlug(ctx, slug)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	name := o.Name
	if strings.TrimSpace(name) == "" {
		name = slug
	}

	_, err = q.CreateOrganization(ctx, db.CreateOrganizationParams{
		ID:   uuid.New(),
		Slug: slug,
		Name: name,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Created concurrently by another process; treat as success.
			return nil
		}
		return err
	}
	return nil
}

// bootstrapUser creates a user if absent. Existing users are never
// modified by bootstrap to avoid surprising credential or role changes.
func bootstrapUser(ctx context.Context, q *db.Queries, u *config.BootstrapUserConfig, orgID uuid.NullUUID, role auth.Role) error {
	email := strings.TrimSpace(strings.ToLower(u.Email))
	if email == "" {
		return nil
	}

	_, err := q.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	provider := strings.ToLower(strings.TrimSpace(u.Provider))
	if provider == "" {
		provider = "local"
	}

	if role == "" {
		role = auth.RoleUser
	}
	if u.IsSuperAdmin {
		role = auth.RoleSuperAdmin
		orgID = uuid.NullUUID{}
	}

	name := sql.NullString{}
	if strings.TrimSpace(u.Name) != "" {
		name = sql.NullString{String: u.Name, Valid: true}
	}

	passwordHash := sql.NullString{}
	if provider == "local" && strings.TrimSpace(u.Password) != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		passwordHash = sql.NullString{String: string(hash), Valid: true}
	}

	_, err = q.CreateUser(ctx, db.CreateUserParams{
		ID:             uuid.New(),
		Email:          email,
		Name:           name,
		Role:           string(role),
		OrganizationID: orgID,
		AuthProvider:   provider,
		PasswordHash:   passwordHash,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Another process created this user concurrently.
			return nil
		}
		return err
	}
	return nil
}

func bootstrapMembers(ctx context.Context, q *db.Queries, o *config.BootstrapOrgConfig, users []config.BootstrapUserConfig) error {
	slug := strings.TrimSpace(strings.ToLower(o.Slug))
	if slug == "" {
		return nil
	}

	org, err := q.GetOrganizationBySlug(ctx, slug)
	if err != nil {
		return err
	}
	orgID := uuid.NullUUID{UUID: org.ID, Valid: true}

	ensure := func(email string, role auth.Role) error {
		email = strings.TrimSpace(strings.ToLower(email))
		if email == "" {
			return nil
		}

		if _, err := q.GetUserByEmail(ctx, email); err == nil {
			return nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		// Reuse a full bootstrap spec when one exists for this email.
		spec := &config.BootstrapUserConfig{Email: email, Provider: "oidc"}
		for i := range users {
			if strings.EqualFold(strings.TrimSpace(users[i].Email), email) {
				spec = &users[i]
				break
			}
		}
		return bootstrapUser(ctx, q, spec, orgID, role)
	}

	for _, email := range o.Admins {
		if err := ensure(email, auth.RoleAdmin); err != nil {
			return err
		}
	}
	for _, email := range o.Members {
		if err := ensure(email, auth.RoleUser); err != nil {
			return err
		}
	}

	return nil
}
