package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type User struct {
	ID             uuid.UUID
	Email          string
	Name           sql.NullString
	Role           string
	OrganizationID uuid.NullUUID
	AuthProvider   string
	AuthSubject    sql.NullString
	PasswordHash   sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Organization struct {
	ID        uuid.UUID
	Slug      string
	Name      string
	LogoUrl   sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Description    sql.NullString
	PriceCents     int64
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ApiKey struct {
	ID                 uuid.UUID
	OrganizationID     uuid.NullUUID
	KeyHash            string
	Label              string
	IsAdmin            bool
	RateLimitPerMinute sql.NullInt32
	CreatedBy          uuid.NullUUID
	RevokedAt          sql.NullTime
	CreatedAt          time.Time
}

type Subscription struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	Plan             string
	Status           string
	CurrentPeriodEnd sql.NullTime
	Metadata         pqtype.NullRawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
