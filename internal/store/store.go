package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"atrium/internal/db"
)

// Store wraps access to the database.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// hashAPIKey hashes a raw API key string using SHA-256 and returns a hex string.
func hashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GetAPIKeyByRawKey looks up a non-revoked API key by its raw value.
func (s *Store) GetAPIKeyByRawKey(ctx context.Context, rawKey string) (db.ApiKey, error) {
	q := db.New(s.DB)
	return q.GetAPIKeyByHash(ctx, hashAPIKey(rawKey))
}

// EnsureAdminAPIKey ensures that there is a platform admin API key for
// the given raw key and label. If it already exists, it is returned;
// otherwise, it is created.
func (s *Store) EnsureAdminAPIKey(ctx context.Context, rawKey, label string) (db.ApiKey, error) {
	hash := hashAPIKey(rawKey)
	q := db.New(s.DB)

	key, err := q.GetAPIKeyByHash(ctx, hash)
	if err == nil {
		return key, nil
	}
	if err != sql.ErrNoRows {
		return db.ApiKey{}, err
	}

	return q.InsertAPIKey(ctx, db.InsertAPIKeyParams{
		ID:      uuid.New(),
		KeyHash: hash,
		Label:   label,
		IsAdmin: true,
	})
}

// RevokeAPIKey marks a key revoked. Revoked keys stop resolving on
// the next request; there is no grace period.
func (s *Store) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	return db.New(s.DB).RevokeAPIKey(ctx, id)
}

// CreateRandomAPIKey creates a new random API key (with atrium_ prefix)
// for an organization. It returns the raw key plus the stored record;
// the raw key is shown once and never stored.
func (s *Store) CreateRandomAPIKey(ctx context.Context, label string, organizationID uuid.UUID, createdBy uuid.UUID, rateLimitPerMinute *int) (string, db.ApiKey, error) {
	raw := "atrium_" + uuid.New().String()
	hash := hashAPIKey(raw)

	var rl sql.NullInt32
	if rateLimitPerMinute != nil && *rateLimitPerMinute > 0 {
		rl = sql.NullInt32{Int32: int32(*rateLimitPerMinute), Valid: true}
	}

	q := db.New(s.DB)
	key, err := q.InsertAPIKey(ctx, db.InsertAPIKeyParams{
		ID:                 uuid.New(),
		OrganizationID:     uuid.NullUUID{UUID: organizationID, Valid: true},
		KeyHash:            hash,
		Label:              label,
		IsAdmin:            false,
		RateLimitPerMinute: rl,
		CreatedBy:          uuid.NullUUID{UUID: createdBy, Valid: true},
	})
	if err != nil {
		return "", db.ApiKey{}, err
	}

	return raw, key, nil
}
