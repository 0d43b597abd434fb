package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"atrium/internal/auth"
	"atrium/internal/db"
	"atrium/internal/store"
)

var (
	ErrBadSignature = errors.New("webhook signature verification failed")
	ErrStaleWebhook = errors.New("webhook timestamp outside tolerance")
	ErrUnknownEvent = errors.New("unknown webhook event type")
	ErrBadEventUser = errors.New("webhook event is missing user data")
	ErrUnknownOrg   = errors.New("webhook event references an unknown organization")
	errMalformedHdr = errors.New("malformed signature header")
)

// signatureTolerance bounds how old a webhook timestamp may be before
// it is rejected as a possible replay.
const signatureTolerance = 5 * time.Minute

// VerifyWebhookSignature checks an identity-provider signature header
// of the form "t=<unix>,v1=<hex hmac>" against the raw payload. The
// HMAC-SHA256 is computed over "<t>.<payload>". Any parse failure or
// mismatch fails closed.
func VerifyWebhookSignature(secret string, payload []byte, header string, now time.Time) error {
	if secret == "" || header == "" {
		return ErrBadSignature
	}

	ts, sig, err := splitSignatureHeader(header)
	if err != nil {
		return ErrBadSignature
	}

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	age := now.Sub(time.Unix(issued, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return ErrStaleWebhook
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	provided, err := hex.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}
	want, _ := hex.DecodeString(expected)
	if !hmac.Equal(provided, want) {
		return ErrBadSignature
	}

	return nil
}

func splitSignatureHeader(header string) (ts, sig string, err error) {
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return "", "", errMalformedHdr
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return "", "", errMalformedHdr
	}
	return ts, sig, nil
}

// IdentityEvent is one user lifecycle event delivered by the hosted
// identity provider.
type IdentityEvent struct {
	Type string            `json:"type"`
	Data IdentityEventUser `json:"data"`
}

type IdentityEventUser struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	OrganizationSlug string `json:"organizationSlug"`
}

// IdentitySync mirrors external identity-provider accounts into local
// user rows.
type IdentitySync struct {
	st *store.Store
}

func NewIdentitySync(st *store.Store) *IdentitySync {
	return &IdentitySync{st: st}
}

// Apply processes one verified event. It is idempotent: replaying a
// delivery converges on the same row state.
func (s *IdentitySync) Apply(ctx context.Context, ev IdentityEvent) error {
	switch ev.Type {
	case "user.created", "user.updated":
		return s.upsertUser(ctx, ev.Data)
	case "user.deleted":
		return s.deleteUser(ctx, ev.Data)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Type)
	}
}

func (s *IdentitySync) upsertUser(ctx context.Context, data IdentityEventUser) error {
	if data.ID == "" || data.Email == "" {
		return ErrBadEventUser
	}

	email := strings.TrimSpace(strings.ToLower(data.Email))
	role, ok := auth.ParseRole(data.Role)
	if !ok {
		role = auth.RoleUser
	}

	q := db.New(s.st.DB)

	var orgID uuid.NullUUID
	if role != auth.RoleSuperAdmin {
		if data.OrganizationSlug == "" {
			return ErrBadEventUser
		}
		org, err := q.GetOrganizationBySlug(ctx, data.OrganizationSlug)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrUnknownOrg, data.OrganizationSlug)
			}
			return err
		}
		orgID = uuid.NullUUID{UUID: org.ID, Valid: true}
	}

	subject := sql.NullString{String: data.ID, Valid: true}
	name := sql.NullString{}
	if strings.TrimSpace(data.Name) != "" {
		name = sql.NullString{String: data.Name, Valid: true}
	}

	existing, err := q.GetUserByProviderSubject(ctx, db.GetUserByProviderSubjectParams{
		AuthProvider: "oidc",
		AuthSubject:  subject,
	})
	if err == nil {
		if _, err := q.UpdateUserProfile(ctx, db.UpdateUserProfileParams{
			ID:    existing.ID,
			Name:  name,
			Email: email,
		}); err != nil {
			return err
		}
		_, err = q.UpdateUserRole(ctx, db.UpdateUserRoleParams{
			ID:             existing.ID,
			Role:           string(role),
			OrganizationID: orgID,
		})
		return err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	_, err = q.CreateUser(ctx, db.CreateUserParams{
		ID:             uuid.New(),
		Email:          email,
		Name:           name,
		Role:           string(role),
		OrganizationID: orgID,
		AuthProvider:   "oidc",
		AuthSubject:    subject,
	})
	return err
}

func (s *IdentitySync) deleteUser(ctx context.Context, data IdentityEventUser) error {
	if data.ID == "" {
		return ErrBadEventUser
	}

	q := db.New(s.st.DB)
	user, err := q.GetUserByProviderSubject(ctx, db.GetUserByProviderSubjectParams{
		AuthProvider: "oidc",
		AuthSubject:  sql.NullString{String: data.ID, Valid: true},
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already gone; deletion is idempotent.
			return nil
		}
		return err
	}

	return q.DeleteUser(ctx, user.ID)
}
