package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"atrium/internal/config"
	"atrium/internal/db"
	"atrium/internal/store"
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAuthProviderMismatch = errors.New("user exists but is not configured for this auth method")
	ErrOIDCDisabled         = errors.New("oidc auth is disabled")
	ErrOIDCEmailNotAllowed  = errors.New("email domain is not allowed for oidc")
	ErrOIDCEmailMissing     = errors.New("oidc token did not contain an email")
	ErrUnknownUser          = errors.New("no account exists for this identity")
)

// AuthService encapsulates user login flows (local and OIDC). Accounts
// are provisioned by admins or mirrored from the identity provider;
// login never creates users.
type AuthService interface {
	LoginLocal(ctx context.Context, email, password string) (db.User, error)
	LoginOIDC(ctx context.Context, code string) (db.User, error)
}

type authService struct {
	cfg *config.Config
	st  *store.Store
}

func NewAuthService(cfg *config.Config, st *store.Store) AuthService {
	return &authService{cfg: cfg, st: st}
}

func (s *authService) LoginLocal(ctx context.Context, email, password string) (db.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return db.User{}, ErrInvalidCredentials
	}

	q := db.New(s.st.DB)

	user, err := q.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unknown email and bad password answer identically.
			return db.User{}, ErrInvalidCredentials
		}
		return db.User{}, err
	}

	if user.AuthProvider != "local" {
		return db.User{}, ErrAuthProviderMismatch
	}
	if !user.PasswordHash.Valid {
		return db.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)); err != nil {
		return db.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// LoginOIDC performs the OIDC authorization code exchange and matches
// the verified ID token against an existing local mirror of the
// account. Mirrors are maintained by the identity-provider webhook.
func (s *authService) LoginOIDC(ctx context.Context, code string) (db.User, error) {
	if !s.cfg.Auth.OIDC.Enabled {
		return db.User{}, ErrOIDCDisabled
	}

	provider, err := oidc.NewProvider(ctx, s.cfg.Auth.OIDC.IssuerURL)
	if err != nil {
		return db.User{}, err
	}

	oauthCfg := oauth2.Config{
		ClientID:     s.cfg.Auth.OIDC.ClientID,
		ClientSecret: s.cfg.Auth.OIDC.ClientSecret,
		RedirectURL:  s.cfg.Auth.OIDC.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return db.User{}, err
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return db.User{}, errors.New("oidc: id_token not found in token response")
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: s.cfg.Auth.OIDC.ClientID})
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return db.User{}, err
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return db.User{}, err
	}

	email := strings.TrimSpace(strings.ToLower(claims.Email))
	if email == "" {
		return db.User{}, ErrOIDCEmailMissing
	}

	if err := s.checkAllowedDomain(email); err != nil {
		return db.User{}, err
	}

	q := db.New(s.st.DB)

	// Prefer the stable provider subject over the mutable email.
	subject := sql.NullString{String: idToken.Subject, Valid: idToken.Subject != ""}
	if subject.Valid {
		user, err := q.GetUserByProviderSubject(ctx, db.GetUserByProviderSubjectParams{
			AuthProvider: "oidc",
			AuthSubject:  subject,
		})
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return db.User{}, err
		}
	}

	existing, err := q.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.User{}, ErrUnknownUser
		}
		return db.User{}, err
	}
	if existing.AuthProvider != "oidc" {
		return db.User{}, ErrAuthProviderMismatch
	}

	return existing, nil
}

func (s *authService) checkAllowedDomain(email string) error {
	if len(s.cfg.Auth.OIDC.AllowedDomains) == 0 {
		return nil
	}

	domain := ""
	if i := strings.LastIndex(email, "@"); i != -1 && i+1 < len(email) {
		domain = email[i+1:]
	}
	for _, d := range s.cfg.Auth.OIDC.AllowedDomains {
		if strings.EqualFold(strings.TrimSpace(d), domain) {
			return nil
		}
	}
	return ErrOIDCEmailNotAllowed
}
