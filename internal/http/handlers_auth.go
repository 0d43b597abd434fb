package http

import (
	"errors"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"atrium/internal/auth"
	"atrium/internal/config"
	"atrium/internal/db"
	"atrium/internal/services"
	"atrium/internal/store"
)

const oidcStateCookieName = "atrium_oidc_state"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginUser struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Name           *string `json:"name,omitempty"`
	Role           string  `json:"role"`
	OrganizationID *string `json:"organizationId,omitempty"`
}

type LoginResponse struct {
	Success bool       `json:"success"`
	Code    string     `json:"code,omitempty"`
	Error   string     `json:"error,omitempty"`
	User    *LoginUser `json:"user,omitempty"`
}

func loginUserFromRow(user db.User) *LoginUser {
	out := &LoginUser{
		ID:    user.ID.String(),
		Email: user.Email,
		Role:  user.Role,
	}
	if user.Name.Valid {
		n := user.Name.String
		out.Name = &n
	}
	if user.OrganizationID.Valid {
		id := user.OrganizationID.UUID.String()
		out.OrganizationID = &id
	}
	return out
}

func issueSessionForUser(c *fiber.Ctx, cfg *config.Config, user db.User) error {
	role, ok := auth.ParseRole(user.Role)
	if !ok {
		role = auth.RoleUser
	}
	var orgID *uuid.UUID
	if user.OrganizationID.Valid {
		id := user.OrganizationID.UUID
		orgID = &id
	}
	return auth.IssueSessionCookie(c, cfg, user.ID, role, orgID)
}

func loginHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	st := c.Locals("store").(*store.Store)

	if !cfg.Auth.Local.Enabled {
		return c.Status(fiber.StatusServiceUnavailable).JSON(LoginResponse{
			Success: false,
			Code:    "LOCAL_AUTH_DISABLED",
			Error:   "local auth is disabled in server configuration",
		})
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestJSON(c)
	}

	var fields []FieldError
	if req.Email == "" {
		fields = append(fields, FieldError{Field: "email", Message: "email is required"})
	}
	if req.Password == "" {
		fields = append(fields, FieldError{Field: "password", Message: "password is required"})
	}
	if len(fields) > 0 {
		return validationFailed(c, fields)
	}

	authSvc := services.NewAuthService(cfg, st)
	user, err := authSvc.LoginLocal(c.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(LoginResponse{
				Success: false,
				Code:    "INVALID_CREDENTIALS",
				Error:   "invalid email or password",
			})
		case errors.Is(err, services.ErrAuthProviderMismatch):
			return c.Status(fiber.StatusBadRequest).JSON(LoginResponse{
				Success: false,
				Code:    "AUTH_PROVIDER_MISMATCH",
				Error:   "user exists but is not configured for local auth",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(LoginResponse{
				Success: false,
				Code:    "INTERNAL_ERROR",
				Error:   err.Error(),
			})
		}
	}

	if err := issueSessionForUser(c, cfg, user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(LoginResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(LoginResponse{
		Success: true,
		User:    loginUserFromRow(user),
	})
}

func logoutHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	auth.ClearSessionCookie(c, cfg)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}

// oidcLoginStartHandler initiates an OIDC login by redirecting the
// user agent to the provider's authorization endpoint with a
// cookie-backed state value for CSRF protection.
func oidcLoginStartHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)

	if !cfg.Auth.OIDC.Enabled {
		return c.Status(fiber.StatusServiceUnavailable).JSON(LoginResponse{
			Success: false,
			Code:    "OIDC_DISABLED",
			Error:   "oidc auth is disabled in server configuration",
		})
	}

	provider, err := oidc.NewProvider(c.Context(), cfg.Auth.OIDC.IssuerURL)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(LoginResponse{
			Success: false,
			Code:    "OIDC_PROVIDER_ERROR",
			Error:   err.Error(),
		})
	}

	oauthCfg := oauth2.Config{
		ClientID:     cfg.Auth.OIDC.ClientID,
		ClientSecret: cfg.Auth.OIDC.ClientSecret,
		RedirectURL:  cfg.Auth.OIDC.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	state := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     oidcStateCookieName,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	authURL := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
	return c.Redirect(authURL, fiber.StatusFound)
}

// oidcCallbackHandler handles the OIDC redirect, validates state, and
// delegates to AuthService.LoginOIDC to match the verified identity
// against the local account mirror.
func oidcCallbackHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	st := c.Locals("store").(*store.Store)

	if !cfg.Auth.OIDC.Enabled {
		return c.Status(fiber.StatusServiceUnavailable).JSON(LoginResponse{
			Success: false,
			Code:    "OIDC_DISABLED",
			Error:   "oidc auth is disabled in server configuration",
		})
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return c.Status(fiber.StatusBadRequest).JSON(LoginResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "missing code or state",
		})
	}

	cookieState := c.Cookies(oidcStateCookieName)
	if cookieState == "" || cookieState != state {
		return c.Status(fiber.StatusBadRequest).JSON(LoginResponse{
			Success: false,
			Code:    "OIDC_STATE_MISMATCH",
			Error:   "oidc state mismatch",
		})
	}

	// Clear the state cookie.
	c.Cookie(&fiber.Cookie{
		Name:     oidcStateCookieName,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	authSvc := services.NewAuthService(cfg, st)
	user, err := authSvc.LoginOIDC(c.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOIDCDisabled):
			return c.Status(fiber.StatusServiceUnavailable).JSON(LoginResponse{
				Success: false,
				Code:    "OIDC_DISABLED",
				Error:   "oidc auth is disabled in server configuration",
			})
		case errors.Is(err, services.ErrOIDCEmailMissing):
			return c.Status(fiber.StatusBadRequest).JSON(LoginResponse{
				Success: false,
				Code:    "OIDC_EMAIL_MISSING",
				Error:   "oidc id token did not contain an email",
			})
		case errors.Is(err, services.ErrOIDCEmailNotAllowed):
			return c.Status(fiber.StatusForbidden).JSON(LoginResponse{
				Success: false,
				Code:    "OIDC_EMAIL_NOT_ALLOWED",
				Error:   "email domain is not allowed for oidc",
			})
		case errors.Is(err, services.ErrUnknownUser):
			return c.Status(fiber.StatusForbidden).JSON(LoginResponse{
				Success: false,
				Code:    "UNKNOWN_USER",
				Error:   "no account exists for this identity",
			})
		case errors.Is(err, services.ErrAuthProviderMismatch):
			return c.Status(fiber.StatusBadRequest).JSON(LoginResponse{
				Success: false,
				Code:    "AUTH_PROVIDER_MISMATCH",
				Error:   "user exists but is not configured for oidc auth",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(LoginResponse{
				Success: false,
				Code:    "INTERNAL_ERROR",
				Error:   err.Error(),
			})
		}
	}

	if err := issueSessionForUser(c, cfg, user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(LoginResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(LoginResponse{
		Success: true,
		User:    loginUserFromRow(user),
	})
}
