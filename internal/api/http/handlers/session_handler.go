package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/portfolio-portal/internal/api/dto"
	"github.com/spec-kit/portfolio-portal/internal/backend"
	"github.com/spec-kit/portfolio-portal/internal/domain"
	"github.com/spec-kit/portfolio-portal/internal/guard"
	"github.com/spec-kit/portfolio-portal/internal/session"
	apperrors "github.com/spec-kit/portfolio-portal/pkg/util"
)

// Authenticator forwards credentials to the backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
}

// SessionStopper tears down whatever runs on behalf of a session.
type SessionStopper interface {
	Stop(sessionID string)
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// SessionHandler exposes login and logout.
type SessionHandler struct {
	auth     Authenticator
	sessions *session.Manager
	pollers  SessionStopper
	cookie   CookieConfig
	logger   *zap.Logger
}

// NewSessionHandler constructs handler.
func NewSessionHandler(auth Authenticator, sessions *session.Manager, pollers SessionStopper, cookie CookieConfig, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{auth: auth, sessions: sessions, pollers: pollers, cookie: cookie, logger: logger}
}

// LoginPage handles GET /login.
func (h *SessionHandler) LoginPage(c *fiber.Ctx) error {
	page := dto.LoginPage{Page: "login", Notice: c.Query("notice")}
	if page.Notice == guard.RoleMismatchNotice {
		page.Message = "This account is not allowed in that area. Please sign in with the right account."
	}
	return c.JSON(fiber.Map{"data": page})
}

// Login handles POST /auth/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return apperrors.NewBadGateway(err)
	}

	creds, value, expiresAt, err := h.sessions.Start()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	ctx := c.UserContext()
	if err := creds.SaveToken(ctx, result.Token); err != nil {
		return apperrors.NewInternalError(err)
	}
	if result.User != nil {
		if err := creds.SaveUser(ctx, result.User); err != nil {
			return apperrors.NewInternalError(err)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	h.logger.Info("session started", zap.String("session_id", creds.ID()))
	return c.JSON(fiber.Map{"data": dto.LoginResponse{Redirect: landingFor(result.User), ExpiresAt: expiresAt}})
}

// Logout handles POST /auth/logout. It always succeeds.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	if cookie := c.Cookies(h.cookie.Name); cookie != "" {
		if creds, err := h.sessions.Open(cookie); err == nil {
			if err := creds.Clear(c.UserContext()); err != nil {
				h.logger.Error("failed to clear credentials", zap.Error(err))
			}
			h.pollers.Stop(creds.ID())
			h.logger.Info("session ended", zap.String("session_id", creds.ID()))
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"data": dto.LogoutResponse{Redirect: domain.LoginPath}})
}

// landingFor picks the area root for the user's role; the guard takes it from there.
func landingFor(user *domain.User) string {
	if user == nil {
		return domain.StudentArea.Root
	}
	switch user.TypeID {
	case domain.RoleTeacher:
		return domain.TeacherArea.Root
	case domain.RoleAdmin:
		return domain.AdminArea.Root
	default:
		return domain.StudentArea.Root
	}
}
