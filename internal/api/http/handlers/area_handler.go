package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/portfolio-portal/internal/api/dto"
	"github.com/spec-kit/portfolio-portal/internal/guard"
)

// AreaHandler renders the page model of any guarded area page.
type AreaHandler struct{}

// NewAreaHandler constructs handler.
func NewAreaHandler() *AreaHandler {
	return &AreaHandler{}
}

// Page handles GET /<area>/*.
func (h *AreaHandler) Page(c *fiber.Ctx) error {
	principal, ok := guard.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	return c.JSON(fiber.Map{"data": dto.PageResponse{
		Layout: dto.Layout{
			Area:        principal.Area.Name,
			Role:        principal.User.TypeID.String(),
			DisplayName: principal.User.DisplayName(),
			UserID:      principal.User.ID,
		},
		Path:       c.Path(),
		Onboarding: principal.Area.AtOnboarding(c.Path()),
	}})
}
