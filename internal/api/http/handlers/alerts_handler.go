package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/portfolio-portal/internal/api/dto"
	"github.com/spec-kit/portfolio-portal/internal/domain"
	"github.com/spec-kit/portfolio-portal/internal/guard"
	"github.com/spec-kit/portfolio-portal/internal/notify"
	apperrors "github.com/spec-kit/portfolio-portal/pkg/util"
)

// Boards finds the alert board of a session's poller.
type Boards interface {
	Board(sessionID string) (*notify.AlertBoard, bool)
}

// AlertsHandler exposes the student's on-screen alerts.
type AlertsHandler struct {
	boards Boards
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(boards Boards) *AlertsHandler {
	return &AlertsHandler{boards: boards}
}

// List handles GET /student/alerts.
func (h *AlertsHandler) List(c *fiber.Ctx) error {
	board, err := h.board(c)
	if err != nil {
		return err
	}
	alerts := []domain.Alert{}
	if board != nil {
		alerts = board.List()
	}
	return c.JSON(fiber.Map{"data": dto.AlertsResponse{Alerts: alerts}})
}

// Dismiss handles POST /student/alerts/:id/dismiss.
func (h *AlertsHandler) Dismiss(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid alert id", map[string]any{"id": c.Params("id")})
	}
	board, err := h.board(c)
	if err != nil {
		return err
	}
	if board == nil || !board.Dismiss(id) {
		return apperrors.NewNotFound("alert", map[string]any{"id": id})
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *AlertsHandler) board(c *fiber.Ctx) (*notify.AlertBoard, error) {
	principal, ok := guard.PrincipalFromContext(c)
	if !ok || principal.Credentials == nil {
		return nil, fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	board, _ := h.boards.Board(principal.Credentials.ID())
	return board, nil
}
