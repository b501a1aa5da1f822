package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/portfolio-portal/internal/api/http/handlers"
	"github.com/spec-kit/portfolio-portal/internal/domain"
	"github.com/spec-kit/portfolio-portal/internal/guard"
	"github.com/spec-kit/portfolio-portal/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Session *handlers.SessionHandler
	Areas   *handlers.AreaHandler
	Alerts  *handlers.AlertsHandler
	Guard   *guard.Middleware
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Get(domain.LoginPath, cfg.Session.LoginPage)
	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Session.Login)
	authGroup.Post("/logout", cfg.Session.Logout)

	student := app.Group(domain.StudentArea.Root, cfg.Guard.Area(domain.StudentArea))
	student.Get("/alerts", cfg.Alerts.List)
	student.Post("/alerts/:id/dismiss", cfg.Alerts.Dismiss)
	student.Get("/*", cfg.Areas.Page)

	teacher := app.Group(domain.TeacherArea.Root, cfg.Guard.Area(domain.TeacherArea))
	teacher.Get("/*", cfg.Areas.Page)

	admin := app.Group(domain.AdminArea.Root, cfg.Guard.Area(domain.AdminArea))
	admin.Get("/*", cfg.Areas.Page)
}
