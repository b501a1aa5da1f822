package guard

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/portfolio-portal/internal/domain"
	"github.com/spec-kit/portfolio-portal/internal/session"
)

const principalKey = "guard_principal"

// Principal is the viewer admitted into an area.
type Principal struct {
	Area        domain.Area
	User        *domain.User
	Credentials *session.Credentials
}

// SessionOpener resolves the session cookie to a credential cache.
type SessionOpener interface {
	Open(cookie string) (*session.Credentials, error)
}

// Hooks lets the host react to an area being entered or left.
type Hooks struct {
	// Mounted runs after every authorized request.
	Mounted func(p *Principal)
	// Unmounted runs when a denial discards the session's credentials.
	Unmounted func(sessionID string)
}

// Middleware applies the guard to fiber routes.
type Middleware struct {
	guard      *Guard
	sessions   SessionOpener
	cookieName string
	hooks      Hooks
}

// NewMiddleware constructs middleware.
func NewMiddleware(guard *Guard, sessions SessionOpener, cookieName string, hooks Hooks) *Middleware {
	return &Middleware{guard: guard, sessions: sessions, cookieName: cookieName, hooks: hooks}
}

// Area returns a handler admitting only viewers allowed into area.
// Redirects use 302 so no intermediate page stays in history.
func (m *Middleware) Area(area domain.Area) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			store Store = Anonymous
			creds *session.Credentials
		)
		if cookie := c.Cookies(m.cookieName); cookie != "" {
			if opened, err := m.sessions.Open(cookie); err == nil {
				creds = opened
				store = opened
			}
		}

		outcome := m.guard.Evaluate(c.UserContext(), area, c.Path(), store)

		if outcome.State == StateAuthorized {
			principal := &Principal{Area: area, User: outcome.User, Credentials: creds}
			c.Locals(principalKey, principal)
			if m.hooks.Mounted != nil {
				m.hooks.Mounted(principal)
			}
			return c.Next()
		}

		if outcome.State.Denied() {
			if creds != nil && m.hooks.Unmounted != nil {
				m.hooks.Unmounted(creds.ID())
			}
			m.expireCookie(c)
		}
		return c.Redirect(outcome.Redirect, fiber.StatusFound)
	}
}

func (m *Middleware) expireCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// PrincipalFromContext retrieves the admitted viewer.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
