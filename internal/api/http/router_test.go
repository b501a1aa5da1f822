package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/portfolio-portal/internal/api/http/handlers"
	"github.com/spec-kit/portfolio-portal/internal/backend"
	"github.com/spec-kit/portfolio-portal/internal/config"
	"github.com/spec-kit/portfolio-portal/internal/domain"
	"github.com/spec-kit/portfolio-portal/internal/guard"
	"github.com/spec-kit/portfolio-portal/internal/notify"
	"github.com/spec-kit/portfolio-portal/internal/observability"
	"github.com/spec-kit/portfolio-portal/internal/session"
)

const cookieName = "portal_session"

type fakeAPI struct {
	mu    sync.Mutex
	user  domain.User
	acked []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/login":
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"token": "tok", "user": f.user}})
	case r.URL.Path == "/me":
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": f.user})
	case r.URL.Path == "/notifications":
		_, _ = w.Write([]byte(`[{"ID":1,"Notification_Title":"Scored","Notification_Message":"Your portfolio got 9/10"}]`))
	case strings.HasPrefix(r.URL.Path, "/notifications/read/"):
		f.acked = append(f.acked, strings.TrimPrefix(r.URL.Path, "/notifications/read/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) ackCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.acked)
}

type testPortal struct {
	app     *fiber.App
	api     *fakeAPI
	pollers *notify.Registry
}

func newTestPortal(t *testing.T, user domain.User) *testPortal {
	t.Helper()
	fake := &fakeAPI{user: user}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	client := backend.NewClient(config.BackendConfig{
		BaseURL:           srv.URL,
		MePath:            "/me",
		LoginPath:         "/login",
		NotificationsPath: "/notifications",
		MarkReadPath:      "/notifications/read",
	}, srv.Client(), nil, logger)
	sessions := session.NewManager(session.NewMemoryKV(), "secret", time.Hour)
	pollers := notify.NewRegistry(client, nil, notify.RegistryOptions{Interval: 5 * time.Millisecond, Logger: logger})
	t.Cleanup(pollers.Shutdown)

	mw := guard.NewMiddleware(guard.New(client, logger, metrics), sessions, cookieName, guard.Hooks{
		Mounted: func(p *guard.Principal) {
			if p.Area.Name == domain.StudentArea.Name {
				pollers.Ensure(context.Background(), p.Credentials, p.User.ID)
			}
		},
		Unmounted: pollers.Stop,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("portal", "test", nil),
		Session: handlers.NewSessionHandler(client, sessions, pollers, handlers.CookieConfig{Name: cookieName}, logger),
		Areas:   handlers.NewAreaHandler(),
		Alerts:  handlers.NewAlertsHandler(pollers),
		Guard:   mw,
		Metrics: metrics,
	})
	return &testPortal{app: app, api: fake, pollers: pollers}
}

func (p *testPortal) do(t *testing.T, method, path, cookie, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: cookie})
	}
	resp, err := p.app.Test(req, 2000)
	require.NoError(t, err)
	return resp
}

func (p *testPortal) login(t *testing.T) string {
	t.Helper()
	resp := p.do(t, http.MethodPost, "/auth/login", "", `{"email":"s@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c.Value
		}
	}
	t.Fatal("login did not set a session cookie")
	return ""
}

// alerts is safe to call from assert.Eventually; it reports failures as nil.
func (p *testPortal) alerts(cookie string) []domain.Alert {
	req := httptest.NewRequest(http.MethodGet, "/student/alerts", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: cookie})
	resp, err := p.app.Test(req, 2000)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil
	}
	var env struct {
		Data struct {
			Alerts []domain.Alert `json:"alerts"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil
	}
	return env.Data.Alerts
}

func decodeData(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

var completedStudent = domain.User{ID: 7, TypeID: domain.RoleStudent, ProfileCompleted: true, PDPAConsent: true, FirstNameEN: "Ann", LastNameEN: "Lee"}

func TestHealthAndMetrics(t *testing.T) {
	p := newTestPortal(t, completedStudent)

	assert.Equal(t, http.StatusOK, p.do(t, http.MethodGet, "/health/live", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, p.do(t, http.MethodGet, "/health/ready", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, p.do(t, http.MethodGet, "/metrics", "", "").StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	p := newTestPortal(t, completedStudent)

	resp := p.do(t, http.MethodPost, "/auth/login", "", `{"email":"s@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = p.do(t, http.MethodPost, "/auth/login", "", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStudentFlow(t *testing.T) {
	p := newTestPortal(t, completedStudent)
	cookie := p.login(t)

	resp := p.do(t, http.MethodGet, "/student", cookie, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/student/dashboard", resp.Header.Get("Location"))

	resp = p.do(t, http.MethodGet, "/student/dashboard", cookie, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Layout struct {
			Area        string `json:"area"`
			DisplayName string `json:"display_name"`
		} `json:"layout"`
	}
	decodeData(t, resp, &page)
	assert.Equal(t, "student", page.Layout.Area)
	assert.Equal(t, "Ann Lee", page.Layout.DisplayName)
	assert.Equal(t, 1, p.pollers.Running())

	assert.Eventually(t, func() bool { return len(p.alerts(cookie)) == 1 }, time.Second, 10*time.Millisecond)
	alerts := p.alerts(cookie)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Scored", alerts[0].Title)
	assert.Eventually(t, func() bool { return p.api.ackCount() == 1 }, time.Second, 5*time.Millisecond)

	resp = p.do(t, http.MethodPost, "/student/alerts/1/dismiss", cookie, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = p.do(t, http.MethodPost, "/student/alerts/1/dismiss", cookie, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, p.alerts(cookie), "a delivered notification is never shown again")
	assert.Equal(t, 1, p.api.ackCount())

	resp = p.do(t, http.MethodPost, "/auth/logout", cookie, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, p.pollers.Running())

	resp = p.do(t, http.MethodGet, "/student/dashboard", cookie, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestWrongAreaSignsOut(t *testing.T) {
	p := newTestPortal(t, completedStudent)
	cookie := p.login(t)

	resp := p.do(t, http.MethodGet, "/admin/users", cookie, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?notice=role_mismatch", resp.Header.Get("Location"))

	resp = p.do(t, http.MethodGet, "/student/dashboard", cookie, "")
	assert.Equal(t, "/login", resp.Header.Get("Location"), "credential was cleared")

	resp = p.do(t, http.MethodGet, "/login?notice=role_mismatch", "", "")
	var page struct {
		Notice  string `json:"notice"`
		Message string `json:"message"`
	}
	decodeData(t, resp, &page)
	assert.Equal(t, guard.RoleMismatchNotice, page.Notice)
	assert.NotEmpty(t, page.Message)
}

func TestTeacherAreaHasNoPoller(t *testing.T) {
	p := newTestPortal(t, domain.User{ID: 3, TypeID: domain.RoleTeacher, ProfileCompleted: true, PDPAConsent: true})
	cookie := p.login(t)

	resp := p.do(t, http.MethodGet, "/teacher/submissions", cookie, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, p.pollers.Running())
}

func TestIncompleteStudentIsSentToOnboarding(t *testing.T) {
	p := newTestPortal(t, domain.User{ID: 8, TypeID: domain.RoleStudent, ProfileCompleted: true})
	cookie := p.login(t)

	resp := p.do(t, http.MethodGet, "/student/portfolio", cookie, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/student/onboarding", resp.Header.Get("Location"))

	resp = p.do(t, http.MethodGet, "/student/onboarding", cookie, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Onboarding bool `json:"onboarding"`
	}
	decodeData(t, resp, &page)
	assert.True(t, page.Onboarding)
}
