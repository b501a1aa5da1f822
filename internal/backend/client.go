package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spec-kit/portfolio-portal/internal/config"
	"github.com/spec-kit/portfolio-portal/internal/domain"
)

const maxBodyBytes = 1 << 20

var (
	// ErrUnauthorized means the backend rejected the credential.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrUnavailable means the circuit breaker refused the call.
	ErrUnavailable = errors.New("backend: unavailable")
)

// StatusError reports an unexpected HTTP status from the backend.
type StatusError struct {
	Method string
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s %s returned %d", e.Method, e.Path, e.Status)
}

// Client talks to the portfolio API on behalf of a viewer.
type Client struct {
	cfg     config.BackendConfig
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient builds a client. A nil httpClient falls back to http.DefaultClient
// and a nil breaker disables circuit breaking.
func NewClient(cfg config.BackendConfig, httpClient *http.Client, breaker *gobreaker.CircuitBreaker, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		breaker: breaker,
		logger:  logger,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

type response struct {
	status int
	body   []byte
}

// Me fetches the viewer identified by token.
func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	resp, err := c.do(ctx, http.MethodGet, c.cfg.MePath, nil, token, nil)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.status < 200 || resp.status > 299 {
		return nil, &StatusError{Method: http.MethodGet, Path: c.cfg.MePath, Status: resp.status}
	}

	var env envelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return nil, fmt.Errorf("decode me: %w", err)
	}
	if present(env.Error) {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(env.Error))
	}
	if !present(env.Data) {
		return nil, errors.New("decode me: missing data")
	}

	var user domain.User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, fmt.Errorf("decode me: %w", err)
	}
	if user.ID == 0 {
		return nil, errors.New("decode me: user without id")
	}
	return &user, nil
}

// LoginResult is what the backend hands out on a successful login.
type LoginResult struct {
	Token string
	User  *domain.User
}

// Login forwards credentials to the backend's login endpoint.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.cfg.LoginPath, nil, "", payload)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusUnauthorized || resp.status == http.StatusBadRequest {
		return nil, ErrUnauthorized
	}
	if resp.status < 200 || resp.status > 299 {
		return nil, &StatusError{Method: http.MethodPost, Path: c.cfg.LoginPath, Status: resp.status}
	}

	var env envelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return nil, fmt.Errorf("decode login: %w", err)
	}
	if present(env.Error) {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(env.Error))
	}

	var data struct {
		Token string       `json:"token"`
		User  *domain.User `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode login: %w", err)
	}
	if data.Token == "" {
		return nil, errors.New("decode login: missing token")
	}
	return &LoginResult{Token: data.Token, User: data.User}, nil
}

// PendingNotifications lists the notifications the backend still holds for userID.
func (c *Client) PendingNotifications(ctx context.Context, token string, userID int64) ([]domain.Notification, error) {
	query := url.Values{"user": {strconv.FormatInt(userID, 10)}}
	resp, err := c.do(ctx, http.MethodGet, c.cfg.NotificationsPath, query, token, nil)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.status < 200 || resp.status > 299 {
		return nil, &StatusError{Method: http.MethodGet, Path: c.cfg.NotificationsPath, Status: resp.status}
	}

	records, err := decodeRecords(resp.body)
	if err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}

	notifications := make([]domain.Notification, 0, len(records))
	for _, rec := range records {
		n, ok := normalizeNotification(rec)
		if !ok {
			c.logger.Debug("dropping notification without id", zap.Int64("user_id", userID))
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// MarkRead acknowledges delivery of notification id. The response body is ignored.
func (c *Client) MarkRead(ctx context.Context, token string, id int64) error {
	path := strings.TrimRight(c.cfg.MarkReadPath, "/") + "/" + strconv.FormatInt(id, 10)
	resp, err := c.do(ctx, http.MethodPost, path, nil, token, nil)
	if err != nil {
		return err
	}
	if resp.status < 200 || resp.status > 299 {
		return &StatusError{Method: http.MethodPost, Path: path, Status: resp.status}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body []byte) (*response, error) {
	caller := ctx
	if timeout := c.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	call := func() (interface{}, error) {
		target := c.base + path
		if len(query) > 0 {
			target += "?" + query.Encode()
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		res, err := c.http.Do(req)
		if err != nil {
			return nil, abandoned(caller, err)
		}
		defer res.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
		if err != nil {
			return nil, abandoned(caller, err)
		}
		if res.StatusCode >= 500 {
			return nil, &StatusError{Method: method, Path: path, Status: res.StatusCode}
		}
		return &response{status: res.StatusCode, body: payload}, nil
	}

	if c.breaker == nil {
		out, err := call()
		if err != nil {
			return nil, err
		}
		return out.(*response), nil
	}

	out, err := c.breaker.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return out.(*response), nil
}

// abandoned reports err as a cancellation when the caller's own context
// ended, so the breaker does not hold it against the upstream. Deadlines set
// by the client timeout still count as failures.
func abandoned(caller context.Context, err error) error {
	if cause := caller.Err(); cause != nil {
		return fmt.Errorf("backend: request abandoned (%v): %w", cause, context.Canceled)
	}
	return err
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) && !bytes.Equal(trimmed, []byte(`""`))
}

func errorMessage(raw json.RawMessage) string {
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
