package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spec-kit/portfolio-portal/internal/domain"
)

const (
	tokenEntry = "token"
	userEntry  = "user"
)

// Credentials is one viewer's credential cache: a bearer token and the last
// fetched user snapshot. Both entries are always cleared together.
type Credentials struct {
	id  string
	kv  KV
	ttl time.Duration
}

// ID returns the session id the entries are keyed under.
func (c *Credentials) ID() string {
	return c.id
}

func (c *Credentials) key(entry string) string {
	return "session:" + c.id + ":" + entry
}

// Token returns the stored bearer token, or "" when none is stored.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	token, _, err := c.kv.Get(ctx, c.key(tokenEntry))
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// User returns the cached snapshot, or nil when none is stored.
func (c *Credentials) User(ctx context.Context) (*domain.User, error) {
	raw, ok, err := c.kv.Get(ctx, c.key(userEntry))
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode user snapshot: %w", err)
	}
	return &user, nil
}

func (c *Credentials) SaveToken(ctx context.Context, token string) error {
	return c.kv.Set(ctx, c.key(tokenEntry), token, c.ttl)
}

func (c *Credentials) SaveUser(ctx context.Context, user *domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user snapshot: %w", err)
	}
	return c.kv.Set(ctx, c.key(userEntry), string(raw), c.ttl)
}

// Clear deletes both the token and the user snapshot.
func (c *Credentials) Clear(ctx context.Context) error {
	return c.kv.Del(ctx, c.key(tokenEntry), c.key(userEntry))
}
