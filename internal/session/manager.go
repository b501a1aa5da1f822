package session

import (
	"time"

	"github.com/google/uuid"
)

// Manager hands out credential caches keyed by session id.
type Manager struct {
	kv     KV
	signer *CookieSigner
	ttl    time.Duration
}

// NewManager builds a manager storing entries in kv for ttl.
func NewManager(kv KV, secret string, ttl time.Duration) *Manager {
	return &Manager{kv: kv, signer: NewCookieSigner(secret, ttl), ttl: ttl}
}

// Start opens a fresh session and returns it with its signed cookie value.
func (m *Manager) Start() (*Credentials, string, time.Time, error) {
	creds := m.Credentials(uuid.NewString())
	value, expiresAt, err := m.signer.Sign(creds.id)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return creds, value, expiresAt, nil
}

// Open resolves a cookie value to its session's credentials.
func (m *Manager) Open(cookie string) (*Credentials, error) {
	id, err := m.signer.Parse(cookie)
	if err != nil {
		return nil, err
	}
	return m.Credentials(id), nil
}

// Credentials returns the cache for session id without validating anything.
func (m *Manager) Credentials(id string) *Credentials {
	return &Credentials{id: id, kv: m.kv, ttl: m.ttl}
}
