package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/portfolio-portal/internal/observability"
)

// SessionViewer is a Viewer that knows its session id.
type SessionViewer interface {
	Viewer
	ID() string
}

// LedgerFactory returns the ledger for a newly started poller of userID.
type LedgerFactory func(userID int64) Ledger

// MemoryLedgers gives every poller a fresh in-memory ledger.
func MemoryLedgers(int64) Ledger {
	return NewMemoryLedger()
}

// RegistryOptions tune a Registry.
type RegistryOptions struct {
	Interval    time.Duration
	IdleTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// Registry runs at most one poller per session.
type Registry struct {
	mu      sync.Mutex
	pollers map[string]*running

	source  Source
	ledgers LedgerFactory
	opts    RegistryOptions
	now     func() time.Time
}

type running struct {
	cancel   context.CancelFunc
	done     chan struct{}
	board    *AlertBoard
	lastSeen time.Time
}

// NewRegistry builds an empty registry.
func NewRegistry(source Source, ledgers LedgerFactory, opts RegistryOptions) *Registry {
	if ledgers == nil {
		ledgers = MemoryLedgers
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Registry{
		pollers: make(map[string]*running),
		source:  source,
		ledgers: ledgers,
		opts:    opts,
		now:     time.Now,
	}
}

// Ensure starts the session's poller unless it is already running and marks
// the session as active. It returns the session's alert board, or nil when
// the session no longer holds a token, as happens when a request finishes
// after its session was logged out.
func (r *Registry) Ensure(ctx context.Context, viewer SessionViewer, userID int64) *AlertBoard {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := viewer.ID()
	if p, ok := r.pollers[id]; ok {
		p.lastSeen = r.now()
		return p.board
	}

	if token, err := viewer.Token(ctx); err != nil || token == "" {
		r.opts.Logger.Debug("not starting poller for signed-out session", zap.String("session_id", id), zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &running{
		cancel:   cancel,
		done:     make(chan struct{}),
		board:    NewAlertBoard(),
		lastSeen: r.now(),
	}
	poller := NewPoller(r.source, viewer, r.ledgers(userID), p.board, Options{
		Interval: r.opts.Interval,
		Logger:   r.opts.Logger.With(zap.String("session_id", id), zap.Int64("user_id", userID)),
		Metrics:  r.opts.Metrics,
	})
	go func() {
		defer close(p.done)
		poller.Run(ctx)
	}()

	r.pollers[id] = p
	r.opts.Logger.Debug("poller started", zap.String("session_id", id))
	return p.board
}

// Board returns the alert board of a running poller.
func (r *Registry) Board(sessionID string) (*AlertBoard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pollers[sessionID]
	if !ok {
		return nil, false
	}
	return p.board, true
}

// Running reports how many pollers are active.
func (r *Registry) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pollers)
}

// Stop tears down the session's poller and waits until it has fully exited.
func (r *Registry) Stop(sessionID string) {
	r.mu.Lock()
	p, ok := r.pollers[sessionID]
	delete(r.pollers, sessionID)
	r.mu.Unlock()

	if !ok {
		return
	}
	p.cancel()
	<-p.done
	r.opts.Logger.Debug("poller stopped", zap.String("session_id", sessionID))
}

// ReapIdle stops pollers whose session has not been seen for the idle timeout.
func (r *Registry) ReapIdle() int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.opts.IdleTimeout)

	r.mu.Lock()
	idle := make(map[string]*running)
	for id, p := range r.pollers {
		if p.lastSeen.Before(cutoff) {
			idle[id] = p
			delete(r.pollers, id)
		}
	}
	r.mu.Unlock()

	for id, p := range idle {
		p.cancel()
		<-p.done
		r.opts.Logger.Debug("idle poller stopped", zap.String("session_id", id))
	}
	return len(idle)
}

// RunJanitor reaps idle pollers until ctx is cancelled.
func (r *Registry) RunJanitor(ctx context.Context) {
	if r.opts.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(r.opts.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.ReapIdle(); n > 0 {
				r.opts.Logger.Info("reaped idle pollers", zap.Int("count", n))
			}
		}
	}
}

// Shutdown stops every poller.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.pollers))
	for id := range r.pollers {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Stop(id)
	}
}
