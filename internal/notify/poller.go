package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/portfolio-portal/internal/domain"
	"github.com/spec-kit/portfolio-portal/internal/observability"
)

// DefaultInterval is the poll period when none is configured.
const DefaultInterval = 5 * time.Second

// Source is the backend side of the poller.
type Source interface {
	PendingNotifications(ctx context.Context, token string, userID int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, token string, id int64) error
}

// Viewer exposes the locally cached credential of the polled session.
type Viewer interface {
	Token(ctx context.Context) (string, error)
	User(ctx context.Context) (*domain.User, error)
}

// Sink receives alerts to show.
type Sink interface {
	Push(alert domain.Alert)
}

// Options tune a Poller. Zero values select defaults.
type Options struct {
	Interval time.Duration
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// Poller surfaces each pending notification once and acknowledges it.
type Poller struct {
	source   Source
	viewer   Viewer
	ledger   Ledger
	sink     Sink
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time

	acks sync.WaitGroup
}

// NewPoller wires a poller; it does nothing until Run.
func NewPoller(source Source, viewer Viewer, ledger Ledger, sink Sink, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Poller{
		source:   source,
		viewer:   viewer,
		ledger:   ledger,
		sink:     sink,
		interval: opts.Interval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      time.Now,
	}
}

// Run ticks every interval until ctx is cancelled. It returns only after the
// acknowledgements already in flight have finished; none start afterwards.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.acks.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick performs one fetch-and-deliver cycle. Failures are logged and swallowed.
func (p *Poller) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("poller tick panicked", zap.Any("panic", r))
			p.metrics.RecordTick("failed")
		}
	}()

	user, err := p.viewer.User(ctx)
	if err != nil {
		p.logger.Warn("poller could not read cached user", zap.Error(err))
		p.metrics.RecordTick("failed")
		return
	}
	if user == nil || user.ID == 0 {
		p.metrics.RecordTick("skipped")
		return
	}
	token, err := p.viewer.Token(ctx)
	if err != nil {
		p.logger.Warn("poller could not read token", zap.Error(err))
		p.metrics.RecordTick("failed")
		return
	}

	notifications, err := p.source.PendingNotifications(ctx, token, user.ID)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("fetch notifications failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		p.metrics.RecordTick("failed")
		return
	}

	for _, n := range notifications {
		if ctx.Err() != nil {
			return
		}
		now := p.now()
		first, err := p.ledger.Deliver(ctx, n.ID, now)
		if err != nil {
			p.logger.Warn("delivery ledger failed", zap.Int64("notification_id", n.ID), zap.Error(err))
			continue
		}
		if !first {
			continue
		}
		p.sink.Push(domain.NewAlert(n, now))
		p.metrics.RecordAlert()
		p.acknowledge(ctx, token, n.ID)
	}
	p.metrics.RecordTick("ok")
}

// acknowledge sends mark-read without waiting for it and without retrying.
func (p *Poller) acknowledge(ctx context.Context, token string, id int64) {
	if ctx.Err() != nil {
		return
	}
	p.acks.Add(1)
	go func() {
		defer p.acks.Done()
		if ctx.Err() != nil {
			return
		}
		err := p.source.MarkRead(ctx, token, id)
		p.metrics.RecordAck(err == nil)
		if err != nil && ctx.Err() == nil {
			p.logger.Debug("mark read failed", zap.Int64("notification_id", id), zap.Error(err))
		}
	}()
}
