package guard

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/portfolio-portal/internal/backend"
	"github.com/spec-kit/portfolio-portal/internal/domain"
	"github.com/spec-kit/portfolio-portal/internal/observability"
)

// Store is the credential cache the guard reads and maintains.
type Store interface {
	Token(ctx context.Context) (string, error)
	SaveUser(ctx context.Context, user *domain.User) error
	Clear(ctx context.Context) error
}

// Verifier resolves a bearer token to the current user.
type Verifier interface {
	Me(ctx context.Context, token string) (*domain.User, error)
}

// Outcome is the settled result of one evaluation.
type Outcome struct {
	State    State
	Redirect string
	User     *domain.User
}

// Guard decides whether a viewer may enter an area.
type Guard struct {
	verifier Verifier
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// New builds a guard. metrics may be nil.
func New(verifier Verifier, logger *zap.Logger, metrics *observability.Metrics) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{verifier: verifier, logger: logger, metrics: metrics}
}

// Evaluate runs the full check for path inside area. The user is always
// re-fetched; a cached snapshot never authorizes on its own. Every failure,
// including a panic in a collaborator, settles into a denial.
func (g *Guard) Evaluate(ctx context.Context, area domain.Area, path string, store Store) (out Outcome) {
	log := g.logger.With(zap.String("area", area.Name), zap.String("path", path))

	defer func() {
		if r := recover(); r != nil {
			log.Error("guard evaluation panicked", zap.Any("panic", r))
			out = g.settle(ctx, log, area, StateDeniedUnauthorized, nil, store)
		}
	}()

	state := StateUnverified
	token, err := store.Token(ctx)
	if err != nil {
		log.Warn("credential store unreadable", zap.Error(err))
		token = ""
	}
	state = Transition(area, state, Event{Kind: EventMount, HasToken: token != ""})

	var user *domain.User
	if state == StateChecking {
		user, err = g.verifier.Me(ctx, token)
		if err != nil {
			if errors.Is(err, backend.ErrUnauthorized) {
				log.Info("credential rejected by backend", zap.Error(err))
			} else {
				log.Warn("credential verification failed", zap.Error(err))
			}
			state = Transition(area, state, Event{Kind: EventRejected})
		} else {
			state = Transition(area, state, Event{Kind: EventVerified, User: user, Path: path})
		}
	}

	return g.settle(ctx, log, area, state, user, store)
}

func (g *Guard) settle(ctx context.Context, log *zap.Logger, area domain.Area, state State, user *domain.User, store Store) Outcome {
	g.metrics.RecordGuardOutcome(area.Name, state.String())

	if state.Denied() {
		if state == StateDeniedWrongRole {
			log.Info("role mismatch", zap.Int64("user_id", user.ID), zap.Stringer("role", user.TypeID))
		}
		if err := store.Clear(ctx); err != nil {
			log.Error("failed to clear credentials", zap.Error(err))
		}
		return Outcome{State: state, Redirect: RedirectFor(area, state)}
	}

	if err := store.SaveUser(ctx, user); err != nil {
		log.Warn("failed to refresh user snapshot", zap.Error(err))
	}
	return Outcome{State: state, Redirect: RedirectFor(area, state), User: user}
}

type anonymous struct{}

func (anonymous) Token(context.Context) (string, error)        { return "", nil }
func (anonymous) SaveUser(context.Context, *domain.User) error { return nil }
func (anonymous) Clear(context.Context) error                  { return nil }

// Anonymous is a Store for viewers without any session.
var Anonymous Store = anonymous{}
