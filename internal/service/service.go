package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/receipt"
	"kaikari/backend/internal/report"
	"kaikari/backend/internal/store"
)

// ErrForbidden is returned when the actor is missing or lacks the role an
// operation needs.
var ErrForbidden = errors.New("forbidden")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	reports  *report.Projector
	renderer receipt.Renderer
	logger   *zap.Logger
	now      func() time.Time
}

func New(repo store.Repository, reports *report.Projector, renderer receipt.Renderer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reports == nil {
		reports = report.NewProjector(repo, nil, 0, time.UTC, logger)
	}
	if renderer == nil {
		renderer = receipt.NewEscpos()
	}

	return &Service{
		repo:     repo,
		reports:  reports,
		renderer: renderer,
		logger:   logger.Named("service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == "" {
		return domain.Actor{}, fmt.Errorf("%w: authentication required", ErrForbidden)
	}
	return actor, nil
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleAdmin {
		return domain.Actor{}, fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return actor, nil
}

// storageFailure passes domain sentinels through and wraps everything else
// as an opaque storage failure.
func storageFailure(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrStorage),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrInvalidRequest),
		errors.Is(err, store.ErrDuplicateName),
		errors.Is(err, ErrForbidden):
		return err
	default:
		return fmt.Errorf("%w: %s: %w", store.ErrStorage, op, err)
	}
}

func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	user, err := s.repo.FindUserByID(ctx, actor.UserID)
	if err != nil {
		return domain.Dashboard{}, storageFailure("find user", err)
	}
	return s.reports.Dashboard(ctx, user.ID, user.ShopName, s.now())
}
