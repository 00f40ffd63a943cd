package service

import (
	"context"
	"fmt"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/store"
)

const (
	defaultTopSelling = 5
	maxTopSelling     = 50
)

type usage struct {
	tx store.Tx
}

func (u usage) recordSale(ctx context.Context, userID string, itemID string) (int64, error) {
	return u.tx.IncrementUsage(ctx, userID, itemID)
}

// TopSelling ranks the caller's items by how many bill lines referenced them.
func (s *Service) TopSelling(ctx context.Context, limit int) ([]domain.TopItem, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTopSelling
	}
	if limit > maxTopSelling {
		limit = maxTopSelling
	}

	items, err := s.repo.TopUsage(ctx, actor.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: top usage: %w", store.ErrStorage, err)
	}
	return items, nil
}
