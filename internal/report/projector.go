package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kaikari/backend/internal/cache"
	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/store"
)

const topItemNames = 3

// Projector derives read-only views from committed bills. Dashboards are
// cached per user and day; a cache failure only costs a recompute.
type Projector struct {
	repo     store.Repository
	cache    cache.DashboardCache
	cacheTTL time.Duration
	loc      *time.Location
	logger   *zap.Logger
}

func NewProjector(repo store.Repository, cacheStore cache.DashboardCache, cacheTTL time.Duration, loc *time.Location, logger *zap.Logger) *Projector {
	if cacheStore == nil {
		cacheStore = cache.NoopDashboardCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Projector{
		repo:     repo,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		loc:      loc,
		logger:   logger,
	}
}

func (p *Projector) Location() *time.Location {
	return p.loc
}

// Day returns the calendar date of at in the shop timezone.
func (p *Projector) Day(at time.Time) string {
	return at.In(p.loc).Format("2006-01-02")
}

func cacheKey(userID string, day string) string {
	return fmt.Sprintf("dashboard:%s:%s", userID, day)
}

func (p *Projector) Dashboard(ctx context.Context, userID string, shopName string, at time.Time) (domain.Dashboard, error) {
	day := p.Day(at)
	key := cacheKey(userID, day)

	cached, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("dashboard cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok && cached != nil {
		return *cached, nil
	}

	summary, err := p.repo.DailySummary(ctx, userID, day, p.loc, topItemNames)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("%w: daily summary: %w", store.ErrStorage, err)
	}

	names := summary.TopItemNames
	if names == nil {
		names = []string{}
	}
	dash := domain.Dashboard{
		ShopName:                 shopName,
		Date:                     day,
		TodayRetailTotalCents:    summary.RetailTotalCents,
		TodayWholesaleTotalCents: summary.WholesaleTotalCents,
		TotalBillsToday:          summary.Bills,
		TopSellingItemNames:      names,
	}

	if err := p.cache.Set(ctx, key, &dash, p.cacheTTL); err != nil {
		p.logger.Warn("dashboard cache set failed", zap.String("key", key), zap.Error(err))
	}
	return dash, nil
}

// Invalidate drops the cached dashboard of the day containing at.
func (p *Projector) Invalidate(ctx context.Context, userID string, at time.Time) {
	key := cacheKey(userID, p.Day(at))
	if err := p.cache.Delete(ctx, key); err != nil {
		p.logger.Warn("dashboard cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (p *Projector) History(ctx context.Context, userID string) ([]domain.Bill, error) {
	bills, err := p.repo.ListBills(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list bills: %w", store.ErrStorage, err)
	}
	return bills, nil
}
