package report

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/store"
	"kaikari/backend/internal/store/memory"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.Dashboard
	getErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]domain.Dashboard)}
}

func (c *mapCache) Get(_ context.Context, key string) (*domain.Dashboard, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	dash, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &dash, true, nil
}

func (c *mapCache) Set(_ context.Context, key string, value *domain.Dashboard, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func seedBill(t *testing.T, repo store.Repository, id string, userID string, billingType domain.BillingType, total int64, at time.Time, names ...string) {
	t.Helper()
	lines := make([]domain.BillLine, 0, len(names))
	for _, name := range names {
		lines = append(lines, domain.BillLine{
			ItemID:       "veg_" + name,
			LineSnapshot: domain.LineSnapshot{Name: name, UnitPriceCents: 100},
			Quantity:     1,
		})
	}
	err := repo.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertBill(context.Background(), domain.Bill{
			ID:          id,
			BillNumber:  "BILL-" + id,
			UserID:      userID,
			TotalCents:  total,
			BillingType: billingType,
			CreatedAt:   at,
			UpdatedAt:   at,
			Lines:       lines,
		})
	})
	if err != nil {
		t.Fatalf("seed bill %s: %v", id, err)
	}
}

func TestDashboardPartitionsTodayByBillingType(t *testing.T) {
	repo := memory.New()
	today := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

	seedBill(t, repo, "b1", "usr_a", domain.BillingRetail, 6400, today, "Tomato", "Onion")
	seedBill(t, repo, "b2", "usr_a", domain.BillingWholesale, 10000, today.Add(time.Hour), "Onion", "Carrot")
	seedBill(t, repo, "b3", "usr_a", domain.BillingRetail, 500, today.Add(2*time.Hour), "Onion", "Brinjal", "Tomato")
	seedBill(t, repo, "b4", "usr_a", domain.BillingRetail, 9999, today.AddDate(0, 0, -1), "Carrot")
	seedBill(t, repo, "b5", "usr_b", domain.BillingRetail, 7777, today, "Carrot")

	p := NewProjector(repo, nil, time.Minute, time.UTC, zaptest.NewLogger(t))
	dash, err := p.Dashboard(context.Background(), "usr_a", "Shop A", today)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	if dash.TodayRetailTotalCents != 6900 {
		t.Fatalf("expected retail 6900, got %d", dash.TodayRetailTotalCents)
	}
	if dash.TodayWholesaleTotalCents != 10000 {
		t.Fatalf("expected wholesale 10000, got %d", dash.TodayWholesaleTotalCents)
	}
	if dash.TotalBillsToday != 3 {
		t.Fatalf("expected 3 bills today, got %d", dash.TotalBillsToday)
	}
	want := []string{"Onion", "Tomato", "Carrot"}
	if !reflect.DeepEqual(dash.TopSellingItemNames, want) {
		t.Fatalf("expected top names %v, got %v", want, dash.TopSellingItemNames)
	}
	if dash.ShopName != "Shop A" || dash.Date != "2026-10-14" {
		t.Fatalf("unexpected header %+v", dash)
	}
}

func TestDashboardUsesShopTimezoneForDateEquality(t *testing.T) {
	repo := memory.New()
	kolkata := time.FixedZone("IST", 5*3600+1800)

	// 20:00 UTC on the 13th is already the 14th in IST.
	seedBill(t, repo, "b1", "usr_a", domain.BillingRetail, 1200, time.Date(2026, 10, 13, 20, 0, 0, 0, time.UTC), "Tomato")

	p := NewProjector(repo, nil, time.Minute, kolkata, nil)
	dash, err := p.Dashboard(context.Background(), "usr_a", "", time.Date(2026, 10, 14, 9, 0, 0, 0, kolkata))
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.TotalBillsToday != 1 || dash.TodayRetailTotalCents != 1200 {
		t.Fatalf("expected the late UTC bill to count for IST today, got %+v", dash)
	}
}

func TestDashboardEmptyDayReturnsEmptyNames(t *testing.T) {
	p := NewProjector(memory.New(), nil, time.Minute, time.UTC, nil)
	dash, err := p.Dashboard(context.Background(), "usr_none", "", time.Now())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.TotalBillsToday != 0 || dash.TopSellingItemNames == nil || len(dash.TopSellingItemNames) != 0 {
		t.Fatalf("expected empty dashboard, got %+v", dash)
	}
}

func TestDashboardCacheServesUntilInvalidated(t *testing.T) {
	repo := memory.New()
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	c := newMapCache()
	p := NewProjector(repo, c, time.Minute, time.UTC, nil)

	seedBill(t, repo, "b1", "usr_a", domain.BillingRetail, 100, now, "Tomato")
	first, err := p.Dashboard(context.Background(), "usr_a", "", now)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	seedBill(t, repo, "b2", "usr_a", domain.BillingRetail, 200, now, "Tomato")
	cached, err := p.Dashboard(context.Background(), "usr_a", "", now)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if cached.TotalBillsToday != first.TotalBillsToday {
		t.Fatalf("expected cached dashboard, got %+v", cached)
	}

	p.Invalidate(context.Background(), "usr_a", now)
	fresh, err := p.Dashboard(context.Background(), "usr_a", "", now)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if fresh.TotalBillsToday != 2 || fresh.TodayRetailTotalCents != 300 {
		t.Fatalf("expected recomputed dashboard, got %+v", fresh)
	}
}

func TestDashboardIgnoresCacheFailures(t *testing.T) {
	repo := memory.New()
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	seedBill(t, repo, "b1", "usr_a", domain.BillingWholesale, 4200, now, "Onion")

	c := newMapCache()
	c.getErr = errors.New("redis down")
	p := NewProjector(repo, c, time.Minute, time.UTC, zaptest.NewLogger(t))

	dash, err := p.Dashboard(context.Background(), "usr_a", "", now)
	if err != nil {
		t.Fatalf("expected cache failure to be ignored, got %v", err)
	}
	if dash.TodayWholesaleTotalCents != 4200 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	repo := memory.New()
	base := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	seedBill(t, repo, "old", "usr_a", domain.BillingRetail, 1, base, "Tomato")
	seedBill(t, repo, "new", "usr_a", domain.BillingRetail, 2, base.Add(time.Minute), "Tomato")
	seedBill(t, repo, "other", "usr_b", domain.BillingRetail, 3, base.Add(2*time.Minute), "Tomato")

	p := NewProjector(repo, nil, 0, nil, nil)
	bills, err := p.History(context.Background(), "usr_a")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(bills) != 2 || bills[0].ID != "new" || bills[1].ID != "old" {
		t.Fatalf("unexpected history order %+v", bills)
	}
}
