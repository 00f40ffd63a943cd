package cache

import (
	"context"
	"testing"
	"time"

	"kaikari/backend/internal/domain"
)

func TestNoopDashboardCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c DashboardCache = NoopDashboardCache{}

	if err := c.Set(ctx, "dashboard:usr_1:2026-10-14", &domain.Dashboard{TotalBillsToday: 3}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, "dashboard:usr_1:2026-10-14")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || got != nil {
		t.Fatalf("expected miss, got %+v", got)
	}
	if err := c.Delete(ctx, "dashboard:usr_1:2026-10-14"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
