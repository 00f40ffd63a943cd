package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/store"
)

// lateRowTx reports the first lookup as a miss, the way a transaction sees
// the world just before a concurrent one commits the same row.
type lateRowTx struct {
	store.Tx
	inventoryMisses int
	nameMisses      int
}

func (t *lateRowTx) LockInventory(ctx context.Context, userID string, itemID string) (*domain.InventoryRecord, error) {
	if t.inventoryMisses > 0 {
		t.inventoryMisses--
		return nil, store.ErrNotFound
	}
	return t.Tx.LockInventory(ctx, userID, itemID)
}

func (t *lateRowTx) FindItemByName(ctx context.Context, name string) (*domain.CatalogueItem, error) {
	if t.nameMisses > 0 {
		t.nameMisses--
		return nil, store.ErrNotFound
	}
	return t.Tx.FindItemByName(ctx, name)
}

func TestDecrementDoesNotOverwriteRowInsertedConcurrently(t *testing.T) {
	_, repo := newTestService(t)
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	var stock float64
	err := repo.WithinTx(context.Background(), func(tx store.Tx) error {
		item, err := tx.FindItemByID(context.Background(), "veg_onion")
		if err != nil {
			return err
		}
		inv := ledger{tx: &lateRowTx{Tx: tx, inventoryMisses: 1}, now: now}
		stock, err = inv.decrement(context.Background(), "usr_admin", item, 5)
		return err
	})
	if err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if stock != 95 {
		t.Fatalf("expected the existing 100 kg row to be decremented to 95, got %v", stock)
	}
	if got, _ := stockOf(t, repo, "usr_admin", "veg_onion"); got != 95 {
		t.Fatalf("expected stored stock 95, got %v", got)
	}
}

func TestResolveOrCreateFallsBackWhenNameWasTakenConcurrently(t *testing.T) {
	_, repo := newTestService(t)
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	var item *domain.CatalogueItem
	var created bool
	err := repo.WithinTx(context.Background(), func(tx store.Tx) error {
		var err error
		cat := catalogue{tx: &lateRowTx{Tx: tx, nameMisses: 1}, now: now}
		item, created, err = cat.resolveOrCreate(context.Background(), domain.BulkSyncItem{
			Name:          "Tomato",
			LocalizedName: "Thakkali",
			Category:      "Fruit Veg",
			PriceCents:    9999,
		})
		return err
	})
	if err != nil {
		t.Fatalf("resolve or create failed: %v", err)
	}
	if created || item.ID != "veg_tomato" {
		t.Fatalf("expected the existing tomato, got created=%v id=%s", created, item.ID)
	}
	if item.LocalizedName != "Thakkali" || item.PriceCents != 3200 {
		t.Fatalf("expected metadata overwrite with prices kept, got %+v", item)
	}
}

func TestCatalogueWritesUseServiceClock(t *testing.T) {
	svc, repo := newTestService(t)
	at := time.Date(2026, 10, 14, 6, 15, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }
	ctx := WithActor(context.Background(), adminActor)

	if _, err := svc.BulkSync(ctx, domain.BulkSyncRequest{Items: []domain.BulkSyncItem{{Name: "Onion", Category: "Bulbs", PriceCents: 4500}}}); err != nil {
		t.Fatalf("bulk sync failed: %v", err)
	}
	if _, err := svc.BulkPriceUpdate(ctx, []domain.MasterPriceUpdate{{ItemID: "veg_carrot", WholesaleCents: 4000, RetailCents: 5000}}); err != nil {
		t.Fatalf("bulk price update failed: %v", err)
	}

	err := repo.WithinTx(context.Background(), func(tx store.Tx) error {
		for _, id := range []string{"veg_onion", "veg_carrot"} {
			item, err := tx.FindItemByID(context.Background(), id)
			if err != nil {
				return err
			}
			if !item.UpdatedAt.Equal(at) {
				return errors.New(id + " updated_at " + item.UpdatedAt.String())
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected timestamps: %v", err)
	}
}

func TestUpdateBillZeroSumLinesDropsOldTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := WithActor(context.Background(), adminActor)

	created, err := svc.CreateBill(ctx, domain.BillCreateRequest{Lines: []domain.LineRequest{line("Tomato", 2, 3200)}})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}

	updated, err := svc.UpdateBill(ctx, created.ID, domain.BillUpdateRequest{
		Lines: []domain.LineRequest{{Name: "Onion", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("update bill failed: %v", err)
	}
	if updated.SubtotalCents != 0 || updated.TotalCents != 0 {
		t.Fatalf("expected old 6400 totals to be dropped, got subtotal %d total %d", updated.SubtotalCents, updated.TotalCents)
	}

	subtotal := int64(1200)
	updated, err = svc.UpdateBill(ctx, created.ID, domain.BillUpdateRequest{
		SubtotalCents: &subtotal,
		Lines:         []domain.LineRequest{{Name: "Onion", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("update bill failed: %v", err)
	}
	if updated.SubtotalCents != 1200 || updated.TotalCents != 1200 {
		t.Fatalf("expected supplied subtotal to carry the total, got subtotal %d total %d", updated.SubtotalCents, updated.TotalCents)
	}
}
