package service

import (
	"context"
	"errors"
	"time"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/store"
)

// ledger owns per-user stock and pricing rows.
type ledger struct {
	tx  store.Tx
	now time.Time
}

func (l ledger) upsert(ctx context.Context, rec domain.InventoryRecord) error {
	rec.UpdatedAt = l.now
	return l.tx.UpsertInventory(ctx, rec)
}

// decrement subtracts qty under the row lock whether or not stock suffices.
// A missing row is first inserted at zero with the catalogue prices; if a
// concurrent sale inserted it first, that row is locked and decremented
// instead. It returns the resulting stock.
func (l ledger) decrement(ctx context.Context, userID string, item *domain.CatalogueItem, qty float64) (float64, error) {
	rec, err := l.tx.LockInventory(ctx, userID, item.ID)
	if errors.Is(err, store.ErrNotFound) {
		if _, err := l.tx.InsertInventoryIfMissing(ctx, domain.InventoryRecord{
			UserID:              userID,
			ItemID:              item.ID,
			PriceCents:          item.PriceCents,
			WholesalePriceCents: item.WholesalePriceCents,
			RetailPriceCents:    item.RetailPriceCents,
			UpdatedAt:           l.now,
		}); err != nil {
			return 0, err
		}
		rec, err = l.tx.LockInventory(ctx, userID, item.ID)
	}
	if err != nil {
		return 0, err
	}

	next := rec.StockQty - qty
	if err := l.tx.SetStock(ctx, userID, item.ID, next); err != nil {
		return 0, err
	}
	return next, nil
}

// publishSchedule sets wholesale and retail prices plus the activation window
// on an existing row. Stock is left alone.
func (l ledger) publishSchedule(ctx context.Context, userID string, itemID string, wholesale int64, retail int64, start *time.Time, expiry *time.Time) error {
	rec, err := l.tx.LockInventory(ctx, userID, itemID)
	if err != nil {
		return err
	}
	rec.WholesalePriceCents = wholesale
	rec.RetailPriceCents = retail
	rec.PriceCents = retail
	rec.StartTime = start
	rec.ExpiryDate = expiry
	return l.upsert(ctx, *rec)
}
