package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/store"
	"kaikari/backend/internal/xid"
)

// catalogue resolves line and sync references to canonical items inside a
// transaction. Items it creates are visible to later reads on the same tx.
type catalogue struct {
	tx  store.Tx
	now time.Time
}

// resolve looks an item up by id, or by name when the id is empty. A miss is
// reported as ok=false, not as an error.
func (c catalogue) resolve(ctx context.Context, itemID string, name string) (*domain.CatalogueItem, bool, error) {
	itemID = strings.TrimSpace(itemID)
	name = strings.TrimSpace(name)

	var item *domain.CatalogueItem
	var err error
	switch {
	case itemID != "":
		item, err = c.tx.FindItemByID(ctx, itemID)
	case name != "":
		item, err = c.tx.FindItemByName(ctx, name)
	default:
		return nil, false, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// resolveOrCreate matches by name. An existing item gets its display metadata
// overwritten and keeps its prices; a new one starts from the synced price.
// Losing a race to create the same name falls back to the update path.
func (c catalogue) resolveOrCreate(ctx context.Context, sync domain.BulkSyncItem) (*domain.CatalogueItem, bool, error) {
	name := strings.TrimSpace(sync.Name)
	meta := domain.ItemMetadata{
		LocalizedName: strings.TrimSpace(sync.LocalizedName),
		Category:      strings.TrimSpace(sync.Category),
		ImageURL:      strings.TrimSpace(sync.ImageURL),
		UpdatedAt:     c.now,
	}

	existing, err := c.tx.FindItemByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		item := domain.CatalogueItem{
			ID:                  xid.New("veg"),
			Name:                name,
			LocalizedName:       meta.LocalizedName,
			Category:            meta.Category,
			ImageURL:            meta.ImageURL,
			PriceCents:          sync.PriceCents,
			RetailPriceCents:    sync.PriceCents,
			WholesalePriceCents: defaultWholesale(sync.PriceCents),
			CreatedAt:           c.now,
			UpdatedAt:           c.now,
		}
		created, createErr := c.tx.CreateItemIfMissing(ctx, item)
		if createErr != nil {
			return nil, false, createErr
		}
		if created {
			return &item, true, nil
		}
		existing, err = c.tx.FindItemByName(ctx, name)
	}
	if err != nil {
		return nil, false, err
	}

	if err := c.tx.UpdateItemMetadata(ctx, existing.ID, meta); err != nil {
		return nil, false, err
	}
	existing.LocalizedName = meta.LocalizedName
	existing.Category = meta.Category
	existing.ImageURL = meta.ImageURL
	existing.UpdatedAt = c.now
	return existing, false, nil
}

func defaultWholesale(retailCents int64) int64 {
	return int64(math.Round(float64(retailCents) * 0.8))
}
