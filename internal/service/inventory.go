package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/store"
	"kaikari/backend/internal/xid"
)

const defaultSyncStock = 100

func validStock(qty float64) bool {
	return !math.IsNaN(qty) && !math.IsInf(qty, 0)
}

// parseSchedule accepts RFC3339 for the start time and either YYYY-MM-DD or
// RFC3339 for the expiry date. Empty means unset.
func parseSchedule(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid time %q", store.ErrInvalidRequest, raw)
}

// SetupInventory upserts rows for known catalogue ids and skips unknown ones.
func (s *Service) SetupInventory(ctx context.Context, req domain.InventorySetupRequest) (domain.SyncResult, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if len(req.Items) == 0 {
		return domain.SyncResult{}, fmt.Errorf("%w: items required", store.ErrInvalidRequest)
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.ItemID) == "" || item.PriceCents < 0 || !validStock(item.StockQty) {
			return domain.SyncResult{}, fmt.Errorf("%w: invalid setup item", store.ErrInvalidRequest)
		}
	}

	now := s.now()
	var result domain.SyncResult
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		result = domain.SyncResult{}
		cat := catalogue{tx: tx, now: now}
		inv := ledger{tx: tx, now: now}

		for _, item := range req.Items {
			veg, ok, err := cat.resolve(ctx, item.ItemID, "")
			if err != nil {
				return err
			}
			if !ok {
				result.Skipped++
				continue
			}

			rec := domain.InventoryRecord{
				UserID:              actor.UserID,
				ItemID:              veg.ID,
				RetailPriceCents:    veg.RetailPriceCents,
				WholesalePriceCents: veg.WholesalePriceCents,
			}
			existing, err := tx.LockInventory(ctx, actor.UserID, veg.ID)
			switch {
			case err == nil:
				rec = *existing
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
			rec.PriceCents = item.PriceCents
			rec.StockQty = item.StockQty
			if err := inv.upsert(ctx, rec); err != nil {
				return err
			}
			result.Processed++
		}
		return nil
	})
	if err != nil {
		return domain.SyncResult{}, storageFailure("setup inventory", err)
	}

	s.logger.Info("inventory setup", zap.String("user_id", actor.UserID), zap.Int("processed", result.Processed), zap.Int("skipped", result.Skipped))
	return result, nil
}

// BulkSync creates catalogue items on first sight and links them to the
// caller's inventory in one transaction.
func (s *Service) BulkSync(ctx context.Context, req domain.BulkSyncRequest) (domain.SyncResult, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if len(req.Items) == 0 {
		return domain.SyncResult{}, fmt.Errorf("%w: items required", store.ErrInvalidRequest)
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" || item.PriceCents < 0 {
			return domain.SyncResult{}, fmt.Errorf("%w: sync item needs a name and a non-negative price", store.ErrInvalidRequest)
		}
		if item.StockQty != nil && !validStock(*item.StockQty) {
			return domain.SyncResult{}, fmt.Errorf("%w: invalid stock for %s", store.ErrInvalidRequest, item.Name)
		}
	}

	now := s.now()
	var result domain.SyncResult
	var created int
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		result = domain.SyncResult{}
		created = 0
		cat := catalogue{tx: tx, now: now}
		inv := ledger{tx: tx, now: now}

		for _, item := range req.Items {
			veg, isNew, err := cat.resolveOrCreate(ctx, item)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", item.Name, err)
			}
			if isNew {
				created++
			}

			stock := float64(defaultSyncStock)
			if item.StockQty != nil {
				stock = *item.StockQty
			}
			rec := domain.InventoryRecord{
				UserID:              actor.UserID,
				ItemID:              veg.ID,
				WholesalePriceCents: veg.WholesalePriceCents,
			}
			existing, err := tx.LockInventory(ctx, actor.UserID, veg.ID)
			switch {
			case err == nil:
				rec = *existing
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
			rec.PriceCents = item.PriceCents
			rec.RetailPriceCents = item.PriceCents
			rec.StockQty = stock
			if err := inv.upsert(ctx, rec); err != nil {
				return err
			}
			result.Processed++
		}
		return nil
	})
	if err != nil {
		return domain.SyncResult{}, storageFailure("bulk sync", err)
	}

	s.logger.Info("inventory bulk sync", zap.String("user_id", actor.UserID), zap.Int("processed", result.Processed), zap.Int("catalogue_created", created))
	return result, nil
}

// PublishDailyPricing updates prices and the activation window on rows the
// caller already stocks. Items without a row are skipped.
func (s *Service) PublishDailyPricing(ctx context.Context, req domain.DailyPricingRequest) (domain.SyncResult, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if len(req.Items) == 0 {
		return domain.SyncResult{}, fmt.Errorf("%w: items required", store.ErrInvalidRequest)
	}
	start, err := parseSchedule(req.StartTime)
	if err != nil {
		return domain.SyncResult{}, err
	}
	expiry, err := parseSchedule(req.ExpiryDate)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if start != nil && expiry != nil && expiry.Before(*start) {
		return domain.SyncResult{}, fmt.Errorf("%w: expiry_date before start_time", store.ErrInvalidRequest)
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.ItemID) == "" || item.WholesaleCents < 0 || item.RetailCents < 0 {
			return domain.SyncResult{}, fmt.Errorf("%w: invalid pricing item", store.ErrInvalidRequest)
		}
	}

	now := s.now()
	var result domain.SyncResult
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		result = domain.SyncResult{}
		inv := ledger{tx: tx, now: now}
		for _, item := range req.Items {
			err := inv.publishSchedule(ctx, actor.UserID, strings.TrimSpace(item.ItemID), item.WholesaleCents, item.RetailCents, start, expiry)
			if errors.Is(err, store.ErrNotFound) {
				result.Skipped++
				continue
			}
			if err != nil {
				return err
			}
			result.Processed++
		}
		return nil
	})
	if err != nil {
		return domain.SyncResult{}, storageFailure("publish daily pricing", err)
	}

	s.logger.Info("daily pricing published", zap.String("user_id", actor.UserID), zap.Int("processed", result.Processed), zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *Service) ListInventory(ctx context.Context) ([]domain.InventoryView, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	views, err := s.repo.ListInventory(ctx, actor.UserID)
	if err != nil {
		return nil, storageFailure("list inventory", err)
	}
	return views, nil
}

func (s *Service) UpdateInventoryItem(ctx context.Context, itemID string, req domain.InventoryUpdateRequest) (domain.InventoryRecord, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.InventoryRecord{}, fmt.Errorf("%w: item id required", store.ErrInvalidRequest)
	}
	for _, amount := range []*int64{req.PriceCents, req.WholesalePriceCents, req.RetailPriceCents} {
		if amount != nil && *amount < 0 {
			return domain.InventoryRecord{}, fmt.Errorf("%w: prices must not be negative", store.ErrInvalidRequest)
		}
	}
	if req.StockQty != nil && !validStock(*req.StockQty) {
		return domain.InventoryRecord{}, fmt.Errorf("%w: invalid stock", store.ErrInvalidRequest)
	}

	var start, expiry *time.Time
	if req.StartTime != nil {
		if start, err = parseSchedule(*req.StartTime); err != nil {
			return domain.InventoryRecord{}, err
		}
	}
	if req.ExpiryDate != nil {
		if expiry, err = parseSchedule(*req.ExpiryDate); err != nil {
			return domain.InventoryRecord{}, err
		}
	}

	now := s.now()
	var rec domain.InventoryRecord
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		current, err := tx.LockInventory(ctx, actor.UserID, itemID)
		if err != nil {
			return err
		}
		if req.PriceCents != nil {
			current.PriceCents = *req.PriceCents
		}
		if req.StockQty != nil {
			current.StockQty = *req.StockQty
		}
		if req.WholesalePriceCents != nil {
			current.WholesalePriceCents = *req.WholesalePriceCents
		}
		if req.RetailPriceCents != nil {
			current.RetailPriceCents = *req.RetailPriceCents
		}
		if req.StartTime != nil {
			current.StartTime = start
		}
		if req.ExpiryDate != nil {
			current.ExpiryDate = expiry
		}
		current.UpdatedAt = now
		if err := tx.UpsertInventory(ctx, *current); err != nil {
			return err
		}
		rec = *current
		return nil
	})
	if err != nil {
		return domain.InventoryRecord{}, storageFailure("update inventory", err)
	}
	return rec, nil
}

func (s *Service) DeleteInventoryItem(ctx context.Context, itemID string) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return fmt.Errorf("%w: item id required", store.ErrInvalidRequest)
	}

	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		return tx.DeleteInventory(ctx, actor.UserID, itemID)
	})
	if err != nil {
		return storageFailure("delete inventory", err)
	}
	s.logger.Info("inventory item deleted", zap.String("user_id", actor.UserID), zap.String("item_id", itemID))
	return nil
}

func (s *Service) CreateVegetable(ctx context.Context, req domain.VegetableCreateRequest) (domain.CatalogueItem, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.CatalogueItem{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.PriceCents < 0 {
		return domain.CatalogueItem{}, fmt.Errorf("%w: vegetable needs a name and a non-negative price", store.ErrInvalidRequest)
	}

	now := s.now()
	item := domain.CatalogueItem{
		ID:                  xid.New("veg"),
		Name:                name,
		LocalizedName:       strings.TrimSpace(req.LocalizedName),
		Category:            strings.TrimSpace(req.Category),
		ImageURL:            strings.TrimSpace(req.ImageURL),
		PriceCents:          req.PriceCents,
		RetailPriceCents:    req.PriceCents,
		WholesalePriceCents: defaultWholesale(req.PriceCents),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	err := s.repo.WithinTx(ctx, func(tx store.Tx) error {
		return tx.CreateItem(ctx, item)
	})
	if errors.Is(err, store.ErrDuplicateName) {
		return domain.CatalogueItem{}, fmt.Errorf("%w: vegetable %q already exists", store.ErrInvalidRequest, name)
	}
	if err != nil {
		return domain.CatalogueItem{}, storageFailure("create vegetable", err)
	}

	s.logger.Info("vegetable created", zap.String("item_id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// BulkPriceUpdate rewrites master catalogue prices and mirrors them onto the
// caller's inventory row when one exists.
func (s *Service) BulkPriceUpdate(ctx context.Context, updates []domain.MasterPriceUpdate) (domain.SyncResult, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if len(updates) == 0 {
		return domain.SyncResult{}, fmt.Errorf("%w: updates required", store.ErrInvalidRequest)
	}
	for _, u := range updates {
		if strings.TrimSpace(u.ItemID) == "" || u.WholesaleCents < 0 || u.RetailCents < 0 {
			return domain.SyncResult{}, fmt.Errorf("%w: invalid price update", store.ErrInvalidRequest)
		}
	}

	now := s.now()
	var result domain.SyncResult
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		result = domain.SyncResult{}
		inv := ledger{tx: tx, now: now}
		for _, u := range updates {
			itemID := strings.TrimSpace(u.ItemID)
			err := tx.UpdateItemPrices(ctx, itemID, domain.ItemPrices{
				PriceCents:          u.RetailCents,
				RetailPriceCents:    u.RetailCents,
				WholesalePriceCents: u.WholesaleCents,
				UpdatedAt:           now,
			})
			if errors.Is(err, store.ErrNotFound) {
				result.Skipped++
				continue
			}
			if err != nil {
				return err
			}

			rec, err := tx.LockInventory(ctx, actor.UserID, itemID)
			switch {
			case err == nil:
				rec.PriceCents = u.RetailCents
				rec.RetailPriceCents = u.RetailCents
				rec.WholesalePriceCents = u.WholesaleCents
				if err := inv.upsert(ctx, *rec); err != nil {
					return err
				}
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
			result.Processed++
		}
		return nil
	})
	if err != nil {
		return domain.SyncResult{}, storageFailure("bulk price update", err)
	}

	s.logger.Info("master prices updated", zap.String("user_id", actor.UserID), zap.Int("processed", result.Processed), zap.Int("skipped", result.Skipped))
	return result, nil
}
