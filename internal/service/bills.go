package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/store"
	"kaikari/backend/internal/xid"
)

type resolvedLine struct {
	req  domain.LineRequest
	item *domain.CatalogueItem
}

func validateLine(line domain.LineRequest) error {
	if strings.TrimSpace(line.ItemID) == "" && strings.TrimSpace(line.Name) == "" {
		return fmt.Errorf("%w: line needs item_id or name", store.ErrInvalidRequest)
	}
	if line.Quantity <= 0 || math.IsNaN(line.Quantity) || math.IsInf(line.Quantity, 0) {
		return fmt.Errorf("%w: line quantity must be positive", store.ErrInvalidRequest)
	}
	if line.UnitPriceCents < 0 || line.LineTotalCents < 0 {
		return fmt.Errorf("%w: line amounts must not be negative", store.ErrInvalidRequest)
	}
	return nil
}

// resolveLines keeps request order and drops lines whose item cannot be found.
func resolveLines(ctx context.Context, cat catalogue, lines []domain.LineRequest) ([]resolvedLine, int, error) {
	resolved := make([]resolvedLine, 0, len(lines))
	skipped := 0
	for _, line := range lines {
		item, ok, err := cat.resolve(ctx, line.ItemID, line.Name)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			skipped++
			continue
		}
		resolved = append(resolved, resolvedLine{req: line, item: item})
	}
	return resolved, skipped, nil
}

// snapshot copies the sale-time catalogue display fields and the caller's
// price and total into an immutable bill line.
func snapshot(line resolvedLine) domain.BillLine {
	return domain.BillLine{
		ItemID: line.item.ID,
		LineSnapshot: domain.LineSnapshot{
			Name:           line.item.Name,
			LocalizedName:  line.item.LocalizedName,
			UnitPriceCents: line.req.UnitPriceCents,
		},
		Grade:          strings.TrimSpace(line.req.Grade),
		Quantity:       line.req.Quantity,
		LineTotalCents: line.req.LineTotalCents,
	}
}

func sumLines(lines []domain.BillLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.LineTotalCents
	}
	return total
}

// totalFor is the line sum, or the supplied grand total when that sum is zero.
func totalFor(lineSum int64, grandTotal int64) int64 {
	if lineSum != 0 {
		return lineSum
	}
	return grandTotal
}

func (s *Service) CreateBill(ctx context.Context, req domain.BillCreateRequest) (domain.Bill, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Bill{}, err
	}

	billingType, ok := domain.ParseBillingType(req.BillingType)
	if !ok {
		return domain.Bill{}, fmt.Errorf("%w: unknown billing type %q", store.ErrInvalidRequest, req.BillingType)
	}
	if len(req.Lines) == 0 {
		return domain.Bill{}, fmt.Errorf("%w: bill needs at least one line", store.ErrInvalidRequest)
	}
	for _, line := range req.Lines {
		if err := validateLine(line); err != nil {
			return domain.Bill{}, err
		}
	}
	if req.SubtotalCents < 0 || req.TaxCents < 0 || req.GrandTotalCents < 0 {
		return domain.Bill{}, fmt.Errorf("%w: bill amounts must not be negative", store.ErrInvalidRequest)
	}

	user, err := s.repo.FindUserByID(ctx, actor.UserID)
	if err != nil {
		return domain.Bill{}, storageFailure("find user", err)
	}

	now := s.now()
	billNumber := strings.TrimSpace(req.BillNumber)
	if billNumber == "" {
		billNumber = xid.BillNumber(now)
	}

	var bill domain.Bill
	var skipped int
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		cat := catalogue{tx: tx, now: now}
		inv := ledger{tx: tx, now: now}
		counter := usage{tx: tx}

		resolved, n, err := resolveLines(ctx, cat, req.Lines)
		if err != nil {
			return fmt.Errorf("resolve lines: %w", err)
		}
		skipped = n

		// Row locks are taken in item id order so two bills touching the
		// same items cannot deadlock.
		order := make([]int, len(resolved))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return resolved[order[a]].item.ID < resolved[order[b]].item.ID
		})
		for _, idx := range order {
			line := resolved[idx]
			stock, err := inv.decrement(ctx, user.ID, line.item, line.req.Quantity)
			if err != nil {
				return fmt.Errorf("decrement %s: %w", line.item.ID, err)
			}
			if stock < 0 {
				s.logger.Warn("inventory oversold",
					zap.String("user_id", user.ID),
					zap.String("item_id", line.item.ID),
					zap.Float64("stock_qty", stock),
				)
			}
		}

		lines := make([]domain.BillLine, 0, len(resolved))
		for _, line := range resolved {
			lines = append(lines, snapshot(line))
			if _, err := counter.recordSale(ctx, user.ID, line.item.ID); err != nil {
				return fmt.Errorf("record usage %s: %w", line.item.ID, err)
			}
		}

		lineSum := sumLines(lines)
		subtotal := lineSum
		if subtotal == 0 {
			subtotal = req.SubtotalCents
		}
		bill = domain.Bill{
			ID:            xid.New("bill"),
			BillNumber:    billNumber,
			UserID:        user.ID,
			ShopName:      user.ShopName,
			CustomerName:  strings.TrimSpace(req.CustomerName),
			SubtotalCents: subtotal,
			TaxCents:      req.TaxCents,
			TotalCents:    totalFor(lineSum, req.GrandTotalCents),
			BillingType:   billingType,
			CreatedAt:     now,
			UpdatedAt:     now,
			Lines:         lines,
		}
		return tx.InsertBill(ctx, bill)
	})
	if err != nil {
		return domain.Bill{}, storageFailure("create bill", err)
	}

	if skipped > 0 {
		s.logger.Info("bill lines skipped",
			zap.String("bill_number", bill.BillNumber),
			zap.Int("skipped", skipped),
		)
	}
	s.logger.Info("bill created",
		zap.String("user_id", user.ID),
		zap.String("bill_id", bill.ID),
		zap.String("bill_number", bill.BillNumber),
		zap.Int("lines", len(bill.Lines)),
		zap.Int64("total_amount_cents", bill.TotalCents),
	)
	s.reports.Invalidate(ctx, user.ID, bill.CreatedAt)
	return bill, nil
}

// UpdateBill overrides header fields that are set. A non-nil Lines replaces
// every existing line and recomputes unset amounts from the new lines; stock
// and usage are not reconciled.
func (s *Service) UpdateBill(ctx context.Context, billID string, req domain.BillUpdateRequest) (domain.Bill, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Bill{}, err
	}
	billID = strings.TrimSpace(billID)
	if billID == "" {
		return domain.Bill{}, fmt.Errorf("%w: bill id required", store.ErrInvalidRequest)
	}

	var billingType domain.BillingType
	if req.BillingType != nil {
		parsed, ok := domain.ParseBillingType(*req.BillingType)
		if !ok {
			return domain.Bill{}, fmt.Errorf("%w: unknown billing type %q", store.ErrInvalidRequest, *req.BillingType)
		}
		billingType = parsed
	}
	for _, amount := range []*int64{req.SubtotalCents, req.TaxCents, req.TotalCents} {
		if amount != nil && *amount < 0 {
			return domain.Bill{}, fmt.Errorf("%w: bill amounts must not be negative", store.ErrInvalidRequest)
		}
	}
	for _, line := range req.Lines {
		if err := validateLine(line); err != nil {
			return domain.Bill{}, err
		}
	}

	now := s.now()
	var bill domain.Bill
	err = s.repo.WithinTx(ctx, func(tx store.Tx) error {
		current, err := tx.LockBill(ctx, actor.UserID, billID)
		if err != nil {
			return err
		}

		if req.CustomerName != nil {
			current.CustomerName = strings.TrimSpace(*req.CustomerName)
		}
		if req.BillingType != nil {
			current.BillingType = billingType
		}
		if req.SubtotalCents != nil {
			current.SubtotalCents = *req.SubtotalCents
		}
		if req.TaxCents != nil {
			current.TaxCents = *req.TaxCents
		}
		if req.TotalCents != nil {
			current.TotalCents = *req.TotalCents
		}

		if req.Lines != nil {
			resolved, _, err := resolveLines(ctx, catalogue{tx: tx, now: now}, req.Lines)
			if err != nil {
				return fmt.Errorf("resolve lines: %w", err)
			}
			lines := make([]domain.BillLine, 0, len(resolved))
			for _, line := range resolved {
				lines = append(lines, snapshot(line))
			}
			if err := tx.ReplaceBillLines(ctx, current.ID, lines); err != nil {
				return fmt.Errorf("replace lines: %w", err)
			}
			current.Lines = lines

			// Amounts of the replaced lines never survive; a zero line sum
			// falls back to the supplied subtotal, else zero.
			lineSum := sumLines(lines)
			if req.SubtotalCents == nil {
				current.SubtotalCents = lineSum
			}
			if req.TotalCents == nil {
				current.TotalCents = totalFor(lineSum, current.SubtotalCents)
			}
		}

		current.UpdatedAt = now
		if err := tx.UpdateBillHeader(ctx, *current); err != nil {
			return fmt.Errorf("update header: %w", err)
		}
		bill = *current
		return nil
	})
	if err != nil {
		return domain.Bill{}, storageFailure("update bill", err)
	}

	s.logger.Info("bill updated",
		zap.String("user_id", actor.UserID),
		zap.String("bill_id", bill.ID),
		zap.Bool("lines_replaced", req.Lines != nil),
	)
	s.reports.Invalidate(ctx, actor.UserID, bill.CreatedAt)
	return bill, nil
}

func (s *Service) GetBill(ctx context.Context, billID string) (domain.Bill, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Bill{}, err
	}
	bill, err := s.repo.FindBill(ctx, actor.UserID, strings.TrimSpace(billID))
	if err != nil {
		return domain.Bill{}, storageFailure("find bill", err)
	}
	return *bill, nil
}

func (s *Service) ListHistory(ctx context.Context) (domain.BillHistoryResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.BillHistoryResponse{}, err
	}
	bills, err := s.reports.History(ctx, actor.UserID)
	if err != nil {
		return domain.BillHistoryResponse{}, err
	}
	return domain.BillHistoryResponse{Bills: bills}, nil
}

type RenderedReceipt struct {
	FileName    string
	ContentType string
	Body        []byte
}

func (s *Service) RenderReceipt(ctx context.Context, billID string) (RenderedReceipt, error) {
	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return RenderedReceipt{}, err
	}
	body, err := s.renderer.Render(bill)
	if err != nil {
		return RenderedReceipt{}, fmt.Errorf("render receipt %s: %w", bill.ID, err)
	}
	return RenderedReceipt{
		FileName:    s.renderer.FileName(bill),
		ContentType: s.renderer.ContentType(),
		Body:        body,
	}, nil
}
