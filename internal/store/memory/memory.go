package memory

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/store"
)

type usageEntry struct {
	count int64
	seq   int64
}

type Store struct {
	mu           sync.RWMutex
	usersByID    map[string]domain.User
	userIDByName map[string]string
	items        map[string]domain.CatalogueItem
	itemIDByName map[string]string
	inventory    map[string]map[string]domain.InventoryRecord
	usage        map[string]map[string]usageEntry
	usageSeq     int64
	bills        map[string]*domain.Bill
	billSeq      map[string]int64
	billNumbers  map[string]string
	nextBillSeq  int64
}

func New() *Store {
	return &Store{
		usersByID:    make(map[string]domain.User),
		userIDByName: make(map[string]string),
		items:        make(map[string]domain.CatalogueItem),
		itemIDByName: make(map[string]string),
		inventory:    make(map[string]map[string]domain.InventoryRecord),
		usage:        make(map[string]map[string]usageEntry),
		bills:        make(map[string]*domain.Bill),
		billSeq:      make(map[string]int64),
		billNumbers:  make(map[string]string),
	}
}

// NewSeeded returns a store with an admin account and the demo vegetables,
// each stocked at 100 kg for the admin. The admin password comes from
// SEED_ADMIN_PASSWORD and falls back to a dev default.
func NewSeeded() *Store {
	s := New()

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("memory store: hash seed password: %v", err))
	}

	now := time.Now().UTC()
	admin := domain.User{
		ID:           "usr_admin",
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		ShopName:     "Kaikari Main Shop",
		CreatedAt:    now,
	}
	s.usersByID[admin.ID] = admin
	s.userIDByName[admin.Username] = admin.ID

	seed := []struct {
		id, name, localized, category, image string
		price                                int64
	}{
		{"veg_tomato", "Tomato", "தக்காளி", "Root Veggies", "https://images.unsplash.com/photo-1518977676601-b53f02bad675?q=80&w=400", 3200},
		{"veg_onion", "Onion", "வெங்காயம்", "Root Veggies", "https://images.unsplash.com/photo-1508747703725-719777637510?q=80&w=400", 4500},
		{"veg_carrot", "Carrot", "கேரட்", "Root Veggies", "https://images.unsplash.com/photo-1590865101275-4d40089e9f29?q=80&w=400", 5800},
		{"veg_brinjal", "Brinjal", "கத்தரிக்காய்", "Others", "https://images.unsplash.com/photo-1533475765664-88404ee6d926?q=80&w=400", 4000},
	}
	s.inventory[admin.ID] = make(map[string]domain.InventoryRecord, len(seed))
	for _, v := range seed {
		wholesale := int64(math.Round(float64(v.price) * 0.8))
		s.items[v.id] = domain.CatalogueItem{
			ID:                  v.id,
			Name:                v.name,
			LocalizedName:       v.localized,
			Category:            v.category,
			ImageURL:            v.image,
			PriceCents:          v.price,
			RetailPriceCents:    v.price,
			WholesalePriceCents: wholesale,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		s.itemIDByName[v.name] = v.id
		s.inventory[admin.ID][v.id] = domain.InventoryRecord{
			UserID:              admin.ID,
			ItemID:              v.id,
			StockQty:            100,
			PriceCents:          v.price,
			RetailPriceCents:    v.price,
			WholesalePriceCents: wholesale,
			UpdatedAt:           now,
		}
	}
	return s
}

func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" || user.Username == "" {
		return store.ErrInvalidRequest
	}
	if _, exists := s.userIDByName[user.Username]; exists {
		return store.ErrDuplicateName
	}
	s.usersByID[user.ID] = user
	s.userIDByName[user.Username] = user.ID
	return nil
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByName[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	user := s.usersByID[id]
	return &user, nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) FindBill(_ context.Context, userID string, billID string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, ok := s.bills[billID]
	if !ok || bill.UserID != userID {
		return nil, store.ErrNotFound
	}
	return cloneBill(bill), nil
}

func (s *Store) ListBills(_ context.Context, userID string) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.ownedBillsLocked(userID)
	sort.SliceStable(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return s.billSeq[owned[i].ID] > s.billSeq[owned[j].ID]
	})

	bills := make([]domain.Bill, 0, len(owned))
	for _, bill := range owned {
		bills = append(bills, *cloneBill(bill))
	}
	return bills, nil
}

func (s *Store) ListInventory(_ context.Context, userID string) ([]domain.InventoryView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]domain.InventoryView, 0, len(s.inventory[userID]))
	for itemID, rec := range s.inventory[userID] {
		item, ok := s.items[itemID]
		if !ok {
			continue
		}
		views = append(views, domain.InventoryView{
			InventoryRecord: rec,
			Name:            item.Name,
			LocalizedName:   item.LocalizedName,
			Category:        item.Category,
			ImageURL:        item.ImageURL,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].Category != views[j].Category {
			return views[i].Category < views[j].Category
		}
		return views[i].Name < views[j].Name
	})
	return views, nil
}

func (s *Store) TopUsage(_ context.Context, userID string, limit int) ([]domain.TopItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type ranked struct {
		item  domain.TopItem
		entry usageEntry
	}
	rows := make([]ranked, 0, len(s.usage[userID]))
	for itemID, entry := range s.usage[userID] {
		item, ok := s.items[itemID]
		if !ok {
			continue
		}
		rows = append(rows, ranked{
			item: domain.TopItem{
				ItemID:        item.ID,
				Name:          item.Name,
				LocalizedName: item.LocalizedName,
				Category:      item.Category,
				ImageURL:      item.ImageURL,
				SaleCount:     entry.count,
			},
			entry: entry,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.count != rows[j].entry.count {
			return rows[i].entry.count > rows[j].entry.count
		}
		return rows[i].entry.seq < rows[j].entry.seq
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]domain.TopItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.item)
	}
	return out, nil
}

func (s *Store) DailySummary(_ context.Context, userID string, day string, loc *time.Location, topN int) (domain.DailySummary, error) {
	if loc == nil {
		loc = time.UTC
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.ownedBillsLocked(userID)
	sort.SliceStable(owned, func(i, j int) bool {
		return s.billSeq[owned[i].ID] < s.billSeq[owned[j].ID]
	})

	summary := domain.DailySummary{TopItemNames: make([]string, 0, topN)}
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	for _, bill := range owned {
		if bill.CreatedAt.In(loc).Format("2006-01-02") != day {
			continue
		}
		summary.Bills++
		switch bill.BillingType {
		case domain.BillingWholesale:
			summary.WholesaleTotalCents += bill.TotalCents
		default:
			summary.RetailTotalCents += bill.TotalCents
		}
		for _, line := range bill.Lines {
			if _, seen := firstSeen[line.Name]; !seen {
				firstSeen[line.Name] = order
				order++
			}
			counts[line.Name]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return firstSeen[names[i]] < firstSeen[names[j]]
	})
	if topN > 0 && len(names) > topN {
		names = names[:topN]
	}
	summary.TopItemNames = append(summary.TopItemNames, names...)
	return summary, nil
}

// WithinTx serializes every transaction behind the store write lock and
// replays the undo journal if fn fails or panics.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) ownedBillsLocked(userID string) []*domain.Bill {
	owned := make([]*domain.Bill, 0, 16)
	for _, bill := range s.bills {
		if bill.UserID == userID {
			owned = append(owned, bill)
		}
	}
	return owned
}

type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) FindItemByID(_ context.Context, id string) (*domain.CatalogueItem, error) {
	item, ok := t.s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (t *memTx) FindItemByName(_ context.Context, name string) (*domain.CatalogueItem, error) {
	id, ok := t.s.itemIDByName[strings.TrimSpace(name)]
	if !ok {
		return nil, store.ErrNotFound
	}
	item := t.s.items[id]
	return &item, nil
}

func (t *memTx) CreateItem(_ context.Context, item domain.CatalogueItem) error {
	if item.ID == "" || item.Name == "" {
		return store.ErrInvalidRequest
	}
	if _, exists := t.s.itemIDByName[item.Name]; exists {
		return store.ErrDuplicateName
	}
	if _, exists := t.s.items[item.ID]; exists {
		return store.ErrDuplicateName
	}
	t.s.items[item.ID] = item
	t.s.itemIDByName[item.Name] = item.ID
	t.undo = append(t.undo, func() {
		delete(t.s.items, item.ID)
		delete(t.s.itemIDByName, item.Name)
	})
	return nil
}

// CreateItemIfMissing reports false, without error, when the name is taken.
func (t *memTx) CreateItemIfMissing(ctx context.Context, item domain.CatalogueItem) (bool, error) {
	if _, exists := t.s.itemIDByName[item.Name]; exists {
		return false, nil
	}
	if err := t.CreateItem(ctx, item); err != nil {
		return false, err
	}
	return true, nil
}

func (t *memTx) UpdateItemMetadata(_ context.Context, id string, meta domain.ItemMetadata) error {
	item, ok := t.s.items[id]
	if !ok {
		return store.ErrNotFound
	}
	prev := item
	item.LocalizedName = meta.LocalizedName
	item.Category = meta.Category
	item.ImageURL = meta.ImageURL
	item.UpdatedAt = stamp(meta.UpdatedAt)
	t.s.items[id] = item
	t.undo = append(t.undo, func() { t.s.items[id] = prev })
	return nil
}

func (t *memTx) UpdateItemPrices(_ context.Context, id string, prices domain.ItemPrices) error {
	item, ok := t.s.items[id]
	if !ok {
		return store.ErrNotFound
	}
	prev := item
	item.PriceCents = prices.PriceCents
	item.RetailPriceCents = prices.RetailPriceCents
	item.WholesalePriceCents = prices.WholesalePriceCents
	item.UpdatedAt = stamp(prices.UpdatedAt)
	t.s.items[id] = item
	t.undo = append(t.undo, func() { t.s.items[id] = prev })
	return nil
}

func (t *memTx) LockInventory(_ context.Context, userID string, itemID string) (*domain.InventoryRecord, error) {
	rec, ok := t.s.inventory[userID][itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (t *memTx) UpsertInventory(_ context.Context, rec domain.InventoryRecord) error {
	if rec.UserID == "" || rec.ItemID == "" {
		return store.ErrInvalidRequest
	}
	if _, ok := t.s.items[rec.ItemID]; !ok {
		return store.ErrNotFound
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	t.restoreInventoryOnUndo(rec.UserID, rec.ItemID)
	if _, ok := t.s.inventory[rec.UserID]; !ok {
		t.s.inventory[rec.UserID] = make(map[string]domain.InventoryRecord)
	}
	t.s.inventory[rec.UserID][rec.ItemID] = rec
	return nil
}

func (t *memTx) InsertInventoryIfMissing(ctx context.Context, rec domain.InventoryRecord) (bool, error) {
	if _, exists := t.s.inventory[rec.UserID][rec.ItemID]; exists {
		return false, nil
	}
	if err := t.UpsertInventory(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (t *memTx) SetStock(_ context.Context, userID string, itemID string, qty float64) error {
	rec, ok := t.s.inventory[userID][itemID]
	if !ok {
		return store.ErrNotFound
	}
	t.restoreInventoryOnUndo(userID, itemID)
	rec.StockQty = qty
	rec.UpdatedAt = time.Now().UTC()
	t.s.inventory[userID][itemID] = rec
	return nil
}

func (t *memTx) DeleteInventory(_ context.Context, userID string, itemID string) error {
	if _, ok := t.s.inventory[userID][itemID]; !ok {
		return store.ErrNotFound
	}
	t.restoreInventoryOnUndo(userID, itemID)
	delete(t.s.inventory[userID], itemID)
	return nil
}

func (t *memTx) restoreInventoryOnUndo(userID string, itemID string) {
	prev, existed := t.s.inventory[userID][itemID]
	t.undo = append(t.undo, func() {
		if !existed {
			delete(t.s.inventory[userID], itemID)
			return
		}
		if _, ok := t.s.inventory[userID]; !ok {
			t.s.inventory[userID] = make(map[string]domain.InventoryRecord)
		}
		t.s.inventory[userID][itemID] = prev
	})
}

func (t *memTx) IncrementUsage(_ context.Context, userID string, itemID string) (int64, error) {
	if _, ok := t.s.usage[userID]; !ok {
		t.s.usage[userID] = make(map[string]usageEntry)
	}
	prev, existed := t.s.usage[userID][itemID]
	prevSeq := t.s.usageSeq

	entry := prev
	if !existed {
		t.s.usageSeq++
		entry.seq = t.s.usageSeq
	}
	entry.count++
	t.s.usage[userID][itemID] = entry

	t.undo = append(t.undo, func() {
		t.s.usageSeq = prevSeq
		if !existed {
			delete(t.s.usage[userID], itemID)
			return
		}
		t.s.usage[userID][itemID] = prev
	})
	return entry.count, nil
}

func (t *memTx) InsertBill(_ context.Context, bill domain.Bill) error {
	if bill.ID == "" || bill.BillNumber == "" || bill.UserID == "" {
		return store.ErrInvalidRequest
	}
	if _, exists := t.s.billNumbers[bill.BillNumber]; exists {
		return store.ErrDuplicateBillNumber
	}
	if _, exists := t.s.bills[bill.ID]; exists {
		return fmt.Errorf("bill %s already exists", bill.ID)
	}

	prevSeq := t.s.nextBillSeq
	t.s.nextBillSeq++
	t.s.bills[bill.ID] = cloneBill(&bill)
	t.s.billSeq[bill.ID] = t.s.nextBillSeq
	t.s.billNumbers[bill.BillNumber] = bill.ID
	t.undo = append(t.undo, func() {
		delete(t.s.bills, bill.ID)
		delete(t.s.billSeq, bill.ID)
		delete(t.s.billNumbers, bill.BillNumber)
		t.s.nextBillSeq = prevSeq
	})
	return nil
}

func (t *memTx) LockBill(_ context.Context, userID string, billID string) (*domain.Bill, error) {
	bill, ok := t.s.bills[billID]
	if !ok || bill.UserID != userID {
		return nil, store.ErrNotFound
	}
	return cloneBill(bill), nil
}

func (t *memTx) UpdateBillHeader(_ context.Context, bill domain.Bill) error {
	current, ok := t.s.bills[bill.ID]
	if !ok {
		return store.ErrNotFound
	}
	prev := cloneBill(current)

	current.CustomerName = bill.CustomerName
	current.BillingType = bill.BillingType
	current.SubtotalCents = bill.SubtotalCents
	current.TaxCents = bill.TaxCents
	current.TotalCents = bill.TotalCents
	current.UpdatedAt = bill.UpdatedAt
	t.undo = append(t.undo, func() { t.s.bills[bill.ID] = prev })
	return nil
}

func (t *memTx) ReplaceBillLines(_ context.Context, billID string, lines []domain.BillLine) error {
	current, ok := t.s.bills[billID]
	if !ok {
		return store.ErrNotFound
	}
	prev := cloneBill(current)

	current.Lines = append([]domain.BillLine(nil), lines...)
	t.undo = append(t.undo, func() { t.s.bills[billID] = prev })
	return nil
}

func cloneBill(src *domain.Bill) *domain.Bill {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Lines = append([]domain.BillLine(nil), src.Lines...)
	if dst.Lines == nil {
		dst.Lines = []domain.BillLine{}
	}
	return &dst
}

func stamp(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at
}
