package store

import (
	"context"
	"errors"
	"time"

	"kaikari/backend/internal/domain"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrStorage             = errors.New("storage failure")
	ErrDuplicateBillNumber = errors.New("duplicate bill number")
	ErrDuplicateName       = errors.New("duplicate name")
)

// Repository is the single consistency domain holding users, catalogue,
// inventory, usage counters and bills.
type Repository interface {
	CreateUser(ctx context.Context, user domain.User) error
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)

	FindBill(ctx context.Context, userID string, billID string) (*domain.Bill, error)
	ListBills(ctx context.Context, userID string) ([]domain.Bill, error)
	ListInventory(ctx context.Context, userID string) ([]domain.InventoryView, error)
	TopUsage(ctx context.Context, userID string, limit int) ([]domain.TopItem, error)
	DailySummary(ctx context.Context, userID string, day string, loc *time.Location, topN int) (domain.DailySummary, error)

	// WithinTx runs fn in one atomic unit. Nothing fn wrote is kept unless it
	// returns nil; the handle is released on every path.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes and locked reads that must move together.
type Tx interface {
	FindItemByID(ctx context.Context, id string) (*domain.CatalogueItem, error)
	FindItemByName(ctx context.Context, name string) (*domain.CatalogueItem, error)
	CreateItem(ctx context.Context, item domain.CatalogueItem) error
	CreateItemIfMissing(ctx context.Context, item domain.CatalogueItem) (bool, error)
	UpdateItemMetadata(ctx context.Context, id string, meta domain.ItemMetadata) error
	UpdateItemPrices(ctx context.Context, id string, prices domain.ItemPrices) error

	// LockInventory reads the row under an exclusive lock held until the
	// enclosing transaction ends.
	LockInventory(ctx context.Context, userID string, itemID string) (*domain.InventoryRecord, error)
	UpsertInventory(ctx context.Context, rec domain.InventoryRecord) error
	InsertInventoryIfMissing(ctx context.Context, rec domain.InventoryRecord) (bool, error)
	SetStock(ctx context.Context, userID string, itemID string, qty float64) error
	DeleteInventory(ctx context.Context, userID string, itemID string) error

	IncrementUsage(ctx context.Context, userID string, itemID string) (int64, error)

	InsertBill(ctx context.Context, bill domain.Bill) error
	LockBill(ctx context.Context, userID string, billID string) (*domain.Bill, error)
	UpdateBillHeader(ctx context.Context, bill domain.Bill) error
	ReplaceBillLines(ctx context.Context, billID string, lines []domain.BillLine) error
}
