package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleShopUser Role = "shop_user"
)

type BillingType string

const (
	BillingRetail    BillingType = "retail"
	BillingWholesale BillingType = "wholesale"
)

// ParseBillingType accepts either casing; an empty value means retail.
func ParseBillingType(raw string) (BillingType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(BillingRetail):
		return BillingRetail, true
	case string(BillingWholesale):
		return BillingWholesale, true
	default:
		return "", false
	}
}

type Actor struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	ShopName     string    `json:"shop_name,omitempty"`
	MobileNumber string    `json:"mobile_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type SignupRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	ShopName     string `json:"shop_name"`
	MobileNumber string `json:"mobile_number"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        Role   `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// CatalogueItem is a vegetable shared by every shop account.
type CatalogueItem struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	LocalizedName       string    `json:"localized_name"`
	Category            string    `json:"category"`
	ImageURL            string    `json:"image_url"`
	PriceCents          int64     `json:"price_cents"`
	RetailPriceCents    int64     `json:"retail_price_cents"`
	WholesalePriceCents int64     `json:"wholesale_price_cents"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ItemMetadata is the display part of a catalogue item that bulk sync may overwrite.
type ItemMetadata struct {
	LocalizedName string    `json:"localized_name"`
	Category      string    `json:"category"`
	ImageURL      string    `json:"image_url"`
	UpdatedAt     time.Time `json:"-"`
}

type ItemPrices struct {
	PriceCents          int64     `json:"price_cents"`
	RetailPriceCents    int64     `json:"retail_price_cents"`
	WholesalePriceCents int64     `json:"wholesale_price_cents"`
	UpdatedAt           time.Time `json:"-"`
}

type VegetableCreateRequest struct {
	Name          string `json:"name"`
	LocalizedName string `json:"localized_name"`
	Category      string `json:"category"`
	ImageURL      string `json:"image_url"`
	PriceCents    int64  `json:"price_cents"`
}

type MasterPriceUpdate struct {
	ItemID         string `json:"item_id"`
	WholesaleCents int64  `json:"wholesale_price_cents"`
	RetailCents    int64  `json:"retail_price_cents"`
}

// InventoryRecord is one shop account's stock and pricing for one catalogue item.
// StockQty may be negative: oversell is recorded, not rejected.
type InventoryRecord struct {
	UserID              string     `json:"user_id"`
	ItemID              string     `json:"item_id"`
	StockQty            float64    `json:"stock_qty"`
	PriceCents          int64      `json:"price_cents"`
	WholesalePriceCents int64      `json:"wholesale_price_cents"`
	RetailPriceCents    int64      `json:"retail_price_cents"`
	StartTime           *time.Time `json:"start_time,omitempty"`
	ExpiryDate          *time.Time `json:"expiry_date,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type InventoryView struct {
	InventoryRecord
	Name          string `json:"name"`
	LocalizedName string `json:"localized_name"`
	Category      string `json:"category"`
	ImageURL      string `json:"image_url"`
}

type InventorySetupItem struct {
	ItemID     string  `json:"item_id"`
	PriceCents int64   `json:"price_cents"`
	StockQty   float64 `json:"stock_qty"`
}

type InventorySetupRequest struct {
	Items []InventorySetupItem `json:"items"`
}

type BulkSyncItem struct {
	Name          string   `json:"name"`
	LocalizedName string   `json:"localized_name"`
	Category      string   `json:"category"`
	ImageURL      string   `json:"image_url"`
	PriceCents    int64    `json:"price_cents"`
	StockQty      *float64 `json:"stock_qty,omitempty"`
}

type BulkSyncRequest struct {
	Items []BulkSyncItem `json:"items"`
}

type DailyPriceItem struct {
	ItemID         string `json:"item_id"`
	WholesaleCents int64  `json:"wholesale_price_cents"`
	RetailCents    int64  `json:"retail_price_cents"`
}

type DailyPricingRequest struct {
	StartTime  string           `json:"start_time,omitempty"`
	ExpiryDate string           `json:"expiry_date,omitempty"`
	Items      []DailyPriceItem `json:"items"`
}

type InventoryUpdateRequest struct {
	PriceCents          *int64   `json:"price_cents,omitempty"`
	StockQty            *float64 `json:"stock_qty,omitempty"`
	WholesalePriceCents *int64   `json:"wholesale_price_cents,omitempty"`
	RetailPriceCents    *int64   `json:"retail_price_cents,omitempty"`
	StartTime           *string  `json:"start_time,omitempty"`
	ExpiryDate          *string  `json:"expiry_date,omitempty"`
}

type SyncResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

type TopItem struct {
	ItemID        string `json:"item_id"`
	Name          string `json:"name"`
	LocalizedName string `json:"localized_name"`
	Category      string `json:"category"`
	ImageURL      string `json:"image_url"`
	SaleCount     int64  `json:"sale_count"`
}

// LineSnapshot is the sale-time copy of catalogue display fields and price.
// It is never re-joined against the catalogue.
type LineSnapshot struct {
	Name           string `json:"name"`
	LocalizedName  string `json:"localized_name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type BillLine struct {
	ItemID string `json:"item_id"`
	LineSnapshot
	Grade          string  `json:"grade,omitempty"`
	Quantity       float64 `json:"quantity"`
	LineTotalCents int64   `json:"line_total_cents"`
}

type Bill struct {
	ID            string      `json:"id"`
	BillNumber    string      `json:"bill_number"`
	UserID        string      `json:"-"`
	ShopName      string      `json:"shop_name"`
	CustomerName  string      `json:"customer_name,omitempty"`
	SubtotalCents int64       `json:"subtotal_cents"`
	TaxCents      int64       `json:"tax_amount_cents"`
	TotalCents    int64       `json:"total_amount_cents"`
	BillingType   BillingType `json:"billing_type"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Lines         []BillLine  `json:"lines"`
}

// LineRequest references a catalogue item by id or, when the id is empty, by name.
type LineRequest struct {
	ItemID         string  `json:"item_id,omitempty"`
	Name           string  `json:"name,omitempty"`
	Quantity       float64 `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	LineTotalCents int64   `json:"line_total_cents"`
	Grade          string  `json:"grade,omitempty"`
}

type BillCreateRequest struct {
	CustomerName    string        `json:"customer_name,omitempty"`
	BillingType     string        `json:"billing_type"`
	BillNumber      string        `json:"bill_number,omitempty"`
	Lines           []LineRequest `json:"lines"`
	SubtotalCents   int64         `json:"subtotal_cents"`
	TaxCents        int64         `json:"tax_amount_cents"`
	GrandTotalCents int64         `json:"grand_total_cents"`
}

// BillUpdateRequest overrides only the fields that are set. A non-nil Lines
// replaces the entire line set.
type BillUpdateRequest struct {
	CustomerName  *string       `json:"customer_name,omitempty"`
	BillingType   *string       `json:"billing_type,omitempty"`
	SubtotalCents *int64        `json:"subtotal_cents,omitempty"`
	TaxCents      *int64        `json:"tax_amount_cents,omitempty"`
	TotalCents    *int64        `json:"total_amount_cents,omitempty"`
	Lines         []LineRequest `json:"lines,omitempty"`
}

type BillHistoryResponse struct {
	Bills []Bill `json:"bills"`
}

// DailySummary is the raw per-day aggregation computed by the store.
type DailySummary struct {
	RetailTotalCents    int64    `json:"retail_total_cents"`
	WholesaleTotalCents int64    `json:"wholesale_total_cents"`
	Bills               int      `json:"bills"`
	TopItemNames        []string `json:"top_item_names"`
}

type Dashboard struct {
	ShopName                 string   `json:"shop_name"`
	Date                     string   `json:"date"`
	TodayRetailTotalCents    int64    `json:"today_retail_total_cents"`
	TodayWholesaleTotalCents int64    `json:"today_wholesale_total_cents"`
	TotalBillsToday          int      `json:"total_bills_today"`
	TopSellingItemNames      []string `json:"top_selling_item_names"`
}
