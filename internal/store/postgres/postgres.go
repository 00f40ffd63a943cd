package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const billNumberConstraint = "bills_bill_number_key"

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	if user.ID == "" || user.Username == "" {
		return store.ErrInvalidRequest
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, shop_name, mobile_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Username, user.PasswordHash, string(user.Role), nullIfEmpty(user.ShopName), nullIfEmpty(user.MobileNumber), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateName
		}
		return err
	}
	return nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, "username", username)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *Store) findUser(ctx context.Context, column string, value string) (*domain.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, password_hash, role, COALESCE(shop_name, ''), COALESCE(mobile_number, ''), created_at
		FROM users
		WHERE %s = $1
	`, column)

	var user domain.User
	var role string
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &role, &user.ShopName, &user.MobileNumber, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}

const billColumns = `
	id, bill_number, user_id, COALESCE(shop_name, ''), COALESCE(customer_name, ''),
	subtotal_cents, tax_amount_cents, total_amount_cents, billing_type, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*domain.Bill, error) {
	var bill domain.Bill
	var billingType string
	if err := row.Scan(
		&bill.ID, &bill.BillNumber, &bill.UserID, &bill.ShopName, &bill.CustomerName,
		&bill.SubtotalCents, &bill.TaxCents, &bill.TotalCents, &billingType, &bill.CreatedAt, &bill.UpdatedAt,
	); err != nil {
		return nil, err
	}
	bill.BillingType = domain.BillingType(billingType)
	bill.Lines = []domain.BillLine{}
	return &bill, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadLines(ctx context.Context, q querier, bills []*domain.Bill) error {
	if len(bills) == 0 {
		return nil
	}
	ids := make([]string, 0, len(bills))
	byID := make(map[string]*domain.Bill, len(bills))
	for _, bill := range bills {
		ids = append(ids, bill.ID)
		byID[bill.ID] = bill
	}

	rows, err := q.QueryContext(ctx, `
		SELECT bill_id, vegetable_id, name, COALESCE(localized_name, ''), COALESCE(grade, ''),
			quantity, unit_price_cents, line_total_cents
		FROM bill_items
		WHERE bill_id = ANY($1)
		ORDER BY bill_id, id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var billID string
		var line domain.BillLine
		if err := rows.Scan(
			&billID, &line.ItemID, &line.Name, &line.LocalizedName, &line.Grade,
			&line.Quantity, &line.UnitPriceCents, &line.LineTotalCents,
		); err != nil {
			return err
		}
		if bill, ok := byID[billID]; ok {
			bill.Lines = append(bill.Lines, line)
		}
	}
	return rows.Err()
}

func (s *Store) FindBill(ctx context.Context, userID string, billID string) (*domain.Bill, error) {
	bill, err := scanBill(s.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1 AND user_id = $2`, billID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := loadLines(ctx, s.db, []*domain.Bill{bill}); err != nil {
		return nil, err
	}
	return bill, nil
}

func (s *Store) ListBills(ctx context.Context, userID string) ([]domain.Bill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ptrs := make([]*domain.Bill, 0, 32)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	if err := loadLines(ctx, s.db, ptrs); err != nil {
		return nil, err
	}

	bills := make([]domain.Bill, 0, len(ptrs))
	for _, bill := range ptrs {
		bills = append(bills, *bill)
	}
	return bills, nil
}

func (s *Store) ListInventory(ctx context.Context, userID string) ([]domain.InventoryView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.user_id, i.vegetable_id, i.stock_qty, i.price_cents, i.wholesale_price_cents, i.retail_price_cents,
			i.start_time, i.expiry_date, i.updated_at,
			v.name, COALESCE(v.localized_name, ''), COALESCE(v.category, ''), COALESCE(v.image_url, '')
		FROM inventory i
		JOIN vegetables v ON v.id = i.vegetable_id
		WHERE i.user_id = $1
		ORDER BY v.category, v.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]domain.InventoryView, 0, 64)
	for rows.Next() {
		var view domain.InventoryView
		var start, expiry sql.NullTime
		if err := rows.Scan(
			&view.UserID, &view.ItemID, &view.StockQty, &view.PriceCents, &view.WholesalePriceCents, &view.RetailPriceCents,
			&start, &expiry, &view.UpdatedAt,
			&view.Name, &view.LocalizedName, &view.Category, &view.ImageURL,
		); err != nil {
			return nil, err
		}
		view.StartTime = timePtr(start)
		view.ExpiryDate = timePtr(expiry)
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *Store) TopUsage(ctx context.Context, userID string, limit int) ([]domain.TopItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.name, COALESCE(v.localized_name, ''), COALESCE(v.category, ''), COALESCE(v.image_url, ''), u.sale_count
		FROM usage_counters u
		JOIN vegetables v ON v.id = u.vegetable_id
		WHERE u.user_id = $1
		ORDER BY u.sale_count DESC, u.id ASC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.TopItem, 0, limit)
	for rows.Next() {
		var item domain.TopItem
		if err := rows.Scan(&item.ItemID, &item.Name, &item.LocalizedName, &item.Category, &item.ImageURL, &item.SaleCount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DailySummary(ctx context.Context, userID string, day string, loc *time.Location, topN int) (domain.DailySummary, error) {
	if loc == nil {
		loc = time.UTC
	}
	zone := loc.String()
	summary := domain.DailySummary{TopItemNames: make([]string, 0, topN)}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(total_amount_cents) FILTER (WHERE billing_type <> 'wholesale'), 0),
			COALESCE(SUM(total_amount_cents) FILTER (WHERE billing_type = 'wholesale'), 0),
			COUNT(*)
		FROM bills
		WHERE user_id = $1 AND (created_at AT TIME ZONE $2)::date = $3::date
	`, userID, zone, day).Scan(&summary.RetailTotalCents, &summary.WholesaleTotalCents, &summary.Bills)
	if err != nil {
		return domain.DailySummary{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT bi.name
		FROM bill_items bi
		JOIN bills b ON b.id = bi.bill_id
		WHERE b.user_id = $1 AND (b.created_at AT TIME ZONE $2)::date = $3::date
		GROUP BY bi.name
		ORDER BY COUNT(*) DESC, MIN(bi.id) ASC
		LIMIT $4
	`, userID, zone, day, topN)
	if err != nil {
		return domain.DailySummary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return domain.DailySummary{}, err
		}
		summary.TopItemNames = append(summary.TopItemNames, name)
	}
	if err := rows.Err(); err != nil {
		return domain.DailySummary{}, err
	}
	return summary, nil
}

// WithinTx runs at READ COMMITTED; row locks taken through the Tx serialize
// writers on the same inventory row or bill instead of aborting them.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type pgTx struct {
	tx *sql.Tx
}

const itemColumns = `
	id, name, COALESCE(localized_name, ''), COALESCE(category, ''), COALESCE(image_url, ''),
	price_cents, retail_price_cents, wholesale_price_cents, created_at, updated_at
`

func scanItem(row rowScanner) (*domain.CatalogueItem, error) {
	var item domain.CatalogueItem
	if err := row.Scan(
		&item.ID, &item.Name, &item.LocalizedName, &item.Category, &item.ImageURL,
		&item.PriceCents, &item.RetailPriceCents, &item.WholesalePriceCents, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (t *pgTx) FindItemByID(ctx context.Context, id string) (*domain.CatalogueItem, error) {
	return scanItem(t.tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM vegetables WHERE id = $1`, id))
}

func (t *pgTx) FindItemByName(ctx context.Context, name string) (*domain.CatalogueItem, error) {
	return scanItem(t.tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM vegetables WHERE name = $1`, name))
}

func (t *pgTx) CreateItem(ctx context.Context, item domain.CatalogueItem) error {
	if item.ID == "" || item.Name == "" {
		return store.ErrInvalidRequest
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO vegetables (
			id, name, localized_name, category, image_url,
			price_cents, retail_price_cents, wholesale_price_cents, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		item.ID, item.Name, nullIfEmpty(item.LocalizedName), nullIfEmpty(item.Category), nullIfEmpty(item.ImageURL),
		item.PriceCents, item.RetailPriceCents, item.WholesalePriceCents, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateName
		}
		return err
	}
	return nil
}

// CreateItemIfMissing inserts unless the name is taken. A concurrent insert of
// the same name makes this wait for that transaction and then report false.
func (t *pgTx) CreateItemIfMissing(ctx context.Context, item domain.CatalogueItem) (bool, error) {
	if item.ID == "" || item.Name == "" {
		return false, store.ErrInvalidRequest
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO vegetables (
			id, name, localized_name, category, image_url,
			price_cents, retail_price_cents, wholesale_price_cents, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name) DO NOTHING
	`,
		item.ID, item.Name, nullIfEmpty(item.LocalizedName), nullIfEmpty(item.Category), nullIfEmpty(item.ImageURL),
		item.PriceCents, item.RetailPriceCents, item.WholesalePriceCents, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *pgTx) UpdateItemMetadata(ctx context.Context, id string, meta domain.ItemMetadata) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE vegetables
		SET localized_name = $2, category = $3, image_url = $4, updated_at = $5
		WHERE id = $1
	`, id, nullIfEmpty(meta.LocalizedName), nullIfEmpty(meta.Category), nullIfEmpty(meta.ImageURL), stamp(meta.UpdatedAt))
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (t *pgTx) UpdateItemPrices(ctx context.Context, id string, prices domain.ItemPrices) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE vegetables
		SET price_cents = $2, retail_price_cents = $3, wholesale_price_cents = $4, updated_at = $5
		WHERE id = $1
	`, id, prices.PriceCents, prices.RetailPriceCents, prices.WholesalePriceCents, stamp(prices.UpdatedAt))
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (t *pgTx) LockInventory(ctx context.Context, userID string, itemID string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	var start, expiry sql.NullTime
	err := t.tx.QueryRowContext(ctx, `
		SELECT user_id, vegetable_id, stock_qty, price_cents, wholesale_price_cents, retail_price_cents,
			start_time, expiry_date, updated_at
		FROM inventory
		WHERE user_id = $1 AND vegetable_id = $2
		FOR UPDATE
	`, userID, itemID).Scan(
		&rec.UserID, &rec.ItemID, &rec.StockQty, &rec.PriceCents, &rec.WholesalePriceCents, &rec.RetailPriceCents,
		&start, &expiry, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	rec.StartTime = timePtr(start)
	rec.ExpiryDate = timePtr(expiry)
	return &rec, nil
}

func (t *pgTx) UpsertInventory(ctx context.Context, rec domain.InventoryRecord) error {
	if rec.UserID == "" || rec.ItemID == "" {
		return store.ErrInvalidRequest
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO inventory (
			user_id, vegetable_id, stock_qty, price_cents, wholesale_price_cents, retail_price_cents,
			start_time, expiry_date, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, vegetable_id)
		DO UPDATE SET
			stock_qty = EXCLUDED.stock_qty,
			price_cents = EXCLUDED.price_cents,
			wholesale_price_cents = EXCLUDED.wholesale_price_cents,
			retail_price_cents = EXCLUDED.retail_price_cents,
			start_time = EXCLUDED.start_time,
			expiry_date = EXCLUDED.expiry_date,
			updated_at = EXCLUDED.updated_at
	`,
		rec.UserID, rec.ItemID, rec.StockQty, rec.PriceCents, rec.WholesalePriceCents, rec.RetailPriceCents,
		nullTime(rec.StartTime), nullTime(rec.ExpiryDate), rec.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

// InsertInventoryIfMissing never overwrites. When another transaction holds
// an uncommitted row for the same key this waits for it and reports false.
func (t *pgTx) InsertInventoryIfMissing(ctx context.Context, rec domain.InventoryRecord) (bool, error) {
	if rec.UserID == "" || rec.ItemID == "" {
		return false, store.ErrInvalidRequest
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO inventory (
			user_id, vegetable_id, stock_qty, price_cents, wholesale_price_cents, retail_price_cents,
			start_time, expiry_date, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, vegetable_id) DO NOTHING
	`,
		rec.UserID, rec.ItemID, rec.StockQty, rec.PriceCents, rec.WholesalePriceCents, rec.RetailPriceCents,
		nullTime(rec.StartTime), nullTime(rec.ExpiryDate), stamp(rec.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, store.ErrNotFound
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *pgTx) SetStock(ctx context.Context, userID string, itemID string, qty float64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE inventory
		SET stock_qty = $3, updated_at = now()
		WHERE user_id = $1 AND vegetable_id = $2
	`, userID, itemID, qty)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (t *pgTx) DeleteInventory(ctx context.Context, userID string, itemID string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM inventory WHERE user_id = $1 AND vegetable_id = $2`, userID, itemID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (t *pgTx) IncrementUsage(ctx context.Context, userID string, itemID string) (int64, error) {
	var count int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO usage_counters (user_id, vegetable_id, sale_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, vegetable_id)
		DO UPDATE SET sale_count = usage_counters.sale_count + 1
		RETURNING sale_count
	`, userID, itemID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (t *pgTx) InsertBill(ctx context.Context, bill domain.Bill) error {
	if bill.ID == "" || bill.BillNumber == "" || bill.UserID == "" {
		return store.ErrInvalidRequest
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bills (
			id, bill_number, user_id, shop_name, customer_name,
			subtotal_cents, tax_amount_cents, total_amount_cents, billing_type, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		bill.ID, bill.BillNumber, bill.UserID, nullIfEmpty(bill.ShopName), nullIfEmpty(bill.CustomerName),
		bill.SubtotalCents, bill.TaxCents, bill.TotalCents, string(bill.BillingType), bill.CreatedAt, bill.UpdatedAt,
	)
	if err != nil {
		if isConstraintViolation(err, billNumberConstraint) {
			return store.ErrDuplicateBillNumber
		}
		return err
	}
	return t.insertLines(ctx, bill.ID, bill.Lines)
}

func (t *pgTx) insertLines(ctx context.Context, billID string, lines []domain.BillLine) error {
	for _, line := range lines {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO bill_items (
				bill_id, vegetable_id, name, localized_name, grade, quantity, unit_price_cents, line_total_cents
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			billID, line.ItemID, line.Name, nullIfEmpty(line.LocalizedName), nullIfEmpty(line.Grade),
			line.Quantity, line.UnitPriceCents, line.LineTotalCents,
		); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) LockBill(ctx context.Context, userID string, billID string) (*domain.Bill, error) {
	bill, err := scanBill(t.tx.QueryRowContext(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, billID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := loadLines(ctx, t.tx, []*domain.Bill{bill}); err != nil {
		return nil, err
	}
	return bill, nil
}

func (t *pgTx) UpdateBillHeader(ctx context.Context, bill domain.Bill) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bills
		SET customer_name = $2, billing_type = $3, subtotal_cents = $4,
			tax_amount_cents = $5, total_amount_cents = $6, updated_at = $7
		WHERE id = $1
	`, bill.ID, nullIfEmpty(bill.CustomerName), string(bill.BillingType), bill.SubtotalCents, bill.TaxCents, bill.TotalCents, bill.UpdatedAt)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (t *pgTx) ReplaceBillLines(ctx context.Context, billID string, lines []domain.BillLine) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, billID); err != nil {
		return err
	}
	return t.insertLines(ctx, billID, lines)
}

func expectOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isConstraintViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func timePtr(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time.UTC()
	return &t
}

func stamp(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at
}
