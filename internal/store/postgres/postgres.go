package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
)

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

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, purchase_price, selling_price, initial_stock, current_stock, created_at
		FROM products
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PurchasePrice, &p.SellingPrice, &p.InitialStock, &p.CurrentStock, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.PurchasePrice < 0 || product.SellingPrice < 0 || product.InitialStock < 0 {
		return nil, store.ErrInvalidSale
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.CurrentStock = product.InitialStock

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, purchase_price, selling_price, initial_stock, current_stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
	`, product.ID, product.Name, product.PurchasePrice, product.SellingPrice, product.InitialStock, product.CurrentStock, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidSale
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, purchase_price, selling_price, initial_stock, current_stock, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Name, &product.PurchasePrice, &product.SellingPrice, &product.InitialStock, &product.CurrentStock, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		return nil, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.PurchasePrice < 0 || product.SellingPrice < 0 {
		return nil, store.ErrInvalidSale
	}

	// Stock columns are owned by the ledger operations, not by update.
	var updated domain.Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, purchase_price = $3, selling_price = $4, updated_at = now()
		WHERE id = $1
		RETURNING id, name, purchase_price, selling_price, initial_stock, current_stock, created_at
	`, product.ID, product.Name, product.PurchasePrice, product.SellingPrice).Scan(
		&updated.ID,
		&updated.Name,
		&updated.PurchasePrice,
		&updated.SellingPrice,
		&updated.InitialStock,
		&updated.CurrentStock,
		&updated.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		return nil, err
	}
	updated.CreatedAt = updated.CreatedAt.UTC()
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sales WHERE product_id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return store.ErrProductInUse
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrProductNotFound
	}

	return tx.Commit()
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var current int
	err = tx.QueryRowContext(ctx, `
		SELECT current_stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrProductNotFound
		}
		return 0, err
	}

	next := current + delta
	if next < 0 {
		return 0, &store.InsufficientStockError{Remaining: current}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET current_stock = $2, updated_at = now()
		WHERE id = $1
	`, productID, next)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) SetStock(ctx context.Context, productID string, qty int) (int, error) {
	if qty < 0 {
		return 0, store.ErrInvalidQuantity
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET current_stock = $2, updated_at = now()
		WHERE id = $1
	`, productID, qty)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, store.ErrProductNotFound
	}
	return qty, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrCustomerCreation
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, created_at)
		VALUES ($1,$2,$3)
	`, customer.ID, customer.Name, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrCustomerCreation
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Name, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCustomerNotFound
		}
		return nil, err
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM customers
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// RecordSale commits one sale in a single serializable transaction. The
// product row is locked before the stock check, so the quantity is
// validated against the stock value at commit time and the sale insert
// and stock decrement land together or not at all.
func (s *Store) RecordSale(ctx context.Context, input domain.SaleInput) (*domain.Sale, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var product domain.Product
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, name, purchase_price, selling_price, current_stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, input.ProductID).Scan(&product.ID, &product.Name, &product.PurchasePrice, &product.SellingPrice, &product.CurrentStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		return nil, err
	}
	if input.Quantity < 1 {
		return nil, store.ErrInvalidQuantity
	}

	var customerID *string
	customerName := ""
	switch input.PaymentStatus {
	case domain.StatusHutang:
		switch {
		case input.CustomerID != "":
			var customer domain.Customer
			err = pgTx.QueryRowContext(ctx, `
				SELECT id, name
				FROM customers
				WHERE id = $1
			`, input.CustomerID).Scan(&customer.ID, &customer.Name)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, store.ErrCustomerNotFound
				}
				return nil, err
			}
			customerID = &customer.ID
			customerName = customer.Name
		case strings.TrimSpace(input.NewCustomerName) != "":
			id := xid.New("cus")
			name := strings.TrimSpace(input.NewCustomerName)
			_, err = pgTx.ExecContext(ctx, `
				INSERT INTO customers (id, name, created_at)
				VALUES ($1,$2,now())
			`, id, name)
			if err != nil {
				return nil, store.ErrCustomerCreation
			}
			customerID = &id
			customerName = name
		default:
			return nil, store.ErrMissingCustomer
		}
	case domain.StatusLunas:
		if input.CustomerID != "" || strings.TrimSpace(input.NewCustomerName) != "" {
			return nil, store.ErrInvalidSale
		}
	default:
		return nil, store.ErrInvalidSale
	}

	if input.Quantity > product.CurrentStock {
		return nil, &store.InsufficientStockError{Remaining: product.CurrentStock}
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	revenue := product.SellingPrice * int64(input.Quantity)
	cost := product.PurchasePrice * int64(input.Quantity)
	sale := domain.Sale{
		ID:            xid.New("sale"),
		ProductID:     product.ID,
		ProductName:   product.Name,
		CustomerID:    customerID,
		CustomerName:  customerName,
		Quantity:      input.Quantity,
		TotalRevenue:  revenue,
		TotalCost:     cost,
		TotalProfit:   revenue - cost,
		PaymentStatus: input.PaymentStatus,
		CreatedAt:     createdAt,
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (id, product_id, customer_id, quantity, total_revenue, total_cost, total_profit, payment_status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, sale.ID, sale.ProductID, nullIfNilString(sale.CustomerID), sale.Quantity, sale.TotalRevenue, sale.TotalCost, sale.TotalProfit, sale.PaymentStatus, sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE products
		SET current_stock = current_stock - $1, updated_at = now()
		WHERE id = $2
	`, sale.Quantity, sale.ProductID)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	var customerID sql.NullString
	var customerName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.product_id, p.name, s.customer_id, c.name,
			s.quantity, s.total_revenue, s.total_cost, s.total_profit, s.payment_status, s.created_at
		FROM sales s
		JOIN products p ON p.id = s.product_id
		LEFT JOIN customers c ON c.id = s.customer_id
		WHERE s.id = $1
	`, id).Scan(
		&sale.ID,
		&sale.ProductID,
		&sale.ProductName,
		&customerID,
		&customerName,
		&sale.Quantity,
		&sale.TotalRevenue,
		&sale.TotalCost,
		&sale.TotalProfit,
		&sale.PaymentStatus,
		&sale.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSaleNotFound
		}
		return nil, err
	}
	applyCustomer(&sale, customerID, customerName)
	sale.CreatedAt = sale.CreatedAt.UTC()
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.product_id, p.name, s.customer_id, c.name,
			s.quantity, s.total_revenue, s.total_cost, s.total_profit, s.payment_status, s.created_at
		FROM sales s
		JOIN products p ON p.id = s.product_id
		LEFT JOIN customers c ON c.id = s.customer_id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSales(rows, limit)
}

// EditSale applies a compensating stock delta inside one serializable
// transaction. Switching product returns every unit to the original
// product and charges the new one in full. Totals are recomputed from
// the target product's current prices.
func (s *Store) EditSale(ctx context.Context, saleID string, productID string, quantity int) (*domain.Sale, error) {
	if quantity < 1 {
		return nil, store.ErrInvalidQuantity
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var sale domain.Sale
	var customerID sql.NullString
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, product_id, customer_id, quantity, payment_status, created_at
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, saleID).Scan(&sale.ID, &sale.ProductID, &customerID, &sale.Quantity, &sale.PaymentStatus, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSaleNotFound
		}
		return nil, err
	}
	if customerID.Valid {
		id := customerID.String
		sale.CustomerID = &id
	}

	if productID == "" {
		productID = sale.ProductID
	}

	var target domain.Product
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, name, purchase_price, selling_price, current_stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(&target.ID, &target.Name, &target.PurchasePrice, &target.SellingPrice, &target.CurrentStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		return nil, err
	}

	if productID == sale.ProductID {
		delta := quantity - sale.Quantity
		if delta > target.CurrentStock {
			return nil, &store.InsufficientStockError{Remaining: target.CurrentStock}
		}
		_, err = pgTx.ExecContext(ctx, `
			UPDATE products
			SET current_stock = current_stock - $1, updated_at = now()
			WHERE id = $2
		`, delta, target.ID)
		if err != nil {
			return nil, err
		}
	} else {
		if quantity > target.CurrentStock {
			return nil, &store.InsufficientStockError{Remaining: target.CurrentStock}
		}
		_, err = pgTx.ExecContext(ctx, `
			UPDATE products
			SET current_stock = current_stock + $1, updated_at = now()
			WHERE id = $2
		`, sale.Quantity, sale.ProductID)
		if err != nil {
			return nil, err
		}
		_, err = pgTx.ExecContext(ctx, `
			UPDATE products
			SET current_stock = current_stock - $1, updated_at = now()
			WHERE id = $2
		`, quantity, target.ID)
		if err != nil {
			return nil, err
		}
	}

	revenue := target.SellingPrice * int64(quantity)
	cost := target.PurchasePrice * int64(quantity)
	_, err = pgTx.ExecContext(ctx, `
		UPDATE sales
		SET product_id = $2, quantity = $3, total_revenue = $4, total_cost = $5, total_profit = $6
		WHERE id = $1
	`, sale.ID, target.ID, quantity, revenue, cost, revenue-cost)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	sale.ProductID = target.ID
	sale.ProductName = target.Name
	sale.Quantity = quantity
	sale.TotalRevenue = revenue
	sale.TotalCost = cost
	sale.TotalProfit = revenue - cost
	sale.CreatedAt = sale.CreatedAt.UTC()
	if sale.CustomerID != nil {
		customer, err := s.GetCustomerByID(ctx, *sale.CustomerID)
		if err == nil {
			sale.CustomerName = customer.Name
		}
	}
	return &sale, nil
}

// DeleteSale removes the sale and always returns its units to stock,
// whatever the payment status.
func (s *Store) DeleteSale(ctx context.Context, saleID string) (*domain.Sale, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var sale domain.Sale
	var customerID sql.NullString
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, product_id, customer_id, quantity, total_revenue, total_cost, total_profit, payment_status, created_at
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, saleID).Scan(
		&sale.ID,
		&sale.ProductID,
		&customerID,
		&sale.Quantity,
		&sale.TotalRevenue,
		&sale.TotalCost,
		&sale.TotalProfit,
		&sale.PaymentStatus,
		&sale.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSaleNotFound
		}
		return nil, err
	}
	if customerID.Valid {
		id := customerID.String
		sale.CustomerID = &id
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE products
		SET current_stock = current_stock + $1, updated_at = now()
		WHERE id = $2
	`, sale.Quantity, sale.ProductID)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	sale.CreatedAt = sale.CreatedAt.UTC()
	return &sale, nil
}

// MarkSalePaid transitions Hutang to Lunas. A sale that is already Lunas
// is returned unchanged rather than rejected.
func (s *Store) MarkSalePaid(ctx context.Context, saleID string) (*domain.Sale, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var status string
	err = pgTx.QueryRowContext(ctx, `
		SELECT payment_status
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, saleID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSaleNotFound
		}
		return nil, err
	}

	if status == domain.StatusHutang {
		_, err = pgTx.ExecContext(ctx, `
			UPDATE sales
			SET payment_status = $2
			WHERE id = $1
		`, saleID, domain.StatusLunas)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return s.GetSaleByID(ctx, saleID)
}

func (s *Store) ListDebtors(ctx context.Context) ([]domain.Debtor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COALESCE(SUM(s.total_revenue),0)::bigint, COUNT(*)::int
		FROM sales s
		JOIN customers c ON c.id = s.customer_id
		WHERE s.payment_status = $1
		GROUP BY c.id, c.name
		ORDER BY SUM(s.total_revenue) DESC, c.id ASC
	`, domain.StatusHutang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debtors := make([]domain.Debtor, 0, 16)
	for rows.Next() {
		var d domain.Debtor
		if err := rows.Scan(&d.CustomerID, &d.Name, &d.TotalDebt, &d.SaleCount); err != nil {
			return nil, err
		}
		debtors = append(debtors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return debtors, nil
}

func (s *Store) ListDebtSales(ctx context.Context, customerID string) ([]domain.Sale, error) {
	if _, err := s.GetCustomerByID(ctx, customerID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.product_id, p.name, s.customer_id, c.name,
			s.quantity, s.total_revenue, s.total_cost, s.total_profit, s.payment_status, s.created_at
		FROM sales s
		JOIN products p ON p.id = s.product_id
		LEFT JOIN customers c ON c.id = s.customer_id
		WHERE s.customer_id = $1 AND s.payment_status = $2
		ORDER BY s.created_at DESC, s.id DESC
	`, customerID, domain.StatusHutang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSales(rows, 16)
}

func (s *Store) TopProductsByQuantity(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.ProductQuantityStat, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.product_id, p.name, COALESCE(SUM(s.quantity),0)::bigint
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE ($1::timestamptz IS NULL OR s.created_at >= $1)
			AND ($2::timestamptz IS NULL OR s.created_at < $2)
		GROUP BY s.product_id, p.name
		ORDER BY SUM(s.quantity) DESC, s.product_id ASC
		LIMIT $3
	`, nullableTime(from), nullableTime(to), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]domain.ProductQuantityStat, 0, limit)
	for rows.Next() {
		var stat domain.ProductQuantityStat
		if err := rows.Scan(&stat.ProductID, &stat.Name, &stat.TotalQty); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) TopProductsByProfit(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.ProductProfitStat, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.product_id, p.name, COALESCE(SUM(s.total_profit),0)::bigint
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE ($1::timestamptz IS NULL OR s.created_at >= $1)
			AND ($2::timestamptz IS NULL OR s.created_at < $2)
		GROUP BY s.product_id, p.name
		ORDER BY SUM(s.total_profit) DESC, s.product_id ASC
		LIMIT $3
	`, nullableTime(from), nullableTime(to), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]domain.ProductProfitStat, 0, limit)
	for rows.Next() {
		var stat domain.ProductProfitStat
		if err := rows.Scan(&stat.ProductID, &stat.Name, &stat.TotalProfit); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func scanSales(rows *sql.Rows, sizeHint int) ([]domain.Sale, error) {
	sales := make([]domain.Sale, 0, sizeHint)
	for rows.Next() {
		var sale domain.Sale
		var customerID sql.NullString
		var customerName sql.NullString
		if err := rows.Scan(
			&sale.ID,
			&sale.ProductID,
			&sale.ProductName,
			&customerID,
			&customerName,
			&sale.Quantity,
			&sale.TotalRevenue,
			&sale.TotalCost,
			&sale.TotalProfit,
			&sale.PaymentStatus,
			&sale.CreatedAt,
		); err != nil {
			return nil, err
		}
		applyCustomer(&sale, customerID, customerName)
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func applyCustomer(sale *domain.Sale, id sql.NullString, name sql.NullString) {
	if id.Valid {
		customerID := id.String
		sale.CustomerID = &customerID
	}
	if name.Valid {
		sale.CustomerName = name.String
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfNilString(val *string) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
