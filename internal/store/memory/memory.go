package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"warungpos/backend/internal/analytics"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
)

// Store is an in-memory Repository used by tests and by dev mode when no
// DATABASE_URL is configured. Every mutating sale operation runs under
// one mutex, which gives the same all-or-nothing visibility the postgres
// store gets from serializable transactions.
type Store struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	customers map[string]domain.Customer
	salesByID map[string]domain.Sale
}

func New() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		customers: make(map[string]domain.Customer),
		salesByID: make(map[string]domain.Sale),
	}
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "prd-surya12", Name: "Surya 12", PurchasePrice: 24000, SellingPrice: 27000, InitialStock: 50, CurrentStock: 50, CreatedAt: now},
		{ID: "prd-sampoerna16", Name: "Sampoerna Mild 16", PurchasePrice: 29500, SellingPrice: 33000, InitialStock: 40, CurrentStock: 40, CreatedAt: now},
		{ID: "prd-gudanggaram16", Name: "Gudang Garam Filter 16", PurchasePrice: 26500, SellingPrice: 29500, InitialStock: 40, CurrentStock: 40, CreatedAt: now},
		{ID: "prd-djarum12", Name: "Djarum Super 12", PurchasePrice: 21500, SellingPrice: 24000, InitialStock: 30, CurrentStock: 30, CreatedAt: now},
		{ID: "prd-korek", Name: "Korek Gas", PurchasePrice: 2000, SellingPrice: 3500, InitialStock: 60, CurrentStock: 60, CreatedAt: now},
		{ID: "prd-airmineral", Name: "Air Mineral 600ml", PurchasePrice: 2500, SellingPrice: 4000, InitialStock: 48, CurrentStock: 48, CreatedAt: now},
		{ID: "prd-kopisachet", Name: "Kopi Sachet", PurchasePrice: 1500, SellingPrice: 2500, InitialStock: 100, CurrentStock: 100, CreatedAt: now},
	}

	s := New()
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Name == b.Name {
			return strings.Compare(a.ID, b.ID)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.PurchasePrice < 0 || product.SellingPrice < 0 || product.InitialStock < 0 {
		return nil, store.ErrInvalidSale
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidSale
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.CurrentStock = product.InitialStock

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrProductNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrProductNotFound
	}
	if product.Name == "" || product.PurchasePrice < 0 || product.SellingPrice < 0 {
		return nil, store.ErrInvalidSale
	}

	// Stock fields are owned by the ledger operations, not by update.
	product.InitialStock = existing.InitialStock
	product.CurrentStock = existing.CurrentStock
	product.CreatedAt = existing.CreatedAt

	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrProductNotFound
	}
	for _, sale := range s.salesByID {
		if sale.ProductID == id {
			return store.ErrProductInUse
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return 0, store.ErrProductNotFound
	}
	next := product.CurrentStock + delta
	if next < 0 {
		return 0, &store.InsufficientStockError{Remaining: product.CurrentStock}
	}
	product.CurrentStock = next
	s.products[productID] = product
	return next, nil
}

func (s *Store) SetStock(_ context.Context, productID string, qty int) (int, error) {
	if qty < 0 {
		return 0, store.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return 0, store.ErrProductNotFound
	}
	product.CurrentStock = qty
	s.products[productID] = product
	return qty, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCustomerLocked(customer)
}

// createCustomerLocked assumes s.mu is held. Duplicate names are allowed;
// identity is the generated id.
func (s *Store) createCustomerLocked(customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrCustomerCreation
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrCustomerCreation
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, store.ErrCustomerNotFound
	}
	found := customer
	return &found, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		if a.Name == b.Name {
			return strings.Compare(a.ID, b.ID)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return customers, nil
}

// RecordSale is the atomic sale-commit procedure: validate against the
// stock value under the lock, resolve or create the customer, insert the
// sale with frozen totals and decrement stock, all-or-nothing.
func (s *Store) RecordSale(_ context.Context, input domain.SaleInput) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[input.ProductID]
	if !exists {
		return nil, store.ErrProductNotFound
	}
	if input.Quantity < 1 {
		return nil, store.ErrInvalidQuantity
	}

	var customerID *string
	customerName := ""
	newCustomerName := strings.TrimSpace(input.NewCustomerName)
	switch input.PaymentStatus {
	case domain.StatusHutang:
		switch {
		case input.CustomerID != "":
			customer, ok := s.customers[input.CustomerID]
			if !ok {
				return nil, store.ErrCustomerNotFound
			}
			id := customer.ID
			customerID = &id
			customerName = customer.Name
		case newCustomerName != "":
			// Created below, after the stock check, so a rejected
			// sale leaves no customer behind.
		default:
			return nil, store.ErrMissingCustomer
		}
	case domain.StatusLunas:
		if input.CustomerID != "" || newCustomerName != "" {
			return nil, store.ErrInvalidSale
		}
	default:
		return nil, store.ErrInvalidSale
	}

	if input.Quantity > product.CurrentStock {
		return nil, &store.InsufficientStockError{Remaining: product.CurrentStock}
	}

	if input.PaymentStatus == domain.StatusHutang && customerID == nil {
		customer, err := s.createCustomerLocked(domain.Customer{Name: newCustomerName})
		if err != nil {
			return nil, err
		}
		id := customer.ID
		customerID = &id
		customerName = customer.Name
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

	product.CurrentStock -= input.Quantity
	s.products[product.ID] = product
	s.salesByID[sale.ID] = sale

	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrSaleNotFound
	}
	found := cloneSale(sale)
	return &found, nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		sales = append(sales, cloneSale(sale))
	}
	sortSalesNewestFirst(sales)
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

// EditSale recomputes totals from the target product's current prices and
// applies the compensating stock delta. Switching product returns every
// unit to the original product and charges the new one in full.
func (s *Store) EditSale(_ context.Context, saleID string, productID string, quantity int) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[saleID]
	if !exists {
		return nil, store.ErrSaleNotFound
	}
	if quantity < 1 {
		return nil, store.ErrInvalidQuantity
	}
	if productID == "" {
		productID = sale.ProductID
	}
	target, exists := s.products[productID]
	if !exists {
		return nil, store.ErrProductNotFound
	}

	if productID == sale.ProductID {
		delta := quantity - sale.Quantity
		if delta > target.CurrentStock {
			return nil, &store.InsufficientStockError{Remaining: target.CurrentStock}
		}
		target.CurrentStock -= delta
		s.products[target.ID] = target
	} else {
		if quantity > target.CurrentStock {
			return nil, &store.InsufficientStockError{Remaining: target.CurrentStock}
		}
		previous, ok := s.products[sale.ProductID]
		if !ok {
			return nil, store.ErrProductNotFound
		}
		previous.CurrentStock += sale.Quantity
		target.CurrentStock -= quantity
		s.products[previous.ID] = previous
		s.products[target.ID] = target
	}

	revenue := target.SellingPrice * int64(quantity)
	cost := target.PurchasePrice * int64(quantity)
	sale.ProductID = target.ID
	sale.ProductName = target.Name
	sale.Quantity = quantity
	sale.TotalRevenue = revenue
	sale.TotalCost = cost
	sale.TotalProfit = revenue - cost
	s.salesByID[sale.ID] = sale

	updated := cloneSale(sale)
	return &updated, nil
}

// DeleteSale removes the sale and always returns its units to stock.
func (s *Store) DeleteSale(_ context.Context, saleID string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[saleID]
	if !exists {
		return nil, store.ErrSaleNotFound
	}
	product, ok := s.products[sale.ProductID]
	if !ok {
		return nil, store.ErrProductNotFound
	}

	product.CurrentStock += sale.Quantity
	s.products[product.ID] = product
	delete(s.salesByID, saleID)

	removed := cloneSale(sale)
	return &removed, nil
}

// MarkSalePaid transitions Hutang to Lunas. A sale that is already Lunas
// is left untouched rather than rejected.
func (s *Store) MarkSalePaid(_ context.Context, saleID string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.salesByID[saleID]
	if !exists {
		return nil, store.ErrSaleNotFound
	}
	if sale.PaymentStatus == domain.StatusHutang {
		sale.PaymentStatus = domain.StatusLunas
		s.salesByID[sale.ID] = sale
	}
	paid := cloneSale(sale)
	return &paid, nil
}

func (s *Store) ListDebtors(_ context.Context) ([]domain.Debtor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCustomer := make(map[string]*domain.Debtor)
	for _, sale := range s.salesByID {
		if sale.PaymentStatus != domain.StatusHutang || sale.CustomerID == nil {
			continue
		}
		id := *sale.CustomerID
		debtor, ok := byCustomer[id]
		if !ok {
			name := sale.CustomerName
			if customer, exists := s.customers[id]; exists {
				name = customer.Name
			}
			debtor = &domain.Debtor{CustomerID: id, Name: name}
			byCustomer[id] = debtor
		}
		debtor.TotalDebt += sale.TotalRevenue
		debtor.SaleCount++
	}

	debtors := make([]domain.Debtor, 0, len(byCustomer))
	for _, debtor := range byCustomer {
		debtors = append(debtors, *debtor)
	}
	slices.SortFunc(debtors, func(a, b domain.Debtor) int {
		if a.TotalDebt == b.TotalDebt {
			return strings.Compare(a.CustomerID, b.CustomerID)
		}
		if a.TotalDebt > b.TotalDebt {
			return -1
		}
		return 1
	})
	return debtors, nil
}

func (s *Store) ListDebtSales(_ context.Context, customerID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.customers[customerID]; !exists {
		return nil, store.ErrCustomerNotFound
	}

	sales := make([]domain.Sale, 0, 8)
	for _, sale := range s.salesByID {
		if sale.PaymentStatus != domain.StatusHutang || sale.CustomerID == nil || *sale.CustomerID != customerID {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}
	sortSalesNewestFirst(sales)
	return sales, nil
}

func (s *Store) TopProductsByQuantity(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.ProductQuantityStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]*domain.ProductQuantityStat)
	for _, sale := range s.salesByID {
		if !analytics.InRange(sale.CreatedAt, from, to) {
			continue
		}
		stat, ok := totals[sale.ProductID]
		if !ok {
			stat = &domain.ProductQuantityStat{ProductID: sale.ProductID, Name: s.productName(sale)}
			totals[sale.ProductID] = stat
		}
		stat.TotalQty += int64(sale.Quantity)
	}

	stats := make([]domain.ProductQuantityStat, 0, len(totals))
	for _, stat := range totals {
		stats = append(stats, *stat)
	}
	slices.SortFunc(stats, func(a, b domain.ProductQuantityStat) int {
		if a.TotalQty == b.TotalQty {
			return strings.Compare(a.ProductID, b.ProductID)
		}
		if a.TotalQty > b.TotalQty {
			return -1
		}
		return 1
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

func (s *Store) TopProductsByProfit(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.ProductProfitStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]*domain.ProductProfitStat)
	for _, sale := range s.salesByID {
		if !analytics.InRange(sale.CreatedAt, from, to) {
			continue
		}
		stat, ok := totals[sale.ProductID]
		if !ok {
			stat = &domain.ProductProfitStat{ProductID: sale.ProductID, Name: s.productName(sale)}
			totals[sale.ProductID] = stat
		}
		stat.TotalProfit += sale.TotalProfit
	}

	stats := make([]domain.ProductProfitStat, 0, len(totals))
	for _, stat := range totals {
		stats = append(stats, *stat)
	}
	slices.SortFunc(stats, func(a, b domain.ProductProfitStat) int {
		if a.TotalProfit == b.TotalProfit {
			return strings.Compare(a.ProductID, b.ProductID)
		}
		if a.TotalProfit > b.TotalProfit {
			return -1
		}
		return 1
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

// productName assumes s.mu is held (read or write).
func (s *Store) productName(sale domain.Sale) string {
	if product, ok := s.products[sale.ProductID]; ok {
		return product.Name
	}
	return sale.ProductName
}

func sortSalesNewestFirst(sales []domain.Sale) {
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
}

func cloneSale(sale domain.Sale) domain.Sale {
	copied := sale
	if sale.CustomerID != nil {
		id := *sale.CustomerID
		copied.CustomerID = &id
	}
	return copied
}
