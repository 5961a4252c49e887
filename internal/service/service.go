package service

import (
	"context"
	"log"
	"strings"
	"time"

	"warungpos/backend/internal/analytics"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/notify"
	"warungpos/backend/internal/store"
)

type Service struct {
	repo     store.Repository
	notifier notify.Notifier
	loc      *time.Location
}

func New(repo store.Repository, notifier notify.Notifier, loc *time.Location) *Service {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Service{
		repo:     repo,
		notifier: notifier,
		loc:      loc,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Product{}, store.ErrInvalidSale
	}
	if req.PurchasePrice < 0 || req.SellingPrice < 0 || req.InitialStock < 0 {
		return domain.Product{}, store.ErrInvalidSale
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:          req.Name,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		InitialStock:  req.InitialStock,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.publish(ctx, notify.EntityProduct, notify.ActionCreated, created.ID)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.Name = name
	}
	if req.PurchasePrice != nil {
		if *req.PurchasePrice < 0 {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.PurchasePrice = *req.PurchasePrice
	}
	if req.SellingPrice != nil {
		if *req.SellingPrice < 0 {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.SellingPrice = *req.SellingPrice
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.publish(ctx, notify.EntityProduct, notify.ActionUpdated, saved.ID)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, notify.EntityProduct, notify.ActionDeleted, id)
	return nil
}

// AdjustStock funnels every manual stock mutation through one entry
// point. Sale operations adjust stock themselves inside their atomic
// procedures and never pass through here.
func (s *Service) AdjustStock(ctx context.Context, productID string, req domain.StockAdjustRequest) (int, error) {
	var (
		qty int
		err error
	)
	switch req.Op {
	case "add":
		if req.Qty < 1 {
			return 0, store.ErrInvalidQuantity
		}
		qty, err = s.repo.AdjustStock(ctx, productID, req.Qty)
	case "subtract":
		if req.Qty < 1 {
			return 0, store.ErrInvalidQuantity
		}
		qty, err = s.repo.AdjustStock(ctx, productID, -req.Qty)
	case "set":
		if req.Qty < 0 {
			return 0, store.ErrInvalidQuantity
		}
		qty, err = s.repo.SetStock(ctx, productID, req.Qty)
	default:
		return 0, store.ErrInvalidSale
	}
	if err != nil {
		return 0, err
	}

	s.publish(ctx, notify.EntityProduct, notify.ActionUpdated, productID)
	return qty, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, store.ErrCustomerCreation
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{Name: name})
	if err != nil {
		return domain.Customer{}, err
	}

	s.publish(ctx, notify.EntityCustomer, notify.ActionCreated, created.ID)
	return *created, nil
}

// RecordSale validates the request shape and hands off to the store's
// atomic commit procedure. Validation order is fixed: product existence,
// then quantity, then the customer requirement of a Hutang sale, then
// stock sufficiency inside the store.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.NewCustomerName = strings.TrimSpace(req.NewCustomerName)
	req.PaymentStatus = normalizeStatus(req.PaymentStatus)

	if _, err := s.repo.GetProductByID(ctx, req.ProductID); err != nil {
		return domain.Sale{}, err
	}
	if req.Quantity < 1 {
		return domain.Sale{}, store.ErrInvalidQuantity
	}

	switch req.PaymentStatus {
	case domain.StatusHutang:
		if req.CustomerID == "" && req.NewCustomerName == "" {
			return domain.Sale{}, store.ErrMissingCustomer
		}
	case domain.StatusLunas:
		if req.CustomerID != "" || req.NewCustomerName != "" {
			return domain.Sale{}, store.ErrInvalidSale
		}
	default:
		return domain.Sale{}, store.ErrInvalidSale
	}

	sale, err := s.repo.RecordSale(ctx, domain.SaleInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		PaymentStatus:   req.PaymentStatus,
		CustomerID:      req.CustomerID,
		NewCustomerName: req.NewCustomerName,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.publish(ctx, notify.EntitySale, notify.ActionCreated, sale.ID)
	return *sale, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) EditSale(ctx context.Context, saleID string, req domain.SaleEditRequest) (domain.Sale, error) {
	if req.Quantity < 1 {
		return domain.Sale{}, store.ErrInvalidQuantity
	}

	sale, err := s.repo.EditSale(ctx, saleID, strings.TrimSpace(req.ProductID), req.Quantity)
	if err != nil {
		return domain.Sale{}, err
	}

	s.publish(ctx, notify.EntitySale, notify.ActionUpdated, sale.ID)
	return *sale, nil
}

func (s *Service) DeleteSale(ctx context.Context, saleID string) (domain.Sale, error) {
	sale, err := s.repo.DeleteSale(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}

	s.publish(ctx, notify.EntitySale, notify.ActionDeleted, sale.ID)
	return *sale, nil
}

func (s *Service) MarkSalePaid(ctx context.Context, saleID string) (domain.Sale, error) {
	sale, err := s.repo.MarkSalePaid(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}

	s.publish(ctx, notify.EntitySale, notify.ActionPaid, sale.ID)
	return *sale, nil
}

func (s *Service) ListDebtors(ctx context.Context) (domain.DebtorListResponse, error) {
	debtors, err := s.repo.ListDebtors(ctx)
	if err != nil {
		return domain.DebtorListResponse{}, err
	}
	return domain.DebtorListResponse{Debtors: debtors}, nil
}

func (s *Service) ListDebtSales(ctx context.Context, customerID string) (domain.DebtSalesResponse, error) {
	customer, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		return domain.DebtSalesResponse{}, err
	}

	sales, err := s.repo.ListDebtSales(ctx, customerID)
	if err != nil {
		return domain.DebtSalesResponse{}, err
	}

	return domain.DebtSalesResponse{Customer: *customer, Sales: sales}, nil
}

func (s *Service) TopProductsByQuantity(ctx context.Context, window analytics.Window, limit int) (domain.TopQuantityResponse, error) {
	now := time.Now().In(s.loc)
	from, to := window.Range(now)

	items, err := s.repo.TopProductsByQuantity(ctx, from, to, limit)
	if err != nil {
		return domain.TopQuantityResponse{}, err
	}

	return domain.TopQuantityResponse{
		Window:      string(window),
		GeneratedAt: now.Format(time.RFC3339),
		Items:       items,
	}, nil
}

func (s *Service) TopProductsByProfit(ctx context.Context, window analytics.Window, limit int) (domain.TopProfitResponse, error) {
	now := time.Now().In(s.loc)
	from, to := window.Range(now)

	items, err := s.repo.TopProductsByProfit(ctx, from, to, limit)
	if err != nil {
		return domain.TopProfitResponse{}, err
	}

	return domain.TopProfitResponse{
		Window:      string(window),
		GeneratedAt: now.Format(time.RFC3339),
		Items:       items,
	}, nil
}

// publish runs after the store has committed. A failed publish only
// loses a refresh hint, so it is logged and swallowed.
func (s *Service) publish(ctx context.Context, entity string, action string, id string) {
	event := notify.Event{
		Entity: entity,
		Action: action,
		ID:     id,
		At:     time.Now().UTC(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		log.Printf("[service] WARN: failed to publish %s/%s event id=%s: %v", entity, action, id, err)
	}
}

func normalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case strings.ToLower(domain.StatusLunas):
		return domain.StatusLunas
	case strings.ToLower(domain.StatusHutang):
		return domain.StatusHutang
	default:
		return strings.TrimSpace(raw)
	}
}
