package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warungpos/backend/internal/domain"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrSaleNotFound      = errors.New("sale not found")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrMissingCustomer   = errors.New("customer required for hutang sale")
	ErrCustomerCreation  = errors.New("customer creation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidSale       = errors.New("invalid sale request")
	ErrProductInUse      = errors.New("product has recorded sales")
)

// InsufficientStockError carries the stock that was actually available
// at the instant of the failed commit, so callers can show the user how
// many units remain.
type InsufficientStockError struct {
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d remaining", e.Remaining)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Repository is the persistence contract of the sale transaction engine.
// RecordSale, EditSale, DeleteSale and MarkSalePaid must each execute as
// one atomic unit: a failure partway leaves the product and sale tables
// exactly as they were before the call.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, productID string, delta int) (int, error)
	SetStock(ctx context.Context, productID string, qty int) (int, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)

	RecordSale(ctx context.Context, input domain.SaleInput) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	EditSale(ctx context.Context, saleID string, productID string, quantity int) (*domain.Sale, error)
	DeleteSale(ctx context.Context, saleID string) (*domain.Sale, error)
	MarkSalePaid(ctx context.Context, saleID string) (*domain.Sale, error)

	ListDebtors(ctx context.Context) ([]domain.Debtor, error)
	ListDebtSales(ctx context.Context, customerID string) ([]domain.Sale, error)

	TopProductsByQuantity(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.ProductQuantityStat, error)
	TopProductsByProfit(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.ProductProfitStat, error)
}
