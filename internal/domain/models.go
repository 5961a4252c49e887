package domain

import "time"

// Payment status of a sale. Lunas means paid in full, Hutang means the
// amount is still owed by the attached customer.
const (
	StatusLunas  = "Lunas"
	StatusHutang = "Hutang"
)

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	PurchasePrice int64     `json:"purchase_price"`
	SellingPrice  int64     `json:"selling_price"`
	InitialStock  int       `json:"initial_stock"`
	CurrentStock  int       `json:"current_stock"`
	CreatedAt     time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	Name          string `json:"name"`
	PurchasePrice int64  `json:"purchase_price"`
	SellingPrice  int64  `json:"selling_price"`
	InitialStock  int    `json:"initial_stock"`
}

type ProductUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	PurchasePrice *int64  `json:"purchase_price,omitempty"`
	SellingPrice  *int64  `json:"selling_price,omitempty"`
}

// StockAdjustRequest mutates product stock through the single ledger
// choke point. Op is one of "add", "subtract" or "set".
type StockAdjustRequest struct {
	Op  string `json:"op"`
	Qty int    `json:"qty"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name string `json:"name"`
}

// Sale is one committed sale transaction. Revenue, cost and profit are
// frozen at commit time; later price changes on the product never alter
// them. CustomerID is nil for cash (Lunas) sales.
type Sale struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	CustomerID    *string   `json:"customer_id,omitempty"`
	CustomerName  string    `json:"customer_name,omitempty"`
	Quantity      int       `json:"quantity"`
	TotalRevenue  int64     `json:"total_revenue"`
	TotalCost     int64     `json:"total_cost"`
	TotalProfit   int64     `json:"total_profit"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
}

type SaleCreateRequest struct {
	ProductID       string `json:"product_id"`
	Quantity        int    `json:"quantity"`
	PaymentStatus   string `json:"payment_status"`
	CustomerID      string `json:"customer_id,omitempty"`
	NewCustomerName string `json:"new_customer_name,omitempty"`
}

type SaleEditRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// SaleInput is the normalized input handed to the store's atomic
// record-sale procedure after the service has validated shape.
type SaleInput struct {
	ProductID       string
	Quantity        int
	PaymentStatus   string
	CustomerID      string
	NewCustomerName string
	CreatedAt       time.Time
}

// Debtor is a derived aggregate: the sum of revenue over a customer's
// unpaid sales. It is recomputed from the sale log on every call and is
// never stored.
type Debtor struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	TotalDebt  int64  `json:"total_debt"`
	SaleCount  int    `json:"sale_count"`
}

type ProductQuantityStat struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	TotalQty  int64  `json:"total_qty"`
}

type ProductProfitStat struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	TotalProfit int64  `json:"total_profit"`
}

type TopQuantityResponse struct {
	Window      string                `json:"window"`
	GeneratedAt string                `json:"generated_at"`
	Items       []ProductQuantityStat `json:"items"`
}

type TopProfitResponse struct {
	Window      string              `json:"window"`
	GeneratedAt string              `json:"generated_at"`
	Items       []ProductProfitStat `json:"items"`
}

type DebtorListResponse struct {
	Debtors []Debtor `json:"debtors"`
}

type DebtSalesResponse struct {
	Customer Customer `json:"customer"`
	Sales    []Sale   `json:"sales"`
}
