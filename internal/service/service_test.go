package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"warungpos/backend/internal/analytics"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/notify"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.New(), notify.NoopNotifier{}, time.UTC)
}

func createProduct(t *testing.T, svc *Service, name string, purchase int64, selling int64, stock int) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), domain.ProductCreateRequest{
		Name:          name,
		PurchasePrice: purchase,
		SellingPrice:  selling,
		InitialStock:  stock,
	})
	if err != nil {
		t.Fatalf("create product %s failed: %v", name, err)
	}
	return product
}

func TestRecordSaleDecrementsStockAndFreezesTotals(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Surya 12", 24000, 27000, 10)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     product.ID,
		Quantity:      3,
		PaymentStatus: domain.StatusLunas,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	if sale.TotalRevenue != 81000 {
		t.Fatalf("expected revenue 81000, got %d", sale.TotalRevenue)
	}
	if sale.TotalCost != 72000 {
		t.Fatalf("expected cost 72000, got %d", sale.TotalCost)
	}
	if sale.TotalProfit != 9000 {
		t.Fatalf("expected profit 9000, got %d", sale.TotalProfit)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.CurrentStock != 7 {
		t.Fatalf("expected stock 7 after sale, got %d", after.CurrentStock)
	}
}

func TestRecordSaleTotalsSurvivePriceChange(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Kopi Sachet", 1500, 2500, 100)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     product.ID,
		Quantity:      4,
		PaymentStatus: domain.StatusLunas,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	newSelling := int64(3000)
	if _, err := svc.UpdateProduct(ctx, product.ID, domain.ProductUpdateRequest{SellingPrice: &newSelling}); err != nil {
		t.Fatalf("update product failed: %v", err)
	}

	fetched, err := svc.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale failed: %v", err)
	}
	if fetched.TotalRevenue != 10000 {
		t.Fatalf("expected frozen revenue 10000 after price change, got %d", fetched.TotalRevenue)
	}
	if fetched.TotalProfit != 4000 {
		t.Fatalf("expected frozen profit 4000 after price change, got %d", fetched.TotalProfit)
	}
}

func TestRecordSaleValidationOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Korek Gas", 2000, 3500, 5)

	// Unknown product wins over the invalid quantity.
	_, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     "prd-missing",
		Quantity:      0,
		PaymentStatus: domain.StatusLunas,
	})
	if !errors.Is(err, store.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	_, err = svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     product.ID,
		Quantity:      0,
		PaymentStatus: domain.StatusHutang,
	})
	if !errors.Is(err, store.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	_, err = svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     product.ID,
		Quantity:      2,
		PaymentStatus: domain.StatusHutang,
	})
	if !errors.Is(err, store.ErrMissingCustomer) {
		t.Fatalf("expected ErrMissingCustomer, got %v", err)
	}
}

func TestRecordSaleInsufficientStockReportsRemaining(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Djarum Super 12", 21500, 24000, 3)

	_, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     product.ID,
		Quantity:      5,
		PaymentStatus: domain.StatusLunas,
	})
	var stockErr *store.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Remaining != 3 {
		t.Fatalf("expected remaining 3, got %d", stockErr.Remaining)
	}
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected error to unwrap to ErrInsufficientStock")
	}

	// A rejected sale must leave nothing behind.
	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.CurrentStock != 3 {
		t.Fatalf("expected stock untouched at 3, got %d", after.CurrentStock)
	}
	sales, err := svc.ListSales(ctx, 10)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sales recorded, got %d", len(sales))
	}
}

func TestRecordSaleLunasRejectsCustomer(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Air Mineral 600ml", 2500, 4000, 10)

	_, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:       product.ID,
		Quantity:        1,
		PaymentStatus:   domain.StatusLunas,
		NewCustomerName: "Bu Sari",
	})
	if !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale for Lunas sale with customer, got %v", err)
	}
}

func TestRecordHutangSaleCreatesCustomer(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Sampoerna Mild 16", 29500, 33000, 20)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:       product.ID,
		Quantity:        2,
		PaymentStatus:   domain.StatusHutang,
		NewCustomerName: "Pak Budi",
	})
	if err != nil {
		t.Fatalf("record hutang sale failed: %v", err)
	}
	if sale.CustomerID == nil {
		t.Fatalf("expected customer id on hutang sale")
	}
	if sale.CustomerName != "Pak Budi" {
		t.Fatalf("expected customer name Pak Budi, got %q", sale.CustomerName)
	}

	customers, err := svc.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	if len(customers) != 1 {
		t.Fatalf("expected one customer, got %d", len(customers))
	}
}

func TestRecordHutangSaleRejectsUnknownCustomer(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Gudang Garam Filter 16", 26500, 29500, 20)

	_, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     product.ID,
		Quantity:      1,
		PaymentStatus: domain.StatusHutang,
		CustomerID:    "cus-missing",
	})
	if !errors.Is(err, store.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.CurrentStock != 20 {
		t.Fatalf("expected stock untouched at 20, got %d", after.CurrentStock)
	}
}

func TestEditSaleAppliesStockDeltas(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Surya 12", 24000, 27000, 20)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     product.ID,
		Quantity:      5,
		PaymentStatus: domain.StatusLunas,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	// Stock is now 15.

	edited, err := svc.EditSale(ctx, sale.ID, domain.SaleEditRequest{Quantity: 12})
	if err != nil {
		t.Fatalf("edit sale up failed: %v", err)
	}
	if edited.Quantity != 12 {
		t.Fatalf("expected quantity 12, got %d", edited.Quantity)
	}
	after, _ := svc.GetProduct(ctx, product.ID)
	if after.CurrentStock != 8 {
		t.Fatalf("expected stock 8 after raising quantity, got %d", after.CurrentStock)
	}

	if _, err := svc.EditSale(ctx, sale.ID, domain.SaleEditRequest{Quantity: 2}); err != nil {
		t.Fatalf("edit sale down failed: %v", err)
	}
	after, _ = svc.GetProduct(ctx, product.ID)
	if after.CurrentStock != 18 {
		t.Fatalf("expected stock 18 after lowering quantity, got %d", after.CurrentStock)
	}
}

func TestEditSaleRejectsDeltaBeyondStock(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Kopi Sachet", 1500, 2500, 10)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     product.ID,
		Quantity:      4,
		PaymentStatus: domain.StatusLunas,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	// Stock is now 6; raising the sale to 11 needs a delta of 7.

	_, err = svc.EditSale(ctx, sale.ID, domain.SaleEditRequest{Quantity: 11})
	var stockErr *store.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Remaining != 6 {
		t.Fatalf("expected remaining 6, got %d", stockErr.Remaining)
	}

	unchanged, err := svc.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale failed: %v", err)
	}
	if unchanged.Quantity != 4 {
		t.Fatalf("expected quantity still 4 after rejected edit, got %d", unchanged.Quantity)
	}
}

func TestEditSaleSwitchesProduct(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	original := createProduct(t, svc, "Korek Gas", 2000, 3500, 10)
	replacement := createProduct(t, svc, "Air Mineral 600ml", 2500, 4000, 10)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     original.ID,
		Quantity:      4,
		PaymentStatus: domain.StatusLunas,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	edited, err := svc.EditSale(ctx, sale.ID, domain.SaleEditRequest{ProductID: replacement.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("edit sale failed: %v", err)
	}
	if edited.ProductID != replacement.ID {
		t.Fatalf("expected sale moved to %s, got %s", replacement.ID, edited.ProductID)
	}
	if edited.TotalRevenue != 12000 {
		t.Fatalf("expected revenue 12000 from replacement prices, got %d", edited.TotalRevenue)
	}

	oldProduct, _ := svc.GetProduct(ctx, original.ID)
	if oldProduct.CurrentStock != 10 {
		t.Fatalf("expected original stock fully restored to 10, got %d", oldProduct.CurrentStock)
	}
	newProduct, _ := svc.GetProduct(ctx, replacement.ID)
	if newProduct.CurrentStock != 7 {
		t.Fatalf("expected replacement stock 7, got %d", newProduct.CurrentStock)
	}
}

func TestDeleteSaleRestoresStock(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Djarum Super 12", 21500, 24000, 10)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:       product.ID,
		Quantity:        6,
		PaymentStatus:   domain.StatusHutang,
		NewCustomerName: "Bu Sari",
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	if _, err := svc.DeleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("delete sale failed: %v", err)
	}

	after, _ := svc.GetProduct(ctx, product.ID)
	if after.CurrentStock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", after.CurrentStock)
	}
	if _, err := svc.GetSale(ctx, sale.ID); !errors.Is(err, store.ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound after delete, got %v", err)
	}
}

func TestMarkSalePaidIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Surya 12", 24000, 27000, 10)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:       product.ID,
		Quantity:        1,
		PaymentStatus:   domain.StatusHutang,
		NewCustomerName: "Pak Budi",
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	paid, err := svc.MarkSalePaid(ctx, sale.ID)
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if paid.PaymentStatus != domain.StatusLunas {
		t.Fatalf("expected Lunas, got %s", paid.PaymentStatus)
	}

	again, err := svc.MarkSalePaid(ctx, sale.ID)
	if err != nil {
		t.Fatalf("second mark paid failed: %v", err)
	}
	if again.PaymentStatus != domain.StatusLunas {
		t.Fatalf("expected Lunas after second mark, got %s", again.PaymentStatus)
	}

	debtors, err := svc.ListDebtors(ctx)
	if err != nil {
		t.Fatalf("list debtors failed: %v", err)
	}
	if len(debtors.Debtors) != 0 {
		t.Fatalf("expected no debtors after payment, got %d", len(debtors.Debtors))
	}
}

func TestDebtIsDerivedFromUnpaidSales(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Kopi Sachet", 1500, 2500, 200)

	customer, err := svc.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Bu Sari"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	// Two Hutang sales of 100000 and 30000 rupiah and one Lunas sale
	// that must not count toward the debt.
	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID, Quantity: 40, PaymentStatus: domain.StatusHutang, CustomerID: customer.ID,
	}); err != nil {
		t.Fatalf("first hutang sale failed: %v", err)
	}
	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID, Quantity: 12, PaymentStatus: domain.StatusHutang, CustomerID: customer.ID,
	}); err != nil {
		t.Fatalf("second hutang sale failed: %v", err)
	}
	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID, Quantity: 20, PaymentStatus: domain.StatusLunas,
	}); err != nil {
		t.Fatalf("lunas sale failed: %v", err)
	}

	debtors, err := svc.ListDebtors(ctx)
	if err != nil {
		t.Fatalf("list debtors failed: %v", err)
	}
	if len(debtors.Debtors) != 1 {
		t.Fatalf("expected one debtor, got %d", len(debtors.Debtors))
	}
	debtor := debtors.Debtors[0]
	if debtor.TotalDebt != 130000 {
		t.Fatalf("expected total debt 130000, got %d", debtor.TotalDebt)
	}
	if debtor.SaleCount != 2 {
		t.Fatalf("expected 2 unpaid sales, got %d", debtor.SaleCount)
	}

	detail, err := svc.ListDebtSales(ctx, customer.ID)
	if err != nil {
		t.Fatalf("list debt sales failed: %v", err)
	}
	if len(detail.Sales) != 2 {
		t.Fatalf("expected 2 debt sales, got %d", len(detail.Sales))
	}
	if detail.Customer.ID != customer.ID {
		t.Fatalf("expected customer %s, got %s", customer.ID, detail.Customer.ID)
	}
}

func TestDeleteProductRejectedWhileSalesReferenceIt(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Korek Gas", 2000, 3500, 10)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID:     product.ID,
		Quantity:      1,
		PaymentStatus: domain.StatusLunas,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	if err := svc.DeleteProduct(ctx, product.ID); !errors.Is(err, store.ErrProductInUse) {
		t.Fatalf("expected ErrProductInUse, got %v", err)
	}

	if _, err := svc.DeleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("delete sale failed: %v", err)
	}
	if err := svc.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("expected delete to succeed once sales are gone, got %v", err)
	}
}

func TestAdjustStockOps(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	product := createProduct(t, svc, "Air Mineral 600ml", 2500, 4000, 10)

	qty, err := svc.AdjustStock(ctx, product.ID, domain.StockAdjustRequest{Op: "add", Qty: 5})
	if err != nil || qty != 15 {
		t.Fatalf("expected stock 15 after add, got %d (err %v)", qty, err)
	}
	qty, err = svc.AdjustStock(ctx, product.ID, domain.StockAdjustRequest{Op: "subtract", Qty: 3})
	if err != nil || qty != 12 {
		t.Fatalf("expected stock 12 after subtract, got %d (err %v)", qty, err)
	}
	qty, err = svc.AdjustStock(ctx, product.ID, domain.StockAdjustRequest{Op: "set", Qty: 0})
	if err != nil || qty != 0 {
		t.Fatalf("expected stock 0 after set, got %d (err %v)", qty, err)
	}

	_, err = svc.AdjustStock(ctx, product.ID, domain.StockAdjustRequest{Op: "subtract", Qty: 1})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock on underflow, got %v", err)
	}
}

func TestTopProductsWindowing(t *testing.T) {
	repo := memory.New()
	svc := New(repo, notify.NoopNotifier{}, time.UTC)
	ctx := context.Background()

	mie, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{Name: "Mie Instan", PurchasePrice: 2500, SellingPrice: 3500, InitialStock: 100})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	kopi, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{Name: "Kopi Sachet", PurchasePrice: 1500, SellingPrice: 2500, InitialStock: 100})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	// One sale far in the past and two recent ones.
	old := time.Now().UTC().AddDate(0, -2, 0)
	if _, err := repo.RecordSale(ctx, domain.SaleInput{ProductID: mie.ID, Quantity: 50, PaymentStatus: domain.StatusLunas, CreatedAt: old}); err != nil {
		t.Fatalf("seed old sale failed: %v", err)
	}
	if _, err := repo.RecordSale(ctx, domain.SaleInput{ProductID: mie.ID, Quantity: 2, PaymentStatus: domain.StatusLunas}); err != nil {
		t.Fatalf("seed recent sale failed: %v", err)
	}
	if _, err := repo.RecordSale(ctx, domain.SaleInput{ProductID: kopi.ID, Quantity: 7, PaymentStatus: domain.StatusLunas}); err != nil {
		t.Fatalf("seed recent sale failed: %v", err)
	}

	today, err := svc.TopProductsByQuantity(ctx, analytics.WindowToday, 10)
	if err != nil {
		t.Fatalf("top by quantity failed: %v", err)
	}
	if len(today.Items) != 2 {
		t.Fatalf("expected 2 products in today window, got %d", len(today.Items))
	}
	if today.Items[0].ProductID != kopi.ID || today.Items[0].TotalQty != 7 {
		t.Fatalf("expected kopi first with qty 7, got %s qty %d", today.Items[0].ProductID, today.Items[0].TotalQty)
	}

	all, err := svc.TopProductsByQuantity(ctx, analytics.WindowAllTime, 10)
	if err != nil {
		t.Fatalf("top by quantity all time failed: %v", err)
	}
	if all.Items[0].ProductID != mie.ID || all.Items[0].TotalQty != 52 {
		t.Fatalf("expected mie first with qty 52 all time, got %s qty %d", all.Items[0].ProductID, all.Items[0].TotalQty)
	}

	profit, err := svc.TopProductsByProfit(ctx, analytics.WindowToday, 10)
	if err != nil {
		t.Fatalf("top by profit failed: %v", err)
	}
	if profit.Items[0].ProductID != kopi.ID || profit.Items[0].TotalProfit != 7000 {
		t.Fatalf("expected kopi first with profit 7000, got %s profit %d", profit.Items[0].ProductID, profit.Items[0].TotalProfit)
	}
}
