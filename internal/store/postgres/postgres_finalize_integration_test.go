package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/store"
)

func TestFinalizeUnitOfWorkCommitsAndRollsBack(t *testing.T) {
	databaseURL := os.Getenv("BILLING_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BILLING_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL, 5*time.Second)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	name := fmt.Sprintf("Integration Widget %d", stamp)

	product, err := s.CreateProduct(ctx, domain.Product{Name: name, PriceCents: 1200, Stock: 10})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM invoice_payments WHERE invoice_id IN (SELECT invoice_id FROM invoice_items WHERE product_id = $1)`, product.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id IN (SELECT invoice_id FROM invoice_items WHERE product_id = $1)`, product.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM invoice_items WHERE product_id = $1`, product.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	})

	var methodID int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM payment_methods WHERE name = 'CASH'`).Scan(&methodID); err != nil {
		t.Fatalf("query payment method: %v", err)
	}

	// Committed unit-of-work: decrement, header, line, payment, status.
	var invoiceID int64
	err = s.Execute(ctx, func(stores store.Stores) error {
		if err := stores.Catalog().DecrementStock(ctx, product.ID, 2); err != nil {
			return err
		}
		id, err := stores.Ledger().InsertHeader(ctx, domain.InvoiceHeader{
			InvoiceDate:   time.Now().UTC(),
			TotalCents:    2400,
			PaymentStatus: domain.StatusPending,
		})
		if err != nil {
			return err
		}
		invoiceID = id
		if _, err := stores.Ledger().InsertLine(ctx, domain.InvoiceLine{
			InvoiceID: id, ProductID: product.ID, Quantity: 2, PriceAtSaleCents: 1200,
		}); err != nil {
			return err
		}
		if _, err := stores.Payments().InsertPayment(ctx, domain.PaymentRecord{
			InvoiceID: id, MethodID: methodID, AmountCents: 2400,
		}); err != nil {
			return err
		}
		return stores.Payments().UpdateInvoiceStatus(ctx, id, domain.StatusPaid)
	})
	if err != nil {
		t.Fatalf("commit unit-of-work: %v", err)
	}

	detail, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if detail.Header.PaymentStatus != domain.StatusPaid {
		t.Fatalf("expected PAID, got %s", detail.Header.PaymentStatus)
	}
	if len(detail.Lines) != 1 || len(detail.Payments) != 1 {
		t.Fatalf("expected 1 line and 1 payment, got %d/%d", len(detail.Lines), len(detail.Payments))
	}

	after, err := s.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 8 {
		t.Fatalf("expected stock 8 after sale, got %d", after.Stock)
	}

	// Aborted unit-of-work: the oversell fails and the decrement that
	// preceded it must not stick.
	err = s.Execute(ctx, func(stores store.Stores) error {
		if err := stores.Catalog().DecrementStock(ctx, product.ID, 3); err != nil {
			return err
		}
		return stores.Catalog().DecrementStock(ctx, product.ID, 100)
	})
	var insufficient *store.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	after, err = s.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product after rollback: %v", err)
	}
	if after.Stock != 8 {
		t.Fatalf("expected stock unchanged at 8 after rollback, got %d", after.Stock)
	}
}
