package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrLockTimeout is reported when a row lock could not be acquired within
	// the configured lock-wait timeout; the enclosing unit-of-work has been
	// rolled back.
	ErrLockTimeout = errors.New("lock wait timeout")
)

// InsufficientStockError reports a stock sufficiency check that failed under
// the product's row lock, with enough detail for the caller to adjust the
// requested quantity.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d", e.ProductID, e.Available, e.Requested)
}

// RollbackFailureError means a unit-of-work failed and its rollback failed
// too. The database may be in an unknown state; the operator must verify
// manually instead of retrying.
type RollbackFailureError struct {
	Cause       error
	RollbackErr error
}

func (e *RollbackFailureError) Error() string {
	return fmt.Sprintf("rollback failed (%v) after: %v", e.RollbackErr, e.Cause)
}

func (e *RollbackFailureError) Unwrap() error { return e.Cause }

// CatalogStore reads products and decrements stock within the enclosing
// unit-of-work. DecrementStock acquires an exclusive row lock on the product
// before reading its stock, so two concurrent decrements against the same
// product serialize instead of racing; the lock is held until the
// unit-of-work commits or rolls back.
type CatalogStore interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) error
}

// LedgerStore appends invoice headers and lines. InsertHeader returns the
// generated invoice id.
type LedgerStore interface {
	InsertHeader(ctx context.Context, header domain.InvoiceHeader) (int64, error)
	InsertLine(ctx context.Context, line domain.InvoiceLine) (int64, error)
}

// PaymentStore appends payment records and moves an invoice's payment status.
// UpdateInvoiceStatus never transitions an invoice away from PAID.
type PaymentStore interface {
	InsertPayment(ctx context.Context, record domain.PaymentRecord) (int64, error)
	UpdateInvoiceStatus(ctx context.Context, invoiceID int64, status domain.PaymentStatus) error
}

// Stores exposes the three stores bound to one unit-of-work. Every call made
// through them is part of the same transaction.
type Stores interface {
	Catalog() CatalogStore
	Ledger() LedgerStore
	Payments() PaymentStore
}

// Scope runs fn inside a single atomic unit-of-work. If fn returns an error
// the whole unit is rolled back and no write made through the Stores is
// observable; otherwise it is committed. A failed rollback is surfaced as a
// *RollbackFailureError.
type Scope interface {
	Execute(ctx context.Context, fn func(Stores) error) error
}

// Repository is the read/admin surface used outside the finalization
// unit-of-work: catalog management, invoice browsing, reporting and auth
// bookkeeping.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	GetInvoice(ctx context.Context, id int64) (*domain.InvoiceDetail, error)
	ListInvoices(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.InvoiceHeader, error)
	GetSalesReport(ctx context.Context, from time.Time, to time.Time) (domain.SalesReport, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
