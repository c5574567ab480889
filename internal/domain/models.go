package domain

import "time"

// PaymentStatus is the payment lifecycle of an invoice. An invoice is created
// PENDING, may move to PARTIAL or PAID, and never leaves PAID.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusPartial PaymentStatus = "PARTIAL"
	StatusPaid    PaymentStatus = "PAID"
)

type Product struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
}

type ProductCreateRequest struct {
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	InitialStock int    `json:"initial_stock"`
}

type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Stock      *int    `json:"stock,omitempty"`
}

// CartLine is one entry of a cashier's in-memory cart. UnitPriceCents is the
// price snapshot captured when the line was added; it is what gets persisted
// on the invoice line, regardless of later catalog price changes.
type CartLine struct {
	ProductID      int64 `json:"product_id"`
	Quantity       int   `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

type PaymentInput struct {
	MethodID    int64 `json:"payment_method_id"`
	AmountCents int64 `json:"amount_cents"`
}

type InvoiceHeader struct {
	ID              int64         `json:"id"`
	InvoiceDate     time.Time     `json:"invoice_date"`
	DiscountPercent float64       `json:"discount_percent"`
	TaxCents        int64         `json:"tax_cents"`
	TotalCents      int64         `json:"total_cents"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	CustomerID      *int64        `json:"customer_id,omitempty"`
	UserID          *int64        `json:"user_id,omitempty"`
}

type InvoiceLine struct {
	ID               int64 `json:"id"`
	InvoiceID        int64 `json:"invoice_id"`
	ProductID        int64 `json:"product_id"`
	Quantity         int   `json:"quantity"`
	PriceAtSaleCents int64 `json:"price_at_sale_cents"`
}

type PaymentRecord struct {
	ID          int64 `json:"id"`
	InvoiceID   int64 `json:"invoice_id"`
	MethodID    int64 `json:"payment_method_id"`
	AmountCents int64 `json:"amount_cents"`
}

type PaymentMethod struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"is_active"`
}

type InvoiceDetail struct {
	Header   InvoiceHeader   `json:"header"`
	Lines    []InvoiceLine   `json:"lines"`
	Payments []PaymentRecord `json:"payments"`
}

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type FinalizeInvoiceRequest struct {
	Lines           []CartLine     `json:"lines"`
	DiscountPercent float64        `json:"discount_percent"`
	TaxCents        int64          `json:"tax_cents"`
	Payments        []PaymentInput `json:"payments"`
	AllowPartial    bool           `json:"allow_partial"`
	CustomerID      *int64         `json:"customer_id,omitempty"`
}

type FinalizeInvoiceResponse struct {
	InvoiceID     int64         `json:"invoice_id"`
	SubtotalCents int64         `json:"subtotal_cents"`
	DiscountCents int64         `json:"discount_cents"`
	TaxCents      int64         `json:"tax_cents"`
	TotalCents    int64         `json:"total_cents"`
	PaidCents     int64         `json:"paid_cents"`
	Status        PaymentStatus `json:"status"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated caller, threaded through request contexts so the
// finalization path records who created each invoice without relying on
// process-global session state.
type Actor struct {
	UserID   int64
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        int64
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type MethodSales struct {
	MethodName  string `json:"method_name"`
	Payments    int64  `json:"payments"`
	AmountCents int64  `json:"amount_cents"`
}

type StatusSales struct {
	Status     PaymentStatus `json:"status"`
	Invoices   int64         `json:"invoices"`
	TotalCents int64         `json:"total_cents"`
}

type SalesReport struct {
	From         string        `json:"from"`
	To           string        `json:"to"`
	Invoices     int64         `json:"invoices"`
	RevenueCents int64         `json:"revenue_cents"`
	TaxCents     int64         `json:"tax_cents"`
	ByStatus     []StatusSales `json:"by_status"`
	ByMethod     []MethodSales `json:"by_method"`
}
