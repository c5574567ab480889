package checkout

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/store"
)

// Coordinator finalizes one invoice per call: it decrements stock for every
// cart line, writes the invoice header and lines, records the payments and
// sets the payment status, all inside a single unit-of-work. Either every
// write commits or none does.
type Coordinator struct {
	scope   store.Scope
	timeout time.Duration
	log     logrus.FieldLogger
}

func New(scope store.Scope, timeout time.Duration, log logrus.FieldLogger) *Coordinator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{scope: scope, timeout: timeout, log: log}
}

type FinalizeRequest struct {
	Lines           []domain.CartLine
	DiscountPercent float64
	TaxCents        int64
	Payments        []domain.PaymentInput
	// AllowPartial commits an underpaid invoice with status PARTIAL (or
	// PENDING when no payment was recorded). When false, paid < total is
	// rejected before anything is written.
	AllowPartial bool
	CustomerID   *int64
	UserID       *int64
}

type FinalizeResult struct {
	InvoiceID     int64
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
	PaidCents     int64
	Status        domain.PaymentStatus
}

// FinalizeInvoice validates the cart, then runs the atomic sequence:
// decrement stock per line (ascending product id, so concurrent multi-product
// invoices cannot deadlock), insert header, insert lines with their snapshot
// prices, insert payments, set the final status, commit. Business failures
// and infrastructure failures both roll back the whole unit-of-work.
func (c *Coordinator) FinalizeInvoice(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, line := range req.Lines {
		if line.Quantity < 1 || line.UnitPriceCents < 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return nil, ErrInvalidDiscount
	}
	if req.TaxCents < 0 {
		return nil, ErrInvalidTax
	}
	for _, payment := range req.Payments {
		if payment.AmountCents < 1 {
			return nil, ErrInvalidPayment
		}
	}

	subtotal := int64(0)
	for _, line := range req.Lines {
		subtotal += int64(line.Quantity) * line.UnitPriceCents
	}
	discount := roundHalfUpCents(float64(subtotal) * req.DiscountPercent / 100)
	total := subtotal - discount + req.TaxCents

	// The total is recomputed here from the snapshot prices; a client-supplied
	// total is never trusted.
	paid := int64(0)
	for _, payment := range req.Payments {
		paid += payment.AmountCents
	}
	if !req.AllowPartial && paid < total {
		return nil, &PaymentInsufficientError{DueCents: total, PaidCents: paid}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var invoiceID int64
	status := domain.StatusPending
	err := c.scope.Execute(ctx, func(stores store.Stores) error {
		for _, line := range sortedByProductID(req.Lines) {
			if err := stores.Catalog().DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return &ProductNotFoundError{ProductID: line.ProductID}
				}
				return err
			}
		}

		id, err := stores.Ledger().InsertHeader(ctx, domain.InvoiceHeader{
			InvoiceDate:     time.Now().UTC(),
			DiscountPercent: req.DiscountPercent,
			TaxCents:        req.TaxCents,
			TotalCents:      total,
			PaymentStatus:   domain.StatusPending,
			CustomerID:      req.CustomerID,
			UserID:          req.UserID,
		})
		if err != nil {
			return err
		}
		invoiceID = id

		for _, line := range req.Lines {
			if _, err := stores.Ledger().InsertLine(ctx, domain.InvoiceLine{
				InvoiceID:        id,
				ProductID:        line.ProductID,
				Quantity:         line.Quantity,
				PriceAtSaleCents: line.UnitPriceCents,
			}); err != nil {
				return err
			}
		}

		for _, payment := range req.Payments {
			if _, err := stores.Payments().InsertPayment(ctx, domain.PaymentRecord{
				InvoiceID:   id,
				MethodID:    payment.MethodID,
				AmountCents: payment.AmountCents,
			}); err != nil {
				return err
			}
		}

		switch {
		case paid >= total:
			status = domain.StatusPaid
		case paid > 0:
			status = domain.StatusPartial
		default:
			status = domain.StatusPending
		}
		if status != domain.StatusPending {
			if err := stores.Payments().UpdateInvoiceStatus(ctx, id, status); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, c.mapFailure(err)
	}

	return &FinalizeResult{
		InvoiceID:     invoiceID,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    total,
		PaidCents:     paid,
		Status:        status,
	}, nil
}

// mapFailure narrows a unit-of-work error to the closed failure set. Business
// failures pass through typed; lock and deadline expiry become ErrTimeout;
// everything else is an opaque persistence failure. A failed rollback is
// logged as critical and re-surfaced as-is so the caller can warn the
// operator to verify instead of retrying.
func (c *Coordinator) mapFailure(err error) error {
	var rollbackFailure *store.RollbackFailureError
	if errors.As(err, &rollbackFailure) {
		c.log.WithError(rollbackFailure.RollbackErr).
			WithField("cause", rollbackFailure.Cause).
			Error("rollback failed after aborted finalization; database state must be verified manually")
		return rollbackFailure
	}

	var notFound *ProductNotFoundError
	var insufficientStock *store.InsufficientStockError
	switch {
	case errors.As(err, &notFound), errors.As(err, &insufficientStock):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, store.ErrLockTimeout):
		return ErrTimeout
	default:
		c.log.WithError(err).Error("invoice finalization failed")
		return &PersistenceError{Err: err}
	}
}

// roundHalfUpCents rounds to the nearest cent, halves away from zero, which
// for the non-negative amounts used here is half-up.
func roundHalfUpCents(v float64) int64 {
	return int64(math.Round(v))
}

// sortedByProductID returns the lines in ascending product-id order so that
// every finalization acquires product row locks in the same order. Cart order
// within a product is preserved.
func sortedByProductID(lines []domain.CartLine) []domain.CartLine {
	sorted := make([]domain.CartLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProductID < sorted[j].ProductID
	})
	return sorted
}
