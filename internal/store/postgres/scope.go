package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/store"
)

// Execute runs fn inside one database transaction. Read-committed isolation
// is sufficient here: correctness under concurrent finalizations comes from
// the SELECT ... FOR UPDATE row locks taken by DecrementStock, which are held
// until this transaction commits or rolls back. A per-transaction
// lock_timeout bounds how long a finalization waits on a lock held by a
// concurrent cashier.
func (s *Store) Execute(ctx context.Context, fn func(store.Stores) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin unit-of-work")
	}

	if s.lockTimeout > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "set lock timeout")
		}
	}

	if err := fn(&txStores{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return &store.RollbackFailureError{Cause: err, RollbackErr: rbErr}
		}
		return mapLockError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapLockError(errors.Wrap(err, "commit unit-of-work"))
	}
	return nil
}

// mapLockError folds Postgres lock-wait and deadlock failures into the
// store-level sentinel so callers do not depend on SQLSTATE codes.
func mapLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40P01": // lock_not_available, deadlock_detected
			return errors.Wrap(store.ErrLockTimeout, pgErr.Message)
		}
	}
	return err
}

type txStores struct {
	tx *sql.Tx
}

func (t *txStores) Catalog() store.CatalogStore  { return &txCatalog{tx: t.tx} }
func (t *txStores) Ledger() store.LedgerStore    { return &txLedger{tx: t.tx} }
func (t *txStores) Payments() store.PaymentStore { return &txPayments{tx: t.tx} }

type txCatalog struct {
	tx *sql.Tx
}

func (c *txCatalog) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := c.tx.QueryRowContext(ctx, `
		SELECT id, name, price_cents, stock
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DecrementStock locks the product row first and only then reads its stock,
// so the sufficiency check can never act on a stale value (the lost-update
// race of the read-then-lock ordering). The lock stays held until the
// enclosing transaction finishes.
func (c *txCatalog) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	var available int
	err := c.tx.QueryRowContext(ctx, `
		SELECT stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	if available < quantity {
		return &store.InsufficientStockError{
			ProductID: productID,
			Available: available,
			Requested: quantity,
		}
	}

	_, err = c.tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1
	`, productID, quantity)
	return err
}

type txLedger struct {
	tx *sql.Tx
}

func (l *txLedger) InsertHeader(ctx context.Context, header domain.InvoiceHeader) (int64, error) {
	var id int64
	err := l.tx.QueryRowContext(ctx, `
		INSERT INTO invoices (invoice_date, discount_percent, tax_cents, total_cents, payment_status, customer_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, header.InvoiceDate, header.DiscountPercent, header.TaxCents, header.TotalCents,
		header.PaymentStatus, header.CustomerID, header.UserID).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert invoice header")
	}
	return id, nil
}

func (l *txLedger) InsertLine(ctx context.Context, line domain.InvoiceLine) (int64, error) {
	var id int64
	err := l.tx.QueryRowContext(ctx, `
		INSERT INTO invoice_items (invoice_id, product_id, quantity, price_at_sale_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, line.InvoiceID, line.ProductID, line.Quantity, line.PriceAtSaleCents).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert invoice line")
	}
	return id, nil
}

type txPayments struct {
	tx *sql.Tx
}

func (p *txPayments) InsertPayment(ctx context.Context, record domain.PaymentRecord) (int64, error) {
	var id int64
	err := p.tx.QueryRowContext(ctx, `
		INSERT INTO invoice_payments (invoice_id, payment_method_id, amount_cents)
		VALUES ($1, $2, $3)
		RETURNING id
	`, record.InvoiceID, record.MethodID, record.AmountCents).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert payment record")
	}
	return id, nil
}

func (p *txPayments) UpdateInvoiceStatus(ctx context.Context, invoiceID int64, status domain.PaymentStatus) error {
	res, err := p.tx.ExecContext(ctx, `
		UPDATE invoices
		SET payment_status = $2
		WHERE id = $1 AND payment_status <> 'PAID'
	`, invoiceID, status)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the invoice does not exist or it is already PAID; PAID is
		// terminal, so only the former is an error.
		var current domain.PaymentStatus
		err := p.tx.QueryRowContext(ctx, `SELECT payment_status FROM invoices WHERE id = $1`, invoiceID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
	}
	return nil
}
