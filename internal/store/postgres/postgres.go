package postgres

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the PostgreSQL implementation of store.Repository and
// store.Scope.
type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func New(ctx context.Context, databaseURL string, lockTimeout time.Duration) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "run migrations")
	}

	return &Store{db: db, lockTimeout: lockTimeout}, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- repository ---

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price_cents, stock
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
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

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.PriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, price_cents, stock, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id
	`, product.Name, product.PriceCents, product.Stock).Scan(&product.ID)
	if err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.PriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price_cents = $3, stock = $4, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.PriceCents, product.Stock)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_active
		FROM payment_methods
		WHERE is_active = TRUE
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	methods := make([]domain.PaymentMethod, 0, 8)
	for rows.Next() {
		var m domain.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Active); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return methods, nil
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (*domain.InvoiceDetail, error) {
	var detail domain.InvoiceDetail
	header := &detail.Header
	err := s.db.QueryRowContext(ctx, `
		SELECT id, invoice_date, discount_percent, tax_cents, total_cents, payment_status, customer_id, user_id
		FROM invoices
		WHERE id = $1
	`, id).Scan(&header.ID, &header.InvoiceDate, &header.DiscountPercent, &header.TaxCents,
		&header.TotalCents, &header.PaymentStatus, &header.CustomerID, &header.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	header.InvoiceDate = header.InvoiceDate.UTC()

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, product_id, quantity, price_at_sale_cents
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var line domain.InvoiceLine
		if err := lineRows.Scan(&line.ID, &line.InvoiceID, &line.ProductID, &line.Quantity, &line.PriceAtSaleCents); err != nil {
			return nil, err
		}
		detail.Lines = append(detail.Lines, line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, payment_method_id, amount_cents
		FROM invoice_payments
		WHERE invoice_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer paymentRows.Close()
	for paymentRows.Next() {
		var payment domain.PaymentRecord
		if err := paymentRows.Scan(&payment.ID, &payment.InvoiceID, &payment.MethodID, &payment.AmountCents); err != nil {
			return nil, err
		}
		detail.Payments = append(detail.Payments, payment)
	}
	if err := paymentRows.Err(); err != nil {
		return nil, err
	}

	return &detail, nil
}

func (s *Store) ListInvoices(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.InvoiceHeader, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_date, discount_percent, tax_cents, total_cents, payment_status, customer_id, user_id
		FROM invoices
		WHERE invoice_date >= $1 AND invoice_date < $2
		ORDER BY invoice_date DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	headers := make([]domain.InvoiceHeader, 0, limit)
	for rows.Next() {
		var h domain.InvoiceHeader
		if err := rows.Scan(&h.ID, &h.InvoiceDate, &h.DiscountPercent, &h.TaxCents,
			&h.TotalCents, &h.PaymentStatus, &h.CustomerID, &h.UserID); err != nil {
			return nil, err
		}
		h.InvoiceDate = h.InvoiceDate.UTC()
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return headers, nil
}

func (s *Store) GetSalesReport(ctx context.Context, from time.Time, to time.Time) (domain.SalesReport, error) {
	report := domain.SalesReport{
		From: from.Format("2006-01-02"),
		To:   to.Format("2006-01-02"),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0), COALESCE(SUM(tax_cents), 0)
		FROM invoices
		WHERE invoice_date >= $1 AND invoice_date < $2
	`, from, to).Scan(&report.Invoices, &report.RevenueCents, &report.TaxCents)
	if err != nil {
		return domain.SalesReport{}, err
	}

	statusRows, err := s.db.QueryContext(ctx, `
		SELECT payment_status, COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM invoices
		WHERE invoice_date >= $1 AND invoice_date < $2
		GROUP BY payment_status
		ORDER BY payment_status
	`, from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var entry domain.StatusSales
		if err := statusRows.Scan(&entry.Status, &entry.Invoices, &entry.TotalCents); err != nil {
			return domain.SalesReport{}, err
		}
		report.ByStatus = append(report.ByStatus, entry)
	}
	if err := statusRows.Err(); err != nil {
		return domain.SalesReport{}, err
	}

	methodRows, err := s.db.QueryContext(ctx, `
		SELECT pm.name, COUNT(*), COALESCE(SUM(ip.amount_cents), 0)
		FROM invoice_payments ip
		JOIN invoices i ON i.id = ip.invoice_id
		JOIN payment_methods pm ON pm.id = ip.payment_method_id
		WHERE i.invoice_date >= $1 AND i.invoice_date < $2
		GROUP BY pm.name
		ORDER BY pm.name
	`, from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}
	defer methodRows.Close()
	for methodRows.Next() {
		var entry domain.MethodSales
		if err := methodRows.Scan(&entry.MethodName, &entry.Payments, &entry.AmountCents); err != nil {
			return domain.SalesReport{}, err
		}
		report.ByMethod = append(report.ByMethod, entry)
	}
	if err := methodRows.Err(); err != nil {
		return domain.SalesReport{}, err
	}

	return report, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, customer.Name, customer.Phone, customer.CreatedAt).Scan(&customer.ID)
	if err != nil {
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
