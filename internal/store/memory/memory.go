package memory

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/store"
)

// Store is an in-memory implementation of store.Repository and store.Scope,
// used for tests and for running the backend without a database. A
// unit-of-work holds the store-wide write lock from first touch until it
// finishes, which gives the same serialization the row locks give in
// Postgres; rollback restores a snapshot taken when the unit began.
type Store struct {
	mu        sync.RWMutex
	seqs      map[string]int64
	products  map[int64]domain.Product
	invoices  map[int64]domain.InvoiceHeader
	lines     []domain.InvoiceLine
	payments  []domain.PaymentRecord
	methods   map[int64]domain.PaymentMethod
	customers map[int64]domain.Customer
	users     map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		seqs:      make(map[string]int64),
		products:  make(map[int64]domain.Product),
		invoices:  make(map[int64]domain.InvoiceHeader),
		methods:   make(map[int64]domain.PaymentMethod),
		customers: make(map[int64]domain.Customer),
		users:     make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store preloaded with a small catalog, the standard
// payment methods and dev user accounts, for demo mode and tests.
func NewSeeded() *Store {
	s := New()

	for _, p := range []domain.Product{
		{Name: "Ballpoint Pen", PriceCents: 150, Stock: 200},
		{Name: "Spiral Notebook", PriceCents: 500, Stock: 120},
		{Name: "Desk Lamp", PriceCents: 2000, Stock: 35},
		{Name: "USB-C Cable", PriceCents: 900, Stock: 80},
		{Name: "Wireless Mouse", PriceCents: 2500, Stock: 40},
	} {
		p.ID = s.nextIDLocked("products")
		s.products[p.ID] = p
	}

	for _, m := range []string{"CASH", "CARD", "BANK TRANSFER"} {
		id := s.nextIDLocked("payment_methods")
		s.methods[id] = domain.PaymentMethod{ID: id, Name: m, Active: true}
	}

	for username, u := range seedUsers() {
		u.ID = s.nextIDLocked("users")
		s.users[username] = u
	}

	return s
}

// seedUsers builds the initial user accounts for dev/demo mode. Credentials
// are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; hardcoded dev
// defaults are used with a warning when unset. These credentials are never
// used in production (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		logrus.Warn("memory store: using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithError(err).Fatalf("memory store: failed to hash seed password for %s", u.username)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) nextIDLocked(table string) int64 {
	s.seqs[table]++
	return s.seqs[table]
}

// --- unit-of-work ---

type snapshot struct {
	seqs     map[string]int64
	products map[int64]domain.Product
	invoices map[int64]domain.InvoiceHeader
	lines    []domain.InvoiceLine
	payments []domain.PaymentRecord
}

func (s *Store) snapshotLocked() snapshot {
	snap := snapshot{
		seqs:     make(map[string]int64, len(s.seqs)),
		products: make(map[int64]domain.Product, len(s.products)),
		invoices: make(map[int64]domain.InvoiceHeader, len(s.invoices)),
		lines:    make([]domain.InvoiceLine, len(s.lines)),
		payments: make([]domain.PaymentRecord, len(s.payments)),
	}
	for k, v := range s.seqs {
		snap.seqs[k] = v
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.invoices {
		snap.invoices[k] = v
	}
	copy(snap.lines, s.lines)
	copy(snap.payments, s.payments)
	return snap
}

func (s *Store) restoreLocked(snap snapshot) {
	s.seqs = snap.seqs
	s.products = snap.products
	s.invoices = snap.invoices
	s.lines = snap.lines
	s.payments = snap.payments
}

// Execute runs fn against the live maps while holding the write lock, and
// restores the pre-unit snapshot when fn fails.
func (s *Store) Execute(ctx context.Context, fn func(store.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshotLocked()
	if err := fn(&txStores{s: s}); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

// txStores gives the coordinator its three stores; the enclosing Execute
// already holds the write lock, so these methods touch state directly.
type txStores struct {
	s *Store
}

func (t *txStores) Catalog() store.CatalogStore  { return (*txCatalog)(t) }
func (t *txStores) Ledger() store.LedgerStore    { return (*txLedger)(t) }
func (t *txStores) Payments() store.PaymentStore { return (*txPayments)(t) }

type txCatalog txStores

func (t *txCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	product, ok := t.s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := product
	return &copied, nil
}

func (t *txCatalog) DecrementStock(_ context.Context, productID int64, quantity int) error {
	product, ok := t.s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if product.Stock < quantity {
		return &store.InsufficientStockError{
			ProductID: productID,
			Available: product.Stock,
			Requested: quantity,
		}
	}
	product.Stock -= quantity
	t.s.products[productID] = product
	return nil
}

type txLedger txStores

func (t *txLedger) InsertHeader(_ context.Context, header domain.InvoiceHeader) (int64, error) {
	header.ID = t.s.nextIDLocked("invoices")
	if header.InvoiceDate.IsZero() {
		header.InvoiceDate = time.Now().UTC()
	}
	if header.PaymentStatus == "" {
		header.PaymentStatus = domain.StatusPending
	}
	t.s.invoices[header.ID] = header
	return header.ID, nil
}

func (t *txLedger) InsertLine(_ context.Context, line domain.InvoiceLine) (int64, error) {
	if _, ok := t.s.invoices[line.InvoiceID]; !ok {
		return 0, errors.Wrapf(store.ErrNotFound, "invoice %d", line.InvoiceID)
	}
	line.ID = t.s.nextIDLocked("invoice_items")
	t.s.lines = append(t.s.lines, line)
	return line.ID, nil
}

type txPayments txStores

func (t *txPayments) InsertPayment(_ context.Context, record domain.PaymentRecord) (int64, error) {
	if _, ok := t.s.invoices[record.InvoiceID]; !ok {
		return 0, errors.Wrapf(store.ErrNotFound, "invoice %d", record.InvoiceID)
	}
	if _, ok := t.s.methods[record.MethodID]; !ok {
		return 0, errors.Wrapf(store.ErrNotFound, "payment method %d", record.MethodID)
	}
	record.ID = t.s.nextIDLocked("invoice_payments")
	t.s.payments = append(t.s.payments, record)
	return record.ID, nil
}

func (t *txPayments) UpdateInvoiceStatus(_ context.Context, invoiceID int64, status domain.PaymentStatus) error {
	invoice, ok := t.s.invoices[invoiceID]
	if !ok {
		return store.ErrNotFound
	}
	// PAID is terminal.
	if invoice.PaymentStatus == domain.StatusPaid {
		return nil
	}
	invoice.PaymentStatus = status
	t.s.invoices[invoiceID] = invoice
	return nil
}

// --- repository ---

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := product
	return &copied, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.PriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = s.nextIDLocked("products")
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.PriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListPaymentMethods(_ context.Context) ([]domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	methods := make([]domain.PaymentMethod, 0, len(s.methods))
	for _, m := range s.methods {
		if m.Active {
			methods = append(methods, m)
		}
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
	return methods, nil
}

func (s *Store) GetInvoice(_ context.Context, id int64) (*domain.InvoiceDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	header, ok := s.invoices[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	detail := domain.InvoiceDetail{Header: header}
	for _, line := range s.lines {
		if line.InvoiceID == id {
			detail.Lines = append(detail.Lines, line)
		}
	}
	for _, payment := range s.payments {
		if payment.InvoiceID == id {
			detail.Payments = append(detail.Payments, payment)
		}
	}
	return &detail, nil
}

func (s *Store) ListInvoices(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.InvoiceHeader, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	headers := make([]domain.InvoiceHeader, 0, limit)
	for _, header := range s.invoices {
		if header.InvoiceDate.Before(from) || !header.InvoiceDate.Before(to) {
			continue
		}
		headers = append(headers, header)
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].ID > headers[j].ID })
	if len(headers) > limit {
		headers = headers[:limit]
	}
	return headers, nil
}

func (s *Store) GetSalesReport(_ context.Context, from time.Time, to time.Time) (domain.SalesReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.SalesReport{
		From: from.Format("2006-01-02"),
		To:   to.Format("2006-01-02"),
	}

	inRange := make(map[int64]bool)
	byStatus := make(map[domain.PaymentStatus]*domain.StatusSales)
	for _, header := range s.invoices {
		if header.InvoiceDate.Before(from) || !header.InvoiceDate.Before(to) {
			continue
		}
		inRange[header.ID] = true
		report.Invoices++
		report.RevenueCents += header.TotalCents
		report.TaxCents += header.TaxCents
		entry, ok := byStatus[header.PaymentStatus]
		if !ok {
			entry = &domain.StatusSales{Status: header.PaymentStatus}
			byStatus[header.PaymentStatus] = entry
		}
		entry.Invoices++
		entry.TotalCents += header.TotalCents
	}

	byMethod := make(map[int64]*domain.MethodSales)
	for _, payment := range s.payments {
		if !inRange[payment.InvoiceID] {
			continue
		}
		entry, ok := byMethod[payment.MethodID]
		if !ok {
			name := "UNKNOWN"
			if method, found := s.methods[payment.MethodID]; found {
				name = method.Name
			}
			entry = &domain.MethodSales{MethodName: name}
			byMethod[payment.MethodID] = entry
		}
		entry.Payments++
		entry.AmountCents += payment.AmountCents
	}

	for _, entry := range byStatus {
		report.ByStatus = append(report.ByStatus, *entry)
	}
	sort.Slice(report.ByStatus, func(i, j int) bool { return report.ByStatus[i].Status < report.ByStatus[j].Status })
	for _, entry := range byMethod {
		report.ByMethod = append(report.ByMethod, *entry)
	}
	sort.Slice(report.ByMethod, func(i, j int) bool { return report.ByMethod[i].MethodName < report.ByMethod[j].MethodName })

	return report, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer.ID = s.nextIDLocked("customers")
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	user.ID = s.nextIDLocked("users")
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}
