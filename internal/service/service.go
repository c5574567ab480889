package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/cache"
	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/checkout"
	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/receipt"
	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/report"
	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/store"
)

// ErrForbidden is returned when the calling actor lacks the role an
// operation requires.
var ErrForbidden = errors.New("forbidden")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service is the application layer between the HTTP handlers and the stores.
// Catalog reads go through an optional cache; catalog writes invalidate it.
type Service struct {
	repo        store.Repository
	coordinator *checkout.Coordinator
	catalog     cache.CatalogCache
	catalogTTL  time.Duration
	log         logrus.FieldLogger
}

func New(repo store.Repository, coordinator *checkout.Coordinator, catalog cache.CatalogCache, catalogTTL time.Duration, log logrus.FieldLogger) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if catalogTTL <= 0 {
		catalogTTL = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		repo:        repo,
		coordinator: coordinator,
		catalog:     catalog,
		catalogTTL:  catalogTTL,
		log:         log,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if products, ok, err := s.catalog.Get(ctx); err != nil {
		s.log.WithError(err).Warn("catalog cache read failed, falling back to store")
	} else if ok {
		return products, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Set(ctx, products, s.catalogTTL); err != nil {
		s.log.WithError(err).Warn("catalog cache write failed")
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, errors.Wrap(store.ErrInvalidInput, "product id must be positive")
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, errors.Wrap(store.ErrInvalidInput, "product name is required")
	}
	if req.PriceCents < 1 {
		return nil, errors.Wrap(store.ErrInvalidInput, "price must be positive")
	}
	if req.InitialStock < 0 {
		return nil, errors.Wrap(store.ErrInvalidInput, "initial stock must not be negative")
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:       req.Name,
		PriceCents: req.PriceCents,
		Stock:      req.InitialStock,
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (*domain.Product, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, errors.Wrap(store.ErrInvalidInput, "product id must be positive")
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errors.Wrap(store.ErrInvalidInput, "product name is required")
		}
		existing.Name = name
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return nil, errors.Wrap(store.ErrInvalidInput, "price must be positive")
		}
		existing.PriceCents = *req.PriceCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, errors.Wrap(store.ErrInvalidInput, "stock must not be negative")
		}
		existing.Stock = *req.Stock
	}

	updated, err := s.repo.UpdateProduct(ctx, *existing)
	if err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return updated, nil
}

// FinalizeInvoice runs the atomic finalization for the authenticated cashier.
// The catalog cache is invalidated afterwards so stock counts shown to other
// terminals do not go stale.
func (s *Service) FinalizeInvoice(ctx context.Context, req domain.FinalizeInvoiceRequest) (*domain.FinalizeInvoiceResponse, error) {
	var userID *int64
	if actor, ok := ActorFromContext(ctx); ok && actor.UserID > 0 {
		uid := actor.UserID
		userID = &uid
	}

	result, err := s.coordinator.FinalizeInvoice(ctx, checkout.FinalizeRequest{
		Lines:           req.Lines,
		DiscountPercent: req.DiscountPercent,
		TaxCents:        req.TaxCents,
		Payments:        req.Payments,
		AllowPartial:    req.AllowPartial,
		CustomerID:      req.CustomerID,
		UserID:          userID,
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)

	return &domain.FinalizeInvoiceResponse{
		InvoiceID:     result.InvoiceID,
		SubtotalCents: result.SubtotalCents,
		DiscountCents: result.DiscountCents,
		TaxCents:      req.TaxCents,
		TotalCents:    result.TotalCents,
		PaidCents:     result.PaidCents,
		Status:        result.Status,
	}, nil
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (*domain.InvoiceDetail, error) {
	if id <= 0 {
		return nil, errors.Wrap(store.ErrInvalidInput, "invoice id must be positive")
	}
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, from, to time.Time, limit int) ([]domain.InvoiceHeader, error) {
	if to.Before(from) {
		return nil, errors.Wrap(store.ErrInvalidInput, "date range end precedes start")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListInvoices(ctx, from, to, limit)
}

// Receipt renders an invoice as plain text, resolving product and payment
// method names for display.
func (s *Service) Receipt(ctx context.Context, invoiceID int64) (string, error) {
	detail, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}

	productNames := make(map[int64]string, len(detail.Lines))
	for _, line := range detail.Lines {
		if _, ok := productNames[line.ProductID]; ok {
			continue
		}
		product, err := s.repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return "", err
		}
		productNames[line.ProductID] = product.Name
	}

	methods, err := s.repo.ListPaymentMethods(ctx)
	if err != nil {
		return "", err
	}
	methodNames := make(map[int64]string, len(methods))
	for _, m := range methods {
		methodNames[m.ID] = m.Name
	}

	return receipt.Render(*detail, productNames, methodNames, receipt.DefaultOptions()), nil
}

func (s *Service) SalesReport(ctx context.Context, from, to time.Time) (domain.SalesReport, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return domain.SalesReport{}, err
	}
	if to.Before(from) {
		return domain.SalesReport{}, errors.Wrap(store.ErrInvalidInput, "date range end precedes start")
	}
	return s.repo.GetSalesReport(ctx, from, to)
}

// SalesReportCSV returns the same aggregation as SalesReport encoded as CSV.
func (s *Service) SalesReportCSV(ctx context.Context, from, to time.Time) ([]byte, error) {
	rep, err := s.SalesReport(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" {
		return nil, errors.Wrap(store.ErrInvalidInput, "customer name is required")
	}
	return s.repo.CreateCustomer(ctx, domain.Customer{
		Name:  req.Name,
		Phone: req.Phone,
	})
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("catalog cache invalidation failed")
	}
}

func requireRole(ctx context.Context, role string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != role {
		return errors.Wrapf(ErrForbidden, "%s role required", role)
	}
	return nil
}
