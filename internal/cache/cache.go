package cache

import (
	"context"
	"time"

	"github.com/JayAtria-7/INVOICE-BILLING-SYSTEM/internal/domain"
)

// CatalogCache caches the product listing, which every terminal polls while
// a cart is being built. Mutating the catalog invalidates it.
type CatalogCache interface {
	Get(ctx context.Context) ([]domain.Product, bool, error)
	Set(ctx context.Context, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}
