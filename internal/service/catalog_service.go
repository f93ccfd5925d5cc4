package service

import (
	"context"
	"fmt"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CatalogService serves the public product listing
type CatalogService interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	cache       cache.ProductCache
}

// NewCatalogService creates a new instance of CatalogService. A nil cache
// disables caching.
func NewCatalogService(productRepo repository.ProductRepository, productCache cache.ProductCache) CatalogService {
	if productCache == nil {
		productCache = cache.NewNoopProductCache()
	}
	return &catalogService{
		productRepo: productRepo,
		cache:       productCache,
	}
}

// ListProducts returns active and upcoming products ordered by category then name
func (s *catalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	products, gen, ok := s.cache.GetPublicProducts(ctx)
	if ok {
		return products, nil
	}

	products, err := s.productRepo.ListByStatus(ctx, domain.PublicProductStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	s.cache.SetPublicProducts(ctx, gen, products)
	return products, nil
}
