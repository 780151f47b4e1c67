package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/cache"
)

const (
	categoriesCacheKey = "catalog:categories"
	categoriesCacheTTL = 5 * time.Minute
)

// CatalogService serves the public product catalog: only active products are
// ever visible through it.
type CatalogService struct {
	productRepo repositories.ProductRepository
	cache       *cache.Client // may be nil
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(productRepo repositories.ProductRepository, cacheClient *cache.Client) *CatalogService {
	return &CatalogService{
		productRepo: productRepo,
		cache:       cacheClient,
	}
}

// ListProducts returns active products matching the query.
func (s *CatalogService) ListProducts(q repositories.ProductQuery) ([]models.Product, error) {
	return s.productRepo.ListActive(q)
}

// GetProduct returns the product only if it exists and is active.
func (s *CatalogService) GetProduct(id string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		log.Printf("Error fetching product %s: %v", id, err)
		return nil, ErrProductNotFound
	}
	if !product.IsActive {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListCategories returns the distinct sorted categories of active products.
// The result is cached briefly; the cache is best-effort and the store stays
// the source of truth.
func (s *CatalogService) ListCategories(ctx context.Context) ([]string, error) {
	if cached, ok := s.cache.Get(ctx, categoriesCacheKey); ok {
		var categories []string
		if err := json.Unmarshal([]byte(cached), &categories); err == nil {
			return categories, nil
		}
		log.Printf("Discarding corrupt cached categories: %s", cached)
	}

	categories, err := s.productRepo.Categories()
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(categories); err == nil {
		s.cache.Set(ctx, categoriesCacheKey, string(encoded), categoriesCacheTTL)
	}
	return categories, nil
}
