package services_test

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
)

func newCatalogFixture(t *testing.T) (*services.CatalogService, *repositories.MockProductRepository) {
	t.Helper()
	productRepo := repositories.NewMockProductRepository()

	for _, product := range []models.Product{
		{ID: "prod-1", Name: "Laptop", Price: 1200.00, Category: "electronics", Stock: 5, IsActive: true},
		{ID: "prod-2", Name: "Mouse", Price: 25.00, Category: "electronics", Stock: 10, IsActive: true},
		{ID: "prod-3", Name: "Novel", Price: 15.00, Category: "books", Stock: 3, IsActive: true},
		{ID: "prod-4", Name: "Retired Gadget", Price: 99.00, Category: "clearance", Stock: 1, IsActive: false},
	} {
		p := product
		assert.NoError(t, productRepo.Create(&p))
	}

	// No redis in unit tests; the nil client degrades to pass-through.
	return services.NewCatalogService(productRepo, nil), productRepo
}

func TestListProducts(t *testing.T) {
	catalogService, _ := newCatalogFixture(t)

	t.Run("hides inactive products", func(t *testing.T) {
		products, err := catalogService.ListProducts(repositories.ProductQuery{})
		assert.NoError(t, err)
		assert.Len(t, products, 3)
		for _, p := range products {
			assert.True(t, p.IsActive)
		}
	})

	t.Run("filters by category", func(t *testing.T) {
		products, err := catalogService.ListProducts(repositories.ProductQuery{Category: "books"})
		assert.NoError(t, err)
		assert.Len(t, products, 1)
		assert.Equal(t, "Novel", products[0].Name)
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		products, err := catalogService.ListProducts(repositories.ProductQuery{Search: "LAPTOP"})
		assert.NoError(t, err)
		assert.Len(t, products, 1)
		assert.Equal(t, "prod-1", products[0].ID)
	})

	t.Run("sorts by price descending", func(t *testing.T) {
		products, err := catalogService.ListProducts(repositories.ProductQuery{
			SortBy:    repositories.SortByPrice,
			SortOrder: "desc",
		})
		assert.NoError(t, err)
		assert.Len(t, products, 3)
		assert.Equal(t, "prod-1", products[0].ID)
		assert.Equal(t, "prod-3", products[2].ID)
	})
}

func TestGetProduct(t *testing.T) {
	catalogService, _ := newCatalogFixture(t)

	t.Run("active product", func(t *testing.T) {
		product, err := catalogService.GetProduct("prod-1")
		assert.NoError(t, err)
		assert.Equal(t, "Laptop", product.Name)
	})

	t.Run("inactive product looks missing", func(t *testing.T) {
		_, err := catalogService.GetProduct("prod-4")
		assert.ErrorIs(t, err, services.ErrProductNotFound)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := catalogService.GetProduct("prod-404")
		assert.ErrorIs(t, err, services.ErrProductNotFound)
	})
}

func TestListCategories(t *testing.T) {
	catalogService, _ := newCatalogFixture(t)

	categories, err := catalogService.ListCategories(context.Background())
	assert.NoError(t, err)
	// Sorted, distinct, active products only.
	assert.Equal(t, []string{"books", "electronics"}, categories)
}
