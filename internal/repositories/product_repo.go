package repositories

import (
	"storefront/internal/models"
)

// Product list sort keys accepted by ProductQuery.SortBy.
const (
	SortByName      = "name"
	SortByPrice     = "price"
	SortByCreatedAt = "createdAt"
)

// ProductQuery narrows and orders a catalog listing. Zero values mean
// "no filter" and the default ordering of newest first.
type ProductQuery struct {
	Search    string // case-insensitive substring match on name or description
	Category  string // exact match
	SortBy    string // one of the SortBy* constants
	SortOrder string // "asc" or "desc"
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// GetAll returns every product, active or not. Back-office use only.
	GetAll() ([]models.Product, error)
	// ListActive returns active products matching the query.
	ListActive(q ProductQuery) ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	// GetActiveByIDs returns the active products among ids; missing or
	// deactivated ids are simply absent from the result.
	GetActiveByIDs(ids []string) ([]models.Product, error)
	// Categories returns the distinct sorted categories of active products.
	Categories() ([]string, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	// DecrementStock atomically subtracts quantity from the product's stock.
	// It returns false when the product is missing or has less stock than
	// quantity; the row is left untouched in that case.
	DecrementStock(id string, quantity int) (bool, error)
	Count() (int64, error)
}
