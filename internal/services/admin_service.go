package services

import (
	"context"
	"fmt"
	"log"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/cache"
)

// DashboardStats are the aggregate figures shown on the admin dashboard.
type DashboardStats struct {
	TotalOrders   int64          `json:"totalOrders"`
	TotalRevenue  float64        `json:"totalRevenue"`
	TotalProducts int64          `json:"totalProducts"`
	TotalUsers    int64          `json:"totalUsers"`
	RecentOrders  []models.Order `json:"recentOrders"`
}

// AdminService handles back-office product management and dashboard figures.
// Every caller must already have passed the admin-role gate in the handler
// layer.
type AdminService struct {
	productRepo repositories.ProductRepository
	orderRepo   repositories.OrderRepository
	userRepo    repositories.UserRepository
	cache       *cache.Client // may be nil
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	productRepo repositories.ProductRepository,
	orderRepo repositories.OrderRepository,
	userRepo repositories.UserRepository,
	cacheClient *cache.Client,
) *AdminService {
	return &AdminService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		cache:       cacheClient,
	}
}

// ListProducts returns every product, deactivated ones included.
func (s *AdminService) ListProducts() ([]models.Product, error) {
	return s.productRepo.GetAll()
}

// GetProduct returns a product regardless of its active flag.
func (s *AdminService) GetProduct(id string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		log.Printf("Error fetching product %s: %v", id, err)
		return nil, ErrProductNotFound
	}
	return product, nil
}

// CreateProduct stores a new product.
func (s *AdminService) CreateProduct(product *models.Product) error {
	if err := s.productRepo.Create(product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	s.invalidateCatalogCache()
	return nil
}

// UpdateProduct overwrites an existing product.
func (s *AdminService) UpdateProduct(product *models.Product) error {
	if _, err := s.productRepo.GetByID(product.ID); err != nil {
		return ErrProductNotFound
	}
	if err := s.productRepo.Update(product); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	s.invalidateCatalogCache()
	return nil
}

// DeleteProduct removes a product entirely. Deactivation (IsActive=false via
// UpdateProduct) is usually the better choice since it keeps order history
// intact.
func (s *AdminService) DeleteProduct(id string) error {
	if err := s.productRepo.Delete(id); err != nil {
		log.Printf("Error deleting product %s: %v", id, err)
		return ErrProductNotFound
	}
	s.invalidateCatalogCache()
	return nil
}

// Stats assembles the dashboard aggregates.
func (s *AdminService) Stats() (*DashboardStats, error) {
	totalOrders, err := s.orderRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	totalRevenue, err := s.orderRepo.SumTotal()
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	totalProducts, err := s.productRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	totalUsers, err := s.userRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	recentOrders, err := s.orderRepo.Recent(5)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent orders: %w", err)
	}

	return &DashboardStats{
		TotalOrders:   totalOrders,
		TotalRevenue:  totalRevenue,
		TotalProducts: totalProducts,
		TotalUsers:    totalUsers,
		RecentOrders:  recentOrders,
	}, nil
}

func (s *AdminService) invalidateCatalogCache() {
	s.cache.Delete(context.Background(), categoriesCacheKey)
}
