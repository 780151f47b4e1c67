package repositories

import (
	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(order *models.Order) error
	// GetAll returns every order newest-first. Back-office use only.
	GetAll() ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	// GetByProviderRef looks an order up by the payment-gateway session id
	// recorded at creation time. Used to keep webhook redeliveries idempotent.
	GetByProviderRef(ref string) (*models.Order, error)
	// ListByUser returns the user's orders newest-first.
	ListByUser(userID string) ([]models.Order, error)
	UpdateStatus(id string, status models.OrderStatus) error
	Count() (int64, error)
	// SumTotal returns the revenue sum across all orders.
	SumTotal() (float64, error)
	// Recent returns the most recent orders, newest-first.
	Recent(limit int) ([]models.Order, error)
}
