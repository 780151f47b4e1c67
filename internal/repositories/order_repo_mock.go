package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create adds a new order.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	r.orders[order.ID] = *order
	return nil
}

func (r *MockOrderRepository) sortedLocked() []models.Order {
	orderList := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		orderList = append(orderList, o)
	}
	sort.Slice(orderList, func(i, j int) bool {
		return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
	})
	return orderList
}

// GetAll returns all orders, newest first.
func (r *MockOrderRepository) GetAll() ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedLocked(), nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s not found", id)
	}
	return &order, nil
}

// GetByProviderRef returns an order by its payment-gateway reference.
func (r *MockOrderRepository) GetByProviderRef(ref string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.ProviderRef == ref {
			o := order
			return &o, nil
		}
	}
	return nil, fmt.Errorf("order with provider ref %s not found", ref)
}

// ListByUser returns a user's orders, newest first.
func (r *MockOrderRepository) ListByUser(userID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orderList []models.Order
	for _, o := range r.sortedLocked() {
		if o.UserID == userID {
			orderList = append(orderList, o)
		}
	}
	return orderList, nil
}

// UpdateStatus updates the status of an existing order.
func (r *MockOrderRepository) UpdateStatus(id string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s not found for status update", id)
	}
	order.Status = status
	r.orders[id] = order
	return nil
}

// Count returns the number of orders.
func (r *MockOrderRepository) Count() (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.orders)), nil
}

// SumTotal returns the revenue sum across all orders.
func (r *MockOrderRepository) SumTotal() (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum float64
	for _, o := range r.orders {
		sum += o.Total
	}
	return sum, nil
}

// Recent returns the most recent orders, newest first.
func (r *MockOrderRepository) Recent(limit int) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := r.sortedLocked()
	if len(orderList) > limit {
		orderList = orderList[:limit]
	}
	return orderList, nil
}
