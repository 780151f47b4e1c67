package services

import (
	"fmt"
	"log"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// OrderService reads orders on behalf of their owners and lets the back
// office move them through the status lifecycle.
type OrderService struct {
	orderRepo repositories.OrderRepository
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
	}
}

// ListOrdersForUser returns the user's orders, newest first.
func (s *OrderService) ListOrdersForUser(userID string) ([]models.Order, error) {
	return s.orderRepo.ListByUser(userID)
}

// GetOrderForUser returns the order only if it belongs to userID. An order
// owned by someone else comes back as ErrOrderNotFound, indistinguishable
// from a missing one.
func (s *OrderService) GetOrderForUser(userID, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		log.Printf("Error fetching order %s: %v", orderID, err)
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetAllOrders retrieves all orders. Back-office use only.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetOrderByID retrieves a single order regardless of owner. Back-office
// use only.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		log.Printf("Error fetching order %s: %v", id, err)
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// UpdateOrderStatus moves an order to the given status. The raw string is
// parsed against the closed enum and the move is checked against the
// transition table; setting the current status again is a no-op.
func (s *OrderService) UpdateOrderStatus(id string, rawStatus string) error {
	status, err := models.ParseOrderStatus(rawStatus)
	if err != nil {
		return err
	}

	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		log.Printf("Error fetching order %s for status update: %v", id, err)
		return ErrOrderNotFound
	}
	if order.Status == status {
		return nil
	}
	if !order.Status.CanTransitionTo(status) {
		return fmt.Errorf("order %s cannot move from %s to %s", id, order.Status, status)
	}

	if err := s.orderRepo.UpdateStatus(id, status); err != nil {
		return fmt.Errorf("failed to update order status for order %s: %w", id, err)
	}
	return nil
}
