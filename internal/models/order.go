package models

import (
	"fmt"

	"gorm.io/gorm"
)

// OrderStatus is the closed set of states an order can be in.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderStatuses lists every valid status, in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// orderTransitions is the explicit transition table. The back office may move
// an order between any two distinct statuses; the table exists so tightening
// the rules later is a data change, not a code change.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusPending, OrderStatusPaid, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusCancelled: {OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered},
}

// ParseOrderStatus converts a raw string into an OrderStatus, rejecting
// anything outside the closed set.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	for _, valid := range OrderStatuses {
		if status == valid {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid order status: %s", s)
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem is a single line of an order. Price is the unit price captured at
// purchase time and is decoupled from the current Product.Price.
type OrderItem struct {
	ID         string   `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID    string   `json:"order_id" gorm:"index;type:varchar(36)"`
	ProductID  string   `json:"product_id" gorm:"type:varchar(36)"`
	Product    *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Quantity   int      `json:"quantity"`
	Price      float64  `json:"price"`
	gorm.Model          // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// Order is the persisted record of a completed purchase. Orders are created
// only by the payment webhook, exactly once per confirmed gateway event:
// ProviderRef carries the gateway session id and is uniquely indexed so a
// redelivered event cannot create a second order.
type Order struct {
	ID          string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string      `json:"user_id" gorm:"index;type:varchar(36)"`
	User        *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items       []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	Total       float64     `json:"total"`
	Status      OrderStatus `json:"status" gorm:"type:varchar(16)"`
	ProviderRef string      `json:"provider_ref,omitempty" gorm:"uniqueIndex;type:varchar(128)"`
	gorm.Model              // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
