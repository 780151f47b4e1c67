package services_test

import (
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
)

func newOrderFixture(t *testing.T) (*services.OrderService, *repositories.MockOrderRepository) {
	t.Helper()
	orderRepo := repositories.NewMockOrderRepository()

	order1 := &models.Order{
		ID:     "order-1",
		UserID: "user-1",
		Total:  120.00,
		Status: models.OrderStatusPaid,
	}
	order1.CreatedAt = time.Now().Add(-2 * time.Hour)
	assert.NoError(t, orderRepo.Create(order1))
	order2 := &models.Order{
		ID:     "order-2",
		UserID: "user-1",
		Total:  35.00,
		Status: models.OrderStatusPending,
	}
	order2.CreatedAt = time.Now().Add(-1 * time.Hour)
	assert.NoError(t, orderRepo.Create(order2))
	order3 := &models.Order{
		ID:     "order-3",
		UserID: "user-2",
		Total:  9.99,
		Status: models.OrderStatusShipped,
	}
	order3.CreatedAt = time.Now()
	assert.NoError(t, orderRepo.Create(order3))

	return services.NewOrderService(orderRepo), orderRepo
}

func TestListOrdersForUser(t *testing.T) {
	orderService, _ := newOrderFixture(t)

	orders, err := orderService.ListOrdersForUser("user-1")
	assert.NoError(t, err)
	assert.Len(t, orders, 2)
	// Newest first.
	assert.Equal(t, "order-2", orders[0].ID)
	assert.Equal(t, "order-1", orders[1].ID)

	orders, err = orderService.ListOrdersForUser("user-3")
	assert.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGetOrderForUser(t *testing.T) {
	orderService, _ := newOrderFixture(t)

	t.Run("own order", func(t *testing.T) {
		order, err := orderService.GetOrderForUser("user-1", "order-1")
		assert.NoError(t, err)
		assert.Equal(t, 120.00, order.Total)
	})

	t.Run("someone else's order looks missing", func(t *testing.T) {
		_, err := orderService.GetOrderForUser("user-1", "order-3")
		assert.ErrorIs(t, err, services.ErrOrderNotFound)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := orderService.GetOrderForUser("user-1", "order-404")
		assert.ErrorIs(t, err, services.ErrOrderNotFound)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Run("moves paid order to shipped", func(t *testing.T) {
		orderService, orderRepo := newOrderFixture(t)

		assert.NoError(t, orderService.UpdateOrderStatus("order-1", "SHIPPED"))
		order, err := orderRepo.GetByID("order-1")
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, order.Status)
	})

	t.Run("unknown status string", func(t *testing.T) {
		orderService, orderRepo := newOrderFixture(t)

		assert.Error(t, orderService.UpdateOrderStatus("order-1", "TELEPORTED"))
		assert.Error(t, orderService.UpdateOrderStatus("order-1", "paid")) // case sensitive

		order, err := orderRepo.GetByID("order-1")
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, order.Status)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		orderService, _ := newOrderFixture(t)
		assert.NoError(t, orderService.UpdateOrderStatus("order-1", "PAID"))
	})

	t.Run("unknown order", func(t *testing.T) {
		orderService, _ := newOrderFixture(t)
		assert.ErrorIs(t, orderService.UpdateOrderStatus("order-404", "SHIPPED"), services.ErrOrderNotFound)
	})
}
