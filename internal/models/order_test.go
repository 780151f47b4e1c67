package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrderStatus(t *testing.T) {
	for _, valid := range []string{"PENDING", "PAID", "SHIPPED", "DELIVERED", "CANCELLED"} {
		status, err := ParseOrderStatus(valid)
		assert.NoError(t, err)
		assert.Equal(t, OrderStatus(valid), status)
	}

	for _, invalid := range []string{"", "paid", "REFUNDED", "Pending", "SHIPPED "} {
		_, err := ParseOrderStatus(invalid)
		assert.Error(t, err, "expected %q to be rejected", invalid)
	}
}

// The back office may currently move an order between any two distinct
// statuses; check every pair so a future tightening of the table is caught.
func TestOrderStatusTransitionTable(t *testing.T) {
	for _, from := range OrderStatuses {
		for _, to := range OrderStatuses {
			if from == to {
				assert.False(t, from.CanTransitionTo(to), "%s -> %s should not be in the table", from, to)
				continue
			}
			assert.True(t, from.CanTransitionTo(to), "%s -> %s should be allowed", from, to)
		}
	}

	assert.False(t, OrderStatusPaid.CanTransitionTo("REFUNDED"))
	assert.False(t, OrderStatus("UNKNOWN").CanTransitionTo(OrderStatusPaid))
}

func TestCartRecalculate(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{ProductID: "p1", Quantity: 2, Price: 10.00},
			{ProductID: "p2", Quantity: 3, Price: 5.50},
		},
	}
	cart.Recalculate()
	assert.Equal(t, 36.50, cart.Total)
	assert.Equal(t, 5, cart.ItemCount)

	cart.Items = nil
	cart.Recalculate()
	assert.Equal(t, 0.0, cart.Total)
	assert.Equal(t, 0, cart.ItemCount)
}
