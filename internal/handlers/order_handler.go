package handlers

import (
	"errors"
	"log"

	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles the authenticated user's order history.
type OrderHandler struct {
	orderService *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// RegisterRoutes registers the order routes. The router must already be
// behind AuthRequired; every query is scoped to the session's user id.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleListOrders)
	orderRoutes.Get("/:id", h.HandleGetOrder)
}

// HandleListOrders lists the authenticated user's orders, newest first.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	orders, err := h.orderService.ListOrdersForUser(middleware.UserID(c))
	if err != nil {
		log.Printf("Error listing orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
		})
	}
	return c.JSON(orders)
}

// HandleGetOrder returns one of the authenticated user's orders. Another
// user's order id yields the same NotFound as a nonexistent one.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.orderService.GetOrderForUser(middleware.UserID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		log.Printf("Error getting order: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve order",
		})
	}
	return c.JSON(order)
}
