package handlers

import (
	"errors"
	"log"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/pkg/payment"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler handles checkout initiation and the payment webhook.
type CheckoutHandler struct {
	checkoutService *services.CheckoutService
	validate        *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutService *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		validate:        validator.New(),
	}
}

// RegisterCheckoutRoutes registers the authenticated checkout endpoint. The
// router must already be behind AuthRequired.
func (h *CheckoutHandler) RegisterCheckoutRoutes(router fiber.Router) {
	router.Post("/checkout", h.HandleInitiateCheckout)
}

// RegisterWebhookRoutes registers the public webhook endpoint. It must stay
// outside the auth middleware: the gateway authenticates with a signature,
// not a session.
func (h *CheckoutHandler) RegisterWebhookRoutes(router fiber.Router) {
	router.Post("/webhooks/payment", h.HandlePaymentWebhook)
}

type checkoutRequest struct {
	Items []models.CartItem `json:"items" validate:"required,min=1,dive"`
	Total float64           `json:"total"`
}

// HandleInitiateCheckout turns the submitted cart into a gateway checkout
// session and returns the redirect URL.
func (h *CheckoutHandler) HandleInitiateCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing checkout body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil || len(req.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cart is empty",
		})
	}

	redirectURL, err := h.checkoutService.InitiateCheckout(middleware.UserID(c), req.Items)
	if err != nil {
		if errors.Is(err, services.ErrItemsUnavailable) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("Error creating checkout session: %v", err)
		// Relay the gateway message so a misconfigured key is diagnosable.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"url": redirectURL,
	})
}

// HandlePaymentWebhook receives the gateway's asynchronous payment events.
// An invalid signature is the only rejection; once the payload is authentic,
// receipt is acknowledged regardless of downstream processing so the gateway
// does not retry forever.
func (h *CheckoutHandler) HandlePaymentWebhook(c *fiber.Ctx) error {
	err := h.checkoutService.HandleWebhook(c.Body(), c.Get(payment.SignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}
		log.Printf("Webhook processing error: %v", err)
	}
	return c.JSON(fiber.Map{
		"received": true,
	})
}
