package handlers

import (
	"errors"
	"log"
	"net/url"
	"time"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartCookieName is the cookie holding the serialized cart.
const CartCookieName = "cart"

// cartCookieMaxAge is 30 days.
const cartCookieMaxAge = 30 * 24 * time.Hour

// CartHandler owns the cart cookie: it decodes the cookie on the way in,
// hands the cart to the service, and writes the mutated cart back out.
// Two concurrent requests from one client race on the cookie and the later
// response wins; the cart is not the system of record, so that is accepted.
type CartHandler struct {
	cartService   *services.CartService
	validate      *validator.Validate
	secureCookies bool // set in production so the cookie is HTTPS-only
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(cartService *services.CartService, secureCookies bool) *CartHandler {
	return &CartHandler{
		cartService:   cartService,
		validate:      validator.New(),
		secureCookies: secureCookies,
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/", h.HandleAddItem)
	cartRoutes.Put("/", h.HandleUpdateItem)
	cartRoutes.Delete("/", h.HandleRemoveItem)
	cartRoutes.Post("/clear", h.HandleClearCart)
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,gte=1"`
}

type updateItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

type removeItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// readCart decodes the cart cookie; absent or corrupt cookies produce an
// empty cart.
func (h *CartHandler) readCart(c *fiber.Ctx) models.Cart {
	raw := c.Cookies(CartCookieName)
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}
	return h.cartService.Decode(raw)
}

// writeCart serializes the cart back into the cookie. The JSON value is
// URL-escaped because cookie values cannot carry quotes or commas verbatim.
func (h *CartHandler) writeCart(c *fiber.Ctx, cart models.Cart) error {
	encoded, err := h.cartService.Encode(cart)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     CartCookieName,
		Value:    url.QueryEscape(encoded),
		MaxAge:   int(cartCookieMaxAge.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.secureCookies,
		Path:     "/",
	})
	return nil
}

func cartError(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

func cartSuccess(c *fiber.Ctx, cart models.Cart) error {
	return c.JSON(fiber.Map{
		"success": true,
		"cart":    cart,
	})
}

// HandleGetCart returns the current cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	return cartSuccess(c, h.readCart(c))
}

// HandleAddItem adds a product to the cart (default quantity 1).
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add-to-cart body: %v", err)
		return cartError(c, fiber.StatusBadRequest, errors.New("invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return cartError(c, fiber.StatusBadRequest, errors.New("productId is required and quantity must be at least 1"))
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.cartService.AddItem(h.readCart(c), req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return cartError(c, fiber.StatusNotFound, err)
		}
		return cartError(c, fiber.StatusBadRequest, err)
	}

	if err := h.writeCart(c, cart); err != nil {
		log.Printf("Error writing cart cookie: %v", err)
		return cartError(c, fiber.StatusInternalServerError, errors.New("failed to save cart"))
	}
	return cartSuccess(c, cart)
}

// HandleUpdateItem replaces the quantity of an item already in the cart.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req updateItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing cart update body: %v", err)
		return cartError(c, fiber.StatusBadRequest, errors.New("invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return cartError(c, fiber.StatusBadRequest, errors.New("productId is required and quantity must not be negative"))
	}

	cart, err := h.cartService.UpdateItem(h.readCart(c), req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) || errors.Is(err, services.ErrCartItemNotFound) {
			return cartError(c, fiber.StatusNotFound, err)
		}
		return cartError(c, fiber.StatusBadRequest, err)
	}

	if err := h.writeCart(c, cart); err != nil {
		log.Printf("Error writing cart cookie: %v", err)
		return cartError(c, fiber.StatusInternalServerError, errors.New("failed to save cart"))
	}
	return cartSuccess(c, cart)
}

// HandleRemoveItem removes an item from the cart. Removing an absent item is
// a no-op success.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	var req removeItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing cart remove body: %v", err)
		return cartError(c, fiber.StatusBadRequest, errors.New("invalid request body"))
	}
	if err := h.validate.Struct(req); err != nil {
		return cartError(c, fiber.StatusBadRequest, errors.New("productId is required"))
	}

	cart := h.cartService.RemoveItem(h.readCart(c), req.ProductID)
	if err := h.writeCart(c, cart); err != nil {
		log.Printf("Error writing cart cookie: %v", err)
		return cartError(c, fiber.StatusInternalServerError, errors.New("failed to save cart"))
	}
	return cartSuccess(c, cart)
}

// HandleClearCart resets the cart to empty.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	cart := h.cartService.Clear()
	if err := h.writeCart(c, cart); err != nil {
		log.Printf("Error writing cart cookie: %v", err)
		return cartError(c, fiber.StatusInternalServerError, errors.New("failed to save cart"))
	}
	return cartSuccess(c, cart)
}
