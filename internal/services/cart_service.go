package services

import (
	"encoding/json"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CartService mutates the client-held cart. Every method takes the cart by
// value and returns the new state, so a handler's read-modify-write of the
// cookie is explicit. Stock and the active flag are re-checked against the
// store on every mutation; the cookie itself is never trusted for either.
type CartService struct {
	productRepo repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(productRepo repositories.ProductRepository) *CartService {
	return &CartService{
		productRepo: productRepo,
	}
}

// Decode parses a raw cookie value into a cart. An absent or corrupt value
// yields an empty cart, never an error.
func (s *CartService) Decode(raw string) models.Cart {
	if raw == "" {
		return models.EmptyCart()
	}
	var cart models.Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return models.EmptyCart()
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cart
}

// Encode serializes a cart for storage in the cookie.
func (s *CartService) Encode(cart models.Cart) (string, error) {
	encoded, err := json.Marshal(cart)
	if err != nil {
		return "", fmt.Errorf("failed to encode cart: %w", err)
	}
	return string(encoded), nil
}

// AddItem upserts a line item. The price, name and image snapshot is taken
// when the item first enters the cart; adding more of an existing item only
// raises its quantity.
func (s *CartService) AddItem(cart models.Cart, productID string, quantity int) (models.Cart, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil || !product.IsActive {
		return cart, ErrProductNotFound
	}

	idx := cart.FindItem(productID)
	newQuantity := quantity
	if idx >= 0 {
		newQuantity += cart.Items[idx].Quantity
	}
	if newQuantity > product.Stock {
		return cart, fmt.Errorf("%w: only %d in stock", ErrInsufficientStock, product.Stock)
	}

	if idx >= 0 {
		cart.Items[idx].Quantity = newQuantity
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID: product.ID,
			Quantity:  quantity,
			Price:     product.Price,
			Name:      product.Name,
			Image:     product.Image,
		})
	}

	cart.Recalculate()
	return cart, nil
}

// UpdateItem replaces the stored quantity of an item already in the cart.
// A quantity of zero or less removes the item instead.
func (s *CartService) UpdateItem(cart models.Cart, productID string, quantity int) (models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(cart, productID), nil
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil || !product.IsActive {
		return cart, ErrProductNotFound
	}
	if quantity > product.Stock {
		return cart, fmt.Errorf("%w: only %d in stock", ErrInsufficientStock, product.Stock)
	}

	idx := cart.FindItem(productID)
	if idx < 0 {
		return cart, ErrCartItemNotFound
	}

	cart.Items[idx].Quantity = quantity
	cart.Recalculate()
	return cart, nil
}

// RemoveItem filters the item out of the cart. Removing an item that is not
// present is a no-op, not an error.
func (s *CartService) RemoveItem(cart models.Cart, productID string) models.Cart {
	kept := make([]models.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept
	cart.Recalculate()
	return cart
}

// Clear returns an empty cart.
func (s *CartService) Clear() models.Cart {
	return models.EmptyCart()
}
