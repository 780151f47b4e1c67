package services

import (
	"encoding/json"
	"fmt"
	"log"
	"math"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/payment"
)

// EventPublisher publishes order lifecycle events to the message broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// CheckoutService converts a validated cart into a gateway checkout session
// and turns the gateway's asynchronous payment confirmation into a persisted
// order. It is the only writer of Order records.
type CheckoutService struct {
	productRepo repositories.ProductRepository
	orderRepo   repositories.OrderRepository
	gateway     *payment.Client
	publisher   EventPublisher // may be nil
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	productRepo repositories.ProductRepository,
	orderRepo repositories.OrderRepository,
	gateway *payment.Client,
	publisher EventPublisher,
) *CheckoutService {
	return &CheckoutService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		gateway:     gateway,
		publisher:   publisher,
	}
}

// checkoutMetadataItem is the per-item payload embedded as opaque session
// metadata and read back by the webhook handler.
type checkoutMetadataItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// InitiateCheckout re-validates the submitted cart against the catalog and
// creates a hosted checkout session for it, returning the redirect URL. Any
// product missing or deactivated since the cart was filled aborts the whole
// checkout with ErrItemsUnavailable.
func (s *CheckoutService) InitiateCheckout(userID string, items []models.CartItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("cart is empty")
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.GetActiveByIDs(ids)
	if err != nil {
		return "", fmt.Errorf("failed to verify cart products: %w", err)
	}
	if len(products) != len(items) {
		return "", ErrItemsUnavailable
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lineItems := make([]payment.LineItem, 0, len(items))
	metaItems := make([]checkoutMetadataItem, 0, len(items))
	for _, item := range items {
		product := byID[item.ProductID]
		lineItems = append(lineItems, payment.LineItem{
			Name:       product.Name,
			Image:      product.Image,
			UnitAmount: int64(math.Round(item.Price * 100)), // minor currency units
			Quantity:   item.Quantity,
		})
		metaItems = append(metaItems, checkoutMetadataItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	encodedItems, err := json.Marshal(metaItems)
	if err != nil {
		return "", fmt.Errorf("failed to encode checkout metadata: %w", err)
	}

	session, err := s.gateway.CreateCheckoutSession(payment.SessionParams{
		LineItems: lineItems,
		Metadata: map[string]string{
			"userId": userID,
			"items":  string(encodedItems),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session.URL, nil
}

// HandleWebhook processes a raw webhook delivery. The signature is verified
// before anything else; a failure there returns ErrInvalidSignature and no
// state changes. Every post-signature failure is logged and swallowed so the
// gateway receives an acknowledgement and does not redeliver forever.
func (s *CheckoutService) HandleWebhook(body []byte, signatureHeader string) error {
	event, err := s.gateway.ConstructEvent(body, signatureHeader)
	if err != nil {
		return err
	}

	if event.Type != payment.EventCheckoutCompleted {
		log.Printf("Ignoring webhook event %s of type %s", event.ID, event.Type)
		return nil
	}

	session := event.Data.Object
	userID := session.Metadata["userId"]
	rawItems := session.Metadata["items"]
	if userID == "" || rawItems == "" {
		log.Printf("Webhook event %s is missing checkout metadata; acknowledging as no-op", event.ID)
		return nil
	}

	var items []checkoutMetadataItem
	if err := json.Unmarshal([]byte(rawItems), &items); err != nil || len(items) == 0 {
		log.Printf("Webhook event %s carries unusable item metadata: %v", event.ID, err)
		return nil
	}

	// Idempotency: the session id is recorded on the order, so a redelivered
	// event finds the first delivery's order and stops here.
	if existing, err := s.orderRepo.GetByProviderRef(session.ID); err == nil && existing != nil {
		log.Printf("Webhook session %s already produced order %s; skipping", session.ID, existing.ID)
		return nil
	}

	// Re-read current prices: the order records what the product costs at
	// confirmation time, not the checkout-time snapshot in the metadata.
	var total float64
	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			log.Printf("Webhook session %s references unknown product %s: %v", session.ID, item.ProductID, err)
			continue
		}
		total += product.Price * float64(item.Quantity)
		orderItems = append(orderItems, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
	}
	if len(orderItems) == 0 {
		log.Printf("Webhook session %s produced no resolvable items; acknowledging as no-op", session.ID)
		return nil
	}

	order := &models.Order{
		UserID:      userID,
		Items:       orderItems,
		Total:       total,
		Status:      models.OrderStatusPaid,
		ProviderRef: session.ID,
	}
	if err := s.orderRepo.Create(order); err != nil {
		// The charge already happened; acknowledge anyway and surface the
		// loss in the logs rather than triggering gateway redelivery.
		log.Printf("Failed to create order for webhook session %s: %v", session.ID, err)
		return nil
	}

	for _, item := range orderItems {
		updated, err := s.productRepo.DecrementStock(item.ProductID, item.Quantity)
		if err != nil {
			log.Printf("Failed to decrement stock for product %s on order %s: %v", item.ProductID, order.ID, err)
			continue
		}
		if !updated {
			log.Printf("Stock for product %s was below %d when order %s settled; decrement skipped", item.ProductID, item.Quantity, order.ID)
		}
	}

	s.publishOrderCreated(order)
	log.Printf("Order created: %s", order.ID)
	return nil
}

// publishOrderCreated emits an order.created event for downstream consumers
// (fulfilment, email). Best-effort: a broker failure never fails the webhook.
func (s *CheckoutService) publishOrderCreated(order *models.Order) {
	if s.publisher == nil {
		log.Println("Event publisher is not initialized. Skipping order.created publication.")
		return
	}

	message := map[string]interface{}{
		"orderID": order.ID,
		"userID":  order.UserID,
		"status":  order.Status,
		"total":   order.Total,
	}
	body, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal order.created event for order %s: %v", order.ID, err)
		return
	}
	if err := s.publisher.Publish("order.created", body); err != nil {
		log.Printf("Warning: Failed to publish order.created event for order %s: %v", order.ID, err)
	}
}
