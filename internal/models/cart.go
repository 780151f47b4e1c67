package models

// CartItem is one prospective purchase line held in the cart cookie. Price,
// Name and Image are snapshots taken when the item was added; only server-side
// truths (stock, active flag) are re-checked on later mutations.
type CartItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Name      string  `json:"name"`
	Image     string  `json:"image,omitempty"`
}

// Cart is the client-held shopping cart, serialized into a cookie. Nothing in
// it is trusted for monetary decisions: checkout and the payment webhook both
// re-validate against the product table.
type Cart struct {
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"itemCount"`
}

// EmptyCart returns a cart with no items and zeroed totals.
func EmptyCart() Cart {
	return Cart{Items: []CartItem{}}
}

// Recalculate rederives Total and ItemCount from the line items. It must be
// called after every mutation so the invariants total == sum(price*qty) and
// itemCount == sum(qty) hold.
func (c *Cart) Recalculate() {
	var total float64
	var count int
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
		count += item.Quantity
	}
	c.Total = total
	c.ItemCount = count
}

// FindItem returns the index of the line item for productID, or -1.
func (c *Cart) FindItem(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
