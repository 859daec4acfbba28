package model

// CartItem is one line of a user's cart.  The whole cart is stored as a
// JSON array of these.
type CartItem struct {
	ItemID     uint64   `json:"item_id"`
	Kind       ItemKind `json:"kind"`
	Name       string   `json:"name"`
	PriceCents uint64   `json:"price_cents"`
	Quantity   uint32   `json:"quantity"`
	ImageURL   string   `json:"image_url,omitempty"`
}

// CartTotal sums price times quantity over all lines.
func CartTotal(items []CartItem) uint64 {
	var total uint64
	for _, it := range items {
		total += it.PriceCents * uint64(it.Quantity)
	}
	return total
}
