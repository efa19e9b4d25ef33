package model

import "time"

// OrderItem is one line of an order request. Prices are never sent: the
// backend assigns the authoritative price when it creates the order.
type OrderItem struct {
	ItemID   ItemID `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// OrderRequest is the body of POST /orders/.
type OrderRequest struct {
	Items []OrderItem `json:"items"`
}

// OrderedItem is a line of a created order as reported by the backend,
// including the price it charged.
type OrderedItem struct {
	ItemID   ItemID `json:"book_id"`
	Quantity int    `json:"quantity"`
	Price    Money  `json:"price"`
}

// OrderConfirmation is returned to the shopper after a successful submission.
type OrderConfirmation struct {
	OrderID   int64         `json:"orderId"`
	OrderDate time.Time     `json:"orderDate"`
	Items     []OrderedItem `json:"items"`
	Amount    Money         `json:"amount"`
	Status    string        `json:"status,omitempty"`
}

// OrderItemsFromCart converts cart lines to {itemId, quantity} pairs in cart order.
func OrderItemsFromCart(lines []CartLine) []OrderItem {
	items := make([]OrderItem, len(lines))
	for i, l := range lines {
		items[i] = OrderItem{ItemID: l.ID, Quantity: l.Quantity}
	}
	return items
}
