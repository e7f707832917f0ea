package domain

import "time"

// CustomerInfo identifies the buyer on a pending purchase. Name and Email are
// required; Phone is optional and passed through to the receipt untouched.
type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// CartItem is one priced line of the cart. Price is in CLP (no cents).
type CartItem struct {
	VehicleID   string
	Description string
	Price       int64
	Quantity    int
}

// PendingPurchase links a gateway-issued token to the business data needed to
// finish the sale. It is immutable after insertion; the only mutation the store
// allows is deletion (on confirm or expiry).
type PendingPurchase struct {
	Token      string
	BuyOrder   string
	SessionID  string
	Customer   CustomerInfo
	Items      []CartItem
	Subtotal   int64
	Discount   int64
	CouponCode string
	CreatedAt  time.Time
}

// Total is the amount actually charged: subtotal minus discount.
func (p PendingPurchase) Total() int64 {
	return p.Subtotal - p.Discount
}

// ItemsSubtotal sums price times quantity over the cart.
func ItemsSubtotal(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}
