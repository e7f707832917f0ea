package domain

// GatewayTransaction is what the gateway returns when a transaction is created:
// the opaque token and the URL the customer is redirected to for payment.
type GatewayTransaction struct {
	Token string
	URL   string
}

// GatewayResult is the outcome reported by the gateway on commit. Status is the
// gateway's authorization verdict ("AUTHORIZED" or "FAILED"); a FAILED status is
// still a successful commit call.
type GatewayResult struct {
	Status            string
	BuyOrder          string
	Amount            int64
	AuthorizationCode string
	ResponseCode      int
	CardLast4         string
	PaymentType       string
	Installments      int
}

// Confirmation merges the gateway's commit result with the business data that
// was held for the token. This is the payload the client and the receipt email
// are built from.
type Confirmation struct {
	GatewayResult
	SessionID  string
	Customer   CustomerInfo
	Items      []CartItem
	Subtotal   int64
	Discount   int64
	CouponCode string
}

// Authorized reports whether the gateway approved the payment.
func (c Confirmation) Authorized() bool {
	return c.Status == "AUTHORIZED"
}
