package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/app"
	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/domain"
)

// PurchaseStarter is the minimal interface needed to open a checkout.
type PurchaseStarter interface {
	BeginPurchase(ctx context.Context, in app.BeginPurchaseInput) (app.BeginPurchaseResult, error)
}

// HandleCreateTransaction returns an HTTP handler that opens a gateway
// transaction for a cart and answers with the redirect URL and token.
func HandleCreateTransaction(svc PurchaseStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createTransactionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if code, msg, ok := req.validate(); !ok {
			writeError(w, http.StatusBadRequest, code, msg)
			return
		}

		items := make([]domain.CartItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, domain.CartItem{
				VehicleID:   item.VehicleID,
				Description: item.Description,
				Price:       item.Price,
				Quantity:    item.Quantity,
			})
		}

		result, err := svc.BeginPurchase(r.Context(), app.BeginPurchaseInput{
			Amount: req.Amount,
			Customer: domain.CustomerInfo{
				Name:  req.Customer.Name,
				Email: req.Customer.Email,
				Phone: req.Customer.Phone,
			},
			Items:      items,
			Subtotal:   req.Subtotal,
			Discount:   req.Discount,
			CouponCode: req.CouponCode,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidAmount):
				writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
			case errors.Is(err, domain.ErrCustomerRequired):
				writeError(w, http.StatusBadRequest, codeCustomerRequired, err.Error())
			case errors.Is(err, domain.ErrEmptyCart):
				writeError(w, http.StatusBadRequest, codeEmptyCart, err.Error())
			case errors.Is(err, domain.ErrDiscountExceedsAmount):
				writeError(w, http.StatusBadRequest, codeDiscountExceedsAmount, err.Error())
			case errors.Is(err, domain.ErrDuplicateToken):
				writeError(w, http.StatusConflict, codeDuplicateToken, err.Error())
			case errors.Is(err, domain.ErrGatewayUnavailable):
				writeError(w, http.StatusBadGateway, codeGatewayUnavailable, "payment gateway unavailable")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := createTransactionResponse{
			Token: result.Token,
			URL:   result.URL,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type customerPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type cartItemPayload struct {
	VehicleID   string `json:"vehicle_id"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

type createTransactionRequest struct {
	Amount     int64             `json:"amount"`
	Customer   customerPayload   `json:"customer"`
	Items      []cartItemPayload `json:"items"`
	Subtotal   int64             `json:"subtotal,omitempty"`
	Discount   int64             `json:"discount,omitempty"`
	CouponCode string            `json:"coupon_code,omitempty"`
}

func (r createTransactionRequest) validate() (code, msg string, ok bool) {
	if r.Amount <= 0 {
		return codeInvalidAmount, "amount must be positive", false
	}
	if r.Customer.Name == "" || r.Customer.Email == "" {
		return codeCustomerRequired, "customer name and email are required", false
	}
	if len(r.Items) == 0 {
		return codeEmptyCart, "items must not be empty", false
	}
	for _, item := range r.Items {
		if item.Price < 0 || item.Quantity < 1 {
			return codeInvalidRequestBody, "items must have non-negative price and quantity of at least 1", false
		}
	}
	return "", "", true
}

type createTransactionResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}
