package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/domain"
)

// PurchaseConfirmer is the minimal interface needed to confirm a transaction.
type PurchaseConfirmer interface {
	ConfirmPurchase(ctx context.Context, token string) (domain.Confirmation, error)
}

// HandleConfirmTransaction returns an HTTP handler that commits a transaction
// after the customer returns from the payment form.
func HandleConfirmTransaction(svc PurchaseConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		token, ok := parseConfirmPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		confirmation, err := svc.ConfirmPurchase(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenNotFound):
				writeError(w, http.StatusNotFound, codeTokenNotFound, err.Error())
			case errors.Is(err, domain.ErrGatewayUnavailable):
				// The record is still held, the same token can be retried.
				writeError(w, http.StatusBadGateway, codeGatewayUnavailable, "payment gateway unavailable")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		items := make([]cartItemPayload, 0, len(confirmation.Items))
		for _, item := range confirmation.Items {
			items = append(items, cartItemPayload{
				VehicleID:   item.VehicleID,
				Description: item.Description,
				Price:       item.Price,
				Quantity:    item.Quantity,
			})
		}

		resp := confirmTransactionResponse{
			Status:            confirmation.Status,
			OrderID:           confirmation.BuyOrder,
			Amount:            confirmation.Amount,
			AuthorizationCode: confirmation.AuthorizationCode,
			ResponseCode:      confirmation.ResponseCode,
			CardLast4:         confirmation.CardLast4,
			PaymentType:       confirmation.PaymentType,
			Installments:      confirmation.Installments,
			Customer: customerPayload{
				Name:  confirmation.Customer.Name,
				Email: confirmation.Customer.Email,
				Phone: confirmation.Customer.Phone,
			},
			Items:      items,
			Subtotal:   confirmation.Subtotal,
			Discount:   confirmation.Discount,
			CouponCode: confirmation.CouponCode,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func parseConfirmPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "transactions" || parts[2] != "confirm" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type confirmTransactionResponse struct {
	Status            string            `json:"status"`
	OrderID           string            `json:"order_id"`
	Amount            int64             `json:"amount"`
	AuthorizationCode string            `json:"authorization_code,omitempty"`
	ResponseCode      int               `json:"response_code"`
	CardLast4         string            `json:"card_last4,omitempty"`
	PaymentType       string            `json:"payment_type,omitempty"`
	Installments      int               `json:"installments"`
	Customer          customerPayload   `json:"customer"`
	Items             []cartItemPayload `json:"items"`
	Subtotal          int64             `json:"subtotal"`
	Discount          int64             `json:"discount"`
	CouponCode        string            `json:"coupon_code,omitempty"`
}
