package http

import (
	"encoding/json"
	"net/http"
)

// TransactionCounter exposes the store metric surfaced by the health check.
type TransactionCounter interface {
	ActiveTransactions() int
}

// HandleHealth reports liveness plus the number of checkouts awaiting
// confirmation, the only store metric visible from outside.
func HandleHealth(counter TransactionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:             "ok",
			ActiveTransactions: counter.ActiveTransactions(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type healthResponse struct {
	Status             string `json:"status"`
	ActiveTransactions int    `json:"active_transactions"`
}
