package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/clock"
	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]domain.PendingPurchase
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]domain.PendingPurchase)}
}

func (f *fakeStore) Insert(purchase domain.PendingPurchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.sessions[purchase.Token]; exists {
		return domain.ErrDuplicateToken
	}
	f.sessions[purchase.Token] = purchase
	return nil
}

func (f *fakeStore) Lookup(token string) (domain.PendingPurchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	purchase, ok := f.sessions[token]
	if !ok {
		return domain.PendingPurchase{}, domain.ErrTokenNotFound
	}
	return purchase, nil
}

func (f *fakeStore) Delete(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
}

func (f *fakeStore) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *fakeStore) get(token string) (domain.PendingPurchase, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	purchase, ok := f.sessions[token]
	return purchase, ok
}

type createCall struct {
	buyOrder  string
	sessionID string
	amount    int64
	returnURL string
}

type fakeGateway struct {
	mu           sync.Mutex
	createResult domain.GatewayTransaction
	createErr    error
	commitResult domain.GatewayResult
	commitErr    error
	createCalls  []createCall
	commitCalls  []string
}

func (f *fakeGateway) Create(_ context.Context, buyOrder, sessionID string, amount int64, returnURL string) (domain.GatewayTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, createCall{buyOrder, sessionID, amount, returnURL})
	if f.createErr != nil {
		return domain.GatewayTransaction{}, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeGateway) Commit(_ context.Context, token string) (domain.GatewayResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitCalls = append(f.commitCalls, token)
	if f.commitErr != nil {
		return domain.GatewayResult{}, f.commitErr
	}
	return f.commitResult, nil
}

func (f *fakeGateway) setCommitErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitErr = err
}

type fakeMailer struct {
	sent chan domain.Confirmation
	err  error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan domain.Confirmation, 8)}
}

func (f *fakeMailer) SendReceipt(_ context.Context, confirmation domain.Confirmation) error {
	f.sent <- confirmation
	return f.err
}

func waitForReceipt(t *testing.T, mailer *fakeMailer) domain.Confirmation {
	t.Helper()
	select {
	case confirmation := <-mailer.sent:
		return confirmation
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a receipt to be dispatched")
		return domain.Confirmation{}
	}
}

func validInput() BeginPurchaseInput {
	return BeginPurchaseInput{
		Amount:   50000,
		Customer: domain.CustomerInfo{Name: "Ana", Email: "a@x.com"},
		Items:    []domain.CartItem{{VehicleID: "v-1", Description: "Coupe", Price: 50000, Quantity: 1}},
	}
}

func TestTransactionService_BeginPurchase(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	makeSvc := func(gw *fakeGateway) (*TransactionService, *fakeStore) {
		store := newFakeStore()
		svc := NewTransactionService(store, gw, newFakeMailer(), clock.NewFixed(now), "https://shop.local/result")
		return svc, store
	}

	t.Run("opens gateway transaction and stores pending purchase", func(t *testing.T) {
		gw := &fakeGateway{createResult: domain.GatewayTransaction{Token: "tok-1", URL: "https://webpay/redirect"}}
		svc, store := makeSvc(gw)

		result, err := svc.BeginPurchase(context.Background(), validInput())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Token != "tok-1" || result.URL != "https://webpay/redirect" {
			t.Fatalf("unexpected result: %+v", result)
		}

		purchase, ok := store.get("tok-1")
		if !ok {
			t.Fatalf("expected pending purchase keyed by gateway token")
		}
		if purchase.Subtotal != 50000 {
			t.Fatalf("expected computed subtotal 50000, got %d", purchase.Subtotal)
		}
		if purchase.Discount != 0 {
			t.Fatalf("expected discount 0, got %d", purchase.Discount)
		}
		if purchase.CreatedAt != now {
			t.Fatalf("expected createdAt %v, got %v", now, purchase.CreatedAt)
		}
		if purchase.BuyOrder == "" || purchase.SessionID == "" {
			t.Fatalf("expected generated identifiers, got %+v", purchase)
		}

		if len(gw.createCalls) != 1 {
			t.Fatalf("expected 1 create call, got %d", len(gw.createCalls))
		}
		call := gw.createCalls[0]
		if call.amount != 50000 || call.returnURL != "https://shop.local/result" {
			t.Fatalf("unexpected create call: %+v", call)
		}
		if call.buyOrder != purchase.BuyOrder || call.sessionID != purchase.SessionID {
			t.Fatalf("stored identifiers do not match gateway call: %+v vs %+v", call, purchase)
		}
	})

	t.Run("respects supplied subtotal and discount", func(t *testing.T) {
		gw := &fakeGateway{createResult: domain.GatewayTransaction{Token: "tok-1", URL: "https://webpay/redirect"}}
		svc, store := makeSvc(gw)

		in := validInput()
		in.Subtotal = 55000
		in.Discount = 5000
		in.CouponCode = "SPRING"

		if _, err := svc.BeginPurchase(context.Background(), in); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		purchase, _ := store.get("tok-1")
		if purchase.Subtotal != 55000 || purchase.Discount != 5000 || purchase.CouponCode != "SPRING" {
			t.Fatalf("unexpected pricing: %+v", purchase)
		}
	})

	t.Run("validation failures reach neither gateway nor store", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(*BeginPurchaseInput)
			wantErr error
		}{
			{
				name:    "zero amount",
				mutate:  func(in *BeginPurchaseInput) { in.Amount = 0 },
				wantErr: domain.ErrInvalidAmount,
			},
			{
				name:    "negative amount",
				mutate:  func(in *BeginPurchaseInput) { in.Amount = -100 },
				wantErr: domain.ErrInvalidAmount,
			},
			{
				name:    "missing name",
				mutate:  func(in *BeginPurchaseInput) { in.Customer.Name = "" },
				wantErr: domain.ErrCustomerRequired,
			},
			{
				name:    "missing email",
				mutate:  func(in *BeginPurchaseInput) { in.Customer.Email = "" },
				wantErr: domain.ErrCustomerRequired,
			},
			{
				name:    "empty cart",
				mutate:  func(in *BeginPurchaseInput) { in.Items = nil },
				wantErr: domain.ErrEmptyCart,
			},
			{
				name:    "negative discount",
				mutate:  func(in *BeginPurchaseInput) { in.Discount = -1 },
				wantErr: domain.ErrDiscountExceedsAmount,
			},
			{
				name:    "discount above amount",
				mutate:  func(in *BeginPurchaseInput) { in.Discount = 60000 },
				wantErr: domain.ErrDiscountExceedsAmount,
			},
			{
				name: "discount above subtotal",
				mutate: func(in *BeginPurchaseInput) {
					in.Subtotal = 40000
					in.Discount = 45000
					in.Amount = 50000
				},
				wantErr: domain.ErrDiscountExceedsAmount,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				gw := &fakeGateway{createResult: domain.GatewayTransaction{Token: "tok-1", URL: "https://webpay/redirect"}}
				svc, store := makeSvc(gw)

				in := validInput()
				tt.mutate(&in)

				if _, err := svc.BeginPurchase(context.Background(), in); !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(gw.createCalls) != 0 {
					t.Fatalf("expected no gateway call, got %d", len(gw.createCalls))
				}
				if store.Len() != 0 {
					t.Fatalf("expected empty store, got %d records", store.Len())
				}
			})
		}
	})

	t.Run("gateway create failure inserts nothing", func(t *testing.T) {
		gw := &fakeGateway{createErr: errors.New("connection refused")}
		svc, store := makeSvc(gw)

		_, err := svc.BeginPurchase(context.Background(), validInput())
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
		if store.Len() != 0 {
			t.Fatalf("expected empty store after gateway failure, got %d records", store.Len())
		}
	})

	t.Run("gateway create without redirect inserts nothing", func(t *testing.T) {
		gw := &fakeGateway{createResult: domain.GatewayTransaction{Token: "tok-1"}}
		svc, store := makeSvc(gw)

		_, err := svc.BeginPurchase(context.Background(), validInput())
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
		if store.Len() != 0 {
			t.Fatalf("expected empty store, got %d records", store.Len())
		}
	})
}

func TestTransactionService_ConfirmPurchase(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	authorized := domain.GatewayResult{
		Status:            "AUTHORIZED",
		Amount:            50000,
		AuthorizationCode: "1213",
		CardLast4:         "6623",
		PaymentType:       "VN",
		Installments:      1,
	}

	begin := func(t *testing.T, gw *fakeGateway) (*TransactionService, *fakeStore, *fakeMailer, string) {
		t.Helper()
		store := newFakeStore()
		mailer := newFakeMailer()
		svc := NewTransactionService(store, gw, mailer, clock.NewFixed(now), "https://shop.local/result")

		result, err := svc.BeginPurchase(context.Background(), validInput())
		if err != nil {
			t.Fatalf("begin purchase: %v", err)
		}
		return svc, store, mailer, result.Token
	}

	t.Run("merges gateway result with stored purchase and consumes record", func(t *testing.T) {
		gw := &fakeGateway{
			createResult: domain.GatewayTransaction{Token: "tok-1", URL: "https://webpay/redirect"},
			commitResult: authorized,
		}
		svc, store, mailer, token := begin(t, gw)

		confirmation, err := svc.ConfirmPurchase(context.Background(), token)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if confirmation.Status != "AUTHORIZED" {
			t.Fatalf("expected AUTHORIZED, got %q", confirmation.Status)
		}
		if confirmation.BuyOrder == "" {
			t.Fatalf("expected buy order in confirmation")
		}
		if confirmation.CardLast4 != "6623" {
			t.Fatalf("expected card digits 6623, got %q", confirmation.CardLast4)
		}
		if confirmation.Customer.Email != "a@x.com" {
			t.Fatalf("expected stored customer echoed back, got %+v", confirmation.Customer)
		}
		if len(confirmation.Items) != 1 || confirmation.Items[0].VehicleID != "v-1" {
			t.Fatalf("expected stored cart echoed back, got %+v", confirmation.Items)
		}
		if store.Len() != 0 {
			t.Fatalf("expected record consumed, store has %d", store.Len())
		}

		receipt := waitForReceipt(t, mailer)
		if receipt.BuyOrder != confirmation.BuyOrder {
			t.Fatalf("expected receipt for order %s, got %s", confirmation.BuyOrder, receipt.BuyOrder)
		}
	})

	t.Run("second confirm with same token is not found", func(t *testing.T) {
		gw := &fakeGateway{
			createResult: domain.GatewayTransaction{Token: "tok-1", URL: "https://webpay/redirect"},
			commitResult: authorized,
		}
		svc, _, _, token := begin(t, gw)

		if _, err := svc.ConfirmPurchase(context.Background(), token); err != nil {
			t.Fatalf("first confirm: %v", err)
		}
		if _, err := svc.ConfirmPurchase(context.Background(), token); !errors.Is(err, domain.ErrTokenNotFound) {
			t.Fatalf("expected ErrTokenNotFound on replay, got %v", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		gw := &fakeGateway{createResult: domain.GatewayTransaction{Token: "tok-1", URL: "https://webpay/redirect"}}
		svc, _, _, _ := begin(t, gw)

		if _, err := svc.ConfirmPurchase(context.Background(), "never-issued"); !errors.Is(err, domain.ErrTokenNotFound) {
			t.Fatalf("expected ErrTokenNotFound, got %v", err)
		}
		if len(gw.commitCalls) != 0 {
			t.Fatalf("expected no commit call for unknown token, got %d", len(gw.commitCalls))
		}
	})

	t.Run("commit failure keeps record so retry can succeed", func(t *testing.T) {
		gw := &fakeGateway{
			createResult: domain.GatewayTransaction{Token: "tok-1", URL: "https://webpay/redirect"},
			commitResult: authorized,
		}
		svc, store, _, token := begin(t, gw)
		gw.setCommitErr(errors.New("gateway timeout"))

		if _, err := svc.ConfirmPurchase(context.Background(), token); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}
		if _, ok := store.get(token); !ok {
			t.Fatalf("expected record retained after commit failure")
		}

		gw.setCommitErr(nil)
		confirmation, err := svc.ConfirmPurchase(context.Background(), token)
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if confirmation.Status != "AUTHORIZED" {
			t.Fatalf("expected AUTHORIZED on retry, got %q", confirmation.Status)
		}
		if store.Len() != 0 {
			t.Fatalf("expected record consumed after retry, store has %d", store.Len())
		}
	})

	t.Run("failed authorization still consumes the record", func(t *testing.T) {
		failed := authorized
		failed.Status = "FAILED"
		failed.ResponseCode = -1
		gw := &fakeGateway{
			createResult: domain.GatewayTransaction{Token: "tok-1", URL: "https://webpay/redirect"},
			commitResult: failed,
		}
		svc, store, _, token := begin(t, gw)

		confirmation, err := svc.ConfirmPurchase(context.Background(), token)
		if err != nil {
			t.Fatalf("expected no error for FAILED status, got %v", err)
		}
		if confirmation.Status != "FAILED" || confirmation.ResponseCode != -1 {
			t.Fatalf("unexpected confirmation: %+v", confirmation)
		}
		if store.Len() != 0 {
			t.Fatalf("expected record consumed, store has %d", store.Len())
		}
	})

	t.Run("receipt failure does not fail confirmation", func(t *testing.T) {
		gw := &fakeGateway{
			createResult: domain.GatewayTransaction{Token: "tok-1", URL: "https://webpay/redirect"},
			commitResult: authorized,
		}
		store := newFakeStore()
		mailer := newFakeMailer()
		mailer.err = errors.New("smtp down")
		svc := NewTransactionService(store, gw, mailer, clock.NewFixed(now), "https://shop.local/result")

		result, err := svc.BeginPurchase(context.Background(), validInput())
		if err != nil {
			t.Fatalf("begin purchase: %v", err)
		}
		if _, err := svc.ConfirmPurchase(context.Background(), result.Token); err != nil {
			t.Fatalf("expected confirmation to succeed despite mail failure, got %v", err)
		}
		waitForReceipt(t, mailer)
	})

	t.Run("active transactions tracks store size", func(t *testing.T) {
		gw := &fakeGateway{
			createResult: domain.GatewayTransaction{Token: "tok-1", URL: "https://webpay/redirect"},
			commitResult: authorized,
		}
		svc, _, _, token := begin(t, gw)

		if svc.ActiveTransactions() != 1 {
			t.Fatalf("expected 1 active transaction, got %d", svc.ActiveTransactions())
		}
		if _, err := svc.ConfirmPurchase(context.Background(), token); err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if svc.ActiveTransactions() != 0 {
			t.Fatalf("expected 0 active transactions, got %d", svc.ActiveTransactions())
		}
	})
}
