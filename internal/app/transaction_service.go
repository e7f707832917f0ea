package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/clock"
	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/domain"
)

type SessionRepository interface {
	Insert(purchase domain.PendingPurchase) error
	Lookup(token string) (domain.PendingPurchase, error)
	Delete(token string)
	Len() int
}

type PaymentGateway interface {
	Create(ctx context.Context, buyOrder, sessionID string, amount int64, returnURL string) (domain.GatewayTransaction, error)
	Commit(ctx context.Context, token string) (domain.GatewayResult, error)
}

type ReceiptMailer interface {
	SendReceipt(ctx context.Context, confirmation domain.Confirmation) error
}

// TransactionService sequences the begin/confirm flow between the session store
// and the payment gateway. Gateway calls happen outside any store lock; the
// store only ever sees fast single-key operations.
type TransactionService struct {
	store       SessionRepository
	gateway     PaymentGateway
	mailer      ReceiptMailer
	clock       clock.Clock
	logger      *log.Logger
	returnURL   string
	mailTimeout time.Duration
}

const defaultMailTimeout = 15 * time.Second

func NewTransactionService(store SessionRepository, gateway PaymentGateway, mailer ReceiptMailer, clk clock.Clock, returnURL string, opts ...TransactionServiceOption) *TransactionService {
	svc := &TransactionService{
		store:       store,
		gateway:     gateway,
		mailer:      mailer,
		clock:       clk,
		logger:      log.Default(),
		returnURL:   returnURL,
		mailTimeout: defaultMailTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type TransactionServiceOption func(*TransactionService)

// WithTransactionLogger overrides the logger used for receipt-dispatch failures.
func WithTransactionLogger(logger *log.Logger) TransactionServiceOption {
	return func(s *TransactionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMailTimeout overrides the deadline for the detached receipt send.
func WithMailTimeout(d time.Duration) TransactionServiceOption {
	return func(s *TransactionService) {
		if d > 0 {
			s.mailTimeout = d
		}
	}
}

type BeginPurchaseInput struct {
	Amount     int64
	Customer   domain.CustomerInfo
	Items      []domain.CartItem
	Subtotal   int64 // computed from Items when zero
	Discount   int64
	CouponCode string
}

type BeginPurchaseResult struct {
	Token string
	URL   string
}

func (s *TransactionService) BeginPurchase(ctx context.Context, in BeginPurchaseInput) (BeginPurchaseResult, error) {
	if in.Amount <= 0 {
		return BeginPurchaseResult{}, domain.ErrInvalidAmount
	}
	if in.Customer.Name == "" || in.Customer.Email == "" {
		return BeginPurchaseResult{}, domain.ErrCustomerRequired
	}
	if len(in.Items) == 0 {
		return BeginPurchaseResult{}, domain.ErrEmptyCart
	}
	if in.Discount < 0 || in.Discount > in.Amount {
		return BeginPurchaseResult{}, domain.ErrDiscountExceedsAmount
	}

	subtotal := in.Subtotal
	if subtotal == 0 {
		subtotal = domain.ItemsSubtotal(in.Items)
	}
	if in.Discount > subtotal {
		return BeginPurchaseResult{}, domain.ErrDiscountExceedsAmount
	}

	now := s.clock.Now()
	buyOrder := newBuyOrder(now)
	sessionID := newSessionID(now)

	tx, err := s.gateway.Create(ctx, buyOrder, sessionID, in.Amount, s.returnURL)
	if err != nil {
		return BeginPurchaseResult{}, fmt.Errorf("%w: create: %v", domain.ErrGatewayUnavailable, err)
	}
	if tx.Token == "" || tx.URL == "" {
		return BeginPurchaseResult{}, fmt.Errorf("%w: create returned no redirect", domain.ErrGatewayUnavailable)
	}

	purchase := domain.PendingPurchase{
		Token:      tx.Token,
		BuyOrder:   buyOrder,
		SessionID:  sessionID,
		Customer:   in.Customer,
		Items:      in.Items,
		Subtotal:   subtotal,
		Discount:   in.Discount,
		CouponCode: in.CouponCode,
		CreatedAt:  now,
	}
	if err := s.store.Insert(purchase); err != nil {
		return BeginPurchaseResult{}, err
	}

	return BeginPurchaseResult{Token: tx.Token, URL: tx.URL}, nil
}

func (s *TransactionService) ConfirmPurchase(ctx context.Context, token string) (domain.Confirmation, error) {
	purchase, err := s.store.Lookup(token)
	if err != nil {
		return domain.Confirmation{}, err
	}

	// A commit error leaves the record in place so the caller can retry with
	// the same token; only a successful commit consumes it.
	result, err := s.gateway.Commit(ctx, token)
	if err != nil {
		return domain.Confirmation{}, fmt.Errorf("%w: commit: %v", domain.ErrGatewayUnavailable, err)
	}

	confirmation := domain.Confirmation{
		GatewayResult: result,
		SessionID:     purchase.SessionID,
		Customer:      purchase.Customer,
		Items:         purchase.Items,
		Subtotal:      purchase.Subtotal,
		Discount:      purchase.Discount,
		CouponCode:    purchase.CouponCode,
	}
	if confirmation.BuyOrder == "" {
		confirmation.BuyOrder = purchase.BuyOrder
	}
	if confirmation.Amount == 0 {
		confirmation.Amount = purchase.Total()
	}

	s.store.Delete(token)
	s.dispatchReceipt(confirmation)

	return confirmation, nil
}

// ActiveTransactions reports how many purchases are pending confirmation.
func (s *TransactionService) ActiveTransactions() int {
	return s.store.Len()
}

// dispatchReceipt sends the receipt email without blocking the confirmation
// response. The goroutine carries its own deadline because the request context
// is cancelled as soon as the handler returns.
func (s *TransactionService) dispatchReceipt(confirmation domain.Confirmation) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.mailTimeout)
		defer cancel()
		if err := s.mailer.SendReceipt(ctx, confirmation); err != nil {
			s.logger.Printf("WARN: receipt email for order %s failed: %v", confirmation.BuyOrder, err)
		}
	}()
}
