package webpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/domain"
)

const (
	transactionsPath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

	headerAPIKeyID     = "Tbk-Api-Key-Id"
	headerAPIKeySecret = "Tbk-Api-Key-Secret"

	// Transbank's published integration credentials, used when none are
	// configured so local development hits the sandbox out of the box.
	IntegrationBaseURL      = "https://webpay3gint.transbank.cl"
	IntegrationCommerceCode = "597055555532"
	IntegrationAPIKey       = "579B532A7440BB0C9079DED94D31EA1615BACEB56610332264630D42D0A36B1C"
)

// Client talks to the Webpay Plus REST API. Create opens a transaction and
// returns the token plus the redirect URL; Commit finalizes it after the
// customer returns from the payment form.
type Client struct {
	baseURL      string
	commerceCode string
	apiKey       string
	httpClient   *http.Client
}

func NewClient(baseURL, commerceCode, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		commerceCode: commerceCode,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (timeouts, test servers).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

type createRequest struct {
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	ReturnURL string `json:"return_url"`
}

type createResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

func (c *Client) Create(ctx context.Context, buyOrder, sessionID string, amount int64, returnURL string) (domain.GatewayTransaction, error) {
	body, err := json.Marshal(createRequest{
		BuyOrder:  buyOrder,
		SessionID: sessionID,
		Amount:    amount,
		ReturnURL: returnURL,
	})
	if err != nil {
		return domain.GatewayTransaction{}, fmt.Errorf("encode create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transactionsPath, bytes.NewReader(body))
	if err != nil {
		return domain.GatewayTransaction{}, fmt.Errorf("build create request: %w", err)
	}

	var resp createResponse
	if err := c.do(req, &resp); err != nil {
		return domain.GatewayTransaction{}, fmt.Errorf("webpay create: %w", err)
	}
	return domain.GatewayTransaction{Token: resp.Token, URL: resp.URL}, nil
}

type cardDetail struct {
	CardNumber string `json:"card_number"`
}

type commitResponse struct {
	VCI                string     `json:"vci"`
	Amount             int64      `json:"amount"`
	Status             string     `json:"status"`
	BuyOrder           string     `json:"buy_order"`
	SessionID          string     `json:"session_id"`
	CardDetail         cardDetail `json:"card_detail"`
	AccountingDate     string     `json:"accounting_date"`
	TransactionDate    string     `json:"transaction_date"`
	AuthorizationCode  string     `json:"authorization_code"`
	PaymentTypeCode    string     `json:"payment_type_code"`
	ResponseCode       int        `json:"response_code"`
	InstallmentsNumber int        `json:"installments_number"`
}

func (c *Client) Commit(ctx context.Context, token string) (domain.GatewayResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+transactionsPath+"/"+token, nil)
	if err != nil {
		return domain.GatewayResult{}, fmt.Errorf("build commit request: %w", err)
	}

	var resp commitResponse
	if err := c.do(req, &resp); err != nil {
		return domain.GatewayResult{}, fmt.Errorf("webpay commit: %w", err)
	}

	return domain.GatewayResult{
		Status:            resp.Status,
		BuyOrder:          resp.BuyOrder,
		Amount:            resp.Amount,
		AuthorizationCode: resp.AuthorizationCode,
		ResponseCode:      resp.ResponseCode,
		CardLast4:         lastFour(resp.CardDetail.CardNumber),
		PaymentType:       resp.PaymentTypeCode,
		Installments:      resp.InstallmentsNumber,
	}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKeyID, c.commerceCode)
	req.Header.Set(headerAPIKeySecret, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// lastFour keeps only the trailing digits Webpay reports, which may already be
// a masked number like "XXXXXXXXXXXX6623".
func lastFour(cardNumber string) string {
	if len(cardNumber) <= 4 {
		return cardNumber
	}
	return cardNumber[len(cardNumber)-4:]
}
