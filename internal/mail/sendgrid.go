package mail

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/domain"
)

// SendGridMailer delivers receipt emails through SendGrid. With an empty API
// key it degrades to a logged no-op so the service runs locally without
// credentials.
type SendGridMailer struct {
	apiKey   string
	from     string
	fromName string
	logger   *log.Logger
}

func NewSendGridMailer(apiKey, from, fromName string, logger *log.Logger) *SendGridMailer {
	if logger == nil {
		logger = log.Default()
	}
	if apiKey == "" {
		logger.Printf("WARN: SENDGRID_API_KEY is empty, receipt emails will be skipped")
	}
	return &SendGridMailer{
		apiKey:   apiKey,
		from:     from,
		fromName: fromName,
		logger:   logger,
	}
}

func (m *SendGridMailer) SendReceipt(ctx context.Context, confirmation domain.Confirmation) error {
	if m.apiKey == "" {
		m.logger.Printf("receipt for order %s skipped (no sendgrid key)", confirmation.BuyOrder)
		return nil
	}
	if confirmation.Customer.Email == "" {
		return fmt.Errorf("receipt for order %s: customer email is empty", confirmation.BuyOrder)
	}

	html, err := RenderReceipt(confirmation)
	if err != nil {
		return err
	}

	from := sgmail.NewEmail(m.fromName, m.from)
	to := sgmail.NewEmail(confirmation.Customer.Name, confirmation.Customer.Email)
	message := sgmail.NewSingleEmail(from, ReceiptSubject(confirmation), to, "", html)

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", response.StatusCode, response.Body)
	}

	m.logger.Printf("receipt sent for order %s to %s status=%d",
		confirmation.BuyOrder, confirmation.Customer.Email, response.StatusCode)
	return nil
}
