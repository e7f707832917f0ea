package mail

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/domain"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Gracias por tu compra, {{.Customer.Name}}</h2>
  <p>Orden <strong>{{.BuyOrder}}</strong>, estado <strong>{{.Status}}</strong></p>
  {{if .CardLast4}}<p>Pagado con tarjeta terminada en {{.CardLast4}}</p>{{end}}
  <table cellpadding="6" cellspacing="0" border="0" width="100%">
    <tr style="text-align: left; border-bottom: 1px solid #ccc;">
      <th>Detalle</th><th>Cantidad</th><th>Precio</th>
    </tr>
    {{range .Items}}
    <tr>
      <td>{{.Description}}</td>
      <td>{{.Quantity}}</td>
      <td>${{.Price}}</td>
    </tr>
    {{end}}
  </table>
  <p>Subtotal: ${{.Subtotal}}</p>
  {{if gt .Discount 0}}<p>Descuento{{if .CouponCode}} ({{.CouponCode}}){{end}}: -${{.Discount}}</p>{{end}}
  <p><strong>Total: ${{.Amount}}</strong></p>
  {{if .AuthorizationCode}}<p>Código de autorización: {{.AuthorizationCode}}</p>{{end}}
</body>
</html>`))

// RenderReceipt builds the HTML body of the receipt email for a confirmation.
func RenderReceipt(confirmation domain.Confirmation) (string, error) {
	var buf strings.Builder
	if err := receiptTemplate.Execute(&buf, confirmation); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}

// ReceiptSubject is the subject line for a confirmation's receipt email.
func ReceiptSubject(confirmation domain.Confirmation) string {
	return fmt.Sprintf("Comprobante de compra - orden %s", confirmation.BuyOrder)
}
