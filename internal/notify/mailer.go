package notify

import (
	"context"                    // Request deadlines
	"fmt"                        // Message formatting
	"html"                       // Escaping user supplied text
	"peak_pulse/internal/domain" // Importing domain models
	"strings"                    // Message assembly
	"time"                       // Send timeouts

	"github.com/sendgrid/sendgrid-go"              // SendGrid client
	"github.com/sendgrid/sendgrid-go/helpers/mail" // SendGrid message helpers
	"github.com/sirupsen/logrus"                   // Logrus for structured logging
)

// Message is an outgoing email
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends email
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NopMailer logs messages instead of sending them
type NopMailer struct{}

// Send logs the message
func (NopMailer) Send(_ context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{"to": msg.ToEmail, "subject": msg.Subject}).Debug("Mail delivery disabled")
	return nil
}

// SendGridMailer delivers mail through the SendGrid API
type SendGridMailer struct {
	client   *sendgrid.Client
	fromName string
	from     string
}

// NewSendGridMailer creates a mailer sending as from
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey), fromName: "Peak Pulse", from: from}
}

// Send delivers the message, treating non 2xx responses as errors
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(m.fromName, m.from),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.ToEmail),
		msg.Text,
		msg.HTML,
	)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// OrderConfirmation builds the confirmation mail for a freshly placed order. Items must be loaded.
func OrderConfirmation(user domain.User, order domain.Order) Message {
	var text, body strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nThanks for shopping with Peak Pulse. Your order %s has been received.\n\n", user.FullName, order.Number)
	fmt.Fprintf(&body, "<p>Hi %s,</p><p>Thanks for shopping with Peak Pulse. Your order <strong>%s</strong> has been received.</p><table>",
		html.EscapeString(user.FullName), order.Number)
	for _, it := range order.Items {
		label := it.Name
		if it.Size != "" {
			label += " (" + it.Size + ")"
		}
		fmt.Fprintf(&text, "  %d x %s  %.2f\n", it.Quantity, label, it.LineTotal)
		fmt.Fprintf(&body, "<tr><td>%d &times; %s</td><td>%.2f</td></tr>", it.Quantity, html.EscapeString(label), it.LineTotal)
	}
	fmt.Fprintf(&text, "\nSubtotal: %.2f\nShipping: %.2f\nTotal: %.2f\n\nPayment: %s\nShip to: %s, %s\n",
		order.Subtotal, order.ShippingFee, order.Total, order.PaymentMethod, order.ShippingAddress, order.ShippingCity)
	fmt.Fprintf(&body, "</table><p>Subtotal: %.2f<br>Shipping: %.2f<br><strong>Total: %.2f</strong></p><p>Ship to: %s, %s</p>",
		order.Subtotal, order.ShippingFee, order.Total, html.EscapeString(order.ShippingAddress), html.EscapeString(order.ShippingCity))
	return Message{
		ToName:  user.FullName,
		ToEmail: user.Email,
		Subject: "Your Peak Pulse order " + order.Number,
		Text:    text.String(),
		HTML:    body.String(),
	}
}

// SendAsync sends in the background; failures are logged
func SendAsync(m Mailer, msg Message) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.Send(ctx, msg); err != nil {
			logrus.WithFields(logrus.Fields{
				"to":    msg.ToEmail,
				"error": err.Error(),
			}).Error("Failed to send mail")
		}
	}()
}
