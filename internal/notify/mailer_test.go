package notify

import (
	"context"
	"errors"
	"peak_pulse/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockMailer is a mock implementation of Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func TestOrderConfirmation(t *testing.T) {
	user := domain.User{FullName: "Pema <Sherpa>", Email: "pema@example.com"}
	order := domain.Order{
		Number:          "PP-0A1B2C3D",
		PaymentMethod:   "cod",
		ShippingAddress: "Thamel",
		ShippingCity:    "Kathmandu",
		Subtotal:        2400,
		ShippingFee:     150,
		Total:           2550,
		Items: []domain.OrderItem{
			{Name: "Summit Hoodie", Size: "M", Quantity: 2, LineTotal: 2400},
		},
	}

	msg := OrderConfirmation(user, order)

	assert.Equal(t, "pema@example.com", msg.ToEmail)
	assert.Equal(t, "Your Peak Pulse order PP-0A1B2C3D", msg.Subject)
	assert.Contains(t, msg.Text, "2 x Summit Hoodie (M)  2400.00")
	assert.Contains(t, msg.Text, "Total: 2550.00")
	assert.Contains(t, msg.HTML, "Pema &lt;Sherpa&gt;")
	assert.NotContains(t, msg.HTML, "<Sherpa>")
}

func TestNopMailer(t *testing.T) {
	assert.NoError(t, NopMailer{}.Send(context.Background(), Message{ToEmail: "a@b.c"}))
}

func TestSendAsync(t *testing.T) {
	for _, sendErr := range []error{nil, errors.New("sendgrid down")} {
		mailer := &MockMailer{}
		done := make(chan struct{})
		mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg Message) bool {
			return msg.ToEmail == "pema@example.com"
		})).Return(sendErr).Run(func(mock.Arguments) { close(done) })

		SendAsync(mailer, Message{ToEmail: "pema@example.com", Subject: "hi"})

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("mail was not sent")
		}
		mailer.AssertExpectations(t)
	}
}

func TestSendAsync_NilMailer(t *testing.T) {
	assert.NotPanics(t, func() { SendAsync(nil, Message{}) })
}
