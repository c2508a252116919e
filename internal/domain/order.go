package domain

import (
	"fmt"
	"time"
)

// Order statuses
const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
	OrderReturned   = "returned"
)

// Payment statuses
const (
	PaymentUnpaid   = "unpaid"
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// OrderStatuses lists every order status in workflow order
var OrderStatuses = []string{OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled, OrderReturned}

// orderTransitions maps a status to the statuses it may move to
var orderTransitions = map[string][]string{
	OrderPending:    {OrderConfirmed, OrderCancelled},
	OrderConfirmed:  {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {OrderReturned},
}

// Order Model
type Order struct {
	ID              uint        `gorm:"primaryKey" json:"id"`                              // Primary key
	Number          string      `gorm:"uniqueIndex;size:16;not null" json:"number"`        // Public order number
	UserID          uint        `gorm:"index;not null" json:"user_id"`                     // Buyer
	Status          string      `gorm:"size:16;index;not null" json:"status"`              // Workflow status
	PaymentMethod   string      `gorm:"size:32;not null" json:"payment_method"`            // Payment gateway code
	PaymentStatus   string      `gorm:"size:16;not null" json:"payment_status"`            // Payment state
	ShippingName    string      `gorm:"size:255;not null" json:"shipping_name"`            // Recipient
	ShippingPhone   string      `gorm:"size:32;not null" json:"shipping_phone"`            // Recipient phone
	ShippingAddress string      `gorm:"size:512;not null" json:"shipping_address"`         // Street address
	ShippingCity    string      `gorm:"size:128;not null" json:"shipping_city"`            // City
	Subtotal        float64     `gorm:"not null" json:"subtotal"`                          // Items total
	Discount        float64     `gorm:"not null;default:0" json:"discount"`                // Savings against list prices
	ShippingFee     float64     `gorm:"not null;default:0" json:"shipping_fee"`            // Shipping charged
	Total           float64     `gorm:"not null" json:"total"`                             // Amount due
	AffiliateCode   string      `gorm:"size:16;index" json:"affiliate_code,omitempty"`     // Referring affiliate
	Note            string      `gorm:"size:1024" json:"note,omitempty"`                   // Buyer note
	Items           []OrderItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderItem Model
type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`          // Primary key
	OrderID   uint    `gorm:"index;not null" json:"order_id"` // Owning order
	ProductID uint    `gorm:"index;not null" json:"product_id"`
	Name      string  `gorm:"size:255;not null" json:"name"` // Product name at purchase time
	Size      string  `gorm:"size:16" json:"size"`
	Color     string  `gorm:"size:32" json:"color"`
	UnitPrice float64 `gorm:"not null" json:"unit_price"` // Effective price at purchase time
	Quantity  int     `gorm:"not null" json:"quantity"`
	LineTotal float64 `gorm:"not null" json:"line_total"`
}

// ValidOrderStatus reports whether status is a known order status
func ValidOrderStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ValidPaymentStatus reports whether status is a known payment status
func ValidPaymentStatus(status string) bool {
	switch status {
	case PaymentUnpaid, PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the order to the next status or returns ErrInvalidTransition
func (o *Order) Transition(to string) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%s -> %s: %w", o.Status, to, ErrInvalidTransition)
	}
	o.Status = to
	return nil
}

// Cancellable reports whether the buyer may still cancel the order
func (o Order) Cancellable() bool {
	return CanTransition(o.Status, OrderCancelled)
}

// RestocksOnTransition reports whether moving to status returns the items to stock
func RestocksOnTransition(to string) bool {
	return to == OrderCancelled || to == OrderReturned
}
