package domain

import (
	"math"
	"time"
)

// CartItem Model
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                       // Primary key
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_line" json:"user_id"`          // Owner
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_line" json:"product_id"`       // Product in the cart
	Product   Product   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product"` // Preloaded product
	Size      string    `gorm:"size:16;uniqueIndex:idx_cart_line" json:"size"`              // Chosen size
	Color     string    `gorm:"size:32;uniqueIndex:idx_cart_line" json:"color"`             // Chosen color
	Quantity  int       `gorm:"not null" json:"quantity"`                                   // Units
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShippingPolicy describes how the shipping fee is charged
type ShippingPolicy struct {
	FreeThreshold float64 `json:"free_threshold"` // Subtotal from which shipping is free, 0 ships everything free
	FlatFee       float64 `json:"flat_fee"`       // Fee charged below the threshold
}

// CartTotals is the priced summary of a cart
type CartTotals struct {
	ItemCount   int     `json:"item_count"`   // Total units
	Subtotal    float64 `json:"subtotal"`     // Sum of effective line prices
	Discount    float64 `json:"discount"`     // Savings against list prices, informational
	ShippingFee float64 `json:"shipping_fee"` // Fee after the free shipping rule
	Total       float64 `json:"total"`        // Subtotal plus shipping
}

// ComputeTotals prices the given cart lines. Products must be loaded on each line.
func ComputeTotals(items []CartItem, policy ShippingPolicy) CartTotals {
	var totals CartTotals
	for _, it := range items {
		effective := it.Product.EffectivePrice()
		totals.ItemCount += it.Quantity
		totals.Subtotal += effective * float64(it.Quantity)
		totals.Discount += (it.Product.Price - effective) * float64(it.Quantity)
	}
	totals.Subtotal = Round2(totals.Subtotal)
	totals.Discount = Round2(totals.Discount)
	if totals.ItemCount > 0 && totals.Subtotal < policy.FreeThreshold {
		totals.ShippingFee = Round2(policy.FlatFee)
	}
	totals.Total = Round2(totals.Subtotal + totals.ShippingFee)
	return totals
}

// Round2 rounds a currency amount to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
