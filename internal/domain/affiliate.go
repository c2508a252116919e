package domain

import "time"

// Affiliate statuses
const (
	AffiliatePending  = "pending"
	AffiliateApproved = "approved"
	AffiliateRejected = "rejected"
)

// DefaultCommissionRate is the percentage granted to newly approved affiliates
const DefaultCommissionRate = 5.0

// MaxCommissionRate caps the percentage an admin can grant
const MaxCommissionRate = 50.0

// Affiliate Model
type Affiliate struct {
	ID             uint      `gorm:"primaryKey" json:"id"`                        // Primary key
	UserID         uint      `gorm:"uniqueIndex;not null" json:"user_id"`         // One application per user
	User           *User     `json:"user,omitempty"`                              // Applicant
	Code           string    `gorm:"uniqueIndex;size:16;not null" json:"code"`    // Referral code shared by the affiliate
	Status         string    `gorm:"size:16;index;not null" json:"status"`        // pending, approved or rejected
	CommissionRate float64   `gorm:"not null" json:"commission_rate"`             // Percentage of referred subtotals
	PayoutDetails  string    `gorm:"size:512" json:"payout_details"`              // Bank or wallet details
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AffiliateReferral Model
type AffiliateReferral struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                  // Primary key
	AffiliateID uint      `gorm:"index;not null" json:"affiliate_id"`    // Credited affiliate
	OrderID     uint      `gorm:"uniqueIndex;not null" json:"order_id"`  // One referral per order
	Order       *Order    `json:"order,omitempty"`
	OrderTotal  float64   `gorm:"not null" json:"order_total"`           // Subtotal the commission was computed on
	Commission  float64   `gorm:"not null" json:"commission"`            // Earned commission
	CreatedAt   time.Time `json:"created_at"`
}

// AffiliateStats aggregates an affiliate's referrals
type AffiliateStats struct {
	Referrals       int64   `json:"referrals"`
	TotalSales      float64 `json:"total_sales"`
	TotalCommission float64 `json:"total_commission"`
}

// Commission computes the commission earned on a subtotal at rate percent
func Commission(subtotal, rate float64) float64 {
	if subtotal <= 0 || rate <= 0 {
		return 0
	}
	return Round2(subtotal * rate / 100)
}

// ValidAffiliateStatus reports whether status is a known affiliate status
func ValidAffiliateStatus(status string) bool {
	return status == AffiliatePending || status == AffiliateApproved || status == AffiliateRejected
}
