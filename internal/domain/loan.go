package domain

import (
	"fmt"
	"math"
	"time"
)

// Loan statuses
const (
	LoanActive  = "active"
	LoanSettled = "settled"
)

// Loan Model, money borrowed by the business
type Loan struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Lender       string          `gorm:"size:255;not null" json:"lender"`
	Principal    float64         `gorm:"not null" json:"principal"`
	InterestRate float64         `gorm:"not null;default:0" json:"interest_rate"` // Annual percentage, simple interest
	IssuedAt     time.Time       `gorm:"not null" json:"issued_at"`
	DueAt        time.Time       `gorm:"not null" json:"due_at"`
	Status       string          `gorm:"size:16;index;not null" json:"status"`
	Note         string          `gorm:"size:1024" json:"note"`
	Repayments   []LoanRepayment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"repayments,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LoanRepayment Model
type LoanRepayment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LoanID    uint      `gorm:"index;not null" json:"loan_id"`
	Amount    float64   `gorm:"not null" json:"amount"`
	PaidAt    time.Time `gorm:"not null" json:"paid_at"`
	Note      string    `gorm:"size:512" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// LoanBalance is the computed position of a loan
type LoanBalance struct {
	Interest    float64 `json:"interest"`    // Simple interest to the due date
	AmountDue   float64 `json:"amount_due"`  // Principal plus interest
	Repaid      float64 `json:"repaid"`      // Sum of repayments
	Outstanding float64 `json:"outstanding"` // Amount due minus repaid, never negative
	Overdue     bool    `json:"overdue"`     // Past due with money outstanding
}

// Interest returns the simple interest accrued from issue to due date
func (l Loan) Interest() float64 {
	days := math.Floor(l.DueAt.Sub(l.IssuedAt).Hours() / 24)
	if days <= 0 || l.InterestRate <= 0 {
		return 0
	}
	return Round2(l.Principal * l.InterestRate / 100 * days / 365)
}

// Balance computes the loan position at now. Repayments must be loaded.
func (l Loan) Balance(now time.Time) LoanBalance {
	b := LoanBalance{Interest: l.Interest()}
	b.AmountDue = Round2(l.Principal + b.Interest)
	for _, r := range l.Repayments {
		b.Repaid += r.Amount
	}
	b.Repaid = Round2(b.Repaid)
	b.Outstanding = math.Max(0, Round2(b.AmountDue-b.Repaid))
	b.Overdue = b.Outstanding > 0 && now.After(l.DueAt)
	return b
}

// ApplyRepayment validates a repayment against the current balance and
// appends it, settling the loan when nothing remains outstanding.
func (l *Loan) ApplyRepayment(r LoanRepayment) error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	outstanding := l.Balance(r.PaidAt).Outstanding
	if Round2(r.Amount) > outstanding {
		return fmt.Errorf("%.2f > %.2f: %w", r.Amount, outstanding, ErrOverpayment)
	}
	l.Repayments = append(l.Repayments, r)
	if l.Balance(r.PaidAt).Outstanding == 0 {
		l.Status = LoanSettled
	}
	return nil
}
