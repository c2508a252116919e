package api

import (
	"errors"                     // Error matching
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/utils"  // Utility functions
	"strings"                    // String manipulation
	"time"                       // Loan dates

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// LoanRequest creates or replaces a loan
type LoanRequest struct {
	Lender       string     `json:"lender" binding:"required,max=255"`
	Principal    float64    `json:"principal" binding:"required,gt=0"`
	InterestRate float64    `json:"interest_rate" binding:"gte=0,lte=100"` // Annual percentage
	IssuedAt     *time.Time `json:"issued_at"`                             // Defaults to now
	DueAt        time.Time  `json:"due_at" binding:"required"`
	Note         string     `json:"note" binding:"max=1024"`
}

// RepaymentRequest records money paid back on a loan
type RepaymentRequest struct {
	Amount float64    `json:"amount" binding:"required,gt=0"`
	PaidAt *time.Time `json:"paid_at"` // Defaults to now
	Note   string     `json:"note" binding:"max=512"`
}

// LoanResponse is a loan with its computed balance
type LoanResponse struct {
	domain.Loan
	Balance domain.LoanBalance `json:"balance"`
}

// LoanSummary aggregates all loans
type LoanSummary struct {
	Loans            int     `json:"loans"`
	TotalPrincipal   float64 `json:"total_principal"`
	TotalRepaid      float64 `json:"total_repaid"`
	TotalOutstanding float64 `json:"total_outstanding"`
	OverdueCount     int     `json:"overdue_count"`
}

func withBalance(l domain.Loan, now time.Time) LoanResponse {
	return LoanResponse{Loan: l, Balance: l.Balance(now)}
}

// summarizeLoans totals loans at now. Repayments must be loaded.
func summarizeLoans(loans []domain.Loan, now time.Time) LoanSummary {
	var s LoanSummary
	for _, l := range loans {
		b := l.Balance(now)
		s.Loans++
		s.TotalPrincipal += l.Principal
		s.TotalRepaid += b.Repaid
		s.TotalOutstanding += b.Outstanding
		if b.Overdue {
			s.OverdueCount++
		}
	}
	s.TotalPrincipal = domain.Round2(s.TotalPrincipal)
	s.TotalRepaid = domain.Round2(s.TotalRepaid)
	s.TotalOutstanding = domain.Round2(s.TotalOutstanding)
	return s
}

// bindLoan binds a loan request onto l, writing 400 on failure
func bindLoan(c *gin.Context, l *domain.Loan) bool {
	var req LoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return false
	}
	issued := time.Now()
	if req.IssuedAt != nil {
		issued = *req.IssuedAt
	} else if !l.IssuedAt.IsZero() {
		issued = l.IssuedAt // Keep the original issue date on edits
	}
	if !req.DueAt.After(issued) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "due_at must be after issued_at"})
		return false
	}
	l.Lender = strings.TrimSpace(req.Lender)
	l.Principal = domain.Round2(req.Principal)
	l.InterestRate = req.InterestRate
	l.IssuedAt = issued
	l.DueAt = req.DueAt
	l.Note = req.Note
	return true
}

// ListLoansHandler returns loans with balances, optionally filtered by status
func ListLoansHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		query := db.Model(&domain.Loan{})
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		query = query.Session(&gorm.Session{})
		var total int64
		if err := query.Count(&total).Error; err != nil {
			serverError(c, "Failed to count loans", err, nil)
			return
		}
		var loans []domain.Loan
		if err := query.Preload("Repayments").Order("due_at ASC, id ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&loans).Error; err != nil {
			serverError(c, "Failed to fetch loans", err, nil)
			return
		}
		now := time.Now()
		resp := make([]LoanResponse, len(loans))
		for i, l := range loans {
			resp[i] = withBalance(l, now)
		}
		c.JSON(http.StatusOK, pageResponse("loans", resp, page, total))
	}
}

// LoanSummaryHandler totals principal, repayments and outstanding debt
func LoanSummaryHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var loans []domain.Loan
		if err := db.Preload("Repayments").Find(&loans).Error; err != nil {
			serverError(c, "Failed to fetch loans", err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": summarizeLoans(loans, time.Now())})
	}
}

// GetLoanHandler returns a loan with its repayments and balance
func GetLoanHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var loan domain.Loan
		if err := db.Preload("Repayments", func(tx *gorm.DB) *gorm.DB { return tx.Order("paid_at ASC, id ASC") }).First(&loan, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"loan": withBalance(loan, time.Now())})
	}
}

// CreateLoanHandler records a new loan
func CreateLoanHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		loan := domain.Loan{Status: domain.LoanActive}
		if !bindLoan(c, &loan) {
			return
		}
		if err := db.Create(&loan).Error; err != nil {
			serverError(c, "Failed to create loan", err, logrus.Fields{"lender": loan.Lender})
			return
		}
		logrus.WithFields(logrus.Fields{
			"loan_id":   loan.ID,
			"lender":    loan.Lender,
			"principal": loan.Principal,
		}).Info("Loan recorded")
		c.JSON(http.StatusCreated, gin.H{"loan": withBalance(loan, time.Now())})
	}
}

// UpdateLoanHandler replaces a loan's terms and re-derives its status
func UpdateLoanHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var loan domain.Loan
		if err := db.Preload("Repayments").First(&loan, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
			return
		}
		if !bindLoan(c, &loan) {
			return
		}
		now := time.Now()
		balance := loan.Balance(now)
		if balance.Repaid > balance.AmountDue {
			c.JSON(http.StatusBadRequest, gin.H{"error": "New terms are below the amount already repaid", "repaid": balance.Repaid})
			return
		}
		loan.Status = domain.LoanActive
		if balance.Outstanding == 0 {
			loan.Status = domain.LoanSettled
		}
		// Save only the loan row, repayments are unchanged
		if err := db.Omit("Repayments").Save(&loan).Error; err != nil {
			serverError(c, "Failed to update loan", err, logrus.Fields{"loan_id": id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"loan": withBalance(loan, now)})
	}
}

// DeleteLoanHandler removes a loan and its repayments
func DeleteLoanHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var found bool
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("loan_id = ?", id).Delete(&domain.LoanRepayment{}).Error; err != nil {
				return err
			}
			res := tx.Delete(&domain.Loan{}, id)
			found = res.RowsAffected > 0
			return res.Error
		})
		if err != nil {
			serverError(c, "Failed to delete loan", err, logrus.Fields{"loan_id": id})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Loan deleted"})
	}
}

// AddRepaymentHandler records a repayment, settling the loan when fully repaid
func AddRepaymentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req RepaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be greater than zero"})
			return
		}
		repayment := domain.LoanRepayment{LoanID: id, Amount: domain.Round2(req.Amount), PaidAt: time.Now(), Note: req.Note}
		if req.PaidAt != nil {
			repayment.PaidAt = *req.PaidAt
		}
		var loan domain.Loan
		// Atomic repayment
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Preload("Repayments").First(&loan, id).Error; err != nil {
				return err
			}
			if err := loan.ApplyRepayment(repayment); err != nil {
				return err
			}
			if err := tx.Create(&repayment).Error; err != nil {
				return err
			}
			loan.Repayments[len(loan.Repayments)-1] = repayment // Carry the assigned ID
			return tx.Model(&domain.Loan{}).Where("id = ?", loan.ID).Update("status", loan.Status).Error
		})
		if err != nil {
			switch {
			case isNotFound(err):
				c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
			case errors.Is(err, domain.ErrOverpayment), errors.Is(err, domain.ErrInvalidAmount):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				serverError(c, "Failed to record repayment", err, logrus.Fields{"loan_id": id})
			}
			return
		}
		logrus.WithFields(logrus.Fields{
			"loan_id": id,
			"amount":  repayment.Amount,
			"status":  loan.Status,
		}).Info("Loan repayment recorded")
		c.JSON(http.StatusCreated, gin.H{"repayment": repayment, "loan": withBalance(loan, time.Now())})
	}
}
