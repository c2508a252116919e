package db

import (
	"fmt"                        // Error wrapping
	"peak_pulse/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"
	"gorm.io/gorm" // GORM ORM library
)

// Models lists every persisted model in dependency order
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Category{},
		&domain.Product{},
		&domain.CartItem{},
		&domain.Order{},
		&domain.OrderItem{},
		&domain.WishlistItem{},
		&domain.Affiliate{},
		&domain.AffiliateReferral{},
		&domain.UserPost{},
		&domain.PostLike{},
		&domain.PostBookmark{},
		&domain.PostComment{},
		&domain.PromoPost{},
		&domain.DesignCollab{},
		&domain.PaymentGateway{},
		&domain.Loan{},
		&domain.LoanRepayment{},
		&domain.SiteSetting{},
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
