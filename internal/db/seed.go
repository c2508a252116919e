package db

import (
	"fmt"                        // Error wrapping
	"peak_pulse/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed inserts the default categories, payment gateways and settings. Existing rows are left untouched.
func Seed(db *gorm.DB) error {
	categories := []domain.Category{
		{Name: "Men", Slug: "men", SortOrder: 1},
		{Name: "Women", Slug: "women", SortOrder: 2},
		{Name: "Accessories", Slug: "accessories", SortOrder: 3},
		{Name: "Outerwear", Slug: "outerwear", SortOrder: 4},
	}
	gateways := []domain.PaymentGateway{
		{Name: "Cash on Delivery", Code: domain.PaymentCOD, Enabled: true, SortOrder: 1, Instructions: "Pay the courier when your order arrives."},
		{Name: "eSewa", Code: "esewa", SortOrder: 2},
		{Name: "Khalti", Code: "khalti", SortOrder: 3},
		{Name: "Fonepay", Code: "fonepay", SortOrder: 4},
	}
	settings := []domain.SiteSetting{
		{Key: "site.name", Value: "Peak Pulse"},
		{Key: "site.tagline", Value: "Wear the summit"},
		{Key: "site.support_email", Value: "support@peakpulse.com"},
		{Key: domain.SettingFreeShippingThreshold, Value: "5000"},
		{Key: domain.SettingFlatShippingFee, Value: "150"},
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories).Error; err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&gateways).Error; err != nil {
			return fmt.Errorf("seed payment gateways: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
		logrus.Info("Seed completed.")
		return nil
	})
}
