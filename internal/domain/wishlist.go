package domain

import "time"

// WishlistItem Model
type WishlistItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                        // Primary key
	UserID    uint      `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"product_id"`
	Product   Product   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product"`
	CreatedAt time.Time `json:"created_at"`
}
