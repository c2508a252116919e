package domain

import (
	"strings"
	"time"
)

// Category Model
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                        // Primary key
	Name        string    `gorm:"size:128;not null" json:"name"`               // Display name
	Slug        string    `gorm:"uniqueIndex;size:160;not null" json:"slug"`   // URL identifier
	Description string    `gorm:"type:text" json:"description"`                // Optional blurb
	ImageURL    string    `gorm:"size:512" json:"image_url"`                   // Banner image
	SortOrder   int       `gorm:"default:0" json:"sort_order"`                 // Menu ordering
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product Model
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                      // Primary key
	Name        string    `gorm:"size:255;not null" json:"name"`             // Display name
	Slug        string    `gorm:"uniqueIndex;size:280;not null" json:"slug"` // URL identifier
	Description string    `gorm:"type:text" json:"description"`              // Long description
	AISummary   string    `gorm:"type:text" json:"ai_summary"`               // Generated short summary
	Price       float64   `gorm:"not null" json:"price"`                     // List price
	SalePrice   *float64  `json:"sale_price"`                                // Optional discounted price
	Stock       int       `gorm:"not null;default:0" json:"stock"`           // Units on hand
	Sizes       string    `gorm:"size:255" json:"sizes"`                     // Comma separated sizes, e.g. "S,M,L"
	Colors      string    `gorm:"size:255" json:"colors"`                    // Comma separated colors
	ImageURL    string    `gorm:"size:512" json:"image_url"`                 // Primary image
	CategoryID  *uint     `gorm:"index" json:"category_id"`                  // Owning category
	Category    *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category,omitempty"`
	IsFeatured  bool      `gorm:"index" json:"is_featured"` // Shown on the home page
	IsActive    bool      `gorm:"index" json:"is_active"`   // Visible in the storefront
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EffectivePrice is the sale price when it undercuts the list price
func (p Product) EffectivePrice() float64 {
	if p.SalePrice != nil && *p.SalePrice >= 0 && *p.SalePrice < p.Price {
		return *p.SalePrice
	}
	return p.Price
}

// SizeList returns the offered sizes
func (p Product) SizeList() []string {
	return splitList(p.Sizes)
}

// ColorList returns the offered colors
func (p Product) ColorList() []string {
	return splitList(p.Colors)
}

// HasSize reports whether size may be ordered. Products without sizes accept an empty size only.
func (p Product) HasSize(size string) bool {
	sizes := p.SizeList()
	if len(sizes) == 0 {
		return size == ""
	}
	for _, s := range sizes {
		if strings.EqualFold(s, size) {
			return true
		}
	}
	return false
}

// JoinList normalises a list into the stored comma separated form
func JoinList(items []string) string {
	var out []string
	for _, it := range items {
		if v := strings.TrimSpace(it); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ",")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
