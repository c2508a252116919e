package domain

import "time"

// PromoPost Model, a banner or announcement shown in the storefront
type PromoPost struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	ImageURL  string     `gorm:"size:512" json:"image_url"`
	LinkURL   string     `gorm:"size:512" json:"link_url"`
	Placement string     `gorm:"size:32;index" json:"placement"` // e.g. home_hero, home_strip, popup
	IsActive  bool       `gorm:"index" json:"is_active"`
	StartsAt  *time.Time `json:"starts_at"` // Nil means no lower bound
	EndsAt    *time.Time `json:"ends_at"`   // Nil means no upper bound
	SortOrder int        `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LiveAt reports whether the promo should be shown at t
func (p PromoPost) LiveAt(t time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.StartsAt != nil && t.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && t.After(*p.EndsAt) {
		return false
	}
	return true
}

// DesignCollab Model, a capsule collection made with an outside designer
type DesignCollab struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"uniqueIndex;size:280;not null" json:"slug"`
	Designer    string     `gorm:"size:255;not null" json:"designer"`
	Description string     `gorm:"type:text" json:"description"`
	ImageURL    string     `gorm:"size:512" json:"image_url"`
	LaunchDate  *time.Time `json:"launch_date"`
	IsActive    bool       `gorm:"index" json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PaymentGateway Model
type PaymentGateway struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:64;not null" json:"name"`             // e.g. eSewa, Khalti
	Code         string    `gorm:"uniqueIndex;size:32;not null" json:"code"` // Referenced by orders
	Enabled      bool      `gorm:"index" json:"enabled"`
	PublicKey    string    `gorm:"size:255" json:"public_key,omitempty"`
	SecretKey    string    `gorm:"size:255" json:"-"` // Write only
	Instructions string    `gorm:"type:text" json:"instructions"`
	SortOrder    int       `gorm:"default:0" json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PaymentCOD is the cash on delivery gateway code
const PaymentCOD = "cod"

// InitialPaymentStatus returns the payment status a new order starts with
func InitialPaymentStatus(method string) string {
	if method == PaymentCOD {
		return PaymentUnpaid
	}
	return PaymentPending
}

// SiteSetting Model, a key value pair editable from the back-office
type SiteSetting struct {
	Key       string    `gorm:"primaryKey;column:setting_key;size:128" json:"key"` // "key" is reserved in MySQL
	Value     string    `gorm:"column:setting_value;type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well known setting keys
const (
	SettingFreeShippingThreshold = "shipping.free_threshold"
	SettingFlatShippingFee       = "shipping.flat_fee"
)

// PublicSettingPrefixes are the setting key prefixes exposed to the storefront
var PublicSettingPrefixes = []string{"site.", "shipping."}
