package models

import "time"

type Restaurant struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Slug             string    `gorm:"type:varchar(100);unique;not null" json:"slug"`
	Name             string    `gorm:"type:varchar(255);not null" json:"name"`
	Description      string    `gorm:"type:text" json:"description"`
	AvatarImageURL   string    `gorm:"type:varchar(255)" json:"avatar_image_url"`
	CoverImageURL    string    `gorm:"type:varchar(255)" json:"cover_image_url"`
	IsActive         bool      `gorm:"not null;default:true" json:"is_active"`
	IsOpen           bool      `gorm:"not null;default:true" json:"is_open"`
	PaymentAccountID string    `gorm:"type:varchar(255)" json:"payment_account_id"`
	PaymentOnboarded bool      `gorm:"not null;default:false" json:"payment_onboarded"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`

	MenuCategories []MenuCategory `gorm:"foreignKey:RestaurantID" json:"menu_categories,omitempty"`
	Products       []Product      `gorm:"foreignKey:RestaurantID" json:"products,omitempty"`
	Orders         []Order        `gorm:"foreignKey:RestaurantID" json:"-"`
	Users          []User         `gorm:"foreignKey:RestaurantID" json:"-"`
}

// ChannelName returns the pub/sub channel the restaurant's back-office
// listens on.
func (r *Restaurant) ChannelName() string {
	return "restaurant-" + r.Slug
}
