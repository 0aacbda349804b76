package models

import (
	"encoding/json"
	"time"
)

type Product struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	RestaurantID uint         `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   Restaurant   `gorm:"foreignKey:RestaurantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CategoryID   uint         `gorm:"not null;index" json:"category_id"`
	Category     MenuCategory `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Name         string       `gorm:"type:varchar(255);not null" json:"name"`
	Description  string       `gorm:"type:text" json:"description"`
	Price        float64      `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageURL     string       `gorm:"type:varchar(255)" json:"image_url"`
	Ingredients  string       `gorm:"type:text" json:"-"`
	IsActive     bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

// IngredientList decodes the JSON-encoded ingredient column. A broken or
// empty column yields an empty list, never an error.
func (p *Product) IngredientList() []string {
	if p.Ingredients == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(p.Ingredients), &out); err != nil {
		return []string{}
	}
	return out
}

// SetIngredientList encodes the ingredient list into the JSON column.
func (p *Product) SetIngredientList(items []string) {
	if items == nil {
		items = []string{}
	}
	raw, _ := json.Marshal(items)
	p.Ingredients = string(raw)
}

// MarshalJSON exposes ingredients as a decoded list on the wire.
func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		Ingredients []string `json:"ingredients"`
	}{
		alias:       alias(p),
		Ingredients: p.IngredientList(),
	})
}
