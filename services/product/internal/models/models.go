package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey"                  json:"id"`
	Name        string          `gorm:"not null"                    json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    string          `gorm:"index"                       json:"category,omitempty"`
	Stock       int             `gorm:"not null"                    json:"stock"`
	ImageURL    string          `json:"image_url,omitempty"`
	IsActive    bool            `gorm:"column:is_active;default:true" json:"isActive"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
