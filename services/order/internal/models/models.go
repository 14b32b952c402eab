package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              uint            `gorm:"primaryKey"                     json:"id"`
	UserID          uint            `gorm:"index;not null"                 json:"user_id"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null"    json:"total_price"`
	Status          OrderStatus     `gorm:"type:varchar(16);index;not null;default:'pending'" json:"status"`
	DeliveryAddress string          `gorm:"type:text"                      json:"delivery_address,omitempty"`
	Notes           string          `gorm:"type:text"                      json:"notes,omitempty"`
	Items           []OrderItem     `gorm:"constraint:OnDelete:CASCADE"    json:"items"`
	CreatedAt       time.Time       `gorm:"index;not null"                 json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null"                       json:"updated_at"`
}

// OrderItem is a snapshot of the product at creation time. Name, unit price
// and line total are fixed then and never follow later catalog changes.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	Name      string          `gorm:"not null"                    json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null;check:quantity>0"   json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"line_total"`
}
