package models

import "time"

// Product represents an item in the gear catalog.
//
// Stock and Sold are only ever changed together by the order transaction
// (stock down, sold up by the same quantity) or by catalog management.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null" validate:"required,min=3,max=100"`
	Description string    `json:"description" gorm:"type:varchar(500)" validate:"omitempty,max=500"`
	Category    string    `json:"category" gorm:"type:varchar(50);index" validate:"omitempty,max=50"`
	Image       string    `json:"image" gorm:"type:varchar(255)" validate:"omitempty,max=255"`
	Price       float64   `json:"price" gorm:"not null" validate:"required,gt=0"`
	Stock       int       `json:"stock" gorm:"not null;default:0" validate:"gte=0"`
	Sold        int       `json:"sold" gorm:"not null;default:0" validate:"gte=0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
