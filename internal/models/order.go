package models

import (
	"time"

	"gorm.io/datatypes"
)

// Order statuses. New orders always start as pending.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order represents a customer order.
//
// CustomerDetails and PaymentDetails are point-in-time snapshots of what the
// customer submitted at checkout; they are stored as JSON and never joined
// back to the live user profile. Monetary fields satisfy
// Total = Subtotal + Shipping + Tax.
type Order struct {
	ID                uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderNumber       string         `json:"orderNumber" gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID            string         `json:"userId" gorm:"type:varchar(36);index;not null"`
	Subtotal          float64        `json:"subtotal" gorm:"not null"`
	Shipping          float64        `json:"shipping" gorm:"not null;default:0"`
	Tax               float64        `json:"tax" gorm:"not null;default:0"`
	Total             float64        `json:"total" gorm:"not null"`
	CustomerDetails   datatypes.JSON `json:"customerDetails"`
	PaymentDetails    datatypes.JSON `json:"paymentDetails"`
	Status            string         `json:"status" gorm:"type:varchar(20);not null;default:pending"`
	EstimatedDelivery time.Time      `json:"estimatedDelivery"`
	Items             []OrderItem    `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// OrderItem is one line of an order. Price, ProductName and ProductImage are
// denormalized from the submitted cart so the order keeps displaying what was
// bought even after the catalog changes. Rows are created with the order and
// never mutated.
type OrderItem struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID      uint      `json:"orderId" gorm:"index;not null"`
	ProductID    uint      `json:"productId" gorm:"index;not null"`
	Quantity     int       `json:"quantity" gorm:"not null"`
	Price        float64   `json:"price" gorm:"not null"` // Unit price at time of purchase
	ProductName  string    `json:"productName" gorm:"type:varchar(100)"`
	ProductImage string    `json:"productImage" gorm:"type:varchar(255)"`
	CreatedAt    time.Time `json:"createdAt"`
}
