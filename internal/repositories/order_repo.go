package repositories

import (
	"gearstore/internal/models"
)

// CartItem is one line of a submitted cart: the product reference, the
// quantity, and the name/image/price snapshot the client displayed at
// checkout. The snapshot is denormalized into the order item as-is.
type CartItem struct {
	ProductID uint    `json:"id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// CreateWithItems persists the order, its line items, and the matching
	// stock/sold adjustments as a single atomic unit. On any failure nothing
	// is persisted. The order's ID, OrderNumber, CreatedAt and
	// EstimatedDelivery are filled in on success.
	CreateWithItems(order *models.Order, items []CartItem) error
	// ListByUser returns the user's orders with their items, most recent first.
	ListByUser(userID string) ([]models.Order, error)
	GetByID(id uint) (*models.Order, error)
	UpdateStatus(id uint, status string) error
}
