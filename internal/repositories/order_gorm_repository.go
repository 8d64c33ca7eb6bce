package repositories

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gearstore/internal/models"
)

// Delivery estimates are a flat offset from the time the order is placed.
const deliveryOffset = 5 * 24 * time.Hour

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// CreateWithItems runs the whole order-creation unit in one database
// transaction: stock validation, the order row, its line items, and the
// stock/sold adjustments. Any failure rolls the entire unit back.
//
// The order number is assigned in two phases. The order_number column is NOT
// NULL UNIQUE, so the insert carries a provisional number derived from the
// year, a nanosecond timestamp and the user ID; once the database has
// assigned the row ID, the number is rewritten to its final
// ORD-<year>-<zero-padded id> form.
func (r *GORMOrderRepository) CreateWithItems(order *models.Order, items []CartItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Validate every line before writing anything, stopping at the first
		// violation. The quantities are re-checked by the guarded decrement
		// below; this pass exists to reject doomed carts with a precise error.
		for _, item := range items {
			var product models.Product
			if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &ProductNotFoundError{ProductID: item.ProductID, Name: item.Name}
				}
				return fmt.Errorf("failed to load product %d: %w", item.ProductID, err)
			}
			if product.Stock < item.Quantity {
				return &InsufficientStockError{
					ProductID: product.ID,
					Name:      product.Name,
					Available: product.Stock,
					Requested: item.Quantity,
				}
			}
		}

		now := time.Now()
		order.OrderNumber = fmt.Sprintf("ORD-%d-%d-%s", now.Year(), now.UnixNano(), order.UserID)
		order.Status = models.OrderStatusPending
		order.EstimatedDelivery = now.Add(deliveryOffset)

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		finalNumber := fmt.Sprintf("ORD-%d-%03d", now.Year(), order.ID)
		if err := tx.Model(order).Update("order_number", finalNumber).Error; err != nil {
			return fmt.Errorf("failed to finalize order number: %w", err)
		}

		for _, item := range items {
			orderItem := models.OrderItem{
				OrderID:      order.ID,
				ProductID:    item.ProductID,
				Quantity:     item.Quantity,
				Price:        item.Price,
				ProductName:  item.Name,
				ProductImage: item.Image,
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return fmt.Errorf("failed to create order item for product %d: %w", item.ProductID, err)
			}
			order.Items = append(order.Items, orderItem)

			// Native arithmetic update guarded by a stock predicate. If a
			// concurrent order drained the stock between the validation pass
			// and here, zero rows match and the transaction rolls back.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
				UpdateColumns(map[string]interface{}{
					"stock": gorm.Expr("stock - ?", item.Quantity),
					"sold":  gorm.Expr("sold + ?", item.Quantity),
				})
			if res.Error != nil {
				return fmt.Errorf("failed to update stock for product %d: %w", item.ProductID, res.Error)
			}
			if res.RowsAffected == 0 {
				stockErr := &InsufficientStockError{
					ProductID: item.ProductID,
					Name:      item.Name,
					Requested: item.Quantity,
				}
				var product models.Product
				if err := tx.First(&product, "id = ?", item.ProductID).Error; err == nil {
					stockErr.Available = product.Stock
				}
				return stockErr
			}
		}

		return nil
	})
}

// ListByUser retrieves all of a user's orders with their items, ordered by
// creation time descending.
func (r *GORMOrderRepository) ListByUser(userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// GetByID retrieves a single order with its items.
func (r *GORMOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %d not found", id)
		}
		return nil, fmt.Errorf("failed to get order by ID %d: %w", id, err)
	}
	return &order, nil
}

// UpdateStatus sets the status of an existing order.
func (r *GORMOrderRepository) UpdateStatus(id uint, status string) error {
	res := r.db.Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %d not found for status update", id)
	}
	return nil
}
