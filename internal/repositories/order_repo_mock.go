package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gearstore/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository. It
// shares a MockProductRepository so order creation exercises the same
// validate-then-adjust stock semantics as the GORM implementation.
type MockOrderRepository struct {
	orders     map[uint]models.Order
	products   *MockProductRepository
	nextID     uint
	nextItemID uint
	mu         sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository backed
// by the given product repository.
func NewMockOrderRepository(products *MockProductRepository) *MockOrderRepository {
	return &MockOrderRepository{
		orders:     make(map[uint]models.Order),
		products:   products,
		nextID:     1,
		nextItemID: 1,
	}
}

// CreateWithItems validates the cart against the product repository, then
// records the order, its items, and the stock adjustments. A failure part-way
// through undoes any adjustments already applied, so nothing is persisted on
// error.
func (r *MockOrderRepository) CreateWithItems(order *models.Order, items []CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		product, err := r.products.GetByID(item.ProductID)
		if err != nil {
			return &ProductNotFoundError{ProductID: item.ProductID, Name: item.Name}
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
	order.ID = r.nextID
	r.nextID++
	order.OrderNumber = fmt.Sprintf("ORD-%d-%03d", now.Year(), order.ID)
	order.Status = models.OrderStatusPending
	order.CreatedAt = now
	order.UpdatedAt = now
	order.EstimatedDelivery = now.Add(deliveryOffset)

	var applied []CartItem
	for _, item := range items {
		if err := r.products.adjustStock(item.ProductID, item.Quantity); err != nil {
			for _, undo := range applied {
				r.products.restock(undo.ProductID, undo.Quantity)
			}
			return err
		}
		applied = append(applied, item)

		order.Items = append(order.Items, models.OrderItem{
			ID:           r.nextItemID,
			OrderID:      order.ID,
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			Price:        item.Price,
			ProductName:  item.Name,
			ProductImage: item.Image,
			CreatedAt:    now,
		})
		r.nextItemID++
	}

	r.orders[order.ID] = *order
	return nil
}

// ListByUser returns the user's orders, most recent first.
func (r *MockOrderRepository) ListByUser(userID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0)
	for _, order := range r.orders {
		if order.UserID == userID {
			orderList = append(orderList, order)
		}
	}
	sort.Slice(orderList, func(i, j int) bool {
		return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
	})
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id uint) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %d not found", id)
	}
	return &order, nil
}

// UpdateStatus updates the status of an order.
func (r *MockOrderRepository) UpdateStatus(id uint, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %d not found for status update", id)
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}
