package services

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"gearstore/internal/models"
	"gearstore/internal/repositories"
	"gearstore/pkg/rabbitmq"
)

// totalsTolerance absorbs float rounding when checking that the submitted
// total equals subtotal + shipping + tax.
const totalsTolerance = 0.01

// OrderTotals is the monetary breakdown submitted with a checkout.
type OrderTotals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// CreateOrderRequest carries everything the client submits at checkout.
// CustomerDetails and PaymentDetails are kept as free-form documents and
// snapshotted into the order verbatim.
type CreateOrderRequest struct {
	CartItems       []repositories.CartItem `json:"cartItems"`
	CustomerDetails map[string]interface{}  `json:"customerDetails"`
	PaymentDetails  map[string]interface{}  `json:"paymentDetails"`
	Totals          *OrderTotals            `json:"totals"`
}

// OrderSummary is the confirmation returned after a successful checkout.
type OrderSummary struct {
	ID          uint      `json:"id"`
	OrderNumber string    `json:"orderNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	Total       float64   `json:"total"`
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	mqClient  *rabbitmq.Client
}

// NewOrderService creates a new OrderService. The RabbitMQ client may be nil,
// in which case order events are not published.
func NewOrderService(orderRepo repositories.OrderRepository, mqClient *rabbitmq.Client) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		mqClient:  mqClient,
	}
}

// CreateOrder checks the request, then hands the cart to the repository for
// atomic persistence (order row, line items, stock adjustments). Validation
// failures abort before anything is written; repository failures persist
// nothing. On success an order-created event is published best-effort.
func (s *OrderService) CreateOrder(userID string, req CreateOrderRequest) (*OrderSummary, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if len(req.CartItems) == 0 {
		return nil, &InvalidRequestError{Message: "Cart is empty"}
	}
	if req.CustomerDetails == nil || req.PaymentDetails == nil || req.Totals == nil {
		return nil, &InvalidRequestError{Message: "Missing required order information"}
	}
	for _, item := range req.CartItems {
		if item.ProductID == 0 {
			return nil, &InvalidRequestError{Message: "Cart item is missing a product ID"}
		}
		if item.Quantity <= 0 {
			return nil, &InvalidRequestError{Message: fmt.Sprintf("Invalid quantity for %s", item.Name)}
		}
	}
	if err := validateTotals(req.Totals); err != nil {
		return nil, err
	}

	customerDetails, err := json.Marshal(req.CustomerDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to encode customer details: %w", err)
	}
	paymentDetails, err := json.Marshal(req.PaymentDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment details: %w", err)
	}

	order := &models.Order{
		UserID:          userID,
		Subtotal:        req.Totals.Subtotal,
		Shipping:        req.Totals.Shipping,
		Tax:             req.Totals.Tax,
		Total:           req.Totals.Total,
		CustomerDetails: customerDetails,
		PaymentDetails:  paymentDetails,
	}

	if err := s.orderRepo.CreateWithItems(order, req.CartItems); err != nil {
		return nil, err
	}

	s.publishOrderCreated(order)

	return &OrderSummary{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		CreatedAt:   order.CreatedAt,
		Total:       order.Total,
	}, nil
}

// ListOrders returns all of the user's orders with their items, most recent
// first. A user with no orders gets an empty slice, not an error.
func (s *OrderService) ListOrders(userID string) ([]models.Order, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.orderRepo.ListByUser(userID)
}

// GetOrderByID retrieves a single order with its items.
func (s *OrderService) GetOrderByID(id uint) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// UpdateOrderStatus updates the status of an existing order.
func (s *OrderService) UpdateOrderStatus(id uint, status string) error {
	validStatuses := map[string]bool{
		models.OrderStatusPending:    true,
		models.OrderStatusProcessing: true,
		models.OrderStatusShipped:    true,
		models.OrderStatusDelivered:  true,
		models.OrderStatusCancelled:  true,
	}
	if _, ok := validStatuses[status]; !ok {
		return fmt.Errorf("invalid order status: %s", status)
	}

	if err := s.orderRepo.UpdateStatus(id, status); err != nil {
		return fmt.Errorf("failed to update order status for order %d: %w", id, err)
	}
	return nil
}

func validateTotals(totals *OrderTotals) error {
	if totals.Subtotal < 0 || totals.Shipping < 0 || totals.Tax < 0 || totals.Total < 0 {
		return &InvalidRequestError{Message: "Order totals must not be negative"}
	}
	if math.Abs(totals.Total-(totals.Subtotal+totals.Shipping+totals.Tax)) > totalsTolerance {
		return &InvalidRequestError{Message: "Order total does not match subtotal, shipping and tax"}
	}
	return nil
}

// publishOrderCreated emits an order.created event after the transaction has
// committed. Publish failures only log; the order is already durable.
func (s *OrderService) publishOrderCreated(order *models.Order) {
	if s.mqClient == nil {
		return
	}

	event := map[string]interface{}{
		"orderID":     order.ID,
		"orderNumber": order.OrderNumber,
		"userID":      order.UserID,
		"status":      order.Status,
		"total":       order.Total,
	}
	if err := s.mqClient.PublishOrderCreated(event); err != nil {
		log.Printf("Warning: Failed to publish order created event for order %s: %v", order.OrderNumber, err)
	}
}
