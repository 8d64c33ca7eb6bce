package handlers

import (
	"errors"
	"log"
	"strconv"

	"gearstore/internal/repositories"
	"gearstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes with the Fiber app. The router is
// expected to already carry the authentication middleware.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/", h.HandleGetUserOrders)
}

// RegisterAdminRoutes registers order-management routes. The router should
// additionally require the admin role.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
}

// HandleCreateOrder places an order for the authenticated user.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing create order request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	userID, _ := c.Locals("user_id").(string)

	order, err := h.service.CreateOrder(userID, req)
	if err != nil {
		return writeOrderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Order created successfully",
		"order":   order,
	})
}

// HandleGetUserOrders lists the authenticated user's orders, newest first.
func (h *OrderHandler) HandleGetUserOrders(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	orders, err := h.service.ListOrders(userID)
	if err != nil {
		return writeOrderError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"orders":  orders,
	})
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Order ID must be numeric",
		})
	}

	order, err := h.service.GetOrderByID(uint(orderID))
	if err != nil {
		log.Printf("Error getting order by ID %d: %v", orderID, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Order not found",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"order":   order,
	})
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Order ID must be numeric",
		})
	}

	var updateData struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&updateData); err != nil {
		log.Printf("Error parsing request body for status update: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body for status update",
		})
	}
	if updateData.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Status is required for order status update",
		})
	}

	if err := h.service.UpdateOrderStatus(uint(orderID), updateData.Status); err != nil {
		log.Printf("Error updating order status for order %d: %v", orderID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Could not update order status",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order status updated successfully",
	})
}

// writeOrderError maps the order error taxonomy onto HTTP responses. Internal
// storage errors are logged but never echoed to the client.
func writeOrderError(c *fiber.Ctx, err error) error {
	var invalidReq *services.InvalidRequestError
	var notFound *repositories.ProductNotFoundError
	var noStock *repositories.InsufficientStockError

	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not authenticated",
		})
	case errors.As(err, &invalidReq):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": invalidReq.Message,
		})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": notFound.Error(),
		})
	case errors.As(err, &noStock):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": noStock.Error(),
		})
	default:
		log.Printf("Order operation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to process order",
		})
	}
}
