package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"gearstore/internal/handlers"
	"gearstore/internal/middleware"
	"gearstore/internal/models"
	"gearstore/internal/repositories"
	"gearstore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupApp builds a Fiber app on an in-memory SQLite database with the same
// wiring as main: public auth routes, authenticated catalog/order routes, and
// admin-only management routes. The database is named per test so state never
// leaks between tests.
func setupApp(t *testing.T) (*fiber.App, *gorm.DB, *services.AuthService) {
	t.Helper()

	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}))

	// Repositories and services, wired like main (no RabbitMQ in tests).
	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	productService := services.NewProductService(productRepo)
	orderService := services.NewOrderService(orderRepo, nil)
	authService := services.NewAuthService(userRepo, jwtSecret)

	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService)
	authHandler := handlers.NewAuthHandler(authService)

	app := fiber.New()
	api := app.Group("/api")

	authHandler.RegisterRoutes(api)

	protected := api.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)

	admin := protected.Group("", middleware.AdminOnly())
	productHandler.RegisterAdminRoutes(admin)
	orderHandler.RegisterAdminRoutes(admin)

	return app, db, authService
}

// seedCatalog puts a couple of products into the database and returns them.
func seedCatalog(t *testing.T, db *gorm.DB) []models.Product {
	t.Helper()
	products := []models.Product{
		{Name: "Viper Mouse", Description: "Lightweight wireless mouse", Price: 50.00, Stock: 10},
		{Name: "Tenkeyless Keyboard", Description: "Hot-swappable switches", Price: 120.00, Stock: 5},
	}
	for i := range products {
		require.NoError(t, db.Create(&products[i]).Error)
	}
	return products
}

// registerAndLogin creates a user over HTTP and returns a bearer token.
func registerAndLogin(t *testing.T, app *fiber.App, username, email string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"username": username,
		"email":    email,
		"password": "password123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	body, _ = json.Marshal(map[string]string{
		"username": username,
		"password": "password123",
	})
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	resp.Body.Close()
	token, _ := loginResp["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// doJSON fires a JSON request with an optional bearer token and decodes the
// response body into a generic map.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func checkoutPayload(productID uint, quantity int) map[string]interface{} {
	price := 50.00
	subtotal := price * float64(quantity)
	return map[string]interface{}{
		"cartItems": []map[string]interface{}{
			{"id": productID, "name": "Viper Mouse", "price": price, "quantity": quantity, "image": "mouse.png"},
		},
		"customerDetails": map[string]interface{}{
			"name":    "Test Customer",
			"email":   "customer@example.com",
			"address": "1 Test Street",
		},
		"paymentDetails": map[string]interface{}{
			"method": "card",
			"last4":  "4242",
		},
		"totals": map[string]float64{
			"subtotal": subtotal,
			"shipping": 5.00,
			"tax":      2.50,
			"total":    subtotal + 5.00 + 2.50,
		},
	}
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app, _, authService := setupApp(t)

	token := registerAndLogin(t, app, "testuser", "test@example.com")

	claims, err := authService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "testuser", claims["username"])
	assert.Equal(t, models.RoleCustomer, claims["role"])
	assert.Contains(t, claims, "user_id")

	// Duplicate registration conflicts.
	body, _ := json.Marshal(map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var conflictResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conflictResp))
	resp.Body.Close()
	assert.Equal(t, false, conflictResp["success"])
	assert.Contains(t, conflictResp["message"], "already taken")
}

func TestCreateOrderEndToEnd(t *testing.T) {
	app, db, _ := setupApp(t)
	products := seedCatalog(t, db)
	token := registerAndLogin(t, app, "buyer", "buyer@example.com")

	status, body := doJSON(t, app, http.MethodPost, "/api/orders", token, checkoutPayload(products[0].ID, 2))

	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])

	order, ok := body["order"].(map[string]interface{})
	require.True(t, ok, "response must carry the order summary")
	assert.NotZero(t, order["id"])
	assert.Regexp(t, `^ORD-\d{4}-\d{3,}$`, order["orderNumber"])
	assert.NotEmpty(t, order["createdAt"])
	assert.InDelta(t, 107.50, order["total"].(float64), 0.001)

	// Stock decremented, sold incremented.
	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", products[0].ID).Error)
	assert.Equal(t, 8, product.Stock)
	assert.Equal(t, 2, product.Sold)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	app, db, _ := setupApp(t)
	products := seedCatalog(t, db)
	token := registerAndLogin(t, app, "buyer", "buyer@example.com")

	status, body := doJSON(t, app, http.MethodPost, "/api/orders", token, checkoutPayload(products[0].ID, 50))

	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "Insufficient stock")

	// Nothing persisted.
	var orderCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	assert.Zero(t, orderCount)
	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", products[0].ID).Error)
	assert.Equal(t, 10, product.Stock)
	assert.Zero(t, product.Sold)
}

func TestCreateOrderValidationFailures(t *testing.T) {
	app, db, _ := setupApp(t)
	products := seedCatalog(t, db)
	token := registerAndLogin(t, app, "buyer", "buyer@example.com")

	// Empty cart.
	payload := checkoutPayload(products[0].ID, 1)
	payload["cartItems"] = []map[string]interface{}{}
	status, body := doJSON(t, app, http.MethodPost, "/api/orders", token, payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Cart is empty", body["message"])

	// Missing totals.
	payload = checkoutPayload(products[0].ID, 1)
	delete(payload, "totals")
	status, body = doJSON(t, app, http.MethodPost, "/api/orders", token, payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing required order information", body["message"])

	// Unknown product.
	payload = checkoutPayload(9999, 1)
	status, body = doJSON(t, app, http.MethodPost, "/api/orders", token, payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "not found")
}

func TestListOrders(t *testing.T) {
	app, db, _ := setupApp(t)
	products := seedCatalog(t, db)
	token := registerAndLogin(t, app, "buyer", "buyer@example.com")

	// No orders yet: empty list, not an error.
	status, body := doJSON(t, app, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Empty(t, body["orders"])

	for i := 0; i < 2; i++ {
		status, _ = doJSON(t, app, http.MethodPost, "/api/orders", token, checkoutPayload(products[0].ID, 1))
		require.Equal(t, http.StatusCreated, status)
	}

	status, body = doJSON(t, app, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, status)
	orders, ok := body["orders"].([]interface{})
	require.True(t, ok)
	require.Len(t, orders, 2)

	// Each order carries its items.
	first := orders[0].(map[string]interface{})
	items, ok := first["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)

	// Another user sees none of them.
	otherToken := registerAndLogin(t, app, "other", "other@example.com")
	status, body = doJSON(t, app, http.MethodGet, "/api/orders", otherToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["orders"])
}

func TestOrderEndpointsWithoutAuth(t *testing.T) {
	app, db, _ := setupApp(t)
	products := seedCatalog(t, db)

	status, body := doJSON(t, app, http.MethodPost, "/api/orders", "", checkoutPayload(products[0].ID, 1))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	app, db, _ := setupApp(t)

	// A plain customer may not manage the catalog.
	customerToken := registerAndLogin(t, app, "customer", "customer@example.com")
	newProduct := map[string]interface{}{
		"name":  "Streaming Microphone",
		"price": 150.00,
		"stock": 20,
	}
	status, _ := doJSON(t, app, http.MethodPost, "/api/products", customerToken, newProduct)
	assert.Equal(t, http.StatusForbidden, status)

	// Seed an admin directly; registration never grants the role.
	hashed, err := bcrypt.GenerateFromPassword([]byte("adminpass123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	admin := models.User{
		Username: "storeadmin",
		Email:    "admin@example.com",
		Password: string(hashed),
		Role:     models.RoleAdmin,
	}
	require.NoError(t, repositories.NewGORMUserRepository(db).Create(&admin))

	body, _ := json.Marshal(map[string]string{"username": "storeadmin", "password": "adminpass123"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	resp.Body.Close()
	adminToken := loginResp["token"].(string)

	status, created := doJSON(t, app, http.MethodPost, "/api/products", adminToken, newProduct)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, created["success"])
}
