package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/payment"
)

const testWebhookSecret = "whsec_integration"

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

// setupApp wires the full HTTP surface over an in-memory sqlite database,
// mirroring the production wiring minus broker and cache.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Product{}, &models.User{}, &models.Order{}, &models.OrderItem{}))

	gatewayServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_integration",
			"url": "https://gateway.example.com/pay/cs_integration",
		})
	}))
	t.Cleanup(gatewayServer.Close)

	gateway := payment.NewClient(payment.Config{
		APIURL:        gatewayServer.URL,
		APIKey:        "sk_test",
		WebhookSecret: testWebhookSecret,
		SuccessURL:    "http://localhost:3000/checkout/success",
		CancelURL:     "http://localhost:3000/checkout/cancel",
	})

	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	catalogService := services.NewCatalogService(productRepo, nil)
	cartService := services.NewCartService(productRepo)
	orderService := services.NewOrderService(orderRepo)
	adminService := services.NewAdminService(productRepo, orderRepo, userRepo, nil)
	authService := services.NewAuthService(userRepo, "integration-test-secret")
	checkoutService := services.NewCheckoutService(productRepo, orderRepo, gateway, nil)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")

	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	handlers.NewCatalogHandler(catalogService).RegisterRoutes(apiV1)
	handlers.NewCartHandler(cartService, false).RegisterRoutes(apiV1)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	checkoutHandler.RegisterWebhookRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService))
	checkoutHandler.RegisterCheckoutRoutes(protected)
	handlers.NewOrderHandler(orderService).RegisterRoutes(protected)
	handlers.NewProfileHandler(authService).RegisterRoutes(protected)

	adminRoutes := protected.Group("/admin", middleware.AdminRequired())
	handlers.NewAdminHandler(adminService, orderService).RegisterRoutes(adminRoutes)

	return &testEnv{app: app, db: db}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, mutate ...func(*http.Request)) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}

	resp, err := e.app.Test(req, -1)
	assert.NoError(t, err)
	return resp
}

func withToken(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

// registerAndLogin creates an account through the API and returns its token
// and user id.
func (e *testEnv) registerAndLogin(t *testing.T, name, email, password string) (token, userID string) {
	t.Helper()

	resp := e.request(t, http.MethodPost, "/api/v1/auth/register", fiber.Map{
		"name": name, "email": email, "password": password,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var registered struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeJSON(t, resp, &registered)

	resp = e.request(t, http.MethodPost, "/api/v1/auth/login", fiber.Map{
		"email": email, "password": password,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var loggedIn struct {
		Token string `json:"token"`
	}
	decodeJSON(t, resp, &loggedIn)
	assert.NotEmpty(t, loggedIn.Token)

	return loggedIn.Token, registered.User.ID
}

func (e *testEnv) seedProduct(t *testing.T, product models.Product) models.Product {
	t.Helper()
	assert.NoError(t, repositories.NewGORMProductRepository(e.db).Create(&product))
	return product
}

func TestAuthFlow(t *testing.T) {
	env := setupApp(t)

	token, _ := env.registerAndLogin(t, "Alice", "alice@example.com", "password123")

	t.Run("duplicate email", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/v1/auth/register", fiber.Map{
			"name": "Alice Again", "email": "alice@example.com", "password": "password456",
		})
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/v1/auth/login", fiber.Map{
			"email": "alice@example.com", "password": "wrong",
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("validation failure", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/v1/auth/register", fiber.Map{
			"name": "Bob", "email": "not-an-email", "password": "123",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("profile requires a token", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/v1/profile", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("profile with token", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/v1/profile", nil, withToken(token))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var profile struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		decodeJSON(t, resp, &profile)
		assert.Equal(t, "alice@example.com", profile.Email)
		assert.Equal(t, models.RoleUser, profile.Role)
	})
}

func TestCatalogVisibility(t *testing.T) {
	env := setupApp(t)
	active := env.seedProduct(t, models.Product{Name: "Laptop", Price: 1200, Category: "electronics", Stock: 5, IsActive: true})
	hidden := env.seedProduct(t, models.Product{Name: "Retired Gadget", Price: 99, Category: "clearance", Stock: 1, IsActive: false})

	t.Run("listing hides deactivated products", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/v1/products", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var products []models.Product
		decodeJSON(t, resp, &products)
		assert.Len(t, products, 1)
		assert.Equal(t, active.ID, products[0].ID)
	})

	t.Run("active product detail", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/v1/products/"+active.ID, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("deactivated product detail looks missing", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/v1/products/"+hidden.ID, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("categories of active products", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/v1/categories", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var categories []string
		decodeJSON(t, resp, &categories)
		assert.Equal(t, []string{"electronics"}, categories)
	})
}

// withCartCookie carries the cart cookie from a previous response into the
// next request, the way a browser would.
func withCartCookie(resp *http.Response) func(*http.Request) {
	return func(req *http.Request) {
		for _, cookie := range resp.Cookies() {
			if cookie.Name == handlers.CartCookieName {
				req.AddCookie(cookie)
			}
		}
	}
}

func TestCartCookieFlow(t *testing.T) {
	env := setupApp(t)
	product := env.seedProduct(t, models.Product{Name: "Mouse", Price: 25, Category: "electronics", Stock: 3, IsActive: true})

	type cartResponse struct {
		Success bool        `json:"success"`
		Cart    models.Cart `json:"cart"`
	}

	// Add two units.
	resp := env.request(t, http.MethodPost, "/api/v1/cart", fiber.Map{
		"productId": product.ID, "quantity": 2,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	addResp := resp
	var body cartResponse
	decodeJSON(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, 50.0, body.Cart.Total)
	assert.Equal(t, 2, body.Cart.ItemCount)

	// The cart round-trips through the cookie.
	resp = env.request(t, http.MethodGet, "/api/v1/cart", nil, withCartCookie(addResp))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &body)
	assert.Len(t, body.Cart.Items, 1)
	assert.Equal(t, product.ID, body.Cart.Items[0].ProductID)

	// Exceeding stock is rejected and the cookie keeps the old cart.
	resp = env.request(t, http.MethodPut, "/api/v1/cart", fiber.Map{
		"productId": product.ID, "quantity": 10,
	}, withCartCookie(addResp))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Unknown product is a 404.
	resp = env.request(t, http.MethodPost, "/api/v1/cart", fiber.Map{
		"productId": "prod-404",
	}, withCartCookie(addResp))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// Remove empties the cart.
	resp = env.request(t, http.MethodDelete, "/api/v1/cart", fiber.Map{
		"productId": product.ID,
	}, withCartCookie(addResp))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &body)
	assert.Empty(t, body.Cart.Items)
	assert.Zero(t, body.Cart.Total)

	// A garbage cookie degrades to an empty cart instead of an error.
	resp = env.request(t, http.MethodGet, "/api/v1/cart", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: handlers.CartCookieName, Value: "not%20json"})
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &body)
	assert.Empty(t, body.Cart.Items)
}

func TestCheckoutEndpoint(t *testing.T) {
	env := setupApp(t)
	product := env.seedProduct(t, models.Product{Name: "Laptop", Price: 1200, Category: "electronics", Stock: 5, IsActive: true})
	token, _ := env.registerAndLogin(t, "Alice", "alice@example.com", "password123")

	t.Run("requires authentication", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/v1/checkout", fiber.Map{
			"items": []fiber.Map{{"productId": product.ID, "quantity": 1, "price": 1200.0}},
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("returns redirect URL", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/v1/checkout", fiber.Map{
			"items": []fiber.Map{{"productId": product.ID, "quantity": 1, "price": 1200.0}},
			"total": 1200.0,
		}, withToken(token))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var body struct {
			URL string `json:"url"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "https://gateway.example.com/pay/cs_integration", body.URL)
	})

	t.Run("empty cart", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/v1/checkout", fiber.Map{
			"items": []fiber.Map{},
		}, withToken(token))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unavailable product", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/v1/checkout", fiber.Map{
			"items": []fiber.Map{{"productId": "prod-404", "quantity": 1, "price": 10.0}},
		}, withToken(token))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

// signedWebhook posts a checkout.session.completed event signed with the
// given secret and returns the response.
func (e *testEnv) signedWebhook(t *testing.T, sessionID, userID, secret string, items []fiber.Map) *http.Response {
	t.Helper()

	encodedItems, err := json.Marshal(items)
	assert.NoError(t, err)
	payload, err := json.Marshal(fiber.Map{
		"id":   "evt_" + sessionID,
		"type": "checkout.session.completed",
		"data": fiber.Map{
			"object": fiber.Map{
				"id": sessionID,
				"metadata": fiber.Map{
					"userId": userID,
					"items":  string(encodedItems),
				},
			},
		},
	})
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(payment.SignatureHeader, payment.ComputeSignature(payload, secret, time.Now()))

	resp, err := e.app.Test(req, -1)
	assert.NoError(t, err)
	return resp
}

func TestPaymentWebhook(t *testing.T) {
	env := setupApp(t)
	product := env.seedProduct(t, models.Product{Name: "Laptop", Price: 1200, Category: "electronics", Stock: 5, IsActive: true})
	token, userID := env.registerAndLogin(t, "Alice", "alice@example.com", "password123")

	t.Run("invalid signature is rejected", func(t *testing.T) {
		resp := env.signedWebhook(t, "cs_bad", userID, "whsec_wrong", []fiber.Map{
			{"productId": product.ID, "quantity": 1, "price": 1200.0},
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("valid event creates the order", func(t *testing.T) {
		resp := env.signedWebhook(t, "cs_ok", userID, testWebhookSecret, []fiber.Map{
			{"productId": product.ID, "quantity": 2, "price": 1200.0},
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var ack struct {
			Received bool `json:"received"`
		}
		decodeJSON(t, resp, &ack)
		assert.True(t, ack.Received)

		// The order shows up in the owner's history, paid, priced from the
		// catalog, and the stock went down.
		resp = env.request(t, http.MethodGet, "/api/v1/orders", nil, withToken(token))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var orders []models.Order
		decodeJSON(t, resp, &orders)
		assert.Len(t, orders, 1)
		assert.Equal(t, models.OrderStatusPaid, orders[0].Status)
		assert.Equal(t, 2400.0, orders[0].Total)

		var stocked models.Product
		assert.NoError(t, env.db.First(&stocked, "id = ?", product.ID).Error)
		assert.Equal(t, 3, stocked.Stock)
	})

	t.Run("redelivery does not duplicate the order", func(t *testing.T) {
		resp := env.signedWebhook(t, "cs_ok", userID, testWebhookSecret, []fiber.Map{
			{"productId": product.ID, "quantity": 2, "price": 1200.0},
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var count int64
		assert.NoError(t, env.db.Model(&models.Order{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("orders are scoped to their owner", func(t *testing.T) {
		otherToken, _ := env.registerAndLogin(t, "Bob", "bob@example.com", "password123")

		resp := env.request(t, http.MethodGet, "/api/v1/orders", nil, withToken(otherToken))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var orders []models.Order
		decodeJSON(t, resp, &orders)
		assert.Empty(t, orders)

		var order models.Order
		assert.NoError(t, env.db.First(&order, "provider_ref = ?", "cs_ok").Error)
		resp = env.request(t, http.MethodGet, "/api/v1/orders/"+order.ID, nil, withToken(otherToken))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		resp = env.request(t, http.MethodGet, "/api/v1/orders/"+order.ID, nil, withToken(token))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestAdminAuthorization(t *testing.T) {
	env := setupApp(t)
	token, userID := env.registerAndLogin(t, "Alice", "alice@example.com", "password123")

	t.Run("customer token is forbidden", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/v1/admin/stats", nil, withToken(token))
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	// Promote and log in again: the role rides in the token.
	assert.NoError(t, env.db.Model(&models.User{}).Where("id = ?", userID).Update("role", models.RoleAdmin).Error)
	resp := env.request(t, http.MethodPost, "/api/v1/auth/login", fiber.Map{
		"email": "alice@example.com", "password": "password123",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var loggedIn struct {
		Token string `json:"token"`
	}
	decodeJSON(t, resp, &loggedIn)
	adminToken := loggedIn.Token

	t.Run("stats", func(t *testing.T) {
		env.seedProduct(t, models.Product{Name: "Laptop", Price: 1200, Category: "electronics", Stock: 5, IsActive: true})

		resp := env.request(t, http.MethodGet, "/api/v1/admin/stats", nil, withToken(adminToken))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var stats services.DashboardStats
		decodeJSON(t, resp, &stats)
		assert.Equal(t, int64(1), stats.TotalProducts)
		assert.Equal(t, int64(1), stats.TotalUsers)
	})

	t.Run("product lifecycle", func(t *testing.T) {
		resp := env.request(t, http.MethodPost, "/api/v1/admin/products", fiber.Map{
			"name": "Keyboard", "price": 80.0, "category": "electronics", "stock": 10,
		}, withToken(adminToken))
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		var created models.Product
		decodeJSON(t, resp, &created)
		assert.True(t, created.IsActive)

		// Deactivate it; the public catalog stops showing it, the back
		// office still does.
		resp = env.request(t, http.MethodPut, "/api/v1/admin/products/"+created.ID, fiber.Map{
			"name": "Keyboard", "price": 80.0, "category": "electronics", "stock": 10, "isActive": false,
		}, withToken(adminToken))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp = env.request(t, http.MethodGet, "/api/v1/products/"+created.ID, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		resp = env.request(t, http.MethodGet, "/api/v1/admin/products/"+created.ID, nil, withToken(adminToken))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp = env.request(t, http.MethodDelete, "/api/v1/admin/products/"+created.ID, nil, withToken(adminToken))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp = env.request(t, http.MethodGet, "/api/v1/admin/products/"+created.ID, nil, withToken(adminToken))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("order status transitions", func(t *testing.T) {
		order := models.Order{UserID: userID, Total: 10, Status: models.OrderStatusPaid, ProviderRef: "cs_admin"}
		assert.NoError(t, repositories.NewGORMOrderRepository(env.db).Create(&order))

		resp := env.request(t, http.MethodPatch, "/api/v1/admin/orders/"+order.ID+"/status", fiber.Map{
			"status": "SHIPPED",
		}, withToken(adminToken))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp = env.request(t, http.MethodPatch, "/api/v1/admin/orders/"+order.ID+"/status", fiber.Map{
			"status": "TELEPORTED",
		}, withToken(adminToken))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("export", func(t *testing.T) {
		resp := env.request(t, http.MethodGet, "/api/v1/admin/products/export", nil, withToken(adminToken))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "products.xlsx")
	})
}
