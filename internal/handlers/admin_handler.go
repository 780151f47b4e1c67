package handlers

import (
	"bytes"
	"errors"
	"log"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/tealeg/xlsx"
)

// AdminHandler handles the back-office endpoints. The router it registers on
// must already be behind AuthRequired and AdminRequired.
type AdminHandler struct {
	adminService *services.AdminService
	orderService *services.OrderService
	validate     *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *services.AdminService, orderService *services.OrderService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		orderService: orderService,
		validate:     validator.New(),
	}
}

// RegisterRoutes registers the admin routes with the Fiber app.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/stats", h.HandleStats)

	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/export", h.HandleExportProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)

	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleListOrders)
	orderRoutes.Get("/:id", h.HandleGetOrder)
	orderRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
}

type productRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Category    string  `json:"category" validate:"required,min=1,max=100"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Image       string  `json:"image" validate:"omitempty,url"`
	IsActive    *bool   `json:"isActive"`
}

// HandleStats returns the dashboard aggregates.
func (h *AdminHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.adminService.Stats()
	if err != nil {
		log.Printf("Error assembling admin stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve stats",
		})
	}
	return c.JSON(stats)
}

// HandleListProducts lists all products, deactivated ones included.
func (h *AdminHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.adminService.ListProducts()
	if err != nil {
		log.Printf("Error listing admin products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
		})
	}
	return c.JSON(products)
}

// HandleGetProduct returns a product regardless of its active flag.
func (h *AdminHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.adminService.GetProduct(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": services.ErrProductNotFound.Error(),
		})
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product. New products default to active.
func (h *AdminHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing product body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(validationErrorResponse(err))
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
		Image:       req.Image,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.adminService.CreateProduct(&product); err != nil {
		log.Printf("Error creating product: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create product",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct overwrites an existing product's fields.
func (h *AdminHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing product body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(validationErrorResponse(err))
	}

	product, err := h.adminService.GetProduct(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": services.ErrProductNotFound.Error(),
		})
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.Category = req.Category
	product.Stock = req.Stock
	product.Image = req.Image
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.adminService.UpdateProduct(product); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		log.Printf("Error updating product: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update product",
		})
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product.
func (h *AdminHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.adminService.DeleteProduct(c.Params("id")); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": services.ErrProductNotFound.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Product deleted successfully",
	})
}

// HandleExportProducts streams every product as an .xlsx download.
func (h *AdminHandler) HandleExportProducts(c *fiber.Ctx) error {
	products, err := h.adminService.ListProducts()
	if err != nil {
		log.Printf("Error exporting products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not export products",
		})
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		log.Printf("Error creating export sheet: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not export products",
		})
	}

	headerRow := sheet.AddRow()
	for _, header := range []string{"ID", "Name", "Description", "Category", "Price", "Stock", "Image", "Active", "CreatedAt"} {
		headerRow.AddCell().SetValue(header)
	}
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Description)
		row.AddCell().SetValue(p.Category)
		row.AddCell().SetValue(p.Price)
		row.AddCell().SetValue(p.Stock)
		row.AddCell().SetValue(p.Image)
		row.AddCell().SetValue(p.IsActive)
		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		log.Printf("Error writing export file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not export products",
		})
	}

	c.Set(fiber.HeaderContentDisposition, `attachment; filename=products.xlsx`)
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(buf.Bytes())
}

// HandleListOrders lists every order, newest first.
func (h *AdminHandler) HandleListOrders(c *fiber.Ctx) error {
	orders, err := h.orderService.GetAllOrders()
	if err != nil {
		log.Printf("Error listing admin orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
		})
	}
	return c.JSON(orders)
}

// HandleGetOrder returns any order by id.
func (h *AdminHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.orderService.GetOrderByID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": services.ErrOrderNotFound.Error(),
		})
	}
	return c.JSON(order)
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus moves an order to a new status.
func (h *AdminHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req updateOrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing status update body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(validationErrorResponse(err))
	}

	orderID := c.Params("id")
	if err := h.orderService.UpdateOrderStatus(orderID, req.Status); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		log.Printf("Error updating order status for order %s: %v", orderID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Order status updated successfully",
	})
}
