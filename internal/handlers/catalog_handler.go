package handlers

import (
	"errors"
	"log"

	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles the public catalog browsing endpoints.
type CatalogHandler struct {
	catalogService *services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// RegisterRoutes registers the catalog routes with the Fiber app.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/products", h.HandleListProducts)
	router.Get("/products/:id", h.HandleGetProduct)
	router.Get("/categories", h.HandleListCategories)
}

// HandleListProducts lists active products with optional search, category
// filter and ordering.
func (h *CatalogHandler) HandleListProducts(c *fiber.Ctx) error {
	query := repositories.ProductQuery{
		Search:    c.Query("search"),
		Category:  c.Query("category"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	products, err := h.catalogService.ListProducts(query)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
		})
	}
	return c.JSON(products)
}

// HandleGetProduct returns a single active product.
func (h *CatalogHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.catalogService.GetProduct(c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		log.Printf("Error getting product: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve product",
		})
	}
	return c.JSON(product)
}

// HandleListCategories returns the distinct categories of active products.
func (h *CatalogHandler) HandleListCategories(c *fiber.Ctx) error {
	categories, err := h.catalogService.ListCategories(c.UserContext())
	if err != nil {
		log.Printf("Error listing categories: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve categories",
		})
	}
	if categories == nil {
		categories = []string{}
	}
	return c.JSON(categories)
}
