package handlers

import (
	"errors"
	"log"

	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProfileHandler handles HTTP requests for the authenticated user's profile.
type ProfileHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(authService *services.AuthService) *ProfileHandler {
	return &ProfileHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the profile routes. The router must already be
// behind AuthRequired.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router) {
	profileRoutes := router.Group("/profile")
	profileRoutes.Get("/", h.HandleGetProfile)
	profileRoutes.Put("/", h.HandleUpdateProfile)
	profileRoutes.Put("/password", h.HandleChangePassword)
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Email string `json:"email" validate:"required,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// HandleGetProfile returns the authenticated user's profile.
func (h *ProfileHandler) HandleGetProfile(c *fiber.Ctx) error {
	user, err := h.authService.GetProfile(middleware.UserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": services.ErrUserNotFound.Error(),
		})
	}
	return c.JSON(user)
}

// HandleUpdateProfile updates the authenticated user's name and email.
func (h *ProfileHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing profile update body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(validationErrorResponse(err))
	}

	user, err := h.authService.UpdateProfile(middleware.UserID(c), req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": err.Error(),
			})
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		log.Printf("Error updating profile: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update profile",
		})
	}
	return c.JSON(user)
}

// HandleChangePassword rotates the authenticated user's password after
// verifying the current one.
func (h *ProfileHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing password change body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(validationErrorResponse(err))
	}

	err := h.authService.ChangePassword(middleware.UserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrIncorrectPassword):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": err.Error(),
			})
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		log.Printf("Error changing password: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not change password",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Password changed successfully",
	})
}
