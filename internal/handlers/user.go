package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"vitalsense/internal/middleware"
	"vitalsense/internal/models"
	"vitalsense/internal/services"
)

// UserHandler handles profile endpoints
type UserHandler struct {
	userService  *services.UserService
	insightCache *services.InsightCache
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, insightCache *services.InsightCache) *UserHandler {
	return &UserHandler{userService: userService, insightCache: insightCache}
}

// GetProfile returns the authenticated user's account and health profile
// GET /api/profile
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	user, err := h.userService.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		log.Printf("❌ Failed to load profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load profile",
		})
	}

	return c.JSON(user)
}

// UpdateProfile updates display name and/or tracked conditions
// PUT /api/profile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req models.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.DisplayName == nil && req.Conditions == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Nothing to update",
		})
	}

	user, err := h.userService.UpdateProfile(c.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Conditions changed means cached insights no longer match the profile
	if req.Conditions != nil {
		h.insightCache.Invalidate(c.Context(), userID)
	}

	return c.JSON(user)
}
