package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"vitalsense/internal/middleware"
	"vitalsense/internal/models"
	"vitalsense/internal/services"
)

// VitalsHandler handles vitals record endpoints
type VitalsHandler struct {
	vitalsService *services.VitalsService
	insightCache  *services.InsightCache
	defaultWindow int // days
}

// NewVitalsHandler creates a new vitals handler
func NewVitalsHandler(vitalsService *services.VitalsService, insightCache *services.InsightCache, defaultWindowDays int) *VitalsHandler {
	return &VitalsHandler{
		vitalsService: vitalsService,
		insightCache:  insightCache,
		defaultWindow: defaultWindowDays,
	}
}

// Create logs a new vitals record
// POST /api/vitals
func (h *VitalsHandler) Create(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req models.CreateVitalsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	record, err := h.vitalsService.Create(c.Context(), userID, &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// New data invalidates cached insights so the next dashboard load
	// reflects it
	h.insightCache.Invalidate(c.Context(), userID)

	return c.Status(fiber.StatusCreated).JSON(record)
}

// List returns the user's records inside the window, most recent first
// GET /api/vitals?window_days=30&limit=100
func (h *VitalsHandler) List(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	windowDays := queryIntParam(c, "window_days", h.defaultWindow)
	limit := queryIntParam(c, "limit", 0)

	records, err := h.vitalsService.GetRecentVitals(c.Context(), userID, windowDays, limit)
	if err != nil {
		log.Printf("❌ Failed to list vitals for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load vitals records",
		})
	}

	return c.JSON(fiber.Map{
		"records":     records,
		"count":       len(records),
		"window_days": windowDays,
	})
}

// Delete removes one of the user's records
// DELETE /api/vitals/:id
func (h *VitalsHandler) Delete(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	recordID := c.Params("id")

	if err := h.vitalsService.Delete(c.Context(), userID, recordID); err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Vitals record not found",
			})
		}
		log.Printf("❌ Failed to delete vitals record %s: %v", recordID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete vitals record",
		})
	}

	h.insightCache.Invalidate(c.Context(), userID)

	return c.JSON(fiber.Map{"deleted": true})
}

// queryIntParam parses a positive integer query parameter with a default
func queryIntParam(c *fiber.Ctx, name string, defaultValue int) int {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}
