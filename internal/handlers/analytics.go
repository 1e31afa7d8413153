package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"vitalsense/internal/middleware"
	"vitalsense/internal/services"
)

// AnalyticsHandler handles aggregate statistics, trends, and data-quality
// endpoints
type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
	defaultWindow    int // days
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *services.AnalyticsService, defaultWindowDays int) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		defaultWindow:    defaultWindowDays,
	}
}

// GetStatistics returns per-field averages over the window
// GET /api/analytics/statistics?window_days=30
func (h *AnalyticsHandler) GetStatistics(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	windowDays := queryIntParam(c, "window_days", h.defaultWindow)

	stats, err := h.analyticsService.GetStatistics(c.Context(), userID, windowDays)
	if err != nil {
		log.Printf("❌ Failed to compute statistics for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute statistics",
		})
	}

	return c.JSON(fiber.Map{
		"statistics":  stats,
		"window_days": windowDays,
	})
}

// GetTrends returns per-field half-window trend comparisons
// GET /api/analytics/trends?window_days=30
func (h *AnalyticsHandler) GetTrends(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	windowDays := queryIntParam(c, "window_days", h.defaultWindow)

	trends, err := h.analyticsService.GetTrends(c.Context(), userID, windowDays)
	if err != nil {
		log.Printf("❌ Failed to compute trends for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute trends",
		})
	}

	return c.JSON(fiber.Map{
		"trends":      trends,
		"window_days": windowDays,
	})
}

// GetDataQuality returns the logging completeness/consistency score
// GET /api/analytics/quality?window_days=30
func (h *AnalyticsHandler) GetDataQuality(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	windowDays := queryIntParam(c, "window_days", h.defaultWindow)

	quality, err := h.analyticsService.GetDataQuality(c.Context(), userID, windowDays)
	if err != nil {
		log.Printf("❌ Failed to compute data quality for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute data quality",
		})
	}

	return c.JSON(fiber.Map{
		"quality":     quality,
		"window_days": windowDays,
	})
}
