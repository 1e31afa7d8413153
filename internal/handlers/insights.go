package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"vitalsense/internal/logging"
	"vitalsense/internal/middleware"
	"vitalsense/internal/models"
	"vitalsense/internal/services"
)

// ProfileSource loads accounts and the health-profile view the insight
// engine consumes. Satisfied by services.UserService.
type ProfileSource interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.UserHealthProfile, error)
}

// VitalsSource reads stored vitals windows. Satisfied by
// services.VitalsService.
type VitalsSource interface {
	GetRecentVitals(ctx context.Context, userID string, windowDays, limit int) ([]models.VitalsRecord, error)
	GetLatestVitals(ctx context.Context, userID string, count int) ([]models.VitalsRecord, error)
}

// InsightsHandler serves stability assessments and nudges, caching computed
// results per user
type InsightsHandler struct {
	userService    ProfileSource
	vitalsService  VitalsSource
	insightService *services.InsightService
	insightCache   *services.InsightCache
	windowDays     int
	scoringRecords int
	nudgeRecords   int
}

// InsightsHandlerConfig wires the insight endpoints
type InsightsHandlerConfig struct {
	UserService    ProfileSource
	VitalsService  VitalsSource
	InsightService *services.InsightService
	InsightCache   *services.InsightCache
	WindowDays     int
	ScoringRecords int
	NudgeRecords   int
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(cfg InsightsHandlerConfig) *InsightsHandler {
	return &InsightsHandler{
		userService:    cfg.UserService,
		vitalsService:  cfg.VitalsService,
		insightService: cfg.InsightService,
		insightCache:   cfg.InsightCache,
		windowDays:     cfg.WindowDays,
		scoringRecords: cfg.ScoringRecords,
		nudgeRecords:   cfg.NudgeRecords,
	}
}

// GetStability returns the stability assessment for the user's recent window
// GET /api/insights/stability
func (h *InsightsHandler) GetStability(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	assessment, cached, err := h.StabilityFor(c.Context(), userID)
	if err != nil {
		return insightError(c, userID, err)
	}

	return c.JSON(fiber.Map{"stability": assessment, "cached": cached})
}

// GetNudges returns today's behavioral recommendations
// GET /api/insights/nudges
func (h *InsightsHandler) GetNudges(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	nudges, cached, err := h.NudgesFor(c.Context(), userID)
	if err != nil {
		return insightError(c, userID, err)
	}

	return c.JSON(fiber.Map{"nudges": nudges, "cached": cached})
}

// Refresh drops cached insights and recomputes both fresh
// POST /api/insights/refresh
func (h *InsightsHandler) Refresh(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	h.insightCache.Invalidate(c.Context(), userID)

	assessment, _, err := h.StabilityFor(c.Context(), userID)
	if err != nil {
		return insightError(c, userID, err)
	}
	nudges, _, err := h.NudgesFor(c.Context(), userID)
	if err != nil {
		return insightError(c, userID, err)
	}

	return c.JSON(fiber.Map{
		"stability": assessment,
		"nudges":    nudges,
	})
}

// StabilityFor returns the assessment for a user, cache-aside. The boolean
// reports whether it came from cache. Errors are data-access failures only:
// the engine itself never fails.
func (h *InsightsHandler) StabilityFor(ctx context.Context, userID string) (*models.StabilityAssessment, bool, error) {
	if cached, found := h.insightCache.GetStability(ctx, userID); found {
		recordCacheLookup("stability", "hit")
		return cached, true, nil
	}
	recordCacheLookup("stability", "miss")

	profile, err := h.userService.GetProfile(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("load profile: %w", err)
	}

	recent, err := h.vitalsService.GetRecentVitals(ctx, userID, h.windowDays, h.scoringRecords)
	if err != nil {
		return nil, false, fmt.Errorf("load recent vitals: %w", err)
	}

	assessment := h.insightService.CalculateStabilityScore(ctx, profile, recent)
	h.insightCache.SetStability(ctx, userID, assessment)
	return assessment, false, nil
}

// NudgesFor returns the nudge set for a user, cache-aside
func (h *InsightsHandler) NudgesFor(ctx context.Context, userID string) (*models.NudgeSet, bool, error) {
	if cached, found := h.insightCache.GetNudges(ctx, userID); found {
		recordCacheLookup("nudges", "hit")
		return cached, true, nil
	}
	recordCacheLookup("nudges", "miss")

	profile, err := h.userService.GetProfile(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("load profile: %w", err)
	}

	latest, err := h.vitalsService.GetLatestVitals(ctx, userID, h.nudgeRecords)
	if err != nil {
		return nil, false, fmt.Errorf("load latest vitals: %w", err)
	}

	nudges := h.insightService.GenerateNudges(ctx, profile, latest)
	h.insightCache.SetNudges(ctx, userID, nudges)
	return nudges, false, nil
}

func insightError(c *fiber.Ctx, userID string, err error) error {
	logging.WithUser(userID).Error("insight request failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to compute insights",
	})
}

func recordCacheLookup(operation, outcome string) {
	if m := services.GetMetrics(); m != nil {
		m.RecordCacheLookup(operation, outcome)
	}
}
