package handlers

import (
	"context"
	"log"
	"sync"

	"github.com/gofiber/fiber/v2"

	"vitalsense/internal/middleware"
	"vitalsense/internal/models"
)

// AnalyticsSource computes windowed aggregations. Satisfied by
// services.AnalyticsService.
type AnalyticsSource interface {
	GetStatistics(ctx context.Context, userID string, windowDays int) (*models.Statistics, error)
	GetTrends(ctx context.Context, userID string, windowDays int) (models.TrendReport, error)
	GetDataQuality(ctx context.Context, userID string, windowDays int) (models.DataQualityScore, error)
}

// InsightSource produces the cached-or-fresh insight sections. Satisfied by
// InsightsHandler.
type InsightSource interface {
	StabilityFor(ctx context.Context, userID string) (*models.StabilityAssessment, bool, error)
	NudgesFor(ctx context.Context, userID string) (*models.NudgeSet, bool, error)
}

// DashboardHandler assembles the single-call dashboard view: profile,
// insights, analytics, and recent vitals joined concurrently
type DashboardHandler struct {
	userService      ProfileSource
	vitalsService    VitalsSource
	analyticsService AnalyticsSource
	insights         InsightSource
	windowDays       int
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	userService ProfileSource,
	vitalsService VitalsSource,
	analyticsService AnalyticsSource,
	insights InsightSource,
	windowDays int,
) *DashboardHandler {
	return &DashboardHandler{
		userService:      userService,
		vitalsService:    vitalsService,
		analyticsService: analyticsService,
		insights:         insights,
		windowDays:       windowDays,
	}
}

// dashboardSections holds the independently-fetched dashboard pieces.
// Guarded by the WaitGroup in Get: each field is written by exactly one
// goroutine and read only after Wait returns.
type dashboardSections struct {
	stability *models.StabilityAssessment
	nudges    *models.NudgeSet
	stats     *models.Statistics
	trends    models.TrendReport
	quality   *models.DataQualityScore
	recent    []models.VitalsRecord

	mu     sync.Mutex
	errors []string
}

func (d *dashboardSections) fail(section string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, section)
	log.Printf("⚠️ Dashboard section %q failed: %v", section, err)
}

// Get returns the full dashboard in one response. Sections are fetched
// concurrently and joined all-settled: a failed section comes back null and
// is named in "partial_errors" instead of failing the whole response.
// GET /api/dashboard
func (h *DashboardHandler) Get(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	ctx := c.Context()

	// The profile gates everything else: without an account there is no
	// dashboard to assemble
	profile, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	sections := &dashboardSections{}
	var wg sync.WaitGroup

	wg.Add(6)
	go func() {
		defer wg.Done()
		assessment, _, err := h.insights.StabilityFor(ctx, userID)
		if err != nil {
			sections.fail("stability", err)
			return
		}
		sections.stability = assessment
	}()
	go func() {
		defer wg.Done()
		nudges, _, err := h.insights.NudgesFor(ctx, userID)
		if err != nil {
			sections.fail("nudges", err)
			return
		}
		sections.nudges = nudges
	}()
	go func() {
		defer wg.Done()
		stats, err := h.analyticsService.GetStatistics(ctx, userID, h.windowDays)
		if err != nil {
			sections.fail("statistics", err)
			return
		}
		sections.stats = stats
	}()
	go func() {
		defer wg.Done()
		trends, err := h.analyticsService.GetTrends(ctx, userID, h.windowDays)
		if err != nil {
			sections.fail("trends", err)
			return
		}
		sections.trends = trends
	}()
	go func() {
		defer wg.Done()
		quality, err := h.analyticsService.GetDataQuality(ctx, userID, h.windowDays)
		if err != nil {
			sections.fail("quality", err)
			return
		}
		sections.quality = &quality
	}()
	go func() {
		defer wg.Done()
		recent, err := h.vitalsService.GetRecentVitals(ctx, userID, h.windowDays, 20)
		if err != nil {
			sections.fail("recent_vitals", err)
			return
		}
		sections.recent = recent
	}()
	wg.Wait()

	response := fiber.Map{
		"profile":       profile.Profile(),
		"stability":     sections.stability,
		"nudges":        sections.nudges,
		"statistics":    sections.stats,
		"trends":        sections.trends,
		"quality":       sections.quality,
		"recent_vitals": sections.recent,
		"window_days":   h.windowDays,
	}
	if len(sections.errors) > 0 {
		response["partial_errors"] = sections.errors
	}

	return c.JSON(response)
}
