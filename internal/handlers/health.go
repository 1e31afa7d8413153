package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"vitalsense/internal/database"
	"vitalsense/internal/datasets"
	"vitalsense/internal/services"
)

// ModelProbe reports the outcome of the latest provider health probe.
type ModelProbe interface {
	Status() string
}

// HealthHandler handles health check requests
type HealthHandler struct {
	mongoDB      *database.MongoDB
	redisService *services.RedisService // may be nil
	modelClient  *services.ModelClient
	modelProbe   ModelProbe // may be nil when the scheduler is disabled
	datasetStore *datasets.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(mongoDB *database.MongoDB, redisService *services.RedisService, modelClient *services.ModelClient, modelProbe ModelProbe, datasetStore *datasets.Store) *HealthHandler {
	return &HealthHandler{
		mongoDB:      mongoDB,
		redisService: redisService,
		modelClient:  modelClient,
		modelProbe:   modelProbe,
		datasetStore: datasetStore,
	}
}

// Handle responds with server health status and per-dependency state
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	status := "healthy"

	mongoStatus := "connected"
	if err := h.mongoDB.Ping(c.Context()); err != nil {
		mongoStatus = "unreachable"
		status = "degraded"
	}

	redisStatus := "not_configured"
	if h.redisService != nil {
		redisStatus = "connected"
		if err := h.redisService.Ping(c.Context()); err != nil {
			redisStatus = "unreachable"
			// Redis is a cache accelerator; losing it degrades nothing
			// user-visible
		}
	}

	modelStatus := "configured"
	if !h.modelClient.IsConfigured() {
		// Insights still work via deterministic fallbacks
		modelStatus = "not_configured"
	} else if h.modelProbe != nil {
		modelStatus = h.modelProbe.Status()
	}

	return c.JSON(fiber.Map{
		"status":    status,
		"mongodb":   mongoStatus,
		"redis":     redisStatus,
		"model":     modelStatus,
		"datasets":  h.datasetStore.Keys(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
