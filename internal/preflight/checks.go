package preflight

import (
	"context"
	"fmt"
	"log"
	"os"

	"vitalsense/internal/config"
	"vitalsense/internal/database"
	"vitalsense/internal/datasets"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before the server starts
type Checker struct {
	cfg          *config.Config
	mongoDB      *database.MongoDB
	datasetStore *datasets.Store
}

// NewChecker creates a new preflight checker
func NewChecker(cfg *config.Config, mongoDB *database.MongoDB, datasetStore *datasets.Store) *Checker {
	return &Checker{
		cfg:          cfg,
		mongoDB:      mongoDB,
		datasetStore: datasetStore,
	}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkMongoConnection(ctx),
		c.checkReferenceDatasets(),
		c.checkModelProvider(),
		c.checkJWTSecret(),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("\n📊 Pre-flight summary: %d passed, %d failed, %d warnings\n", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

func (c *Checker) checkMongoConnection(ctx context.Context) CheckResult {
	if err := c.mongoDB.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "MongoDB Connection",
			Status:  "fail",
			Message: "Cannot reach MongoDB",
			Error:   err,
		}
	}
	return CheckResult{
		Name:    "MongoDB Connection",
		Status:  "pass",
		Message: "Connected",
	}
}

// checkReferenceDatasets verifies the dataset store loaded and carries the
// default dataset the insight engine falls back to
func (c *Checker) checkReferenceDatasets() CheckResult {
	if c.datasetStore.Default() == nil {
		return CheckResult{
			Name:    "Reference Datasets",
			Status:  "fail",
			Message: "Default dataset missing from store",
		}
	}
	return CheckResult{
		Name:    "Reference Datasets",
		Status:  "pass",
		Message: fmt.Sprintf("%d datasets loaded from %s", len(c.datasetStore.Keys()), c.cfg.DatasetDir),
	}
}

// checkModelProvider warns (doesn't fail) when the model provider is not
// configured: the insight engine serves deterministic fallbacks without it
func (c *Checker) checkModelProvider() CheckResult {
	if c.cfg.ModelBaseURL == "" || c.cfg.ModelAPIKey == "" {
		return CheckResult{
			Name:    "Model Provider",
			Status:  "warning",
			Message: "MODEL_BASE_URL / MODEL_API_KEY not set; insights will use fallback values",
		}
	}
	return CheckResult{
		Name:    "Model Provider",
		Status:  "pass",
		Message: fmt.Sprintf("Configured (%s)", c.cfg.ModelName),
	}
}

func (c *Checker) checkJWTSecret() CheckResult {
	if c.cfg.JWTSecret == "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "production" {
			return CheckResult{
				Name:    "JWT Secret",
				Status:  "fail",
				Message: "JWT_SECRET is required in production",
			}
		}
		return CheckResult{
			Name:    "JWT Secret",
			Status:  "warning",
			Message: "JWT_SECRET not set; auth bypass active (development only)",
		}
	}
	return CheckResult{
		Name:    "JWT Secret",
		Status:  "pass",
		Message: "Configured",
	}
}
