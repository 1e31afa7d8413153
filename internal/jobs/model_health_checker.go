package jobs

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"vitalsense/internal/services"
)

// Probe statuses reported by Status
const (
	ModelStatusUnknown   = "unknown"
	ModelStatusHealthy   = "healthy"
	ModelStatusUnhealthy = "unhealthy"
)

// ModelHealthChecker periodically probes the generative model provider with
// a trivial prompt. A failing probe doesn't disable anything (the insight
// engine degrades per request), it just surfaces provider trouble in the
// logs and on /health before users hit it.
type ModelHealthChecker struct {
	generator    services.TextGenerator
	probeTimeout time.Duration

	mu         sync.RWMutex
	lastStatus string
}

// NewModelHealthChecker creates a model health checker job
func NewModelHealthChecker(generator services.TextGenerator) *ModelHealthChecker {
	return &ModelHealthChecker{
		generator:    generator,
		probeTimeout: 15 * time.Second,
		lastStatus:   ModelStatusUnknown,
	}
}

// Status returns the outcome of the most recent probe
func (j *ModelHealthChecker) Status() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastStatus
}

func (j *ModelHealthChecker) setStatus(status string) {
	j.mu.Lock()
	j.lastStatus = status
	j.mu.Unlock()
}

// Run sends the probe prompt and logs the outcome
func (j *ModelHealthChecker) Run(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, j.probeTimeout)
	defer cancel()

	text, err := j.generator.Generate(probeCtx, `Reply with exactly this JSON and nothing else: {"status":"ok"}`)
	if err != nil {
		reason := services.ClassifyFailure(err)
		log.Printf("⚠️ [MODEL-HEALTH] Provider probe failed (%s): %v", reason, err)
		j.setStatus(ModelStatusUnhealthy)
		// Probe failures are expected when the provider is down; not a job error
		return nil
	}

	if !strings.Contains(text, "ok") {
		log.Printf("⚠️ [MODEL-HEALTH] Provider responded but off-script: %q", text)
		j.setStatus(ModelStatusUnhealthy)
		return nil
	}

	log.Printf("✅ [MODEL-HEALTH] Provider healthy")
	j.setStatus(ModelStatusHealthy)
	return nil
}
