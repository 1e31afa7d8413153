package jobs

import (
	"context"
	"log"
	"time"

	"vitalsense/internal/services"
)

// RetentionCleanupJob purges vitals records older than the retention window.
// Runs off-peak; the retention period is measured against the record's own
// timestamp, not when it was created.
type RetentionCleanupJob struct {
	vitalsService *services.VitalsService
	retentionDays int
}

// NewRetentionCleanupJob creates a retention cleanup job
func NewRetentionCleanupJob(vitalsService *services.VitalsService, retentionDays int) *RetentionCleanupJob {
	return &RetentionCleanupJob{
		vitalsService: vitalsService,
		retentionDays: retentionDays,
	}
}

// Run deletes records older than the retention window
func (j *RetentionCleanupJob) Run(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)

	deleted, err := j.vitalsService.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("❌ [RETENTION] Failed to purge old vitals records: %v", err)
		return err
	}

	if deleted > 0 {
		log.Printf("🧹 [RETENTION] Purged %d vitals records older than %s",
			deleted, cutoff.Format(time.RFC3339))
	}

	return nil
}
