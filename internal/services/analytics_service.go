package services

import (
	"context"
	"math"
	"time"

	"vitalsense/internal/models"
)

// AnalyticsService computes statistics, trend deltas, and data-quality
// scores over a user's vitals window. The computations are pure; only the
// window fetch touches the vitals store.
type AnalyticsService struct {
	vitalsService *VitalsService
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(vitalsService *VitalsService) *AnalyticsService {
	return &AnalyticsService{vitalsService: vitalsService}
}

// GetStatistics returns per-field averages for the window, or nil when the
// window is empty
func (s *AnalyticsService) GetStatistics(ctx context.Context, userID string, windowDays int) (*models.Statistics, error) {
	records, err := s.vitalsService.GetRecentVitals(ctx, userID, windowDays, 0)
	if err != nil {
		return nil, err
	}
	return ComputeStatistics(records), nil
}

// GetTrends returns the per-field trend report for the window, or nil when
// fewer than two records exist
func (s *AnalyticsService) GetTrends(ctx context.Context, userID string, windowDays int) (models.TrendReport, error) {
	records, err := s.vitalsService.GetRecentVitals(ctx, userID, windowDays, 0)
	if err != nil {
		return nil, err
	}
	return ComputeTrends(records), nil
}

// GetDataQuality returns the composite data-quality score for the window
func (s *AnalyticsService) GetDataQuality(ctx context.Context, userID string, windowDays int) (models.DataQualityScore, error) {
	records, err := s.vitalsService.GetRecentVitals(ctx, userID, windowDays, 0)
	if err != nil {
		return models.DataQualityScore{}, err
	}
	return ComputeDataQuality(records, time.Now()), nil
}

// ComputeStatistics averages each numeric field over the window. Only
// present, strictly-positive values count; a field with no valid observation
// is omitted from the map rather than reported as zero. Returns nil for an
// empty window.
func ComputeStatistics(records []models.VitalsRecord) *models.Statistics {
	if len(records) == 0 {
		return nil
	}

	averages := make(map[string]float64)
	for _, field := range models.NumericFields {
		if avg, ok := fieldAverage(records, field); ok {
			averages[string(field)] = avg
		}
	}

	return &models.Statistics{
		Averages:    averages,
		RecordCount: len(records),
	}
}

// ComputeTrends splits the most-recent-first sequence at its midpoint and
// compares per-field means of the recent half against the older half. The
// recent half gets the extra record when the length is odd. Requires at
// least two records; returns nil otherwise.
func ComputeTrends(records []models.VitalsRecord) models.TrendReport {
	if len(records) < 2 {
		return nil
	}

	mid := (len(records) + 1) / 2
	recent := records[:mid]
	older := records[mid:]

	report := models.TrendReport{}
	for _, field := range models.NumericFields {
		recentAvg, recentOK := fieldAverage(recent, field)
		olderAvg, olderOK := fieldAverage(older, field)
		if !recentOK || !olderOK {
			// Fields missing from either half are omitted
			continue
		}

		change := recentAvg - olderAvg
		percentChange := math.Round(change/olderAvg*1000) / 10

		direction := models.TrendStable
		if change > 0 {
			direction = models.TrendUp
		} else if change < 0 {
			direction = models.TrendDown
		}

		report[string(field)] = models.FieldTrend{
			Change:        change,
			PercentChange: percentChange,
			Direction:     direction,
		}
	}

	return report
}

// ComputeDataQuality scores how completely and consistently the user has
// been logging. Completeness is the mean field fill rate across records;
// consistency is logging frequency over the trailing seven days.
func ComputeDataQuality(records []models.VitalsRecord, now time.Time) models.DataQualityScore {
	if len(records) == 0 {
		return models.DataQualityScore{}
	}

	var fillSum float64
	weekCutoff := now.AddDate(0, 0, -7)
	recordsInLast7Days := 0

	for _, record := range records {
		fillSum += float64(record.FilledFieldCount()) / models.TotalTrackableFields
		if record.Timestamp.After(weekCutoff) {
			recordsInLast7Days++
		}
	}

	completeness := fillSum / float64(len(records))
	consistency := math.Min(1, float64(recordsInLast7Days)/7)

	return models.DataQualityScore{
		Score:        int(math.Round(100 * (0.6*completeness + 0.4*consistency))),
		Completeness: int(math.Round(100 * completeness)),
		Consistency:  int(math.Round(100 * consistency)),
	}
}

// fieldAverage averages the present, strictly-positive values of one field.
// The second return is false when the field has no valid observation.
func fieldAverage(records []models.VitalsRecord, field models.NumericField) (float64, bool) {
	var sum float64
	count := 0

	for _, record := range records {
		value, ok := record.NumericValue(field)
		if !ok || value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		sum += value
		count++
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}
