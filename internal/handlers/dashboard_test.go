package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"vitalsense/internal/models"
)

type stubAnalyticsSource struct {
	stats   *models.Statistics
	trends  models.TrendReport
	quality models.DataQualityScore
	err     error
}

func (s *stubAnalyticsSource) GetStatistics(ctx context.Context, userID string, windowDays int) (*models.Statistics, error) {
	return s.stats, s.err
}

func (s *stubAnalyticsSource) GetTrends(ctx context.Context, userID string, windowDays int) (models.TrendReport, error) {
	return s.trends, s.err
}

func (s *stubAnalyticsSource) GetDataQuality(ctx context.Context, userID string, windowDays int) (models.DataQualityScore, error) {
	return s.quality, s.err
}

func testAnalytics() *stubAnalyticsSource {
	return &stubAnalyticsSource{
		stats: &models.Statistics{
			Averages:    map[string]float64{"heartRate": 72},
			RecordCount: 3,
		},
		trends:  models.TrendReport{},
		quality: models.DataQualityScore{Score: 74, Completeness: 80, Consistency: 65},
	}
}

func newDashboardApp(h *DashboardHandler, userID string) *fiber.App {
	app := fiber.New()
	app.Use(setUser(userID))
	app.Get("/api/dashboard", h.Get)
	return app
}

func getDashboard(t *testing.T, app *fiber.App) (int, map[string]interface{}) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/dashboard", nil))
	if err != nil {
		t.Fatalf("dashboard request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode dashboard response: %v", err)
	}
	return resp.StatusCode, body
}

func TestDashboardAggregationsSurviveModelFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("provider down")}
	profiles := &stubProfileSource{account: testAccount()}
	vitals := &stubVitalsSource{records: []models.VitalsRecord{testHeartRateRecord(2), testHeartRateRecord(26)}}
	insights := newTestInsightsHandler(t, gen, profiles, vitals)
	h := NewDashboardHandler(profiles, vitals, testAnalytics(), insights, 30)

	status, body := getDashboard(t, newDashboardApp(h, "user-1"))
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}

	stats, ok := body["statistics"].(map[string]interface{})
	if !ok {
		t.Fatalf("statistics missing from response: %v", body["statistics"])
	}
	averages, ok := stats["averages"].(map[string]interface{})
	if !ok || averages["heartRate"] != 72.0 {
		t.Fatalf("statistics averages = %v, want heartRate 72", stats["averages"])
	}
	if body["quality"] == nil {
		t.Fatal("quality missing from response")
	}
	if body["recent_vitals"] == nil {
		t.Fatal("recent_vitals missing from response")
	}

	// The engine degrades instead of erroring, so the section is present
	// with the fallback score and nothing lands in partial_errors
	stability, ok := body["stability"].(map[string]interface{})
	if !ok {
		t.Fatalf("stability missing from response: %v", body["stability"])
	}
	if stability["score"] != 65.0 {
		t.Fatalf("stability score = %v, want 65 when the model fails", stability["score"])
	}
	if _, present := body["partial_errors"]; present {
		t.Fatalf("partial_errors = %v, want absent", body["partial_errors"])
	}
}

func TestDashboardNamesFailedSections(t *testing.T) {
	gen := &stubGenerator{response: insightJSON}
	profiles := &stubProfileSource{account: testAccount(), profileErr: errors.New("profile read failed")}
	vitals := &stubVitalsSource{records: []models.VitalsRecord{testHeartRateRecord(2)}}
	insights := newTestInsightsHandler(t, gen, profiles, vitals)
	h := NewDashboardHandler(profiles, vitals, testAnalytics(), insights, 30)

	status, body := getDashboard(t, newDashboardApp(h, "user-1"))
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}

	if body["statistics"] == nil {
		t.Fatal("statistics should survive insight section failures")
	}
	if body["stability"] != nil {
		t.Fatalf("stability = %v, want null for a failed section", body["stability"])
	}

	raw, ok := body["partial_errors"].([]interface{})
	if !ok {
		t.Fatalf("partial_errors missing: %v", body["partial_errors"])
	}
	failed := make(map[string]bool, len(raw))
	for _, section := range raw {
		name, _ := section.(string)
		failed[name] = true
	}
	if !failed["stability"] || !failed["nudges"] {
		t.Fatalf("partial_errors = %v, want stability and nudges", raw)
	}
}

func TestDashboardUnknownUser(t *testing.T) {
	gen := &stubGenerator{response: insightJSON}
	profiles := &stubProfileSource{accountErr: errors.New("not found")}
	vitals := &stubVitalsSource{}
	insights := newTestInsightsHandler(t, gen, profiles, vitals)
	h := NewDashboardHandler(profiles, vitals, testAnalytics(), insights, 30)

	status, _ := getDashboard(t, newDashboardApp(h, "missing-user"))
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", status, http.StatusNotFound)
	}
}
