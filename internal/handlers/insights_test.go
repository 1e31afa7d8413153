package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"vitalsense/internal/datasets"
	"vitalsense/internal/models"
	"vitalsense/internal/services"
)

// stubGenerator is a deterministic TextGenerator that counts invocations
type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

// insightJSON satisfies both the scoring and the nudge parser
const insightJSON = `{
	"score": 82,
	"summary": "Vitals steady across the window.",
	"riskForecast": "Low risk of change over the next 48 hours.",
	"diet": "Add a vegetable to lunch today.",
	"personalCare": "Take a ten minute walk.",
	"social": "Check in with a friend."
}`

type stubProfileSource struct {
	account    *models.User
	accountErr error
	profileErr error
}

func (s *stubProfileSource) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if s.accountErr != nil {
		return nil, s.accountErr
	}
	return s.account, nil
}

func (s *stubProfileSource) GetProfile(ctx context.Context, userID string) (*models.UserHealthProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.account.Profile(), nil
}

type stubVitalsSource struct {
	records []models.VitalsRecord
	err     error
}

func (s *stubVitalsSource) GetRecentVitals(ctx context.Context, userID string, windowDays, limit int) ([]models.VitalsRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.records) {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func (s *stubVitalsSource) GetLatestVitals(ctx context.Context, userID string, count int) ([]models.VitalsRecord, error) {
	return s.GetRecentVitals(ctx, userID, 0, count)
}

const handlerDatasetYAML = `key: %s
display_name: Test Dataset
description: Exemplars for tests.
exemplars:
  - label: stable
    systolic_bp: 118
    diastolic_bp: 78
    heart_rate: 70
    description: Well controlled.
  - label: at_risk
    systolic_bp: 145
    diastolic_bp: 92
    heart_rate: 85
    description: Creeping upward.
  - label: critical
    systolic_bp: 180
    diastolic_bp: 110
    heart_rate: 105
    description: Requires attention.
`

func handlerTestStore(t *testing.T) *datasets.Store {
	t.Helper()

	dir := t.TempDir()
	for _, key := range []string{datasets.KeyHypertension, datasets.KeyDiabetes, datasets.KeyGeneralCardiovascular} {
		content := strings.Replace(handlerDatasetYAML, "%s", key, 1)
		if err := os.WriteFile(filepath.Join(dir, key+".yaml"), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test dataset: %v", err)
		}
	}

	store, err := datasets.Load(dir)
	if err != nil {
		t.Fatalf("failed to load test datasets: %v", err)
	}
	return store
}

func testAccount() *models.User {
	return &models.User{
		ID:          "user-1",
		Email:       "riley@example.com",
		DisplayName: "Riley",
		Conditions:  []string{models.ConditionHypertension},
	}
}

func testHeartRateRecord(hoursAgo int) models.VitalsRecord {
	rate := 72
	return models.VitalsRecord{
		ID:        "rec-1",
		UserID:    "user-1",
		Timestamp: time.Now().Add(-time.Duration(hoursAgo) * time.Hour),
		HeartRate: &rate,
	}
}

func newTestInsightsHandler(t *testing.T, gen services.TextGenerator, profiles ProfileSource, vitals VitalsSource) *InsightsHandler {
	t.Helper()

	engine, err := services.NewInsightService(handlerTestStore(t), gen, services.DefaultInsightPolicy())
	if err != nil {
		t.Fatalf("failed to build insight service: %v", err)
	}

	return NewInsightsHandler(InsightsHandlerConfig{
		UserService:    profiles,
		VitalsService:  vitals,
		InsightService: engine,
		InsightCache:   services.NewInsightCache(nil, time.Minute),
		WindowDays:     30,
		ScoringRecords: 10,
		NudgeRecords:   1,
	})
}

// setUser stands in for the auth middleware
func setUser(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func TestStabilityForServesCacheWithinTTL(t *testing.T) {
	gen := &stubGenerator{response: insightJSON}
	profiles := &stubProfileSource{account: testAccount()}
	vitals := &stubVitalsSource{records: []models.VitalsRecord{testHeartRateRecord(2)}}
	h := newTestInsightsHandler(t, gen, profiles, vitals)
	ctx := context.Background()

	first, cached, err := h.StabilityFor(ctx, "user-1")
	if err != nil {
		t.Fatalf("StabilityFor: %v", err)
	}
	if cached {
		t.Fatal("first call should not be served from cache")
	}
	if first.Score != 82 {
		t.Fatalf("score = %d, want 82", first.Score)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}

	second, cached, err := h.StabilityFor(ctx, "user-1")
	if err != nil {
		t.Fatalf("StabilityFor: %v", err)
	}
	if !cached {
		t.Fatal("second call within the TTL should be served from cache")
	}
	if second.Score != first.Score {
		t.Fatalf("cached score = %d, want %d", second.Score, first.Score)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d after cached read, want 1", gen.calls)
	}
}

func TestNudgesForServesCacheWithinTTL(t *testing.T) {
	gen := &stubGenerator{response: insightJSON}
	profiles := &stubProfileSource{account: testAccount()}
	vitals := &stubVitalsSource{records: []models.VitalsRecord{testHeartRateRecord(2)}}
	h := newTestInsightsHandler(t, gen, profiles, vitals)
	ctx := context.Background()

	if _, _, err := h.NudgesFor(ctx, "user-1"); err != nil {
		t.Fatalf("NudgesFor: %v", err)
	}
	nudges, cached, err := h.NudgesFor(ctx, "user-1")
	if err != nil {
		t.Fatalf("NudgesFor: %v", err)
	}
	if !cached {
		t.Fatal("second call within the TTL should be served from cache")
	}
	if nudges.Diet == "" || nudges.PersonalCare == "" || nudges.Social == "" {
		t.Fatalf("cached nudges incomplete: %+v", nudges)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
}

func TestRefreshRecomputesInsights(t *testing.T) {
	gen := &stubGenerator{response: insightJSON}
	profiles := &stubProfileSource{account: testAccount()}
	vitals := &stubVitalsSource{records: []models.VitalsRecord{testHeartRateRecord(2)}}
	h := newTestInsightsHandler(t, gen, profiles, vitals)
	ctx := context.Background()

	// Prime both cache entries
	if _, _, err := h.StabilityFor(ctx, "user-1"); err != nil {
		t.Fatalf("StabilityFor: %v", err)
	}
	if _, _, err := h.NudgesFor(ctx, "user-1"); err != nil {
		t.Fatalf("NudgesFor: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("generator calls = %d after priming, want 2", gen.calls)
	}

	app := fiber.New()
	app.Use(setUser("user-1"))
	app.Post("/api/insights/refresh", h.Refresh)

	req := httptest.NewRequest("POST", "/api/insights/refresh", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("refresh request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
	if gen.calls != 4 {
		t.Fatalf("generator calls = %d after refresh, want 4 (both insights recomputed)", gen.calls)
	}
}

func TestStabilityForPropagatesDataAccessErrors(t *testing.T) {
	gen := &stubGenerator{response: insightJSON}
	profiles := &stubProfileSource{account: testAccount(), profileErr: errors.New("profile read failed")}
	vitals := &stubVitalsSource{records: []models.VitalsRecord{testHeartRateRecord(2)}}
	h := newTestInsightsHandler(t, gen, profiles, vitals)

	if _, _, err := h.StabilityFor(context.Background(), "user-1"); err == nil {
		t.Fatal("expected an error when the profile cannot be loaded")
	}
	if gen.calls != 0 {
		t.Fatalf("generator calls = %d, want 0 when the profile load fails", gen.calls)
	}
}
