package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"vitalsense/internal/datasets"
	"vitalsense/internal/models"
)

// stubGenerator is a deterministic TextGenerator for exercising the engine
// without a provider
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

const testDatasetYAML = `key: %s
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

// testStore loads a dataset store with the three required documents from a
// temp dir
func testStore(t *testing.T) *datasets.Store {
	t.Helper()

	dir := t.TempDir()
	for _, key := range []string{datasets.KeyHypertension, datasets.KeyDiabetes, datasets.KeyGeneralCardiovascular} {
		content := strings.Replace(testDatasetYAML, "%s", key, 1)
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

func testInsightService(t *testing.T, generator TextGenerator) *InsightService {
	t.Helper()

	service, err := NewInsightService(testStore(t), generator, DefaultInsightPolicy())
	if err != nil {
		t.Fatalf("failed to create insight service: %v", err)
	}
	return service
}

func testProfile(conditions ...string) *models.UserHealthProfile {
	return &models.UserHealthProfile{
		DisplayName: "Riley",
		Conditions:  conditions,
	}
}

func testVitals() []models.VitalsRecord {
	return []models.VitalsRecord{
		{
			ID:          "r1",
			Timestamp:   time.Now().Add(-time.Hour),
			SystolicBP:  intPtr(150),
			DiastolicBP: intPtr(95),
			HeartRate:   intPtr(88),
			Mood:        models.MoodStressed,
		},
	}
}

func TestStabilityScoreColdStart(t *testing.T) {
	generator := &stubGenerator{response: `{"score": 90, "summary": "s", "riskForecast": "r"}`}
	service := testInsightService(t, generator)

	assessment := service.CalculateStabilityScore(context.Background(), testProfile(), nil)

	if generator.calls != 0 {
		t.Errorf("model called %d times on empty history, want 0", generator.calls)
	}
	if assessment.Score != 50 {
		t.Errorf("cold-start score = %d, want 50", assessment.Score)
	}
	if assessment.Summary == "" || assessment.RiskForecast == "" {
		t.Error("cold-start assessment missing summary or forecast")
	}
}

func TestStabilityScoreModelFailure(t *testing.T) {
	failures := []error{
		&ModelError{Reason: models.FailureQuotaExceeded, Message: "quota"},
		&ModelError{Reason: models.FailureContentBlocked, Message: "blocked"},
		&ModelError{Reason: models.FailureConfigError, Message: "no key"},
		errors.New("connection refused"),
	}

	for _, failure := range failures {
		generator := &stubGenerator{err: failure}
		service := testInsightService(t, generator)

		assessment := service.CalculateStabilityScore(context.Background(), testProfile(models.ConditionHypertension), testVitals())

		if assessment == nil {
			t.Fatalf("assessment nil for error %v", failure)
		}
		if assessment.Score != 65 {
			t.Errorf("degraded score = %d for error %v, want 65", assessment.Score, failure)
		}
		if assessment.Summary == "" || assessment.RiskForecast == "" {
			t.Errorf("degraded assessment missing text for error %v", failure)
		}
	}
}

func TestStabilityScoreParsesProseWrappedJSON(t *testing.T) {
	generator := &stubGenerator{
		response: "Here is my analysis:\n```json\n{\"score\": 82, \"summary\": \"Readings look steady.\", \"riskForecast\": \"Low risk over the next 48-72 hours.\"}\n```\nLet me know if you need more.",
	}
	service := testInsightService(t, generator)

	assessment := service.CalculateStabilityScore(context.Background(), testProfile(models.ConditionHypertension), testVitals())

	if assessment.Score != 82 {
		t.Errorf("score = %d, want 82", assessment.Score)
	}
	if assessment.Summary != "Readings look steady." {
		t.Errorf("summary = %q", assessment.Summary)
	}
}

func TestStabilityScoreMalformedOutput(t *testing.T) {
	responses := []string{
		"I'm sorry, I can't help with that.",
		// score out of range
		`{"score": 150, "summary": "s", "riskForecast": "r"}`,
		// missing text fields
		`{"score": 80}`,
		// broken JSON
		`{"score": "high", "summary"}`,
	}

	for _, response := range responses {
		generator := &stubGenerator{response: response}
		service := testInsightService(t, generator)

		assessment := service.CalculateStabilityScore(context.Background(), testProfile(), testVitals())
		if assessment.Score != 65 {
			t.Errorf("score = %d for response %q, want 65", assessment.Score, response)
		}
	}
}

func TestGenerateNudgesDefaultsWithoutVitals(t *testing.T) {
	generator := &stubGenerator{response: `{"diet": "d", "personalCare": "p", "social": "s"}`}
	service := testInsightService(t, generator)

	nudges := service.GenerateNudges(context.Background(), testProfile(), nil)

	if generator.calls != 0 {
		t.Errorf("model called %d times with no vitals, want 0", generator.calls)
	}
	for _, text := range []string{nudges.Diet, nudges.PersonalCare, nudges.Social} {
		if text == "" {
			t.Error("default nudge is empty")
		}
		if !strings.Contains(text, "Riley") {
			t.Errorf("default nudge not personalized: %q", text)
		}
	}
}

func TestGenerateNudgesFallsBackOnFailure(t *testing.T) {
	generator := &stubGenerator{err: errors.New("provider down")}
	service := testInsightService(t, generator)

	nudges := service.GenerateNudges(context.Background(), testProfile(models.ConditionType2Diabetes), testVitals())

	if nudges == nil {
		t.Fatal("nudges nil on model failure")
	}
	if nudges.Diet == "" || nudges.PersonalCare == "" || nudges.Social == "" {
		t.Error("fallback nudges incomplete")
	}
}

func TestGenerateNudgesParsesModelResponse(t *testing.T) {
	generator := &stubGenerator{
		response: `{"diet": "More greens, Riley.", "personalCare": "Sleep early.", "social": "Call a friend."}`,
	}
	service := testInsightService(t, generator)

	nudges := service.GenerateNudges(context.Background(), testProfile(models.ConditionHypertension), testVitals())

	if nudges.Diet != "More greens, Riley." {
		t.Errorf("diet = %q", nudges.Diet)
	}
	if nudges.Social != "Call a friend." {
		t.Errorf("social = %q", nudges.Social)
	}
}

func TestSelectRelevantDatasets(t *testing.T) {
	service := testInsightService(t, &stubGenerator{})

	selected := service.SelectRelevantDatasets([]string{models.ConditionHypertension})
	if len(selected) != 1 {
		t.Fatalf("selected %d datasets, want 1", len(selected))
	}
	dataset, ok := selected[models.ConditionHypertension]
	if !ok {
		t.Fatal("hypertension entry missing")
	}
	if dataset.Key != datasets.KeyHypertension {
		t.Errorf("dataset key = %q, want %q", dataset.Key, datasets.KeyHypertension)
	}

	fallback := service.SelectRelevantDatasets(nil)
	if len(fallback) != 1 {
		t.Fatalf("fallback selected %d datasets, want 1", len(fallback))
	}
	if _, ok := fallback[datasets.GeneralHealthLabel]; !ok {
		t.Errorf("fallback map missing %q entry", datasets.GeneralHealthLabel)
	}
}

func TestExtractJSONObjectRoundTrip(t *testing.T) {
	embedded := map[string]interface{}{
		"score":        float64(77),
		"summary":      "Stable with minor fluctuation {watch BP}.",
		"riskForecast": "Low",
		"nested":       map[string]interface{}{"a": float64(1)},
	}
	payload, err := json.Marshal(embedded)
	if err != nil {
		t.Fatal(err)
	}

	wrappers := []string{
		"%s",
		"Sure! Here is the result: %s",
		"```json\n%s\n```",
		"prefix { not json %s trailing",
		"Analysis follows.\n\n%s\n\nHope that helps!",
	}

	for _, wrapper := range wrappers {
		text := strings.Replace(wrapper, "%s", string(payload), 1)

		raw, ok := ExtractJSONObject(text)
		if !ok {
			t.Errorf("extraction failed for wrapper %q", wrapper)
			continue
		}

		var extracted map[string]interface{}
		if err := json.Unmarshal(raw, &extracted); err != nil {
			t.Errorf("extracted span does not parse for wrapper %q: %v", wrapper, err)
			continue
		}
		if !reflect.DeepEqual(extracted, embedded) {
			t.Errorf("round-trip mismatch for wrapper %q: got %v", wrapper, extracted)
		}
	}
}

func TestExtractJSONObjectNoObject(t *testing.T) {
	texts := []string{
		"",
		"no braces here",
		"{unclosed",
		"{]}",
	}
	for _, text := range texts {
		if _, ok := ExtractJSONObject(text); ok {
			t.Errorf("extraction unexpectedly succeeded for %q", text)
		}
	}
}
