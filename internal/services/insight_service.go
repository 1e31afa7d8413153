package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"vitalsense/internal/datasets"
	"vitalsense/internal/logging"
	"vitalsense/internal/models"
)

// InsightPolicy holds the tunable constants of the insight engine. The
// scores are heuristics with no clinical derivation, so they are injected
// rather than hard-coded.
type InsightPolicy struct {
	ColdStartScore int // returned when a user has no recent vitals
	DegradedScore  int // returned when the model call or parse fails
	ScoringRecords int // most recent records embedded in the scoring prompt
	NudgeRecords   int // latest records embedded in the nudge prompt
}

// DefaultInsightPolicy mirrors the configuration defaults
func DefaultInsightPolicy() InsightPolicy {
	return InsightPolicy{
		ColdStartScore: 50,
		DegradedScore:  65,
		ScoringRecords: 10,
		NudgeRecords:   1,
	}
}

// InsightService turns a user's conditions and recent vitals into a
// stability assessment and behavioral nudges. Stateless across invocations:
// the only held state is the immutable reference dataset store and the
// injected model client. Both public operations are total with respect to
// model failures - they always return a well-formed value.
type InsightService struct {
	store     *datasets.Store
	generator TextGenerator
	policy    InsightPolicy
}

// NewInsightService creates the insight engine. A nil dataset store or
// generator is a wiring bug, reported at construction so startup can abort.
func NewInsightService(store *datasets.Store, generator TextGenerator, policy InsightPolicy) (*InsightService, error) {
	if store == nil {
		return nil, errors.New("insight service requires a reference dataset store")
	}
	if generator == nil {
		return nil, errors.New("insight service requires a text generator")
	}
	if policy.ScoringRecords <= 0 {
		policy.ScoringRecords = 10
	}
	if policy.NudgeRecords <= 0 {
		policy.NudgeRecords = 1
	}
	return &InsightService{store: store, generator: generator, policy: policy}, nil
}

// SelectRelevantDatasets exposes dataset selection for callers that report
// which reference data backed an assessment
func (s *InsightService) SelectRelevantDatasets(conditions []string) map[string]*models.ReferenceDataset {
	return s.store.SelectRelevant(conditions)
}

// CalculateStabilityScore produces the bounded stability assessment for the
// user's recent vitals window (most-recent-first, up to 30 days).
func (s *InsightService) CalculateStabilityScore(ctx context.Context, profile *models.UserHealthProfile, recentVitals []models.VitalsRecord) *models.StabilityAssessment {
	// No data means no signal worth a model call
	if len(recentVitals) == 0 {
		return s.coldStartAssessment()
	}

	selected := s.store.SelectRelevant(profile.Conditions)
	prompt := buildStabilityPrompt(profile, selected, capRecords(recentVitals, s.policy.ScoringRecords))

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.recordFallback("stability", ClassifyFailure(err), err)
		return s.degradedAssessment()
	}
	s.recordModelCall("success")

	parsed, ok := parseStabilityResponse(text)
	if !ok {
		log.Printf("⚠️ [INSIGHT] Stability response unparseable, falling back (%d chars)", len(text))
		s.recordFallback("stability", models.FailureMalformedOutput, nil)
		return s.degradedAssessment()
	}

	return parsed
}

// GenerateNudges produces the three categorized behavioral recommendations
// from the latest vitals (up to 3 records).
func (s *InsightService) GenerateNudges(ctx context.Context, profile *models.UserHealthProfile, latestVitals []models.VitalsRecord) *models.NudgeSet {
	if len(latestVitals) == 0 {
		return s.defaultNudges(profile)
	}

	selected := s.store.SelectRelevant(profile.Conditions)
	prompt := buildNudgePrompt(profile, selected, capRecords(latestVitals, s.policy.NudgeRecords))

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.recordFallback("nudges", ClassifyFailure(err), err)
		return s.defaultNudges(profile)
	}
	s.recordModelCall("success")

	parsed, ok := parseNudgeResponse(text)
	if !ok {
		log.Printf("⚠️ [INSIGHT] Nudge response unparseable, falling back (%d chars)", len(text))
		s.recordFallback("nudges", models.FailureMalformedOutput, nil)
		return s.defaultNudges(profile)
	}

	return parsed
}

func (s *InsightService) coldStartAssessment() *models.StabilityAssessment {
	return &models.StabilityAssessment{
		Score:        s.policy.ColdStartScore,
		Summary:      "Not enough recent readings to assess stability yet. Log your vitals for a few days and check back for a personalized picture.",
		RiskForecast: "No elevated risk signals can be identified without recent data. Keep logging daily so changes are caught early.",
	}
}

func (s *InsightService) degradedAssessment() *models.StabilityAssessment {
	return &models.StabilityAssessment{
		Score:        s.policy.DegradedScore,
		Summary:      "We couldn't run a full analysis just now, so this is a provisional view based on your recent logging. Your readings are recorded and nothing urgent was flagged.",
		RiskForecast: "Continue your usual routine over the next 48-72 hours and retry the analysis later. Contact a clinician if you feel unwell regardless of this score.",
	}
}

// defaultNudges are the deterministic name-personalized recommendations used
// when there is no data or the model is unavailable
func (s *InsightService) defaultNudges(profile *models.UserHealthProfile) *models.NudgeSet {
	name := strings.TrimSpace(profile.DisplayName)
	if name == "" {
		name = "there"
	}

	return &models.NudgeSet{
		Diet:         fmt.Sprintf("Hi %s - aim for balanced meals today with plenty of vegetables, and keep an eye on salt if blood pressure is a concern.", name),
		PersonalCare: fmt.Sprintf("%s, a consistent routine helps: take medications on schedule, log today's vitals, and try to get 7-8 hours of sleep.", name),
		Social:       fmt.Sprintf("Reach out to a friend or family member today, %s - even a short call or walk together supports long-term health.", name),
	}
}

// recordFallback logs a degraded analysis with its classification and counts
// it in the metrics. err is nil for malformed output.
func (s *InsightService) recordFallback(operation string, reason models.FailureReason, err error) {
	logger := logging.WithAnalysis(slog.Default(), operation)
	if err != nil {
		logger.Warn("falling back to deterministic result", "reason", string(reason), "error", err)
	} else {
		logger.Warn("falling back to deterministic result", "reason", string(reason))
	}

	if m := GetMetrics(); m != nil {
		m.RecordModelCall(string(reason))
		m.RecordFallback(operation, string(reason))
	}
}

func (s *InsightService) recordModelCall(outcome string) {
	if m := GetMetrics(); m != nil {
		m.RecordModelCall(outcome)
	}
}

// capRecords bounds the number of records embedded in a prompt
func capRecords(records []models.VitalsRecord, max int) []models.VitalsRecord {
	if len(records) <= max {
		return records
	}
	return records[:max]
}

// promptRecord is the trimmed record view serialized into prompts
type promptRecord struct {
	Timestamp   string   `json:"timestamp"`
	SystolicBP  *int     `json:"systolicBP,omitempty"`
	DiastolicBP *int     `json:"diastolicBP,omitempty"`
	HeartRate   *int     `json:"heartRate,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Mood        string   `json:"mood,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

func serializeRecords(records []models.VitalsRecord) string {
	trimmed := make([]promptRecord, 0, len(records))
	for _, r := range records {
		trimmed = append(trimmed, promptRecord{
			Timestamp:   r.Timestamp.Format(time.RFC3339),
			SystolicBP:  r.SystolicBP,
			DiastolicBP: r.DiastolicBP,
			HeartRate:   r.HeartRate,
			Weight:      r.Weight,
			Temperature: r.Temperature,
			Mood:        string(r.Mood),
			Notes:       r.Notes,
		})
	}
	data, _ := json.MarshalIndent(trimmed, "", "  ")
	return string(data)
}

func serializeDatasets(selected map[string]*models.ReferenceDataset) string {
	data, _ := json.MarshalIndent(selected, "", "  ")
	return string(data)
}

func conditionList(profile *models.UserHealthProfile) string {
	if len(profile.Conditions) == 0 {
		return "none reported (general health tracking)"
	}
	return strings.Join(profile.Conditions, ", ")
}

func buildStabilityPrompt(profile *models.UserHealthProfile, selected map[string]*models.ReferenceDataset, records []models.VitalsRecord) string {
	return fmt.Sprintf(`You are a health stability analyst for a chronic-condition self-tracking app.

Patient conditions: %s

Reference patterns (labeled exemplars per condition):
%s

Recent vitals, most recent first:
%s

Compare the recent vitals against the reference patterns and assess overall stability.
Respond with ONLY one JSON object, no other text:
{"score": <integer 0-100, higher is more stable>, "summary": "<2-3 sentence plain-language rationale>", "riskForecast": "<what to watch for over the next 48-72 hours>"}`,
		conditionList(profile), serializeDatasets(selected), serializeRecords(records))
}

func buildNudgePrompt(profile *models.UserHealthProfile, selected map[string]*models.ReferenceDataset, records []models.VitalsRecord) string {
	name := strings.TrimSpace(profile.DisplayName)
	if name == "" {
		name = "the user"
	}

	return fmt.Sprintf(`You are a supportive health coach for a chronic-condition self-tracking app.

User: %s
Conditions: %s

Reference patterns for their conditions:
%s

Latest vitals reading:
%s

Write three short, encouraging, personalized recommendations. Address the user by name.
Respond with ONLY one JSON object, no other text:
{"diet": "<one diet recommendation>", "personalCare": "<one personal-care recommendation>", "social": "<one social activity recommendation>"}`,
		name, conditionList(profile), serializeDatasets(selected), serializeRecords(records))
}

// parseStabilityResponse extracts and validates the assessment JSON from
// free-form model output
func parseStabilityResponse(text string) (*models.StabilityAssessment, bool) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return nil, false
	}

	var parsed struct {
		Score        *int   `json:"score"`
		Summary      string `json:"summary"`
		RiskForecast string `json:"riskForecast"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, false
	}

	if parsed.Score == nil || *parsed.Score < 0 || *parsed.Score > 100 {
		return nil, false
	}
	if strings.TrimSpace(parsed.Summary) == "" || strings.TrimSpace(parsed.RiskForecast) == "" {
		return nil, false
	}

	return &models.StabilityAssessment{
		Score:        *parsed.Score,
		Summary:      parsed.Summary,
		RiskForecast: parsed.RiskForecast,
	}, true
}

// parseNudgeResponse extracts and validates the nudge JSON
func parseNudgeResponse(text string) (*models.NudgeSet, bool) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return nil, false
	}

	var parsed models.NudgeSet
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, false
	}

	if strings.TrimSpace(parsed.Diet) == "" ||
		strings.TrimSpace(parsed.PersonalCare) == "" ||
		strings.TrimSpace(parsed.Social) == "" {
		return nil, false
	}

	return &parsed, true
}

// ExtractJSONObject locates the first balanced {...} span in free-form text
// that parses as a JSON object. Models are not guaranteed to return only
// JSON, so prose and markdown fences around the object are tolerated.
func ExtractJSONObject(text string) (json.RawMessage, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}

		end, ok := balancedSpan(text, start)
		if !ok {
			// This opener never closes; an opener nested inside it still
			// can, so keep scanning
			continue
		}

		candidate := text[start : end+1]
		var probe map[string]json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
			return json.RawMessage(candidate), true
		}

		// Balanced but not valid JSON; keep scanning after this opener
	}

	return nil, false
}

// balancedSpan returns the index of the brace closing the object opened at
// start, tracking string literals and escapes
func balancedSpan(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if escaped {
			escaped = false
			continue
		}

		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}
