package models

// StabilityAssessment is the bounded stability score with rationale and a
// short-horizon (48-72h) risk forecast. Produced fresh on every request;
// never persisted by the engine itself.
type StabilityAssessment struct {
	Score        int    `json:"score"` // 0-100
	Summary      string `json:"summary"`
	RiskForecast string `json:"riskForecast"`
}

// NudgeSet holds the three categorized behavioral recommendations
type NudgeSet struct {
	Diet         string `json:"diet"`
	PersonalCare string `json:"personalCare"`
	Social       string `json:"social"`
}

// FailureReason classifies why a model-backed operation fell back to its
// deterministic default. Used for logging and metrics only: the fallback is
// produced regardless of the reason.
type FailureReason string

const (
	FailureQuotaExceeded   FailureReason = "quota_exceeded"
	FailureContentBlocked  FailureReason = "content_blocked"
	FailureConfigError     FailureReason = "config_error"
	FailureTransient       FailureReason = "transient_failure"
	FailureMalformedOutput FailureReason = "malformed_output"
)
