package models

// ExemplarLabel classifies a reference pattern
type ExemplarLabel string

const (
	ExemplarStable   ExemplarLabel = "stable"
	ExemplarAtRisk   ExemplarLabel = "at_risk"
	ExemplarCritical ExemplarLabel = "critical"
)

// IsValid reports whether the label is one of the three known classes
func (l ExemplarLabel) IsValid() bool {
	return l == ExemplarStable || l == ExemplarAtRisk || l == ExemplarCritical
}

// PatternExemplar is one labeled vital-sign pattern in a reference dataset.
// It is shaped like a partial vitals record plus descriptive text.
type PatternExemplar struct {
	Label       ExemplarLabel `yaml:"label" json:"label"`
	SystolicBP  *int          `yaml:"systolic_bp,omitempty" json:"systolicBP,omitempty"`
	DiastolicBP *int          `yaml:"diastolic_bp,omitempty" json:"diastolicBP,omitempty"`
	HeartRate   *int          `yaml:"heart_rate,omitempty" json:"heartRate,omitempty"`
	Weight      *float64      `yaml:"weight,omitempty" json:"weight,omitempty"`
	Temperature *float64      `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	Description string        `yaml:"description" json:"description"`
}

// ReferenceDataset is an immutable, condition-keyed table of labeled pattern
// exemplars. Loaded once at process start; read-only thereafter.
type ReferenceDataset struct {
	Key         string            `yaml:"key" json:"key"`
	DisplayName string            `yaml:"display_name" json:"display_name"`
	Description string            `yaml:"description" json:"description"`
	Exemplars   []PatternExemplar `yaml:"exemplars" json:"exemplars"`
}
