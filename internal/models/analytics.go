package models

// TrendDirection labels the sign of a per-field change
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Statistics holds per-field averages over a vitals window. Fields with no
// valid observation in the window are omitted from the map entirely.
type Statistics struct {
	Averages    map[string]float64 `json:"averages"`
	RecordCount int                `json:"recordCount"`
}

// FieldTrend compares the mean of the chronologically earlier half of a
// window against the later half for one numeric field
type FieldTrend struct {
	Change        float64        `json:"change"`
	PercentChange float64        `json:"percentChange"` // one decimal place
	Direction     TrendDirection `json:"direction"`
}

// TrendReport maps numeric field names to their window trend. Fields missing
// from either half of the window are omitted.
type TrendReport map[string]FieldTrend

// DataQualityScore is the composite of logging completeness and consistency
// over a window
type DataQualityScore struct {
	Score        int `json:"score"`        // 0-100, 0.6*completeness + 0.4*consistency
	Completeness int `json:"completeness"` // 0-100, mean field fill rate
	Consistency  int `json:"consistency"`  // 0-100, records in last 7 days / 7
}
