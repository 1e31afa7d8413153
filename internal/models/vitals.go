package models

import (
	"errors"
	"fmt"
	"time"
)

// Mood is the self-reported mood attached to a vitals record
type Mood string

const (
	MoodGreat    Mood = "great"
	MoodGood     Mood = "good"
	MoodOkay     Mood = "okay"
	MoodStressed Mood = "stressed"
	MoodTired    Mood = "tired"
	MoodUnwell   Mood = "unwell"
)

// ValidMoods lists every accepted mood value
var ValidMoods = []Mood{MoodGreat, MoodGood, MoodOkay, MoodStressed, MoodTired, MoodUnwell}

// IsValid reports whether the mood is one of the accepted values
func (m Mood) IsValid() bool {
	for _, v := range ValidMoods {
		if m == v {
			return true
		}
	}
	return false
}

// MaxNotesLength caps the free-text notes on a record
const MaxNotesLength = 500

// VitalsRecord is one logged observation. Records are immutable once
// created: the API can delete them but never edits them in place.
type VitalsRecord struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"userId" json:"-"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
	SystolicBP  *int      `bson:"systolicBp,omitempty" json:"systolicBP,omitempty"`
	DiastolicBP *int      `bson:"diastolicBp,omitempty" json:"diastolicBP,omitempty"`
	HeartRate   *int      `bson:"heartRate,omitempty" json:"heartRate,omitempty"`
	Weight      *float64  `bson:"weight,omitempty" json:"weight,omitempty"`
	Temperature *float64  `bson:"temperature,omitempty" json:"temperature,omitempty"`
	Mood        Mood      `bson:"mood,omitempty" json:"mood,omitempty"`
	Notes       string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
}

// NumericField identifies one trackable numeric vital on a record
type NumericField string

const (
	FieldSystolicBP  NumericField = "systolicBP"
	FieldDiastolicBP NumericField = "diastolicBP"
	FieldHeartRate   NumericField = "heartRate"
	FieldWeight      NumericField = "weight"
	FieldTemperature NumericField = "temperature"
)

// NumericFields lists the numeric vitals in a stable order (used by the
// aggregator so output maps are built deterministically)
var NumericFields = []NumericField{
	FieldSystolicBP,
	FieldDiastolicBP,
	FieldHeartRate,
	FieldWeight,
	FieldTemperature,
}

// TotalTrackableFields is the denominator for the completeness score:
// the five numeric vitals plus mood.
const TotalTrackableFields = 6

// NumericValue returns the value of a numeric field and whether it is set
func (r *VitalsRecord) NumericValue(field NumericField) (float64, bool) {
	switch field {
	case FieldSystolicBP:
		if r.SystolicBP != nil {
			return float64(*r.SystolicBP), true
		}
	case FieldDiastolicBP:
		if r.DiastolicBP != nil {
			return float64(*r.DiastolicBP), true
		}
	case FieldHeartRate:
		if r.HeartRate != nil {
			return float64(*r.HeartRate), true
		}
	case FieldWeight:
		if r.Weight != nil {
			return *r.Weight, true
		}
	case FieldTemperature:
		if r.Temperature != nil {
			return *r.Temperature, true
		}
	}
	return 0, false
}

// FilledFieldCount counts how many trackable fields the record carries
func (r *VitalsRecord) FilledFieldCount() int {
	count := 0
	for _, field := range NumericFields {
		if _, ok := r.NumericValue(field); ok {
			count++
		}
	}
	if r.Mood != "" {
		count++
	}
	return count
}

// Validate checks the record invariants before it is stored
func (r *VitalsRecord) Validate(now time.Time) error {
	if r.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	if r.Timestamp.After(now) {
		return errors.New("timestamp cannot be in the future")
	}

	// Blood pressure values are co-required
	if (r.SystolicBP == nil) != (r.DiastolicBP == nil) {
		return errors.New("systolic and diastolic blood pressure must be provided together")
	}
	if r.SystolicBP != nil && *r.SystolicBP <= *r.DiastolicBP {
		return errors.New("systolic blood pressure must be greater than diastolic")
	}

	if r.Mood != "" && !r.Mood.IsValid() {
		return fmt.Errorf("invalid mood %q", r.Mood)
	}

	if len(r.Notes) > MaxNotesLength {
		return fmt.Errorf("notes exceed %d characters", MaxNotesLength)
	}

	// A record with nothing on it carries no signal
	if r.FilledFieldCount() == 0 {
		return errors.New("record must include at least one vital measurement or a mood")
	}

	return nil
}

// CreateVitalsRequest is the POST /api/vitals payload
type CreateVitalsRequest struct {
	Timestamp   *time.Time `json:"timestamp,omitempty"` // defaults to now
	SystolicBP  *int       `json:"systolicBP,omitempty"`
	DiastolicBP *int       `json:"diastolicBP,omitempty"`
	HeartRate   *int       `json:"heartRate,omitempty"`
	Weight      *float64   `json:"weight,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"`
	Mood        string     `json:"mood,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}
