package models

import (
	"fmt"
	"time"
)

// MaxConditions limits how many condition labels a profile can carry
const MaxConditions = 5

// Known condition labels. The insight engine maps each of these onto a
// reference dataset; anything else falls back to the default dataset.
const (
	ConditionHypertension    = "Hypertension"
	ConditionType1Diabetes   = "Type 1 Diabetes"
	ConditionType2Diabetes   = "Type 2 Diabetes"
	ConditionHeartDisease    = "Heart Disease"
	ConditionArrhythmia      = "Arrhythmia"
	ConditionHighCholesterol = "High Cholesterol"
	ConditionObesity         = "Obesity"
)

// KnownConditions lists every condition label the profile API accepts
var KnownConditions = []string{
	ConditionHypertension,
	ConditionType1Diabetes,
	ConditionType2Diabetes,
	ConditionHeartDisease,
	ConditionArrhythmia,
	ConditionHighCholesterol,
	ConditionObesity,
}

// IsKnownCondition reports whether the label is one the system recognizes
func IsKnownCondition(label string) bool {
	for _, c := range KnownConditions {
		if c == label {
			return true
		}
	}
	return false
}

// User is an account stored in MongoDB
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	DisplayName  string    `bson:"displayName" json:"display_name"`
	Conditions   []string  `bson:"conditions" json:"conditions"`
	CreatedAt    time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updated_at"`
}

// UserHealthProfile is the read-only view of a user the insight engine consumes
type UserHealthProfile struct {
	DisplayName string   `json:"displayName"`
	Conditions  []string `json:"conditions"`
}

// Profile returns the health profile view of the user
func (u *User) Profile() *UserHealthProfile {
	conditions := make([]string, len(u.Conditions))
	copy(conditions, u.Conditions)
	return &UserHealthProfile{
		DisplayName: u.DisplayName,
		Conditions:  conditions,
	}
}

// ValidateConditions checks a condition list against the known labels
func ValidateConditions(conditions []string) error {
	if len(conditions) > MaxConditions {
		return fmt.Errorf("at most %d conditions allowed, got %d", MaxConditions, len(conditions))
	}
	seen := make(map[string]bool, len(conditions))
	for _, c := range conditions {
		if !IsKnownCondition(c) {
			return fmt.Errorf("unknown condition %q", c)
		}
		if seen[c] {
			return fmt.Errorf("duplicate condition %q", c)
		}
		seen[c] = true
	}
	return nil
}

// RegisterRequest is the POST /api/auth/register payload
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the POST /api/auth/login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the PUT /api/profile payload
type UpdateProfileRequest struct {
	DisplayName *string   `json:"display_name,omitempty"`
	Conditions  *[]string `json:"conditions,omitempty"`
}
