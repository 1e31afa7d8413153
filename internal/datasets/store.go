package datasets

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"vitalsense/internal/models"
)

// Dataset keys. One dataset may serve several condition labels.
const (
	KeyHypertension          = "hypertension"
	KeyDiabetes              = "diabetes"
	KeyGeneralCardiovascular = "general_cardiovascular"
)

// GeneralHealthLabel is the map key used when no condition matches a dataset
const GeneralHealthLabel = "General Health"

// conditionDatasetMap is the explicit condition -> dataset table. Labels not
// present here fall through to the default dataset.
var conditionDatasetMap = map[string]string{
	models.ConditionHypertension:    KeyHypertension,
	models.ConditionType1Diabetes:   KeyDiabetes,
	models.ConditionType2Diabetes:   KeyDiabetes,
	models.ConditionHeartDisease:    KeyGeneralCardiovascular,
	models.ConditionArrhythmia:      KeyGeneralCardiovascular,
	models.ConditionHighCholesterol: KeyGeneralCardiovascular,
	models.ConditionObesity:         KeyGeneralCardiovascular,
}

// requiredKeys are the documents that must exist for the store to start
var requiredKeys = []string{KeyHypertension, KeyDiabetes, KeyGeneralCardiovascular}

// Store holds the per-condition reference datasets. Immutable after Load:
// concurrent reads need no locking.
type Store struct {
	datasets map[string]*models.ReferenceDataset
}

// Load reads every reference dataset document from dir. A missing or
// malformed document is an error: the caller treats that as fatal to process
// startup, not a per-request condition.
func Load(dir string) (*Store, error) {
	datasets := make(map[string]*models.ReferenceDataset, len(requiredKeys))

	for _, key := range requiredKeys {
		path := filepath.Join(dir, key+".yaml")
		ds, err := loadDocument(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load reference dataset %q: %w", key, err)
		}
		if ds.Key != key {
			return nil, fmt.Errorf("reference dataset %q declares key %q", key, ds.Key)
		}
		datasets[key] = ds
	}

	log.Printf("✅ Loaded %d reference datasets from %s", len(datasets), dir)
	return &Store{datasets: datasets}, nil
}

// loadDocument reads and validates a single dataset document
func loadDocument(path string) (*models.ReferenceDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var ds models.ReferenceDataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset YAML: %w", err)
	}

	if len(ds.Exemplars) == 0 {
		return nil, fmt.Errorf("dataset has no exemplars")
	}
	for i, ex := range ds.Exemplars {
		if !ex.Label.IsValid() {
			return nil, fmt.Errorf("exemplar %d has invalid label %q", i, ex.Label)
		}
	}

	return &ds, nil
}

// Get returns the dataset for a key, if present
func (s *Store) Get(key string) (*models.ReferenceDataset, bool) {
	ds, ok := s.datasets[key]
	return ds, ok
}

// Default returns the general cardiovascular dataset used when no condition
// maps to anything
func (s *Store) Default() *models.ReferenceDataset {
	return s.datasets[KeyGeneralCardiovascular]
}

// Keys returns every loaded dataset key
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.datasets))
	for k := range s.datasets {
		keys = append(keys, k)
	}
	return keys
}

// SelectRelevant maps each condition label onto its reference dataset,
// including only datasets that exist. An empty result collapses to a single
// "General Health" entry backed by the default dataset.
func (s *Store) SelectRelevant(conditions []string) map[string]*models.ReferenceDataset {
	selected := make(map[string]*models.ReferenceDataset)

	for _, condition := range conditions {
		key, ok := conditionDatasetMap[condition]
		if !ok {
			continue
		}
		if ds, exists := s.datasets[key]; exists {
			selected[condition] = ds
		}
	}

	if len(selected) == 0 {
		selected[GeneralHealthLabel] = s.Default()
	}

	return selected
}
