package models

import "time"

// Event is the envelope published to the prediction event stream.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // prediction.completed, prediction.failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Recommendation is a treatment suggestion for a predicted complication.
// Field names follow the medication map columns so clients see the same
// vocabulary as the offline table.
type Recommendation struct {
	Medication string `json:"Recommended_Medication"`
	Dosage     string `json:"Dosage"`
	Duration   string `json:"Duration"`
	Source     string `json:"Source"`
}

type Prediction struct {
	Complication  string             `json:"Complication"`
	Probabilities map[string]float64 `json:"Probabilities,omitempty"`
}

type RecommendationResult struct {
	Complication   string         `json:"Complication"`
	Recommendation Recommendation `json:"Recommendation"`
}

type PredictRecommendResult struct {
	Complication   string             `json:"Complication"`
	Recommendation Recommendation     `json:"Recommendation"`
	Probabilities  map[string]float64 `json:"Probabilities,omitempty"`
}

// ModelInfo describes the loaded pipeline artifact.
type ModelInfo struct {
	Type      string   `json:"type"`
	Algorithm string   `json:"algorithm"`
	Version   string   `json:"version"`
	Classes   []string `json:"classes"`
	Features  []string `json:"features"`
}
