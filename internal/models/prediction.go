package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Prediction represents one model prediction for a driver in a session.
// Predictions are insert-only: a corrected prediction is a new row.
type Prediction struct {
	ID                uuid.UUID       `db:"id" json:"id" validate:"required,uuid4"`
	RaceID            uuid.UUID       `db:"race_id" json:"race_id" validate:"required,uuid4"`
	SessionType       SessionType     `db:"session_type" json:"session_type" validate:"required"`
	DriverNumber      int             `db:"driver_number" json:"driver_number" validate:"required,gt=0"`
	PredictedPosition float64         `db:"predicted_position" json:"predicted_position" validate:"required,gt=0"`
	PredictedTime     *float64        `db:"predicted_time" json:"predicted_time,omitempty"`
	Confidence        float64         `db:"confidence" json:"confidence" validate:"gte=0,lte=1"`
	Top10Probability  *float64        `db:"top10_probability" json:"top10_probability,omitempty"`
	ModelType         string          `db:"model_type" json:"model_type" validate:"required"`
	Features          json.RawMessage `db:"features_json" json:"features"`
	Attributions      json.RawMessage `db:"attributions_json" json:"attributions,omitempty"`
	PredictedAt       time.Time       `db:"predicted_at" json:"predicted_at" validate:"required"`
}

// GetFeature retrieves a feature value from the Features snapshot
func (p *Prediction) GetFeature(name string) (float64, bool, error) {
	if p.Features == nil {
		return 0, false, nil
	}

	var features map[string]float64
	if err := json.Unmarshal(p.Features, &features); err != nil {
		return 0, false, err
	}

	v, ok := features[name]
	return v, ok, nil
}

// MeetsThreshold checks if the confidence meets the given threshold
func (p *Prediction) MeetsThreshold(threshold float64) bool {
	return p.Confidence >= threshold
}
