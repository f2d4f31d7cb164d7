package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/gridline/internal/database"
	"github.com/yourusername/gridline/internal/models"
)

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// Insert inserts a new prediction row. Each call creates a new row; a
// corrected prediction is another insert, never an update in place.
func (r *PostgresPredictionRepository) Insert(ctx context.Context, prediction *models.Prediction) error {
	query := `
		INSERT INTO predictions (id, race_id, session_type, driver_number, predicted_position,
		                         predicted_time, confidence, top10_probability, model_type,
		                         features_json, attributions_json, predicted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		prediction.ID, prediction.RaceID, prediction.SessionType, prediction.DriverNumber,
		prediction.PredictedPosition, prediction.PredictedTime, prediction.Confidence,
		prediction.Top10Probability, prediction.ModelType, prediction.Features,
		prediction.Attributions, prediction.PredictedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	return nil
}

// InsertBatch inserts a batch of predictions using a bulk COPY
func (r *PostgresPredictionRepository) InsertBatch(ctx context.Context, predictions []*models.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}

	columns := []string{
		"id", "race_id", "session_type", "driver_number", "predicted_position",
		"predicted_time", "confidence", "top10_probability", "model_type",
		"features_json", "attributions_json", "predicted_at",
	}

	rows := make([][]interface{}, len(predictions))
	for i, p := range predictions {
		rows[i] = []interface{}{
			p.ID, p.RaceID, p.SessionType, p.DriverNumber, p.PredictedPosition,
			p.PredictedTime, p.Confidence, p.Top10Probability, p.ModelType,
			p.Features, p.Attributions, p.PredictedAt,
		}
	}

	copied, err := r.db.GetPool().CopyFrom(ctx, pgx.Identifier{"predictions"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to batch insert predictions: %w", err)
	}
	if copied != int64(len(predictions)) {
		return fmt.Errorf("inserted %d predictions, expected %d", copied, len(predictions))
	}

	return nil
}

// Fetch retrieves predictions matching the filter; no match returns an empty slice
func (r *PostgresPredictionRepository) Fetch(ctx context.Context, filter ObservationFilter) ([]*models.Prediction, error) {
	query := `
		SELECT id, race_id, session_type, driver_number, predicted_position,
		       predicted_time, confidence, top10_probability, model_type,
		       features_json, attributions_json, predicted_at
		FROM predictions
	`
	where, args := buildObservationFilter(filter)
	query += where + " ORDER BY predicted_at DESC, predicted_position ASC"

	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*models.Prediction
	for rows.Next() {
		p := &models.Prediction{}
		err := rows.Scan(
			&p.ID, &p.RaceID, &p.SessionType, &p.DriverNumber, &p.PredictedPosition,
			&p.PredictedTime, &p.Confidence, &p.Top10Probability, &p.ModelType,
			&p.Features, &p.Attributions, &p.PredictedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}

	return predictions, rows.Err()
}
