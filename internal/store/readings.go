package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
)

// ReadingRepository persists every ingested sensor reading for the
// dashboard and reporting collaborators.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository creates a reading repository
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// CreateReading appends one reading
func (r *ReadingRepository) CreateReading(ctx context.Context, reading *models.Reading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}

	query := `
		INSERT INTO water_level_readings (
			id,
			level,
			location,
			observed_at
		) VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		reading.ID,
		reading.Level,
		reading.Location,
		reading.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reading: %w", err)
	}

	return nil
}

// ListReadings returns recent readings, newest first
func (r *ReadingRepository) ListReadings(ctx context.Context, limit int) ([]*models.Reading, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT id, level, location, observed_at
		FROM water_level_readings
		ORDER BY observed_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	var readings []*models.Reading
	for rows.Next() {
		var reading models.Reading
		if err := rows.Scan(
			&reading.ID,
			&reading.Level,
			&reading.Location,
			&reading.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, &reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, nil
}
