package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
)

// AlertRepository is the append-only log of raised alerts. Reporting
// collaborators read it; nothing ever updates a row.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository creates an alert repository
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// AlertFilters narrows ListAlertEvents results
type AlertFilters struct {
	Status *models.Status
	Since  *time.Time
}

// CreateAlertEvent appends one alert event
func (r *AlertRepository) CreateAlertEvent(ctx context.Context, event *models.AlertEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.ID == "" {
		return fmt.Errorf("event.id is required")
	}

	query := `
		INSERT INTO alert_events (
			id,
			level,
			status,
			location,
			message,
			raised_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Level,
		string(event.Status),
		event.Location,
		event.Message,
		event.RaisedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert event: %w", err)
	}

	return nil
}

// ListAlertEvents returns recent alert events, newest first
func (r *AlertRepository) ListAlertEvents(ctx context.Context, filters AlertFilters, limit int) ([]*models.AlertEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT id, level, status, location, message, raised_at
		FROM alert_events
		WHERE 1=1
	`
	args := []interface{}{}
	argPos := 1

	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(*filters.Status))
		argPos++
	}
	if filters.Since != nil {
		query += fmt.Sprintf(" AND raised_at >= $%d", argPos)
		args = append(args, *filters.Since)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY raised_at DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert events: %w", err)
	}
	defer rows.Close()

	var events []*models.AlertEvent
	for rows.Next() {
		var event models.AlertEvent
		var status string

		if err := rows.Scan(
			&event.ID,
			&event.Level,
			&status,
			&event.Location,
			&event.Message,
			&event.RaisedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		event.Status = models.Status(status)

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert events: %w", err)
	}

	return events, nil
}
