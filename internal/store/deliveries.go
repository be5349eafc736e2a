package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
)

// DeliveryRepository is the durable log of every dispatch attempt, one row
// per (alert, recipient, channel) triple. Rows are written exactly once and
// never updated.
type DeliveryRepository struct {
	db *sql.DB
}

// NewDeliveryRepository creates a delivery repository
func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// CreateDeliveryRecord appends one delivery outcome
func (r *DeliveryRepository) CreateDeliveryRecord(ctx context.Context, record *models.DeliveryRecord) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if record.AlertID == "" {
		return fmt.Errorf("record.alert_id is required")
	}

	query := `
		INSERT INTO delivery_records (
			id,
			alert_id,
			resident_id,
			channel,
			status,
			provider_ref,
			error,
			attempted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.AlertID,
		record.ResidentID,
		string(record.Channel),
		string(record.Status),
		nullable(record.ProviderRef),
		nullable(record.Error),
		record.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery record: %w", err)
	}

	return nil
}

// ListDeliveryRecords returns every attempt made for one alert
func (r *DeliveryRepository) ListDeliveryRecords(ctx context.Context, alertID string) ([]*models.DeliveryRecord, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	query := `
		SELECT id, alert_id, resident_id, channel, status, provider_ref, error, attempted_at
		FROM delivery_records
		WHERE alert_id = $1
		ORDER BY attempted_at
	`

	rows, err := r.db.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery records: %w", err)
	}
	defer rows.Close()

	var records []*models.DeliveryRecord
	for rows.Next() {
		var rec models.DeliveryRecord
		var channel, status string
		var providerRef, errDetail sql.NullString

		if err := rows.Scan(
			&rec.ID,
			&rec.AlertID,
			&rec.ResidentID,
			&channel,
			&status,
			&providerRef,
			&errDetail,
			&rec.AttemptedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}

		rec.Channel = models.Channel(channel)
		rec.Status = models.DeliveryStatus(status)
		if providerRef.Valid {
			rec.ProviderRef = providerRef.String
		}
		if errDetail.Valid {
			rec.Error = errDetail.String
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery records: %w", err)
	}

	return records, nil
}

// nullable maps an empty string to SQL NULL
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
