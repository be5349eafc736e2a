package roster

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
)

// ResidentRepository reads the resident roster. The roster itself is owned
// by the resident-management collaborator; this service never writes it.
type ResidentRepository struct {
	db *sql.DB
}

// NewResidentRepository creates a resident repository
func NewResidentRepository(db *sql.DB) *ResidentRepository {
	return &ResidentRepository{db: db}
}

// ListResidents returns the current, complete recipient set. Channel
// eligibility is not evaluated here; the dispatcher decides per alert. Any
// load failure aborts the whole alert cycle, so a partial roster is never
// dispatched to.
func (r *ResidentRepository) ListResidents(ctx context.Context) ([]models.Resident, error) {
	query := `
		SELECT
			id,
			name,
			contact,
			email,
			notify_email,
			notify_sms,
			notify_push
		FROM residents
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query residents: %w", err)
	}
	defer rows.Close()

	var residents []models.Resident
	for rows.Next() {
		var res models.Resident
		var contact, email sql.NullString

		if err := rows.Scan(
			&res.ID,
			&res.Name,
			&contact,
			&email,
			&res.Preferences.Email,
			&res.Preferences.SMS,
			&res.Preferences.Push,
		); err != nil {
			return nil, fmt.Errorf("failed to scan resident: %w", err)
		}

		if contact.Valid {
			res.Contact = contact.String
		}
		if email.Valid {
			res.Email = email.String
		}

		residents = append(residents, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate residents: %w", err)
	}

	return residents, nil
}
