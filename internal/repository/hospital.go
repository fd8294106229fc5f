package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MauriceOS/snaktox-dispatch/internal/models"
	"github.com/MauriceOS/snaktox-dispatch/internal/service"
)

const hospitalColumns = `
	id,
	name,
	latitude,
	longitude,
	verified_status,
	contact_info,
	antivenom_stock,
	emergency_services,
	created_at,
	updated_at`

// HospitalRepository is the read-only view of the hospital directory.
// Directory writes belong to an external admin surface.
type HospitalRepository struct {
	db *pgxpool.Pool
}

func NewHospitalRepository(db *pgxpool.Pool) service.HospitalRepository {
	return &HospitalRepository{db: db}
}

func scanHospital(row pgx.Row) (*models.Hospital, error) {
	hospital := &models.Hospital{}
	var contactInfo []byte
	err := row.Scan(
		&hospital.ID,
		&hospital.Name,
		&hospital.Latitude,
		&hospital.Longitude,
		&hospital.VerifiedStatus,
		&contactInfo,
		&hospital.AntivenomStock,
		&hospital.EmergencyServices,
		&hospital.CreatedAt,
		&hospital.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(contactInfo) > 0 {
		if err := json.Unmarshal(contactInfo, &hospital.ContactInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contact info: %w", err)
		}
	}
	return hospital, nil
}

// ListEligible returns all verified, emergency-capable hospitals.
func (r *HospitalRepository) ListEligible(ctx context.Context) ([]*models.Hospital, error) {
	query := `
		SELECT ` + hospitalColumns + `
		FROM hospitals
		WHERE verified_status = 'VERIFIED' AND emergency_services = TRUE;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible hospitals: %w", err)
	}
	defer rows.Close()

	hospitals := make([]*models.Hospital, 0)
	for rows.Next() {
		hospital, err := scanHospital(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hospital row: %w", err)
		}
		hospitals = append(hospitals, hospital)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error eligible hospitals iteration: %w", err)
	}
	return hospitals, nil
}

// GetByID returns a hospital by its UUID.
func (r *HospitalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Hospital, error) {
	query := `SELECT ` + hospitalColumns + ` FROM hospitals WHERE id = $1;`

	hospital, err := scanHospital(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("hospital %s: %w", id, models.ErrHospitalNotFound)
		}
		return nil, fmt.Errorf("failed to get hospital by id: %w", err)
	}
	return hospital, nil
}
