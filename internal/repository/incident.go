package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/MauriceOS/snaktox-dispatch/internal/models"
	"github.com/MauriceOS/snaktox-dispatch/internal/service"
)

const incidentColumns = `
	id,
	latitude,
	longitude,
	address,
	responder_id,
	snake_species_id,
	hospital_id,
	status,
	victim_info,
	symptoms,
	first_aid_applied,
	additional_notes,
	created_at,
	updated_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	var victimInfo []byte
	err := row.Scan(
		&incident.ID,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Address,
		&incident.ResponderID,
		&incident.SnakeSpeciesID,
		&incident.HospitalID,
		&incident.Status,
		&victimInfo,
		&incident.Symptoms,
		&incident.FirstAidApplied,
		&incident.AdditionalNotes,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(victimInfo) > 0 {
		if err := json.Unmarshal(victimInfo, &incident.VictimInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal victim info: %w", err)
		}
	}
	return incident, nil
}

// Create inserts a new incident record in PENDING status.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	victimInfo, err := json.Marshal(incident.VictimInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal victim info: %w", err)
	}

	query := `
		INSERT INTO incidents (latitude, longitude, address, responder_id, snake_species_id, status, victim_info, symptoms, first_aid_applied, additional_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id, created_at, updated_at;
	`
	err = r.db.QueryRow(ctx, query,
		incident.Latitude,
		incident.Longitude,
		incident.Address,
		incident.ResponderID,
		incident.SnakeSpeciesID,
		incident.Status,
		victimInfo,
		incident.Symptoms,
		incident.FirstAidApplied,
		incident.AdditionalNotes,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID returns an incident by its UUID.
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident %s: %w", id, models.ErrIncidentNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// UpdateCAS applies field updates and the new status in a single conditional
// UPDATE. The write only lands when the stored status still equals expected,
// so a transition validated against a stale read can never slip through.
// Returns ErrStatusConflict when the guard fails for an existing incident.
func (r *IncidentRepository) UpdateCAS(ctx context.Context, id uuid.UUID, expected models.IncidentStatus, upd models.IncidentUpdate) (*models.Incident, error) {
	query := `
		UPDATE incidents SET
			status = COALESCE($3, status),
			hospital_id = COALESCE($4, hospital_id),
			snake_species_id = COALESCE($5, snake_species_id),
			symptoms = COALESCE($6, symptoms),
			first_aid_applied = COALESCE($7, first_aid_applied),
			additional_notes = COALESCE($8, additional_notes),
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + incidentColumns + `;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query,
		id,
		expected,
		upd.Status,
		upd.HospitalID,
		upd.SnakeSpeciesID,
		upd.Symptoms,
		upd.FirstAidApplied,
		upd.AdditionalNotes,
	))
	if err == nil {
		return incident, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update incident: %w", err)
	}

	// Guard failed: distinguish a vanished row from a concurrent transition.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM incidents WHERE id = $1);`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check incident existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("incident %s: %w", id, models.ErrIncidentNotFound)
	}
	return nil, models.ErrStatusConflict
}

// List returns incidents ordered by creation time, newest first.
func (r *IncidentRepository) List(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY created_at DESC LIMIT $1 OFFSET $2;`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// CountByStatus aggregates incident counts per status inside a time window.
func (r *IncidentRepository) CountByStatus(ctx context.Context, minutes int) ([]models.StatusCount, error) {
	query := `
		SELECT status, COUNT(*)
		FROM incidents
		WHERE created_at >= NOW() - ($1 * INTERVAL '1 minute')
		GROUP BY status;
	`
	rows, err := r.db.Query(ctx, query, minutes)
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents by status: %w", err)
	}
	defer rows.Close()

	counts := make([]models.StatusCount, 0)
	for rows.Next() {
		var sc models.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %w", err)
		}
		counts = append(counts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error stats iteration: %w", err)
	}
	return counts, nil
}

// GetIncidentFromCache tries to fetch an incident from Redis. A (nil, nil)
// return means cache miss.
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache stores an incident in Redis with a short TTL.
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache drops an incident from the Redis cache.
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
