package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MauriceOS/snaktox-dispatch/internal/models"
)

// AuditRepository appends immutable notification attempt records. There is
// no update or delete path; the table feeds metrics, never dispatch logic.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert writes one dispatch attempt to the notification log.
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO notification_log (event_type, recipient, priority, channel, message_length, success, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		entry.EventType,
		entry.Recipient,
		entry.Priority,
		entry.Channel,
		entry.MessageLength,
		entry.Success,
		entry.Error,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification log entry: %w", err)
	}
	return nil
}
