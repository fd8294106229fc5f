package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MauriceOS/snaktox-dispatch/internal/models"
)

const auditQueueKey = "notification_audit"

// AuditStore is the durable destination for drained audit entries.
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditEntry) error
}

// RedisAuditQueue buffers audit writes through a Redis list so that a slow
// database never sits on the notification hot path.
type RedisAuditQueue struct {
	redisClient *redis.Client
}

func NewRedisAuditQueue(client *redis.Client) *RedisAuditQueue {
	return &RedisAuditQueue{
		redisClient: client,
	}
}

// Record pushes one audit entry onto the queue.
func (q *RedisAuditQueue) Record(ctx context.Context, entry *models.AuditEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if err := q.redisClient.LPush(ctx, auditQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to push audit entry to Redis: %w", err)
	}
	return nil
}

// AuditWorker drains the Redis queue into the notification log table.
type AuditWorker struct {
	redisClient *redis.Client
	store       AuditStore
	logger      *logrus.Logger
}

func NewAuditWorker(redisClient *redis.Client, store AuditStore, logger *logrus.Logger) *AuditWorker {
	return &AuditWorker{
		redisClient: redisClient,
		store:       store,
		logger:      logger,
	}
}

// Start launches the drain goroutine. It runs until ctx is cancelled.
func (w *AuditWorker) Start(ctx context.Context) {
	w.logger.Info("Starting notification audit worker...")
	go func() {
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Stopping notification audit worker.")
				return
			default:
				// BRPop with zero timeout blocks until an entry arrives.
				result, err := w.redisClient.BRPop(ctx, 0, auditQueueKey).Result()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						continue
					}
					w.logger.WithError(err).Error("Failed to pop audit entry from Redis")
					time.Sleep(time.Second)
					continue
				}

				// result[0] is the key, result[1] the value.
				var entry models.AuditEntry
				if err := json.Unmarshal([]byte(result[1]), &entry); err != nil {
					w.logger.WithError(err).Error("Failed to unmarshal audit entry from Redis")
					continue
				}

				if err := w.store.Insert(ctx, &entry); err != nil {
					w.logger.WithError(err).WithFields(logrus.Fields{
						"recipient":  entry.Recipient,
						"event_type": entry.EventType,
					}).Error("Failed to persist audit entry")
				}
			}
		}
	}()
}
