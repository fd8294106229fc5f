package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/MauriceOS/snaktox-dispatch/internal/config"
	"github.com/MauriceOS/snaktox-dispatch/internal/models"
)

// Router selects a delivery channel per recipient and fans batches out with
// partial-failure tolerance: every attempt settles, none short-circuits.
type Router struct {
	smsClass Notifier
	email    Notifier
	audit    AuditSink
	logger   *logrus.Logger
	timeout  time.Duration
	inFlight *semaphore.Weighted
}

func NewRouter(smsClass, email Notifier, audit AuditSink, logger *logrus.Logger, cfg *config.Config) *Router {
	return &Router{
		smsClass: smsClass,
		email:    email,
		audit:    audit,
		logger:   logger,
		timeout:  cfg.NotifyTimeout,
		inFlight: semaphore.NewWeighted(cfg.NotifyMaxInFlight),
	}
}

// selectNotifier applies the channel selection policy:
//
//	CRITICAL  -> email when the recipient is email-shaped, SMS-class otherwise
//	HIGH      -> SMS-class regardless of recipient shape
//	MEDIUM/LOW -> email when the recipient is email-shaped, SMS-class otherwise
func (r *Router) selectNotifier(priority models.Priority, recipient string) (Notifier, error) {
	switch priority {
	case models.PriorityCritical:
		if isEmailShaped(recipient) {
			return r.email, nil
		}
		return r.smsClass, nil
	case models.PriorityHigh:
		return r.smsClass, nil
	case models.PriorityMedium, models.PriorityLow:
		if isEmailShaped(recipient) {
			return r.email, nil
		}
		return r.smsClass, nil
	}
	return nil, fmt.Errorf("no channel for priority %q: %w", priority, models.ErrUnknownChannel)
}

// Dispatch attempts delivery of one payload and returns the per-recipient
// outcome. The attempt is bounded by the router timeout; a timed out or
// unreachable adapter yields a retryable ChannelUnavailable outcome. Every
// attempt is recorded to the audit sink.
func (r *Router) Dispatch(ctx context.Context, payload models.NotificationPayload) models.DeliveryOutcome {
	log := r.logger.WithFields(logrus.Fields{
		"component": "notification_router",
		"recipient": payload.Recipient,
		"priority":  payload.Priority,
		"type":      payload.Type,
	})

	outcome := models.DeliveryOutcome{Recipient: payload.Recipient}

	if err := validateRecipient(payload.Recipient); err != nil {
		log.Warn("Rejected malformed recipient")
		outcome.Error = err.Error()
		r.recordAudit(ctx, payload, outcome)
		return outcome
	}

	notifier, err := r.selectNotifier(payload.Priority, payload.Recipient)
	if err != nil {
		// Defect-class: the policy table should cover every priority.
		log.WithError(err).Error("Channel selection produced no match")
		outcome.Error = err.Error()
		r.recordAudit(ctx, payload, outcome)
		return outcome
	}
	outcome.Channel = notifier.Channel()

	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = notifier.Send(sendCtx, payload.Recipient, payload.Message)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(sendCtx.Err(), context.DeadlineExceeded)) {
		err = fmt.Errorf("send timed out after %s: %w", r.timeout, models.ErrChannelUnavailable)
	}
	if err != nil {
		log.WithError(err).Warn("Delivery attempt failed")
		outcome.Error = err.Error()
		outcome.Retryable = errors.Is(err, models.ErrChannelUnavailable)
		r.recordAudit(ctx, payload, outcome)
		return outcome
	}

	outcome.Success = true
	r.recordAudit(ctx, payload, outcome)
	return outcome
}

// DispatchBatch fans out one concurrent attempt per recipient and joins on
// all of them. One recipient's failure never cancels the others; the summary
// always satisfies Successful+Failed == Total.
func (r *Router) DispatchBatch(ctx context.Context, recipients []string, message string, eventType models.EventType, priority models.Priority) models.BatchSummary {
	summary := models.BatchSummary{
		Total:    len(recipients),
		Outcomes: make([]models.DeliveryOutcome, len(recipients)),
	}

	var wg sync.WaitGroup
	for i, recipient := range recipients {
		wg.Add(1)
		go func(i int, recipient string) {
			defer wg.Done()

			if err := r.inFlight.Acquire(ctx, 1); err != nil {
				summary.Outcomes[i] = models.DeliveryOutcome{
					Recipient: recipient,
					Error:     fmt.Sprintf("batch aborted: %v", err),
					Retryable: true,
				}
				return
			}
			defer r.inFlight.Release(1)

			summary.Outcomes[i] = r.Dispatch(ctx, models.NotificationPayload{
				Type:      eventType,
				Recipient: recipient,
				Message:   message,
				Priority:  priority,
			})
		}(i, recipient)
	}
	wg.Wait()

	for _, outcome := range summary.Outcomes {
		if outcome.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	r.logger.WithFields(logrus.Fields{
		"component":  "notification_router",
		"total":      summary.Total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
	}).Info("Notification batch settled")
	return summary
}

func (r *Router) recordAudit(ctx context.Context, payload models.NotificationPayload, outcome models.DeliveryOutcome) {
	entry := &models.AuditEntry{
		EventType:     payload.Type,
		Recipient:     payload.Recipient,
		Priority:      payload.Priority,
		Channel:       outcome.Channel,
		MessageLength: len(payload.Message),
		Success:       outcome.Success,
		Error:         outcome.Error,
	}
	if err := r.audit.Record(ctx, entry); err != nil {
		// Audit is for metrics only; a sink failure never fails the dispatch.
		r.logger.WithError(err).Error("Failed to record notification audit entry")
	}
}
