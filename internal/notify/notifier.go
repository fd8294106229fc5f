package notify

import (
	"context"
	"strings"

	"github.com/MauriceOS/snaktox-dispatch/internal/models"
)

//go:generate mockgen -source=notifier.go -destination=mocks/notifier_mock.go -package=mocks

// Notifier is the uniform send capability one delivery technology exposes.
// Provider selection happens at construction time, never at the call site.
type Notifier interface {
	Send(ctx context.Context, recipient, message string) error
	Channel() models.Channel
}

// AuditSink records every dispatch attempt, successful or not. Sink failures
// must never influence dispatch results.
type AuditSink interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
}

// isEmailShaped reports whether the recipient identifier looks like an
// email address rather than a phone number.
func isEmailShaped(recipient string) bool {
	return strings.Contains(recipient, "@")
}

// validateRecipient rejects identifiers no adapter could deliver to.
func validateRecipient(recipient string) error {
	trimmed := strings.TrimSpace(recipient)
	if trimmed == "" || trimmed != recipient || strings.ContainsAny(recipient, " \t\n") {
		return models.ErrInvalidRecipient
	}
	return nil
}
