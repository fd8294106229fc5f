package notify

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MauriceOS/snaktox-dispatch/internal/config"
	"github.com/MauriceOS/snaktox-dispatch/internal/models"
	"github.com/MauriceOS/snaktox-dispatch/internal/notify/mocks"
)

func newTestRouter(t *testing.T) (*Router, *mocks.MockNotifier, *mocks.MockNotifier, *mocks.MockAuditSink) {
	ctrl := gomock.NewController(t)
	smsMock := mocks.NewMockNotifier(ctrl)
	emailMock := mocks.NewMockNotifier(ctrl)
	auditMock := mocks.NewMockAuditSink(ctrl)

	smsMock.EXPECT().Channel().Return(models.ChannelSMS).AnyTimes()
	emailMock.EXPECT().Channel().Return(models.ChannelEmail).AnyTimes()

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		NotifyTimeout:     5 * time.Second,
		NotifyMaxInFlight: 8,
	}

	return NewRouter(smsMock, emailMock, auditMock, logger, cfg), smsMock, emailMock, auditMock
}

func TestDispatch_ChannelSelection(t *testing.T) {
	testCases := []struct {
		name      string
		priority  models.Priority
		recipient string
		wantEmail bool
	}{
		{name: "critical email-shaped goes to email", priority: models.PriorityCritical, recipient: "er@knh.or.ke", wantEmail: true},
		{name: "critical phone goes to sms", priority: models.PriorityCritical, recipient: "+254700111222", wantEmail: false},
		{name: "high always goes to sms", priority: models.PriorityHigh, recipient: "er@knh.or.ke", wantEmail: false},
		{name: "medium email-shaped goes to email", priority: models.PriorityMedium, recipient: "er@knh.or.ke", wantEmail: true},
		{name: "medium phone goes to sms", priority: models.PriorityMedium, recipient: "+254700111222", wantEmail: false},
		{name: "low email-shaped goes to email", priority: models.PriorityLow, recipient: "er@knh.or.ke", wantEmail: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, smsMock, emailMock, auditMock := newTestRouter(t)
			ctx := context.Background()

			if tc.wantEmail {
				emailMock.EXPECT().Send(gomock.Any(), tc.recipient, "help is coming").Return(nil).Times(1)
				smsMock.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			} else {
				smsMock.EXPECT().Send(gomock.Any(), tc.recipient, "help is coming").Return(nil).Times(1)
				emailMock.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			}
			auditMock.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil).Times(1)

			outcome := router.Dispatch(ctx, models.NotificationPayload{
				Type:      models.EventEmergencyAlert,
				Recipient: tc.recipient,
				Message:   "help is coming",
				Priority:  tc.priority,
			})

			assert.True(t, outcome.Success)
			if tc.wantEmail {
				assert.Equal(t, models.ChannelEmail, outcome.Channel)
			} else {
				assert.Equal(t, models.ChannelSMS, outcome.Channel)
			}
		})
	}
}

func TestDispatch_UnknownPriority(t *testing.T) {
	router, smsMock, emailMock, auditMock := newTestRouter(t)
	ctx := context.Background()

	smsMock.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	emailMock.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	auditMock.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	outcome := router.Dispatch(ctx, models.NotificationPayload{
		Type:      models.EventEmergencyAlert,
		Recipient: "+254700111222",
		Message:   "help is coming",
		Priority:  models.Priority("urgent"),
	})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "no channel for priority")
}

func TestDispatch_MalformedRecipient(t *testing.T) {
	router, smsMock, emailMock, auditMock := newTestRouter(t)
	ctx := context.Background()

	smsMock.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	emailMock.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	auditMock.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	outcome := router.Dispatch(ctx, models.NotificationPayload{
		Type:      models.EventEmergencyAlert,
		Recipient: "   ",
		Message:   "help is coming",
		Priority:  models.PriorityHigh,
	})

	assert.False(t, outcome.Success)
	assert.False(t, outcome.Retryable)
	assert.Equal(t, models.ErrInvalidRecipient.Error(), outcome.Error)
}

func TestDispatch_TimeoutIsRetryable(t *testing.T) {
	router, smsMock, _, auditMock := newTestRouter(t)
	ctx := context.Background()

	smsMock.EXPECT().
		Send(gomock.Any(), "+254700111222", gomock.Any()).
		Return(context.DeadlineExceeded).
		Times(1)
	auditMock.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	outcome := router.Dispatch(ctx, models.NotificationPayload{
		Type:      models.EventEmergencyAlert,
		Recipient: "+254700111222",
		Message:   "help is coming",
		Priority:  models.PriorityHigh,
	})

	assert.False(t, outcome.Success)
	assert.True(t, outcome.Retryable)
	assert.Contains(t, outcome.Error, "timed out")
}

func TestDispatch_SuccessAtDeadlineStaysSuccessful(t *testing.T) {
	ctrl := gomock.NewController(t)
	smsMock := mocks.NewMockNotifier(ctrl)
	emailMock := mocks.NewMockNotifier(ctrl)
	auditMock := mocks.NewMockAuditSink(ctrl)

	smsMock.EXPECT().Channel().Return(models.ChannelSMS).AnyTimes()
	emailMock.EXPECT().Channel().Return(models.ChannelEmail).AnyTimes()

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		NotifyTimeout:     10 * time.Millisecond,
		NotifyMaxInFlight: 8,
	}
	router := NewRouter(smsMock, emailMock, auditMock, logger, cfg)

	// The send completes after the deadline fires but still reports success;
	// the outcome must not be reclassified as a timeout.
	smsMock.EXPECT().
		Send(gomock.Any(), "+254700111222", gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string) error {
			<-ctx.Done()
			return nil
		}).Times(1)
	auditMock.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	outcome := router.Dispatch(context.Background(), models.NotificationPayload{
		Type:      models.EventEmergencyAlert,
		Recipient: "+254700111222",
		Message:   "help is coming",
		Priority:  models.PriorityHigh,
	})

	assert.True(t, outcome.Success)
	assert.Empty(t, outcome.Error)
}

func TestDispatch_AuditSinkFailureDoesNotFailDispatch(t *testing.T) {
	router, smsMock, _, auditMock := newTestRouter(t)
	ctx := context.Background()

	smsMock.EXPECT().Send(gomock.Any(), "+254700111222", gomock.Any()).Return(nil).Times(1)
	auditMock.EXPECT().Record(gomock.Any(), gomock.Any()).Return(fmt.Errorf("redis down")).Times(1)

	outcome := router.Dispatch(ctx, models.NotificationPayload{
		Type:      models.EventEmergencyAlert,
		Recipient: "+254700111222",
		Message:   "help is coming",
		Priority:  models.PriorityHigh,
	})

	assert.True(t, outcome.Success)
}

func TestDispatchBatch_SettlesAllRecipients(t *testing.T) {
	router, smsMock, _, auditMock := newTestRouter(t)
	ctx := context.Background()

	// One failing recipient must not stop the others.
	smsMock.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, recipient, _ string) error {
			if recipient == "+254700000002" {
				return fmt.Errorf("gateway rejected: %w", models.ErrChannelUnavailable)
			}
			return nil
		}).Times(3)
	auditMock.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	recipients := []string{"+254700000001", "+254700000002", "+254700000003"}
	summary := router.DispatchBatch(ctx, recipients, "help is coming", models.EventEmergencyAlert, models.PriorityHigh)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, summary.Total, summary.Successful+summary.Failed)
	require.Len(t, summary.Outcomes, 3)

	// Outcomes keep recipient order.
	for i, recipient := range recipients {
		assert.Equal(t, recipient, summary.Outcomes[i].Recipient)
	}
	assert.False(t, summary.Outcomes[1].Success)
	assert.True(t, summary.Outcomes[1].Retryable)
}

func TestDispatchBatch_Empty(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	summary := router.DispatchBatch(context.Background(), nil, "noop", models.EventStockAlert, models.PriorityLow)

	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Successful)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, summary.Outcomes)
}

func TestIsEmailShaped(t *testing.T) {
	assert.True(t, isEmailShaped("er@knh.or.ke"))
	assert.False(t, isEmailShaped("+254700111222"))
}
