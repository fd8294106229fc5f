package service_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MauriceOS/snaktox-dispatch/internal/broadcast"
	"github.com/MauriceOS/snaktox-dispatch/internal/config"
	"github.com/MauriceOS/snaktox-dispatch/internal/models"
	"github.com/MauriceOS/snaktox-dispatch/internal/service"
	"github.com/MauriceOS/snaktox-dispatch/internal/service/mocks"
)

type dispatchMocks struct {
	repo        *mocks.MockIncidentRepository
	hospitals   *mocks.MockHospitalRepository
	resolver    *mocks.MockHospitalResolver
	router      *mocks.MockNotificationRouter
	broadcaster *mocks.MockBroadcaster
}

func newTestDispatchService(t *testing.T, cfg *config.Config) (service.DispatchService, dispatchMocks) {
	ctrl := gomock.NewController(t)
	m := dispatchMocks{
		repo:        mocks.NewMockIncidentRepository(ctrl),
		hospitals:   mocks.NewMockHospitalRepository(ctrl),
		resolver:    mocks.NewMockHospitalResolver(ctrl),
		router:      mocks.NewMockNotificationRouter(ctrl),
		broadcaster: mocks.NewMockBroadcaster(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	if cfg == nil {
		cfg = &config.Config{
			StatsTimeWindowMinutes: 60,
			StockCriticalThreshold: 5,
		}
	}

	svc := service.NewDispatchService(m.repo, m.hospitals, m.resolver, m.router, m.broadcaster, logger, cfg)
	return svc, m
}

func testHospital() *models.Hospital {
	return &models.Hospital{
		ID:             uuid.New(),
		Name:           "Kenyatta National Hospital",
		Latitude:       -1.3007,
		Longitude:      36.8070,
		VerifiedStatus: models.HospitalVerified,
		ContactInfo: models.ContactInfo{
			Phone:          "+254700111222",
			EmergencyPhone: "+254700999888",
			Email:          "er@knh.or.ke",
		},
		EmergencyServices: true,
	}
}

func TestSubmitIncident_FullDispatchFlow(t *testing.T) {
	cfg := &config.Config{
		StatsTimeWindowMinutes: 60,
		StockCriticalThreshold: 5,
		EmergencyContacts:      []string{"+254711000000"},
	}
	svc, m := newTestDispatchService(t, cfg)
	ctx := context.Background()

	hospital := testHospital()
	incidentID := uuid.New()

	incident := &models.Incident{
		Latitude:    -1.3048,
		Longitude:   36.8156,
		ResponderID: "responder-7",
		Symptoms:    []string{"swelling", "blurred vision"},
	}

	m.repo.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			assert.Equal(t, models.StatusPending, inc.Status)
			assert.Nil(t, inc.HospitalID)
			inc.ID = incidentID
			return nil
		}).Times(1)

	m.resolver.EXPECT().
		NearestHospital(ctx, -1.3048, 36.8156).
		Return(hospital, nil).
		Times(1)

	assigned := &models.Incident{
		ID:          incidentID,
		Latitude:    -1.3048,
		Longitude:   36.8156,
		ResponderID: "responder-7",
		HospitalID:  &hospital.ID,
		Status:      models.StatusAssigned,
	}
	m.repo.EXPECT().
		UpdateCAS(ctx, incidentID, models.StatusPending, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, _ models.IncidentStatus, upd models.IncidentUpdate) (*models.Incident, error) {
			require.NotNil(t, upd.Status)
			assert.Equal(t, models.StatusAssigned, *upd.Status)
			require.NotNil(t, upd.HospitalID)
			assert.Equal(t, hospital.ID, *upd.HospitalID)
			return assigned, nil
		}).Times(1)
	m.repo.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	// One direct dispatch per hospital contact channel, priorities per policy.
	gotPriorities := map[string]models.Priority{}
	m.router.EXPECT().
		Dispatch(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, payload models.NotificationPayload) models.DeliveryOutcome {
			gotPriorities[payload.Recipient] = payload.Priority
			return models.DeliveryOutcome{Recipient: payload.Recipient, Success: true}
		}).Times(3)

	// Emergency services always get a critical batch.
	m.router.EXPECT().
		DispatchBatch(ctx, cfg.EmergencyContacts, gomock.Any(), models.EventEmergencyAlert, models.PriorityCritical).
		Return(models.BatchSummary{Total: 1, Successful: 1}).
		Times(1)

	m.broadcaster.EXPECT().Publish(ctx, broadcast.TopicIncidentGlobal, broadcast.EventSOSUpdate, assigned).Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.HospitalTopic(hospital.ID), broadcast.EventSOSAssigned, assigned).Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.ResponderTopic("responder-7"), broadcast.EventSOSStatusUpdate, assigned).Times(1)

	result, err := svc.SubmitIncident(ctx, incident)

	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, result.Status)
	require.NotNil(t, result.HospitalID)
	assert.Equal(t, hospital.ID, *result.HospitalID)

	assert.Equal(t, models.PriorityCritical, gotPriorities[hospital.ContactInfo.EmergencyPhone])
	assert.Equal(t, models.PriorityHigh, gotPriorities[hospital.ContactInfo.Phone])
	assert.Equal(t, models.PriorityMedium, gotPriorities[hospital.ContactInfo.Email])
}

func TestSubmitIncident_InvalidCoordinates(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()

	m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.SubmitIncident(ctx, &models.Incident{
		Latitude:    200,
		Longitude:   36.8156,
		ResponderID: "responder-7",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInvalidCoordinates)
}

func TestSubmitIncident_NoEligibleHospital_StaysPending(t *testing.T) {
	cfg := &config.Config{
		StatsTimeWindowMinutes: 60,
		EmergencyContacts:      []string{"+254711000000"},
	}
	svc, m := newTestDispatchService(t, cfg)
	ctx := context.Background()

	incidentID := uuid.New()

	m.repo.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			inc.ID = incidentID
			return nil
		}).Times(1)

	m.resolver.EXPECT().
		NearestHospital(ctx, -1.3048, 36.8156).
		Return(nil, models.ErrNoHospitalAvailable).
		Times(1)

	// No assignment, no per-hospital dispatches.
	m.repo.EXPECT().UpdateCAS(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	m.router.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Times(0)

	m.router.EXPECT().
		DispatchBatch(ctx, cfg.EmergencyContacts, gomock.Any(), models.EventEmergencyAlert, models.PriorityCritical).
		Return(models.BatchSummary{Total: 1, Successful: 1}).
		Times(1)

	m.broadcaster.EXPECT().Publish(ctx, broadcast.TopicIncidentGlobal, broadcast.EventSOSUpdate, gomock.Any()).Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.ResponderTopic("responder-7"), broadcast.EventSOSStatusUpdate, gomock.Any()).Times(1)

	result, err := svc.SubmitIncident(ctx, &models.Incident{
		Latitude:    -1.3048,
		Longitude:   36.8156,
		ResponderID: "responder-7",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)
	assert.Nil(t, result.HospitalID)
}

func TestSubmitIncident_NotificationFailureIsIsolated(t *testing.T) {
	cfg := &config.Config{
		StatsTimeWindowMinutes: 60,
		EmergencyContacts:      []string{"+254711000000"},
	}
	svc, m := newTestDispatchService(t, cfg)
	ctx := context.Background()

	hospital := testHospital()
	incidentID := uuid.New()

	m.repo.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			inc.ID = incidentID
			return nil
		}).Times(1)
	m.resolver.EXPECT().NearestHospital(ctx, gomock.Any(), gomock.Any()).Return(hospital, nil).Times(1)
	m.repo.EXPECT().
		UpdateCAS(ctx, incidentID, models.StatusPending, gomock.Any()).
		Return(&models.Incident{ID: incidentID, HospitalID: &hospital.ID, Status: models.StatusAssigned, ResponderID: "responder-7"}, nil).
		Times(1)
	m.repo.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	// Every delivery attempt fails; submission must still succeed.
	m.router.EXPECT().
		Dispatch(ctx, gomock.Any()).
		Return(models.DeliveryOutcome{Success: false, Error: "gateway down", Retryable: true}).
		Times(3)
	m.router.EXPECT().
		DispatchBatch(ctx, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.BatchSummary{Total: 1, Failed: 1}).
		Times(1)

	m.broadcaster.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(3)

	result, err := svc.SubmitIncident(ctx, &models.Incident{
		Latitude:    -1.3048,
		Longitude:   36.8156,
		ResponderID: "responder-7",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, result.Status)
}

func TestSubmitIncident_CreateFails(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()

	m.repo.EXPECT().Create(ctx, gomock.Any()).Return(fmt.Errorf("db down")).Times(1)
	m.resolver.EXPECT().NearestHospital(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.SubmitIncident(ctx, &models.Incident{
		Latitude:    -1.3048,
		Longitude:   36.8156,
		ResponderID: "responder-7",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "could not create incident")
}

func TestGetIncident_FromCache(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()
	expected := &models.Incident{ID: incidentID, Status: models.StatusAssigned}

	m.repo.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(expected, nil).Times(1)

	incident, err := svc.GetIncident(ctx, incidentID)

	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_CacheMissFallsThrough(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()
	expected := &models.Incident{ID: incidentID, Status: models.StatusPending}

	m.repo.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(nil, nil).Times(1)
	m.repo.EXPECT().GetByID(ctx, incidentID).Return(expected, nil).Times(1)
	m.repo.EXPECT().SetIncidentCache(ctx, expected).Return(nil).Times(1)

	incident, err := svc.GetIncident(ctx, incidentID)

	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()

	m.repo.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(nil, nil).Times(1)
	m.repo.EXPECT().GetByID(ctx, incidentID).Return(nil, models.ErrIncidentNotFound).Times(1)

	incident, err := svc.GetIncident(ctx, incidentID)

	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, models.ErrIncidentNotFound)
}

func TestUpdateIncident_ValidTransition(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()

	hospitalID := uuid.New()
	inProgress := models.StatusInProgress
	current := &models.Incident{ID: incidentID, Status: models.StatusAssigned, HospitalID: &hospitalID, ResponderID: "responder-7"}
	updated := &models.Incident{ID: incidentID, Status: models.StatusInProgress, HospitalID: &hospitalID, ResponderID: "responder-7"}

	m.repo.EXPECT().GetByID(ctx, incidentID).Return(current, nil).Times(1)
	m.repo.EXPECT().UpdateCAS(ctx, incidentID, models.StatusAssigned, gomock.Any()).Return(updated, nil).Times(1)
	m.repo.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.TopicIncidentGlobal, broadcast.EventSOSUpdate, updated).Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.ResponderTopic("responder-7"), broadcast.EventSOSStatusUpdate, updated).Times(1)

	result, err := svc.UpdateIncident(ctx, incidentID, models.IncidentUpdate{Status: &inProgress})

	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, result.Status)
}

func TestUpdateIncident_RejectsInvalidTransition(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()

	pending := models.StatusPending
	current := &models.Incident{ID: incidentID, Status: models.StatusInProgress}

	m.repo.EXPECT().GetByID(ctx, incidentID).Return(current, nil).Times(1)
	m.repo.EXPECT().UpdateCAS(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.UpdateIncident(ctx, incidentID, models.IncidentUpdate{Status: &pending})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestUpdateIncident_PendingCannotLeaveWithoutHospital(t *testing.T) {
	testCases := []struct {
		name   string
		target models.IncidentStatus
	}{
		{name: "assigned needs a hospital", target: models.StatusAssigned},
		{name: "in progress needs a hospital", target: models.StatusInProgress},
		{name: "completed needs a hospital", target: models.StatusCompleted},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, m := newTestDispatchService(t, nil)
			ctx := context.Background()
			incidentID := uuid.New()

			current := &models.Incident{ID: incidentID, Status: models.StatusPending, ResponderID: "responder-7"}

			m.repo.EXPECT().GetByID(ctx, incidentID).Return(current, nil).Times(1)
			m.repo.EXPECT().UpdateCAS(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			target := tc.target
			result, err := svc.UpdateIncident(ctx, incidentID, models.IncidentUpdate{Status: &target})

			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, models.ErrInvalidTransition)
		})
	}
}

func TestUpdateIncident_PendingCanCancelWithoutHospital(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()

	cancelled := models.StatusCancelled
	current := &models.Incident{ID: incidentID, Status: models.StatusPending}
	updated := &models.Incident{ID: incidentID, Status: models.StatusCancelled}

	m.repo.EXPECT().GetByID(ctx, incidentID).Return(current, nil).Times(1)
	m.repo.EXPECT().UpdateCAS(ctx, incidentID, models.StatusPending, gomock.Any()).Return(updated, nil).Times(1)
	m.repo.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.TopicIncidentGlobal, broadcast.EventSOSUpdate, updated).Times(1)

	result, err := svc.UpdateIncident(ctx, incidentID, models.IncidentUpdate{Status: &cancelled})

	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, result.Status)
}

func TestUpdateIncident_TerminalRejectsFieldUpdates(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()

	notes := "late observation"
	current := &models.Incident{ID: incidentID, Status: models.StatusCompleted}

	m.repo.EXPECT().GetByID(ctx, incidentID).Return(current, nil).Times(1)
	m.repo.EXPECT().UpdateCAS(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.UpdateIncident(ctx, incidentID, models.IncidentUpdate{AdditionalNotes: &notes})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestUpdateIncident_UnknownStatus(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()

	bogus := models.IncidentStatus("ESCALATED")
	m.repo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.UpdateIncident(ctx, uuid.New(), models.IncidentUpdate{Status: &bogus})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestUpdateIncident_RetriesOnLostRace(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()

	cancelled := models.StatusCancelled
	pendingIncident := &models.Incident{ID: incidentID, Status: models.StatusPending}
	assignedIncident := &models.Incident{ID: incidentID, Status: models.StatusAssigned}
	updated := &models.Incident{ID: incidentID, Status: models.StatusCancelled}

	// First round reads PENDING but another writer moves it to ASSIGNED
	// underneath; the second round revalidates against ASSIGNED and wins.
	gomock.InOrder(
		m.repo.EXPECT().GetByID(ctx, incidentID).Return(pendingIncident, nil),
		m.repo.EXPECT().UpdateCAS(ctx, incidentID, models.StatusPending, gomock.Any()).Return(nil, models.ErrStatusConflict),
		m.repo.EXPECT().GetByID(ctx, incidentID).Return(assignedIncident, nil),
		m.repo.EXPECT().UpdateCAS(ctx, incidentID, models.StatusAssigned, gomock.Any()).Return(updated, nil),
	)
	m.repo.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.TopicIncidentGlobal, broadcast.EventSOSUpdate, updated).Times(1)

	result, err := svc.UpdateIncident(ctx, incidentID, models.IncidentUpdate{Status: &cancelled})

	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, result.Status)
}

func TestAssignHospital_FromPending(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()
	hospital := testHospital()

	current := &models.Incident{ID: incidentID, Status: models.StatusPending, ResponderID: "responder-7"}
	updated := &models.Incident{ID: incidentID, Status: models.StatusAssigned, HospitalID: &hospital.ID, ResponderID: "responder-7"}

	m.hospitals.EXPECT().GetByID(ctx, hospital.ID).Return(hospital, nil).Times(1)
	m.repo.EXPECT().GetByID(ctx, incidentID).Return(current, nil).Times(1)
	m.repo.EXPECT().
		UpdateCAS(ctx, incidentID, models.StatusPending, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, _ models.IncidentStatus, upd models.IncidentUpdate) (*models.Incident, error) {
			require.NotNil(t, upd.Status)
			assert.Equal(t, models.StatusAssigned, *upd.Status)
			return updated, nil
		}).Times(1)
	m.repo.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	m.router.EXPECT().
		Dispatch(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, payload models.NotificationPayload) models.DeliveryOutcome {
			assert.Equal(t, models.EventHospitalUpdate, payload.Type)
			return models.DeliveryOutcome{Recipient: payload.Recipient, Success: true}
		}).Times(3)

	m.broadcaster.EXPECT().Publish(ctx, broadcast.TopicIncidentGlobal, broadcast.EventSOSUpdate, updated).Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.HospitalTopic(hospital.ID), broadcast.EventSOSAssigned, updated).Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.ResponderTopic("responder-7"), broadcast.EventSOSStatusUpdate, updated).Times(1)

	result, err := svc.AssignHospital(ctx, incidentID, hospital.ID)

	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, result.Status)
}

func TestAssignHospital_SameHospitalIsIdempotent(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()
	hospital := testHospital()

	current := &models.Incident{ID: incidentID, Status: models.StatusAssigned, HospitalID: &hospital.ID}

	m.hospitals.EXPECT().GetByID(ctx, hospital.ID).Return(hospital, nil).Times(1)
	m.repo.EXPECT().GetByID(ctx, incidentID).Return(current, nil).Times(1)
	m.repo.EXPECT().UpdateCAS(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	m.router.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Times(0)
	m.broadcaster.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.AssignHospital(ctx, incidentID, hospital.ID)

	require.NoError(t, err)
	assert.Equal(t, current, result)
}

func TestAssignHospital_TerminalIncident(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	incidentID := uuid.New()
	hospital := testHospital()

	current := &models.Incident{ID: incidentID, Status: models.StatusCancelled}

	m.hospitals.EXPECT().GetByID(ctx, hospital.ID).Return(hospital, nil).Times(1)
	m.repo.EXPECT().GetByID(ctx, incidentID).Return(current, nil).Times(1)
	m.repo.EXPECT().UpdateCAS(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.AssignHospital(ctx, incidentID, hospital.ID)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestAssignHospital_HospitalNotFound(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	hospitalID := uuid.New()

	m.hospitals.EXPECT().GetByID(ctx, hospitalID).Return(nil, models.ErrHospitalNotFound).Times(1)
	m.repo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.AssignHospital(ctx, uuid.New(), hospitalID)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrHospitalNotFound)
}

func TestSendStockAlert_CriticalEscalatesPriority(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	hospital := testHospital()

	stock := models.StockItem{AntivenomType: "polyvalent", Quantity: 2}

	m.hospitals.EXPECT().GetByID(ctx, hospital.ID).Return(hospital, nil).Times(1)
	m.router.EXPECT().
		DispatchBatch(ctx, []string{hospital.ContactInfo.Phone, hospital.ContactInfo.Email}, gomock.Any(), models.EventStockAlert, models.PriorityHigh).
		Return(models.BatchSummary{Total: 2, Successful: 2}).
		Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.StockTopic(hospital.ID), broadcast.EventStockUpdate, gomock.Any()).Times(1)

	err := svc.SendStockAlert(ctx, hospital.ID, stock)

	require.NoError(t, err)
}

func TestSendStockAlert_HealthyStockUsesMediumPriority(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	hospital := testHospital()

	stock := models.StockItem{AntivenomType: "polyvalent", Quantity: 40}

	m.hospitals.EXPECT().GetByID(ctx, hospital.ID).Return(hospital, nil).Times(1)
	m.router.EXPECT().
		DispatchBatch(ctx, gomock.Any(), gomock.Any(), models.EventStockAlert, models.PriorityMedium).
		Return(models.BatchSummary{Total: 2, Successful: 2}).
		Times(1)
	m.broadcaster.EXPECT().Publish(ctx, broadcast.StockTopic(hospital.ID), broadcast.EventStockUpdate, gomock.Any()).Times(1)

	err := svc.SendStockAlert(ctx, hospital.ID, stock)

	require.NoError(t, err)
}

func TestSendStockAlert_HospitalNotFound(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()
	hospitalID := uuid.New()

	m.hospitals.EXPECT().GetByID(ctx, hospitalID).Return(nil, models.ErrHospitalNotFound).Times(1)
	m.router.EXPECT().DispatchBatch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	err := svc.SendStockAlert(ctx, hospitalID, models.StockItem{AntivenomType: "polyvalent"})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrHospitalNotFound)
}

func TestGetStats_SumsWindowCounts(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()

	counts := []models.StatusCount{
		{Status: models.StatusPending, Count: 3},
		{Status: models.StatusAssigned, Count: 5},
		{Status: models.StatusCompleted, Count: 2},
	}

	m.repo.EXPECT().CountByStatus(ctx, 60).Return(counts, nil).Times(1)

	stats, err := svc.GetStats(ctx)

	require.NoError(t, err)
	assert.Equal(t, 60, stats.WindowMinutes)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, counts, stats.ByStatus)
}

func TestListIncidents_NormalizesPagination(t *testing.T) {
	svc, m := newTestDispatchService(t, nil)
	ctx := context.Background()

	expected := []*models.Incident{{ID: uuid.New()}}
	m.repo.EXPECT().List(ctx, 1, 20).Return(expected, nil).Times(1)

	incidents, err := svc.ListIncidents(ctx, -1, 500)

	require.NoError(t, err)
	assert.Equal(t, expected, incidents)
}
