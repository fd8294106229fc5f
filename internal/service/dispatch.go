package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MauriceOS/snaktox-dispatch/internal/broadcast"
	"github.com/MauriceOS/snaktox-dispatch/internal/config"
	"github.com/MauriceOS/snaktox-dispatch/internal/geo"
	"github.com/MauriceOS/snaktox-dispatch/internal/models"
)

//go:generate mockgen -source=dispatch.go -destination=mocks/dispatch_mock.go -package=mocks

// casRetries bounds how often a transition is revalidated after losing a
// conditional-update race to another instance.
const casRetries = 3

// DefaultPageSize is the list page size used when the caller passes none
// or an out-of-range value.
const DefaultPageSize = 20

// IncidentRepository is the persistence contract for incidents.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	List(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	UpdateCAS(ctx context.Context, id uuid.UUID, expected models.IncidentStatus, upd models.IncidentUpdate) (*models.Incident, error)
	CountByStatus(ctx context.Context, minutes int) ([]models.StatusCount, error)
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// HospitalRepository is the read-only hospital directory contract.
type HospitalRepository interface {
	ListEligible(ctx context.Context) ([]*models.Hospital, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Hospital, error)
}

// HospitalResolver finds the nearest eligible hospital for a coordinate.
type HospitalResolver interface {
	NearestHospital(ctx context.Context, lat, lng float64) (*models.Hospital, error)
}

// NotificationRouter delivers payloads over the configured channels.
type NotificationRouter interface {
	Dispatch(ctx context.Context, payload models.NotificationPayload) models.DeliveryOutcome
	DispatchBatch(ctx context.Context, recipients []string, message string, eventType models.EventType, priority models.Priority) models.BatchSummary
}

// Broadcaster publishes realtime events. Fire-and-forget: implementations
// log their own failures and never block on subscriber processing.
type Broadcaster interface {
	Publish(ctx context.Context, topic, eventType string, data any)
}

// Stats is the dispatch statistics aggregate.
type Stats struct {
	WindowMinutes int                  `json:"window_minutes"`
	Total         int                  `json:"total"`
	ByStatus      []models.StatusCount `json:"by_status"`
}

// DispatchService is the business contract for the emergency dispatch flow.
type DispatchService interface {
	SubmitIncident(ctx context.Context, incident *models.Incident) (*models.Incident, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	UpdateIncident(ctx context.Context, id uuid.UUID, upd models.IncidentUpdate) (*models.Incident, error)
	AssignHospital(ctx context.Context, id, hospitalID uuid.UUID) (*models.Incident, error)
	SendStockAlert(ctx context.Context, hospitalID uuid.UUID, stock models.StockItem) error
	GetStats(ctx context.Context) (*Stats, error)
}

type dispatchService struct {
	repo        IncidentRepository
	hospitals   HospitalRepository
	resolver    HospitalResolver
	router      NotificationRouter
	broadcaster Broadcaster
	logger      *logrus.Logger
	cfg         *config.Config
	locks       *keyedMutex
}

func NewDispatchService(
	repo IncidentRepository,
	hospitals HospitalRepository,
	resolver HospitalResolver,
	router NotificationRouter,
	broadcaster Broadcaster,
	logger *logrus.Logger,
	cfg *config.Config,
) DispatchService {
	return &dispatchService{
		repo:        repo,
		hospitals:   hospitals,
		resolver:    resolver,
		router:      router,
		broadcaster: broadcaster,
		logger:      logger,
		cfg:         cfg,
		locks:       newKeyedMutex(),
	}
}

// SubmitIncident runs the full dispatch flow: validate, create in PENDING,
// resolve the nearest hospital, assign, notify, broadcast. Only validation
// failures surface to the caller; once the create commits, resolution,
// notification and broadcast problems are logged and fault-isolated.
func (s *dispatchService) SubmitIncident(ctx context.Context, incident *models.Incident) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "dispatch",
		"method":  "SubmitIncident",
	})

	// Step 1: validate before any persistence.
	if err := geo.ValidateCoordinates(incident.Latitude, incident.Longitude); err != nil {
		log.WithError(err).Warn("Rejected incident with invalid coordinates")
		return nil, fmt.Errorf("service: %w", err)
	}

	// Step 2: create in PENDING.
	incident.Status = models.StatusPending
	incident.HospitalID = nil
	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}
	log = log.WithField("incident_id", incident.ID)
	log.Info("Incident created")

	// Step 3: resolve and assign. No eligible hospital is a valid outcome;
	// the incident stays PENDING and the flow continues.
	hospital := s.resolveAndAssign(ctx, incident, log)

	// Steps 4-5 never fail the submission.
	s.notifyEmergency(ctx, incident, hospital, log)
	s.broadcastIncident(ctx, incident, log)

	return incident, nil
}

// resolveAndAssign performs the geo resolution and, when a hospital is
// found, moves the incident PENDING -> ASSIGNED. Returns the assigned
// hospital or nil.
func (s *dispatchService) resolveAndAssign(ctx context.Context, incident *models.Incident, log *logrus.Entry) *models.Hospital {
	hospital, err := s.resolver.NearestHospital(ctx, incident.Latitude, incident.Longitude)
	if err != nil {
		if errors.Is(err, models.ErrNoHospitalAvailable) {
			log.Warn("No eligible hospital available, incident stays PENDING")
		} else {
			log.WithError(err).Error("Hospital resolution failed, incident stays PENDING")
		}
		return nil
	}

	assigned := models.StatusAssigned
	updated, err := s.repo.UpdateCAS(ctx, incident.ID, models.StatusPending, models.IncidentUpdate{
		Status:     &assigned,
		HospitalID: &hospital.ID,
	})
	if err != nil {
		log.WithError(err).WithField("hospital_id", hospital.ID).Error("Failed to assign resolved hospital")
		return nil
	}
	*incident = *updated

	if err := s.repo.InvalidateIncidentCache(ctx, incident.ID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.WithField("hospital_id", hospital.ID).Info("Incident assigned to nearest hospital")
	return hospital
}

// notifyEmergency fans emergency alerts out to the assigned hospital's
// contacts and the configured emergency services. Failures are reflected in
// the batch summary and logs only.
func (s *dispatchService) notifyEmergency(ctx context.Context, incident *models.Incident, hospital *models.Hospital, log *logrus.Entry) {
	message := buildEmergencyMessage(incident, hospital)

	if hospital != nil {
		s.notifyHospitalContacts(ctx, hospital, message, models.EventEmergencyAlert, incident.ID.String(), log)
	}

	if len(s.cfg.EmergencyContacts) > 0 {
		summary := s.router.DispatchBatch(ctx, s.cfg.EmergencyContacts, message, models.EventEmergencyAlert, models.PriorityCritical)
		if summary.Failed > 0 {
			log.WithFields(logrus.Fields{
				"failed": summary.Failed,
				"total":  summary.Total,
			}).Warn("Some emergency-service notifications failed")
		}
	}
}

// notifyHospitalContacts delivers one message to every contact channel the
// hospital exposes: emergency phone CRITICAL, general phone HIGH, email MEDIUM.
func (s *dispatchService) notifyHospitalContacts(ctx context.Context, hospital *models.Hospital, message string, eventType models.EventType, incidentID string, log *logrus.Entry) {
	contacts := []struct {
		recipient string
		priority  models.Priority
	}{
		{hospital.ContactInfo.EmergencyPhone, models.PriorityCritical},
		{hospital.ContactInfo.Phone, models.PriorityHigh},
		{hospital.ContactInfo.Email, models.PriorityMedium},
	}

	for _, c := range contacts {
		if c.recipient == "" {
			continue
		}
		outcome := s.router.Dispatch(ctx, models.NotificationPayload{
			Type:       eventType,
			Recipient:  c.recipient,
			Message:    message,
			Priority:   c.priority,
			IncidentID: incidentID,
		})
		if !outcome.Success {
			log.WithFields(logrus.Fields{
				"recipient": outcome.Recipient,
				"channel":   outcome.Channel,
				"retryable": outcome.Retryable,
				"error":     outcome.Error,
			}).Warn("Hospital notification failed")
		}
	}
}

// broadcastIncident publishes the realtime events for a dispatch: global
// sos_update, per-hospital sos_assigned, per-responder sos_status_update.
func (s *dispatchService) broadcastIncident(ctx context.Context, incident *models.Incident, log *logrus.Entry) {
	s.broadcaster.Publish(ctx, broadcast.TopicIncidentGlobal, broadcast.EventSOSUpdate, incident)

	if incident.HospitalID != nil {
		s.broadcaster.Publish(ctx, broadcast.HospitalTopic(*incident.HospitalID), broadcast.EventSOSAssigned, incident)
	}
	if incident.ResponderID != "" {
		s.broadcaster.Publish(ctx, broadcast.ResponderTopic(incident.ResponderID), broadcast.EventSOSStatusUpdate, incident)
	}
	log.Debug("Incident events broadcast")
}

// GetIncident returns one incident, reading through the cache.
func (s *dispatchService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Incident cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents returns incidents with pagination.
func (s *dispatchService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	incidents, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list incidents")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}
	return incidents, nil
}

// UpdateIncident applies a transition. The new status is validated against
// the state read inside the same conditional update, so concurrent callers
// can never skip a validation step; losing racers revalidate and retry.
func (s *dispatchService) UpdateIncident(ctx context.Context, id uuid.UUID, upd models.IncidentUpdate) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "UpdateIncident",
		"incident_id": id,
	})

	if upd.Status != nil && !upd.Status.IsValid() {
		return nil, fmt.Errorf("service: unknown status %q: %w", *upd.Status, models.ErrInvalidTransition)
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	var updated *models.Incident
	for attempt := 0; ; attempt++ {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			log.WithError(err).Warn("Incident not found for update")
			return nil, fmt.Errorf("service: %w", err)
		}

		if upd.Status != nil {
			if !current.Status.CanTransitionTo(*upd.Status) {
				log.WithFields(logrus.Fields{
					"from": current.Status,
					"to":   *upd.Status,
				}).Warn("Rejected invalid status transition")
				return nil, fmt.Errorf("service: %s -> %s: %w", current.Status, *upd.Status, models.ErrInvalidTransition)
			}
			// Every state past PENDING except CANCELLED implies an
			// assigned hospital.
			if *upd.Status != models.StatusPending && *upd.Status != models.StatusCancelled &&
				current.HospitalID == nil && upd.HospitalID == nil {
				log.WithField("to", *upd.Status).Warn("Rejected transition without an assigned hospital")
				return nil, fmt.Errorf("service: cannot move to %s without a hospital: %w", *upd.Status, models.ErrInvalidTransition)
			}
		} else if current.Status.IsTerminal() {
			return nil, fmt.Errorf("service: incident is %s: %w", current.Status, models.ErrInvalidTransition)
		}

		updated, err = s.repo.UpdateCAS(ctx, id, current.Status, upd)
		if err == nil {
			break
		}
		if errors.Is(err, models.ErrStatusConflict) && attempt < casRetries {
			log.Debug("Lost transition race, revalidating")
			continue
		}
		log.WithError(err).Error("Failed to update incident")
		return nil, fmt.Errorf("service: could not update incident: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.WithField("status", updated.Status).Info("Incident updated")

	s.broadcaster.Publish(ctx, broadcast.TopicIncidentGlobal, broadcast.EventSOSUpdate, updated)
	if updated.ResponderID != "" {
		s.broadcaster.Publish(ctx, broadcast.ResponderTopic(updated.ResponderID), broadcast.EventSOSStatusUpdate, updated)
	}

	return updated, nil
}

// AssignHospital sets the hospital on an incident, forcing ASSIGNED when it
// is still PENDING, then repeats the notify and broadcast steps with
// hospital-update semantics. Assigning the same hospital again is a no-op.
func (s *dispatchService) AssignHospital(ctx context.Context, id, hospitalID uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "AssignHospital",
		"incident_id": id,
		"hospital_id": hospitalID,
	})

	hospital, err := s.hospitals.GetByID(ctx, hospitalID)
	if err != nil {
		log.WithError(err).Warn("Hospital not found for assignment")
		return nil, fmt.Errorf("service: %w", err)
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	var updated *models.Incident
	for attempt := 0; ; attempt++ {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			log.WithError(err).Warn("Incident not found for assignment")
			return nil, fmt.Errorf("service: %w", err)
		}

		if current.Status.IsTerminal() {
			log.WithField("status", current.Status).Warn("Rejected assignment on terminal incident")
			return nil, fmt.Errorf("service: incident is %s: %w", current.Status, models.ErrInvalidTransition)
		}

		// Idempotent repeat: same hospital, already assigned.
		if current.HospitalID != nil && *current.HospitalID == hospitalID && current.Status == models.StatusAssigned {
			log.Info("Hospital already assigned, nothing to do")
			return current, nil
		}

		upd := models.IncidentUpdate{HospitalID: &hospitalID}
		if current.Status == models.StatusPending {
			assigned := models.StatusAssigned
			upd.Status = &assigned
		}

		updated, err = s.repo.UpdateCAS(ctx, id, current.Status, upd)
		if err == nil {
			break
		}
		if errors.Is(err, models.ErrStatusConflict) && attempt < casRetries {
			log.Debug("Lost assignment race, revalidating")
			continue
		}
		log.WithError(err).Error("Failed to assign hospital")
		return nil, fmt.Errorf("service: could not assign hospital: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.Info("Hospital assigned")

	s.notifyHospitalContacts(ctx, hospital, buildHospitalUpdateMessage(updated, hospital), models.EventHospitalUpdate, updated.ID.String(), log)
	s.broadcastIncident(ctx, updated, log)

	return updated, nil
}

// SendStockAlert notifies a hospital about its antivenom stock and publishes
// a stock_update on the hospital's stock topic. Priority escalates to HIGH
// below the configured critical threshold.
func (s *dispatchService) SendStockAlert(ctx context.Context, hospitalID uuid.UUID, stock models.StockItem) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "SendStockAlert",
		"hospital_id": hospitalID,
	})

	hospital, err := s.hospitals.GetByID(ctx, hospitalID)
	if err != nil {
		log.WithError(err).Warn("Hospital not found for stock alert")
		return fmt.Errorf("service: %w", err)
	}

	critical := stock.Quantity < s.cfg.StockCriticalThreshold
	priority := models.PriorityMedium
	if critical {
		priority = models.PriorityHigh
	}

	message := buildStockAlertMessage(hospital, stock, critical)
	recipients := make([]string, 0, 2)
	if hospital.ContactInfo.Phone != "" {
		recipients = append(recipients, hospital.ContactInfo.Phone)
	}
	if hospital.ContactInfo.Email != "" {
		recipients = append(recipients, hospital.ContactInfo.Email)
	}

	if len(recipients) > 0 {
		summary := s.router.DispatchBatch(ctx, recipients, message, models.EventStockAlert, priority)
		if summary.Failed > 0 {
			log.WithFields(logrus.Fields{
				"failed": summary.Failed,
				"total":  summary.Total,
			}).Warn("Some stock alert notifications failed")
		}
	}

	s.broadcaster.Publish(ctx, broadcast.StockTopic(hospitalID), broadcast.EventStockUpdate, map[string]any{
		"hospital_id": hospitalID,
		"stock":       stock,
		"critical":    critical,
	})

	log.Info("Stock alert sent")
	return nil
}

// GetStats aggregates incident counts per status over the configured window.
func (s *dispatchService) GetStats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.CountByStatus(ctx, s.cfg.StatsTimeWindowMinutes)
	if err != nil {
		s.logger.WithError(err).Error("Failed to aggregate dispatch stats")
		return nil, fmt.Errorf("service: could not get stats: %w", err)
	}

	stats := &Stats{
		WindowMinutes: s.cfg.StatsTimeWindowMinutes,
		ByStatus:      counts,
	}
	for _, c := range counts {
		stats.Total += c.Count
	}
	return stats, nil
}
