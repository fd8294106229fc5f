package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MauriceOS/snaktox-dispatch/internal/broadcast"
	"github.com/MauriceOS/snaktox-dispatch/internal/config"
	"github.com/MauriceOS/snaktox-dispatch/internal/models"
	"github.com/MauriceOS/snaktox-dispatch/internal/service"
)

type Handler struct {
	dispatch service.DispatchService
	hub      *broadcast.Hub
	logger   *logrus.Logger
	validate *validator.Validate
	cfg      *config.Config
}

func NewHandler(dispatch service.DispatchService, hub *broadcast.Hub, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		dispatch: dispatch,
		hub:      hub,
		logger:   logger,
		validate: validator.New(),
		cfg:      cfg,
	}
}

// respondError maps the dispatch error taxonomy onto HTTP status codes.
func respondError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCoordinates), errors.Is(err, models.ErrInvalidLocation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrIncidentNotFound), errors.Is(err, models.ErrHospitalNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("Unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Submit a new SOS report
// @Description Submit a snakebite incident report. The dispatch flow assigns the nearest eligible hospital, notifies its contacts and broadcasts realtime updates. Requires API key.
// @Tags SOS
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param report body CreateSOSReportRequest true "SOS report submission"
// @Success 201 {object} SOSReportResponse
// @Failure 400 {object} map[string]string "Invalid request body or location"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /sos [post]
func (h *Handler) createSOSReport(c *gin.Context) {
	var input CreateSOSReportRequest
	log := h.logger.WithField("method", "createSOSReport")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.dispatch.SubmitIncident(c.Request.Context(), CreateRequestToIncident(input))
	if err != nil {
		log.WithError(err).Warn("Failed to submit incident")
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, IncidentToResponse(incident))
}

// @Summary List SOS reports
// @Description Get a paginated list of SOS reports, newest first. Requires API key.
// @Tags SOS
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} SOSReportResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /sos [get]
func (h *Handler) listSOSReports(c *gin.Context) {
	log := h.logger.WithField("method", "listSOSReports")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(service.DefaultPageSize)))

	incidents, err := h.dispatch.ListIncidents(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, IncidentsToResponses(incidents))
}

// @Summary Get an SOS report by ID
// @Description Get a single SOS report by its ID. Requires API key.
// @Tags SOS
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "SOS report ID"
// @Success 200 {object} SOSReportResponse
// @Failure 400 {object} map[string]string "Invalid SOS report ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "SOS report not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /sos/{id} [get]
func (h *Handler) getSOSReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid SOS report ID"})
		return
	}
	log := h.logger.WithField("method", "getSOSReport").WithField("id", id)

	incident, err := h.dispatch.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, IncidentToResponse(incident))
}

// @Summary Update an SOS report
// @Description Update report fields and/or transition its status. Terminal reports reject any further change. Requires API key.
// @Tags SOS
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "SOS report ID"
// @Param report body UpdateSOSReportRequest true "SOS report update"
// @Success 200 {object} SOSReportResponse
// @Failure 400 {object} map[string]string "Invalid SOS report ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "SOS report not found"
// @Failure 409 {object} map[string]string "Invalid status transition"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /sos/{id} [patch]
func (h *Handler) updateSOSReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid SOS report ID"})
		return
	}
	log := h.logger.WithField("method", "updateSOSReport").WithField("id", id)

	var input UpdateSOSReportRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.dispatch.UpdateIncident(c.Request.Context(), id, UpdateRequestToIncidentUpdate(input))
	if err != nil {
		log.WithError(err).Warn("Failed to update SOS report")
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, IncidentToResponse(incident))
}

// @Summary Assign a hospital to an SOS report
// @Description Explicitly assign or reassign a hospital. Repeats notification and broadcast with hospital-update semantics. Requires API key.
// @Tags SOS
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "SOS report ID"
// @Param assignment body AssignHospitalRequest true "Hospital assignment"
// @Success 200 {object} SOSReportResponse
// @Failure 400 {object} map[string]string "Invalid ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "SOS report or hospital not found"
// @Failure 409 {object} map[string]string "Incident already terminal"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /sos/{id}/assign [post]
func (h *Handler) assignHospital(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid SOS report ID"})
		return
	}
	log := h.logger.WithField("method", "assignHospital").WithField("id", id)

	var input AssignHospitalRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.dispatch.AssignHospital(c.Request.Context(), id, input.HospitalID)
	if err != nil {
		log.WithError(err).Warn("Failed to assign hospital")
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, IncidentToResponse(incident))
}

// @Summary Send an antivenom stock alert
// @Description Notify a hospital's contacts about antivenom stock and broadcast a stock update. Requires API key.
// @Tags Hospitals
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Hospital ID"
// @Param stock body StockAlertRequest true "Stock alert payload"
// @Success 202 "Accepted"
// @Failure 400 {object} map[string]string "Invalid hospital ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Hospital not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /hospitals/{id}/stock-alert [post]
func (h *Handler) sendStockAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hospital ID"})
		return
	}
	log := h.logger.WithField("method", "sendStockAlert").WithField("id", id)

	var input StockAlertRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.dispatch.SendStockAlert(c.Request.Context(), id, models.StockItem{
		AntivenomType: input.AntivenomType,
		Quantity:      input.Quantity,
		ExpiryDate:    input.ExpiryDate,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to send stock alert")
		respondError(c, log, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// @Summary Get dispatch statistics
// @Description Get incident counts per status inside the configured window. Requires API key.
// @Tags SOS
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /sos/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	stats, err := h.dispatch.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		WindowMinutes: stats.WindowMinutes,
		Total:         stats.Total,
		ByStatus:      stats.ByStatus,
	})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
