package v1

import (
	"github.com/MauriceOS/snaktox-dispatch/internal/models"
)

// CreateRequestToIncident maps the submit request onto a new domain incident.
func CreateRequestToIncident(req CreateSOSReportRequest) *models.Incident {
	return &models.Incident{
		Latitude:        *req.Latitude,
		Longitude:       *req.Longitude,
		Address:         req.Address,
		ResponderID:     req.ResponderID,
		SnakeSpeciesID:  req.SnakeSpeciesID,
		VictimInfo:      req.VictimInfo,
		Symptoms:        req.Symptoms,
		FirstAidApplied: req.FirstAidApplied,
		AdditionalNotes: req.AdditionalNotes,
	}
}

// UpdateRequestToIncidentUpdate maps the transition request to the domain
// update value; nil fields stay untouched downstream.
func UpdateRequestToIncidentUpdate(req UpdateSOSReportRequest) models.IncidentUpdate {
	upd := models.IncidentUpdate{
		SnakeSpeciesID:  req.SnakeSpeciesID,
		Symptoms:        req.Symptoms,
		FirstAidApplied: req.FirstAidApplied,
		AdditionalNotes: req.AdditionalNotes,
	}
	if req.Status != nil {
		status := models.IncidentStatus(*req.Status)
		upd.Status = &status
	}
	return upd
}

// IncidentToResponse maps a domain incident to the canonical API record.
func IncidentToResponse(incident *models.Incident) *SOSReportResponse {
	return &SOSReportResponse{
		ID:              incident.ID,
		Latitude:        incident.Latitude,
		Longitude:       incident.Longitude,
		Address:         incident.Address,
		ResponderID:     incident.ResponderID,
		SnakeSpeciesID:  incident.SnakeSpeciesID,
		HospitalID:      incident.HospitalID,
		Status:          incident.Status,
		VictimInfo:      incident.VictimInfo,
		Symptoms:        incident.Symptoms,
		FirstAidApplied: incident.FirstAidApplied,
		AdditionalNotes: incident.AdditionalNotes,
		CreatedAt:       incident.CreatedAt,
		UpdatedAt:       incident.UpdatedAt,
	}
}

// IncidentsToResponses maps a slice of incidents.
func IncidentsToResponses(incidents []*models.Incident) []*SOSReportResponse {
	responses := make([]*SOSReportResponse, len(incidents))
	for i, incident := range incidents {
		responses[i] = IncidentToResponse(incident)
	}
	return responses
}
