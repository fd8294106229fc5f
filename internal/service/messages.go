package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/MauriceOS/snaktox-dispatch/internal/models"
)

// buildEmergencyMessage renders the alert text sent to hospital and
// emergency-service contacts when an incident is created.
func buildEmergencyMessage(incident *models.Incident, hospital *models.Hospital) string {
	var b strings.Builder
	b.WriteString("EMERGENCY ALERT - SNAKEBITE INCIDENT REPORTED\n\n")
	fmt.Fprintf(&b, "Location: %.4f, %.4f\n", incident.Latitude, incident.Longitude)
	if incident.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", incident.Address)
	}
	if incident.SnakeSpeciesID != nil {
		fmt.Fprintf(&b, "Snake species ref: %s\n", incident.SnakeSpeciesID)
	} else {
		b.WriteString("Snake species: unknown\n")
	}
	fmt.Fprintf(&b, "Time: %s\n", incident.CreatedAt.UTC().Format(time.RFC3339))
	if hospital != nil {
		fmt.Fprintf(&b, "\nAssigned hospital: %s\n", hospital.Name)
		if hospital.AntivenomStock != "" {
			fmt.Fprintf(&b, "Antivenom: %s\n", hospital.AntivenomStock)
		} else {
			b.WriteString("Antivenom: check stock\n")
		}
	} else {
		b.WriteString("\nNo hospital assigned yet\n")
	}
	fmt.Fprintf(&b, "\nResponder ID: %s\nSOS report ID: %s\n", incident.ResponderID, incident.ID)
	b.WriteString("\nIMMEDIATE ACTION REQUIRED")
	return b.String()
}

// buildHospitalUpdateMessage renders the text used on reassignment.
func buildHospitalUpdateMessage(incident *models.Incident, hospital *models.Hospital) string {
	var b strings.Builder
	b.WriteString("HOSPITAL UPDATE - SOS ASSIGNMENT\n\n")
	fmt.Fprintf(&b, "Hospital: %s\n", hospital.Name)
	fmt.Fprintf(&b, "SOS report ID: %s\n", incident.ID)
	fmt.Fprintf(&b, "Status: %s\n", incident.Status)
	fmt.Fprintf(&b, "Location: %.4f, %.4f\n", incident.Latitude, incident.Longitude)
	fmt.Fprintf(&b, "Responder ID: %s\n", incident.ResponderID)
	fmt.Fprintf(&b, "Time: %s\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString("\nPlease review and take necessary action.")
	return b.String()
}

// buildStockAlertMessage renders the antivenom stock alert text.
func buildStockAlertMessage(hospital *models.Hospital, stock models.StockItem, critical bool) string {
	urgency := "WARNING"
	action := "Monitor stock levels"
	if critical {
		urgency = "CRITICAL"
		action = "URGENT RESTOCK NEEDED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s STOCK ALERT\n\n", urgency)
	fmt.Fprintf(&b, "Hospital: %s\n", hospital.Name)
	fmt.Fprintf(&b, "Antivenom type: %s\n", stock.AntivenomType)
	fmt.Fprintf(&b, "Current stock: %d\n", stock.Quantity)
	fmt.Fprintf(&b, "Expiry date: %s\n", stock.ExpiryDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "\nAction required: %s", action)
	return b.String()
}
