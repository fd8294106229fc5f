package geo

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/MauriceOS/snaktox-dispatch/internal/models"
	"github.com/sirupsen/logrus"
)

const earthRadiusKm = 6371.0

// HospitalDirectory is the read-only view of the hospital directory the
// resolver needs.
type HospitalDirectory interface {
	ListEligible(ctx context.Context) ([]*models.Hospital, error)
}

// Resolver finds the nearest eligible hospital for a coordinate.
type Resolver struct {
	directory HospitalDirectory
	logger    *logrus.Logger
}

func NewResolver(directory HospitalDirectory, logger *logrus.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		logger:    logger,
	}
}

// ValidateCoordinates checks that lat/lng are finite and within range.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return models.ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return models.ErrInvalidCoordinates
	}
	return nil
}

// Distance returns the great-circle distance between two points in kilometers.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLng := deg2rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// NearestHospital returns the eligible hospital with the minimal haversine
// distance from the query point. Ties resolve to the lowest hospital id so
// the result is deterministic. Returns models.ErrNoHospitalAvailable when
// the directory holds no eligible hospital; the caller treats that as a
// valid outcome, not a failure.
func (r *Resolver) NearestHospital(ctx context.Context, lat, lng float64) (*models.Hospital, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}

	log := r.logger.WithFields(logrus.Fields{
		"component": "geo_resolver",
		"lat":       lat,
		"lng":       lng,
	})

	hospitals, err := r.directory.ListEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolver: failed to list eligible hospitals: %w", err)
	}
	if len(hospitals) == 0 {
		log.Warn("No eligible hospitals in directory")
		return nil, models.ErrNoHospitalAvailable
	}

	var nearest *models.Hospital
	var nearestDist float64
	for _, h := range hospitals {
		d := Distance(lat, lng, h.Latitude, h.Longitude)
		if nearest == nil || d < nearestDist ||
			(d == nearestDist && strings.Compare(h.ID.String(), nearest.ID.String()) < 0) {
			nearest = h
			nearestDist = d
		}
	}

	log.WithFields(logrus.Fields{
		"hospital_id": nearest.ID,
		"distance_km": nearestDist,
	}).Info("Nearest hospital resolved")
	return nearest, nil
}
