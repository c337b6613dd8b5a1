package matching

import (
	"time"

	"github.com/richxcame/schoolrun/pkg/models"
)

// IsDuplicate reports whether ride was created from req. Rides that carry a
// source request id are matched exactly. Legacy rides without one fall back
// to equal coordinates and a scheduled time within tolerance.
func IsDuplicate(req models.RideRequest, ride models.Ride, tolerance time.Duration) bool {
	if ride.SourceRequestID != nil {
		return *ride.SourceRequestID == req.ID
	}

	if !req.Origin.SameCoordinates(ride.Origin) || !req.Destination.SameCoordinates(ride.Destination) {
		return false
	}
	diff := req.ScheduledTime.Sub(ride.ScheduledTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

func duplicatesAny(req models.RideRequest, rides []models.Ride, tolerance time.Duration) bool {
	for _, ride := range rides {
		if IsDuplicate(req, ride, tolerance) {
			return true
		}
	}
	return false
}
