package service

import (
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/clock"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/geo"
)

// TimeWindowStatus classifies the current time against the check-in window.
type TimeWindowStatus string

const (
	TimeStatusEarly  TimeWindowStatus = "early"
	TimeStatusOnTime TimeWindowStatus = "ontime"
	TimeStatusLate   TimeWindowStatus = "late"
	TimeStatusClosed TimeWindowStatus = "closed"
)

// LocationCheck is the structured result of a geofence validation.
type LocationCheck struct {
	Valid          bool    `json:"valid"`
	DistanceMeters float64 `json:"distance_meters"`
}

// TimeCheck is the structured result of a window validation.
type TimeCheck struct {
	Status TimeWindowStatus `json:"status"`
	Valid  bool             `json:"valid"`
}

// ValidateLocation checks whether the point lies within the school zone.
// A distance exactly equal to the radius is inside (inclusive boundary).
func ValidateLocation(p geo.Point, zone models.SchoolZone) LocationCheck {
	distance := geo.DistanceMeters(p, zone.Center)
	return LocationCheck{
		Valid:          distance <= zone.RadiusMeters,
		DistanceMeters: distance,
	}
}

// ValidateTime classifies now against the window. As now advances through a
// day the status sequence is early, ontime, late, closed; ontime and late are
// the only valid check-in states.
func ValidateTime(now clock.TimeOfDay, w models.TimeWindow) TimeCheck {
	switch {
	case now.Before(w.StartOfDay):
		return TimeCheck{Status: TimeStatusEarly, Valid: false}
	case now.After(w.EndOfDay):
		return TimeCheck{Status: TimeStatusClosed, Valid: false}
	case !now.After(w.LateThreshold):
		return TimeCheck{Status: TimeStatusOnTime, Valid: true}
	default:
		return TimeCheck{Status: TimeStatusLate, Valid: true}
	}
}

// DeriveCheckInStatus maps a valid check-in time to its recorded status.
// Absent is never derived here; it is inferred later for working days with
// no record at all.
func DeriveCheckInStatus(now clock.TimeOfDay, w models.TimeWindow) models.AttendanceStatus {
	if !now.After(w.LateThreshold) {
		return models.AttendancePresent
	}
	return models.AttendanceLate
}
