package models

import (
	"fmt"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/clock"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/geo"
)

// SettingsKeyAttendance is the settings collection key for attendance rules.
const SettingsKeyAttendance = "attendance"

// SchoolZone is the circular geofence teachers must be inside to check in.
type SchoolZone struct {
	Center       geo.Point `json:"center"`
	RadiusMeters float64   `json:"radius_meters"`
}

// Validate checks coordinate ranges and a positive radius.
func (z SchoolZone) Validate() error {
	if !z.Center.Valid() {
		return fmt.Errorf("school zone center out of coordinate range")
	}
	if z.RadiusMeters <= 0 {
		return fmt.Errorf("school zone radius must be positive")
	}
	return nil
}

// TimeWindow bounds the daily check-in period. The ordering invariant
// start <= lateThreshold <= end is enforced on every write.
type TimeWindow struct {
	StartOfDay    clock.TimeOfDay `json:"start_of_day"`
	LateThreshold clock.TimeOfDay `json:"late_threshold"`
	EndOfDay      clock.TimeOfDay `json:"end_of_day"`
}

// Validate enforces the window ordering invariant.
func (w TimeWindow) Validate() error {
	if w.LateThreshold.Before(w.StartOfDay) {
		return fmt.Errorf("late threshold %s precedes start of day %s", w.LateThreshold, w.StartOfDay)
	}
	if w.EndOfDay.Before(w.LateThreshold) {
		return fmt.Errorf("end of day %s precedes late threshold %s", w.EndOfDay, w.LateThreshold)
	}
	return nil
}

// AttendanceSettings is the admin-mutated configuration read by every
// check-in validation.
type AttendanceSettings struct {
	Zone                   SchoolZone `json:"zone"`
	Window                 TimeWindow `json:"window"`
	PreventMultipleCheckin bool       `json:"prevent_multiple_checkin"`
	Timezone               string     `json:"timezone"`
}

// Validate checks the embedded zone and window.
func (s AttendanceSettings) Validate() error {
	if err := s.Zone.Validate(); err != nil {
		return err
	}
	return s.Window.Validate()
}
