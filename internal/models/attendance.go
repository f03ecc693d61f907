package models

import (
	"time"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/geo"
)

// AttendanceStatus is the derived state of a teacher's daily check-in.
// Absent is never written at check-in time; the statistics engine infers it
// for expected working days with no record.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceLate, AttendanceAbsent:
		return true
	default:
		return false
	}
}

// AttendanceRecord is one teacher's attendance for one calendar day.
// Lifecycle: created on check-in, mutated once to add CheckOutTime.
type AttendanceRecord struct {
	ID             string           `db:"id" json:"id"`
	UserID         string           `db:"user_id" json:"user_id"`
	Date           time.Time        `db:"date" json:"date"`
	CheckInTime    time.Time        `db:"check_in_time" json:"check_in_time"`
	CheckOutTime   *time.Time       `db:"check_out_time" json:"check_out_time,omitempty"`
	Latitude       float64          `db:"latitude" json:"latitude"`
	Longitude      float64          `db:"longitude" json:"longitude"`
	DistanceMeters float64          `db:"distance_meters" json:"distance_meters"`
	Status         AttendanceStatus `db:"status" json:"status"`
	Notes          *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Location returns the recorded check-in coordinates.
func (r AttendanceRecord) Location() geo.Point {
	return geo.Point{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Complete reports whether the day's record has both check-in and check-out.
func (r AttendanceRecord) Complete() bool {
	return r.CheckOutTime != nil
}

// AttendanceRecordDetail extends the record with teacher metadata.
type AttendanceRecordDetail struct {
	AttendanceRecord
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	Department  string `db:"department" json:"department"`
}

// AttendanceFilter defines query filters for listing records.
type AttendanceFilter struct {
	UserID    string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
