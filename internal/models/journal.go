package models

import "time"

// StudentAttendanceStatus is a per-session roster status. The letter codes
// follow the kehadiran convention: H hadir, S sakit, I izin, A alpha.
type StudentAttendanceStatus string

const (
	StudentPresent    StudentAttendanceStatus = "H"
	StudentSick       StudentAttendanceStatus = "S"
	StudentPermission StudentAttendanceStatus = "I"
	StudentAbsent     StudentAttendanceStatus = "A"
)

// Valid returns true when the status is a supported value.
func (s StudentAttendanceStatus) Valid() bool {
	switch s {
	case StudentPresent, StudentSick, StudentPermission, StudentAbsent:
		return true
	default:
		return false
	}
}

// TeachingLog is one class period taught by one teacher.
type TeachingLog struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Date          time.Time `db:"date" json:"date"`
	ClassID       string    `db:"class_id" json:"class_id"`
	SubjectID     string    `db:"subject_id" json:"subject_id"`
	Topic         string    `db:"topic" json:"topic"`
	Materials     string    `db:"materials" json:"materials"`
	Homework      *string   `db:"homework" json:"homework,omitempty"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	TotalStudents int       `db:"total_students" json:"total_students"`
	PresentCount  int       `db:"present_count" json:"present_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentAttendance is one student's status within a teaching session. Rows
// are owned by the TeachingLog that created them.
type StudentAttendance struct {
	ID            string                  `db:"id" json:"id"`
	TeachingLogID string                  `db:"teaching_log_id" json:"teaching_log_id"`
	StudentID     string                  `db:"student_id" json:"student_id"`
	Status        StudentAttendanceStatus `db:"status" json:"status"`
	ArrivalTime   *string                 `db:"arrival_time" json:"arrival_time,omitempty"`
	Notes         *string                 `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time               `db:"created_at" json:"created_at"`
}

// StudentAttendanceDetail extends the row with the student's name.
type StudentAttendanceDetail struct {
	StudentAttendance
	StudentName string `db:"student_name" json:"student_name"`
	NIS         string `db:"nis" json:"nis"`
}

// AttendanceSummary is the denormalised count cache of a session's roster.
// Invariant when the roster is fully accounted for: Total() == TotalStudents.
type AttendanceSummary struct {
	Present    int `json:"present"`
	Sick       int `json:"sick"`
	Permission int `json:"permission"`
	Absent     int `json:"absent"`
}

// Total sums every counted status.
func (s AttendanceSummary) Total() int {
	return s.Present + s.Sick + s.Permission + s.Absent
}

// TeachingLogDetail bundles a log with its roster rows and derived summary.
type TeachingLogDetail struct {
	TeachingLog
	ClassName   string                    `db:"class_name" json:"class_name"`
	SubjectName string                    `db:"subject_name" json:"subject_name"`
	TeacherName string                    `db:"teacher_name" json:"teacher_name"`
	Students    []StudentAttendanceDetail `json:"students,omitempty"`
	Summary     AttendanceSummary         `json:"summary"`
}

// TeachingLogFilter defines query filters for listing logs.
type TeachingLogFilter struct {
	UserID    string
	ClassID   string
	SubjectID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
