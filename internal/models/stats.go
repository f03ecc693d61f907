package models

import "time"

// Grade is the letter grade assigned by the performance weighting.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// DailyStat summarises teacher attendance for one calendar day.
type DailyStat struct {
	Date            time.Time `json:"date"`
	TotalTeachers   int       `json:"total_teachers"`
	PresentCount    int       `json:"present_count"`
	LateCount       int       `json:"late_count"`
	AbsentCount     int       `json:"absent_count"`
	AttendanceRate  float64   `json:"attendance_rate"`
	PunctualityRate float64   `json:"punctuality_rate"`
}

// DepartmentStat aggregates attendance per department over a range.
type DepartmentStat struct {
	Department      string  `json:"department"`
	TeacherCount    int     `json:"teacher_count"`
	PresentCount    int     `json:"present_count"`
	LateCount       int     `json:"late_count"`
	AttendanceRate  float64 `json:"attendance_rate"`
	PunctualityRate float64 `json:"punctuality_rate"`
}

// TeacherPerformance rolls one teacher's range statistics into a grade.
type TeacherPerformance struct {
	UserID              string  `json:"user_id"`
	TeacherName         string  `json:"teacher_name"`
	Department          string  `json:"department"`
	WorkingDays         int     `json:"working_days"`
	PresentCount        int     `json:"present_count"`
	LateCount           int     `json:"late_count"`
	AbsentCount         int     `json:"absent_count"`
	SessionsTaught      int     `json:"sessions_taught"`
	AttendanceRate      float64 `json:"attendance_rate"`
	PunctualityRate     float64 `json:"punctuality_rate"`
	TeachingQualityRate float64 `json:"teaching_quality_rate"`
	Score               float64 `json:"score"`
	Grade               Grade   `json:"grade"`
}
