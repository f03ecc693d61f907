package service

import (
	"sort"
	"time"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
)

// StatisticsEngine computes reporting rollups as pure functions of already
// loaded collections. It never touches storage, which keeps every rollup
// independently testable.
type StatisticsEngine struct{}

// NewStatisticsEngine constructs the engine.
func NewStatisticsEngine() *StatisticsEngine {
	return &StatisticsEngine{}
}

// DailyAttendanceRate is the share of teachers with any valid record
// (present or late) for the day.
func (e *StatisticsEngine) DailyAttendanceRate(records []models.AttendanceRecord, totalTeachers int) float64 {
	if totalTeachers == 0 {
		return 0
	}
	counted := 0
	for _, record := range records {
		if record.Status == models.AttendancePresent || record.Status == models.AttendanceLate {
			counted++
		}
	}
	return float64(counted) / float64(totalTeachers) * 100
}

// PunctualityRate counts only on-time arrivals; late does not contribute.
func (e *StatisticsEngine) PunctualityRate(records []models.AttendanceRecord, totalTeachers int) float64 {
	if totalTeachers == 0 {
		return 0
	}
	counted := 0
	for _, record := range records {
		if record.Status == models.AttendancePresent {
			counted++
		}
	}
	return float64(counted) / float64(totalTeachers) * 100
}

// DailyStat builds the full summary for one day's records.
func (e *StatisticsEngine) DailyStat(date time.Time, records []models.AttendanceRecord, totalTeachers int) models.DailyStat {
	stat := models.DailyStat{Date: date, TotalTeachers: totalTeachers}
	for _, record := range records {
		switch record.Status {
		case models.AttendancePresent:
			stat.PresentCount++
		case models.AttendanceLate:
			stat.LateCount++
		case models.AttendanceAbsent:
			stat.AbsentCount++
		}
	}
	if totalTeachers > 0 {
		stat.AbsentCount = totalTeachers - stat.PresentCount - stat.LateCount
		if stat.AbsentCount < 0 {
			stat.AbsentCount = 0
		}
	}
	stat.AttendanceRate = e.DailyAttendanceRate(records, totalTeachers)
	stat.PunctualityRate = e.PunctualityRate(records, totalTeachers)
	return stat
}

// DepartmentRollup groups teachers by department and computes per-department
// rates using only records belonging to that department's teachers.
func (e *StatisticsEngine) DepartmentRollup(users []models.User, records []models.AttendanceRecord, workingDays int) []models.DepartmentStat {
	if workingDays < 1 {
		workingDays = 1
	}
	byDepartment := map[string][]models.User{}
	for _, user := range users {
		if user.Role != models.RoleTeacher || !user.Active {
			continue
		}
		byDepartment[user.Department] = append(byDepartment[user.Department], user)
	}

	stats := make([]models.DepartmentStat, 0, len(byDepartment))
	for department, teachers := range byDepartment {
		members := map[string]struct{}{}
		for _, teacher := range teachers {
			members[teacher.ID] = struct{}{}
		}
		stat := models.DepartmentStat{Department: department, TeacherCount: len(teachers)}
		for _, record := range records {
			if _, ok := members[record.UserID]; !ok {
				continue
			}
			switch record.Status {
			case models.AttendancePresent:
				stat.PresentCount++
			case models.AttendanceLate:
				stat.LateCount++
			}
		}
		expected := len(teachers) * workingDays
		if expected > 0 {
			stat.AttendanceRate = float64(stat.PresentCount+stat.LateCount) / float64(expected) * 100
			stat.PunctualityRate = float64(stat.PresentCount) / float64(expected) * 100
		}
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Department < stats[j].Department
	})
	return stats
}

// WorkingDaysInRange counts Monday through Friday days in [start, end]. A
// degenerate range yields 1 so downstream rate divisions stay defined.
func (e *StatisticsEngine) WorkingDaysInRange(start, end time.Time) int {
	count := 0
	for day := dateOnly(start); !day.After(dateOnly(end)); day = day.AddDate(0, 0, 1) {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return count
}

// PerformanceGrade weights attendance against teaching quality and maps the
// score to a letter grade.
func (e *StatisticsEngine) PerformanceGrade(attendanceRate, teachingQualityRate float64) (float64, models.Grade) {
	score := 0.6*attendanceRate + 0.4*teachingQualityRate
	switch {
	case score >= 90:
		return score, models.GradeA
	case score >= 80:
		return score, models.GradeB
	case score >= 70:
		return score, models.GradeC
	case score >= 60:
		return score, models.GradeD
	default:
		return score, models.GradeF
	}
}

// TeacherPerformance rolls one teacher's range records and sessions into a
// graded summary. Days with no record count as absent.
func (e *StatisticsEngine) TeacherPerformance(teacher models.User, records []models.AttendanceRecord, logs []models.TeachingLog, start, end time.Time) models.TeacherPerformance {
	workingDays := e.WorkingDaysInRange(start, end)
	perf := models.TeacherPerformance{
		UserID:      teacher.ID,
		TeacherName: teacher.FullName,
		Department:  teacher.Department,
		WorkingDays: workingDays,
	}
	for _, record := range records {
		if record.UserID != teacher.ID {
			continue
		}
		switch record.Status {
		case models.AttendancePresent:
			perf.PresentCount++
		case models.AttendanceLate:
			perf.LateCount++
		}
	}
	perf.AbsentCount = workingDays - perf.PresentCount - perf.LateCount
	if perf.AbsentCount < 0 {
		perf.AbsentCount = 0
	}

	var qualitySum float64
	for _, log := range logs {
		if log.UserID != teacher.ID {
			continue
		}
		perf.SessionsTaught++
		qualitySum += ClassAttendanceRate(models.AttendanceSummary{Present: log.PresentCount}, log.TotalStudents)
	}

	perf.AttendanceRate = float64(perf.PresentCount+perf.LateCount) / float64(workingDays) * 100
	perf.PunctualityRate = float64(perf.PresentCount) / float64(workingDays) * 100
	if perf.SessionsTaught > 0 {
		perf.TeachingQualityRate = qualitySum / float64(perf.SessionsTaught)
	}
	perf.Score, perf.Grade = e.PerformanceGrade(perf.AttendanceRate, perf.TeachingQualityRate)
	return perf
}
