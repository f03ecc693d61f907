package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
)

const attendanceColumns = `id, user_id, date, check_in_time, check_out_time, latitude, longitude, distance_meters, status, notes, created_at, updated_at`

// AttendanceRepository handles persistence for teacher daily attendance.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// GetByUserAndDate returns the record for one teacher on one calendar day.
func (r *AttendanceRepository) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE user_id = $1 AND date = $2 LIMIT 1`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, userID, dateOnlyUTC(date)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get attendance by user and date: %w", err)
	}
	return &record, nil
}

// Upsert inserts the day's record or refreshes an existing one. The unique
// (user_id, date) constraint keeps one row per teacher per day.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Date = dateOnlyUTC(record.Date)

	query := fmt.Sprintf(`INSERT INTO attendance_records (id, user_id, date, check_in_time, latitude, longitude, distance_meters, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (user_id, date)
DO UPDATE SET check_in_time = EXCLUDED.check_in_time, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
    distance_meters = EXCLUDED.distance_meters, status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
RETURNING %s`, attendanceColumns)

	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.UserID, record.Date, record.CheckInTime,
		record.Latitude, record.Longitude, record.DistanceMeters,
		record.Status, record.Notes, record.CreatedAt, record.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("upsert attendance record: %w", err)
	}
	return &stored, nil
}

// SetCheckOut completes the day's record with a check-out timestamp.
func (r *AttendanceRepository) SetCheckOut(ctx context.Context, id string, checkOut time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`UPDATE attendance_records SET check_out_time = $2, updated_at = $3 WHERE id = $1 RETURNING %s`, attendanceColumns)
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, id, checkOut, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("set check-out: %w", err)
	}
	return &stored, nil
}

// UpdateStatus overrides a record's status, used by admin corrections.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus, notes *string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`UPDATE attendance_records SET status = $2, notes = COALESCE($3, notes), updated_at = $4 WHERE id = $1 RETURNING %s`, attendanceColumns)
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, id, status, notes, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update attendance status: %w", err)
	}
	return &stored, nil
}

// List returns attendance rows with teacher metadata matching the filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	base := `FROM attendance_records a JOIN users u ON u.id = a.user_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.UserID != "" {
		where = append(where, fmt.Sprintf("a.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, dateOnlyUTC(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, dateOnlyUTC(*filter.DateTo))
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"date":          "a.date",
		"status":        "a.status",
		"check_in_time": "a.check_in_time",
		"created_at":    "a.created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "a.date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.user_id, a.date, a.check_in_time, a.check_out_time, a.latitude, a.longitude,
        a.distance_meters, a.status, a.notes, a.created_at, a.updated_at,
        u.full_name AS teacher_name, u.department
        %s WHERE %s
        ORDER BY %s %s
        LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return rows, total, nil
}

// ListByRange returns bare records inside [from, to], optionally scoped to
// one teacher. The statistics engine consumes this unpaginated slice.
func (r *AttendanceRepository) ListByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE date >= $1 AND date <= $2`, attendanceColumns)
	args := []interface{}{dateOnlyUTC(from), dateOnlyUTC(to)}
	if userID != nil && *userID != "" {
		query += " AND user_id = $3"
		args = append(args, *userID)
	}
	query += " ORDER BY date ASC"

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance by range: %w", err)
	}
	return rows, nil
}

// ListDetailByRange returns records with teacher metadata for exports.
func (r *AttendanceRepository) ListDetailByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.AttendanceRecordDetail, error) {
	query := `SELECT a.id, a.user_id, a.date, a.check_in_time, a.check_out_time, a.latitude, a.longitude,
        a.distance_meters, a.status, a.notes, a.created_at, a.updated_at,
        u.full_name AS teacher_name, u.department
        FROM attendance_records a JOIN users u ON u.id = a.user_id
        WHERE a.date >= $1 AND a.date <= $2`
	args := []interface{}{dateOnlyUTC(from), dateOnlyUTC(to)}
	if userID != nil && *userID != "" {
		query += " AND a.user_id = $3"
		args = append(args, *userID)
	}
	query += " ORDER BY a.date ASC, u.full_name ASC"

	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance detail by range: %w", err)
	}
	return rows, nil
}

func dateOnlyUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
