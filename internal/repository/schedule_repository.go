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

// ScheduleRepository provides persistence for weekly teaching slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleDetailSelect = `SELECT sc.id, sc.class_id, sc.subject_id, sc.teacher_id, sc.day_of_week, sc.start_time, sc.end_time, sc.room, sc.created_at, sc.updated_at,
        c.name AS class_name, s.name AS subject_name, u.full_name AS teacher_name
        FROM schedules sc
        JOIN classes c ON c.id = sc.class_id
        JOIN subjects s ON s.id = sc.subject_id
        JOIN users u ON u.id = sc.teacher_id`

// List returns schedule slots with denormalised names.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error) {
	where := []string{"1=1"}
	var args []interface{}

	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("sc.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		where = append(where, fmt.Sprintf("sc.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.DayOfWeek != "" {
		where = append(where, fmt.Sprintf("sc.day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"day_of_week": "sc.day_of_week",
		"start_time":  "sc.start_time",
		"created_at":  "sc.created_at",
	}
	sortColumn, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortColumn = "sc.day_of_week"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s WHERE %s ORDER BY %s %s, sc.start_time ASC LIMIT %d OFFSET %d", scheduleDetailSelect, whereClause, sortColumn, order, size, offset)
	var slots []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM schedules sc WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return slots, total, nil
}

// FindByID loads a schedule slot by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	query := scheduleDetailSelect + " WHERE sc.id = $1 LIMIT 1"
	var slot models.ScheduleDetail
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// HasOverlap reports whether another slot for the same class and day
// intersects the [startTime, endTime) interval. Times are canonical
// zero-padded HH:MM strings, so lexical comparison is chronological.
func (r *ScheduleRepository) HasOverlap(ctx context.Context, classID, dayOfWeek, startTime, endTime, excludeID string) (bool, error) {
	query := `SELECT 1 FROM schedules WHERE class_id = $1 AND day_of_week = $2 AND start_time < $4 AND end_time > $3`
	args := []interface{}{classID, dayOfWeek, startTime, endTime}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check schedule overlap: %w", err)
	}
	return true, nil
}

// Create stores a new schedule slot.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `INSERT INTO schedules (id, class_id, subject_id, teacher_id, day_of_week, start_time, end_time, room, created_at, updated_at) VALUES (:id, :class_id, :subject_id, :teacher_id, :day_of_week, :start_time, :end_time, :room, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update modifies a schedule slot.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET class_id = :class_id, subject_id = :subject_id, teacher_id = :teacher_id, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, room = :room, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule slot by id.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
