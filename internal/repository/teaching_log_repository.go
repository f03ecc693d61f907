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

const teachingLogColumns = `id, user_id, date, class_id, subject_id, topic, materials, homework, notes, total_students, present_count, created_at, updated_at`

// TeachingLogRepository handles persistence for journal entries and their
// per-student attendance rows.
type TeachingLogRepository struct {
	db *sqlx.DB
}

// NewTeachingLogRepository constructs the repository.
func NewTeachingLogRepository(db *sqlx.DB) *TeachingLogRepository {
	return &TeachingLogRepository{db: db}
}

// CreateWithAttendance inserts the log and its roster rows atomically. A
// failure on any row leaves no partial session behind.
func (r *TeachingLogRepository) CreateWithAttendance(ctx context.Context, log *models.TeachingLog, students []models.StudentAttendance) error {
	now := time.Now().UTC()
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.UpdatedAt = now
	log.Date = dateOnlyUTC(log.Date)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create teaching log: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const logQuery = `INSERT INTO teaching_logs (id, user_id, date, class_id, subject_id, topic, materials, homework, notes, total_students, present_count, created_at, updated_at)
VALUES (:id, :user_id, :date, :class_id, :subject_id, :topic, :materials, :homework, :notes, :total_students, :present_count, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, logQuery, log); err != nil {
		return fmt.Errorf("create teaching log: %w", err)
	}

	const studentQuery = `INSERT INTO student_attendance (id, teaching_log_id, student_id, status, arrival_time, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range students {
		row := &students[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		row.TeachingLogID = log.ID
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if _, err := tx.ExecContext(ctx, studentQuery, row.ID, row.TeachingLogID, row.StudentID, row.Status, row.ArrivalTime, row.Notes, row.CreatedAt); err != nil {
			return fmt.Errorf("create student attendance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create teaching log: %w", err)
	}
	commit = true
	return nil
}

// List returns journal entries with denormalised names matching the filter.
func (r *TeachingLogRepository) List(ctx context.Context, filter models.TeachingLogFilter) ([]models.TeachingLogDetail, int, error) {
	base := `FROM teaching_logs t
JOIN users u ON u.id = t.user_id
JOIN classes c ON c.id = t.class_id
JOIN subjects s ON s.id = t.subject_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.UserID != "" {
		where = append(where, fmt.Sprintf("t.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("t.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		where = append(where, fmt.Sprintf("t.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("t.date >= $%d", len(args)+1))
		args = append(args, dateOnlyUTC(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("t.date <= $%d", len(args)+1))
		args = append(args, dateOnlyUTC(*filter.DateTo))
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"date":       "t.date",
		"created_at": "t.created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "t.date"
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
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT t.id, t.user_id, t.date, t.class_id, t.subject_id, t.topic, t.materials, t.homework, t.notes,
        t.total_students, t.present_count, t.created_at, t.updated_at,
        c.name AS class_name, s.name AS subject_name, u.full_name AS teacher_name
        %s WHERE %s
        ORDER BY %s %s
        LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.TeachingLogDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teaching logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teaching logs: %w", err)
	}
	return rows, total, nil
}

// GetByID returns one journal entry with its full roster and summary.
func (r *TeachingLogRepository) GetByID(ctx context.Context, id string) (*models.TeachingLogDetail, error) {
	const query = `SELECT t.id, t.user_id, t.date, t.class_id, t.subject_id, t.topic, t.materials, t.homework, t.notes,
        t.total_students, t.present_count, t.created_at, t.updated_at,
        c.name AS class_name, s.name AS subject_name, u.full_name AS teacher_name
        FROM teaching_logs t
        JOIN users u ON u.id = t.user_id
        JOIN classes c ON c.id = t.class_id
        JOIN subjects s ON s.id = t.subject_id
        WHERE t.id = $1 LIMIT 1`
	var detail models.TeachingLogDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get teaching log: %w", err)
	}

	const studentsQuery = `SELECT sa.id, sa.teaching_log_id, sa.student_id, sa.status, sa.arrival_time, sa.notes, sa.created_at,
        st.full_name AS student_name, st.nis
        FROM student_attendance sa
        JOIN students st ON st.id = sa.student_id
        WHERE sa.teaching_log_id = $1
        ORDER BY st.full_name ASC`
	if err := r.db.SelectContext(ctx, &detail.Students, studentsQuery, id); err != nil {
		return nil, fmt.Errorf("get teaching log students: %w", err)
	}

	for _, row := range detail.Students {
		switch row.Status {
		case models.StudentPresent:
			detail.Summary.Present++
		case models.StudentSick:
			detail.Summary.Sick++
		case models.StudentPermission:
			detail.Summary.Permission++
		case models.StudentAbsent:
			detail.Summary.Absent++
		}
	}
	return &detail, nil
}

// ListByRange returns bare logs inside [from, to], optionally scoped to one
// teacher. The statistics engine consumes this unpaginated slice.
func (r *TeachingLogRepository) ListByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.TeachingLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM teaching_logs WHERE date >= $1 AND date <= $2`, teachingLogColumns)
	args := []interface{}{dateOnlyUTC(from), dateOnlyUTC(to)}
	if userID != nil && *userID != "" {
		query += " AND user_id = $3"
		args = append(args, *userID)
	}
	query += " ORDER BY date ASC"

	var rows []models.TeachingLog
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teaching logs by range: %w", err)
	}
	return rows, nil
}

// ListDetailByRange returns logs with denormalised names for exports.
func (r *TeachingLogRepository) ListDetailByRange(ctx context.Context, from, to time.Time, userID *string) ([]models.TeachingLogDetail, error) {
	query := `SELECT t.id, t.user_id, t.date, t.class_id, t.subject_id, t.topic, t.materials, t.homework, t.notes,
        t.total_students, t.present_count, t.created_at, t.updated_at,
        c.name AS class_name, s.name AS subject_name, u.full_name AS teacher_name
        FROM teaching_logs t
        JOIN users u ON u.id = t.user_id
        JOIN classes c ON c.id = t.class_id
        JOIN subjects s ON s.id = t.subject_id
        WHERE t.date >= $1 AND t.date <= $2`
	args := []interface{}{dateOnlyUTC(from), dateOnlyUTC(to)}
	if userID != nil && *userID != "" {
		query += " AND t.user_id = $3"
		args = append(args, *userID)
	}
	query += " ORDER BY t.date ASC, u.full_name ASC"

	var rows []models.TeachingLogDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teaching log detail by range: %w", err)
	}
	return rows, nil
}
