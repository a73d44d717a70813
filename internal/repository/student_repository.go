package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/library-fee-api/internal/models"
)

const studentColumns = `id, name, phone, father_name, address, photo_url, join_date, exit_date, monthly_fee, due_day, status, can_login, last_rejoin_date, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR phone LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":       "name",
		"join_date":  "join_date",
		"created_at": "created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
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

	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, where, column, order, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student ordered by name, optionally restricted to one status.
func (r *StudentRepository) ListAll(ctx context.Context, status *models.StudentStatus) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students", studentColumns)
	args := []interface{}{}
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY name ASC"

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByPhone fetches a student by registered phone number.
func (r *StudentRepository) FindByPhone(ctx context.Context, phone string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE phone = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, phone); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByPhone checks if a student with given phone exists optionally excluding an ID.
func (r *StudentRepository) ExistsByPhone(ctx context.Context, phone string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE phone = $1"
	args := []interface{}{phone}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check phone: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, phone, father_name, address, photo_url, join_date, exit_date, monthly_fee, due_day, status, can_login, last_rejoin_date, created_at, updated_at)
        VALUES (:id, :name, :phone, :father_name, :address, :photo_url, :join_date, :exit_date, :monthly_fee, :due_day, :status, :can_login, :last_rejoin_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student's profile and billing fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, phone = :phone, father_name = :father_name, address = :address, photo_url = :photo_url, join_date = :join_date, monthly_fee = :monthly_fee, due_day = :due_day, can_login = :can_login, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res)
}

// SetStatus moves a student between ACTIVE and INACTIVE. Leaving records the exit date and
// revokes login; rejoining clears the exit date and stamps the rejoin date.
func (r *StudentRepository) SetStatus(ctx context.Context, id string, status models.StudentStatus, at time.Time) error {
	var query string
	switch status {
	case models.StudentStatusInactive:
		query = `UPDATE students SET status = $2, exit_date = $3, can_login = false, updated_at = $4 WHERE id = $1`
	case models.StudentStatusActive:
		query = `UPDATE students SET status = $2, exit_date = NULL, last_rejoin_date = $3, can_login = true, updated_at = $4 WHERE id = $1`
	default:
		return fmt.Errorf("set student status: unknown status %q", status)
	}
	res, err := r.db.ExecContext(ctx, query, id, status, at, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set student status: %w", err)
	}
	return expectAffected(res)
}

// UpdatePhoto replaces the student's photo URL.
func (r *StudentRepository) UpdatePhoto(ctx context.Context, id, photoURL string) error {
	const query = `UPDATE students SET photo_url = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, photoURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student photo: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a student permanently; payments cascade.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
