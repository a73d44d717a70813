package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

const joinDateLayout = "2006-01-02"

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListAll(ctx context.Context, status *models.StudentStatus) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByPhone(ctx context.Context, phone string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetStatus(ctx context.Context, id string, status models.StudentStatus, at time.Time) error
	UpdatePhoto(ctx context.Context, id, photoURL string) error
	Delete(ctx context.Context, id string) error
}

type dashboardInvalidator interface {
	InvalidateDashboard(ctx context.Context)
}

// CreateStudentRequest holds payload for enrolling a student.
type CreateStudentRequest struct {
	Name       string           `json:"name" validate:"required,max=120"`
	Phone      string           `json:"phone" validate:"required,numeric,min=6,max=20"`
	FatherName string           `json:"father_name" validate:"max=120"`
	Address    string           `json:"address" validate:"max=500"`
	PhotoURL   string           `json:"photo_url" validate:"omitempty,url"`
	JoinDate   string           `json:"join_date" validate:"required,datetime=2006-01-02"`
	MonthlyFee *decimal.Decimal `json:"monthly_fee"`
	DueDay     int              `json:"due_day" validate:"omitempty,min=1,max=31"`
}

// UpdateStudentRequest holds payload for editing a student. An absent monthly fee keeps the
// stored one.
type UpdateStudentRequest struct {
	Name       string           `json:"name" validate:"required,max=120"`
	Phone      string           `json:"phone" validate:"required,numeric,min=6,max=20"`
	FatherName string           `json:"father_name" validate:"max=120"`
	Address    string           `json:"address" validate:"max=500"`
	PhotoURL   string           `json:"photo_url" validate:"omitempty,url"`
	JoinDate   string           `json:"join_date" validate:"required,datetime=2006-01-02"`
	MonthlyFee *decimal.Decimal `json:"monthly_fee"`
	DueDay     int              `json:"due_day" validate:"omitempty,min=1,max=31"`
	CanLogin   bool             `json:"can_login"`
}

// StudentConfig carries enrollment defaults.
type StudentConfig struct {
	DefaultFee   decimal.Decimal
	PhotoURLBase string
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	cfg       StudentConfig
	clock     feeClock
}

// NewStudentService constructs the student service. Exit and rejoin dates are stamped with the
// calendar date clock reports, so they land in the same month the fee engine bills.
func NewStudentService(repo studentRepository, cache dashboardInvalidator, clock feeClock, cfg StudentConfig, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PhotoURLBase == "" {
		cfg.PhotoURLBase = "https://picsum.photos/seed"
	}
	if cache == nil {
		cache = (*CacheService)(nil)
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger, cfg: cfg, clock: clock}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, studentLoadError(err)
	}
	return student, nil
}

// Members lists active students for the public roster with phone numbers masked.
func (s *StudentService) Members(ctx context.Context) ([]models.Member, error) {
	active := models.StudentStatusActive
	students, err := s.repo.ListAll(ctx, &active)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list members")
	}
	members := make([]models.Member, 0, len(students))
	for _, st := range students {
		members = append(members, models.Member{
			ID:       st.ID,
			Name:     st.Name,
			PhotoURL: st.PhotoURL,
			Phone:    MaskPhone(st.Phone),
			JoinDate: st.JoinDate,
		})
	}
	return members, nil
}

// Create enrolls a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	joinDate, _ := time.Parse(joinDateLayout, req.JoinDate)
	fee := s.cfg.DefaultFee
	if req.MonthlyFee != nil {
		fee = *req.MonthlyFee
	}
	if fee.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "monthly fee must not be negative")
	}

	phone := strings.TrimSpace(req.Phone)
	if err := s.ensurePhoneFree(ctx, phone, ""); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	student := &models.Student{
		Name:       name,
		Phone:      phone,
		FatherName: strings.TrimSpace(req.FatherName),
		Address:    strings.TrimSpace(req.Address),
		PhotoURL:   req.PhotoURL,
		JoinDate:   joinDate,
		MonthlyFee: fee,
		DueDay:     req.DueDay,
		Status:     models.StudentStatusActive,
		CanLogin:   true,
	}
	if student.PhotoURL == "" {
		student.PhotoURL = seededPhotoURL(s.cfg.PhotoURLBase, name)
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to create student")
	}
	s.cache.InvalidateDashboard(ctx)
	s.logger.Info("student enrolled", zap.String("student_id", student.ID), zap.String("join_date", req.JoinDate))
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	if req.MonthlyFee != nil && req.MonthlyFee.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "monthly fee must not be negative")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(req.Phone)
	if err := s.ensurePhoneFree(ctx, phone, id); err != nil {
		return nil, err
	}

	joinDate, _ := time.Parse(joinDateLayout, req.JoinDate)
	student.Name = strings.TrimSpace(req.Name)
	student.Phone = phone
	student.FatherName = strings.TrimSpace(req.FatherName)
	student.Address = strings.TrimSpace(req.Address)
	if req.PhotoURL != "" {
		student.PhotoURL = req.PhotoURL
	}
	student.JoinDate = joinDate
	if req.MonthlyFee != nil {
		student.MonthlyFee = *req.MonthlyFee
	}
	student.DueDay = req.DueDay
	student.CanLogin = req.CanLogin && student.IsActive()
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, s.writeError(err, "failed to update student")
	}
	s.cache.InvalidateDashboard(ctx)
	return student, nil
}

// Deactivate marks a student as having left today.
func (s *StudentService) Deactivate(ctx context.Context, id string) (*models.Student, error) {
	return s.setStatus(ctx, id, models.StudentStatusInactive)
}

// Reactivate re-enrolls a student who had left.
func (s *StudentService) Reactivate(ctx context.Context, id string) (*models.Student, error) {
	return s.setStatus(ctx, id, models.StudentStatusActive)
}

// UpdatePhoto replaces the profile photo.
func (s *StudentService) UpdatePhoto(ctx context.Context, id, photoURL string) error {
	if err := s.validator.Var(photoURL, "required,url"); err != nil {
		return appErrors.Invalid(err, "invalid photo url")
	}
	if err := s.repo.UpdatePhoto(ctx, id, photoURL); err != nil {
		return s.writeError(err, "failed to update photo")
	}
	return nil
}

// Delete removes a student and every payment they made.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.writeError(err, "failed to delete student")
	}
	s.cache.InvalidateDashboard(ctx)
	s.logger.Info("student removed", zap.String("student_id", id))
	return nil
}

func (s *StudentService) setStatus(ctx context.Context, id string, status models.StudentStatus) (*models.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if student.Status == status {
		return student, nil
	}
	asOf := s.clock.AsOf()
	today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	if err := s.repo.SetStatus(ctx, id, status, today); err != nil {
		return nil, s.writeError(err, "failed to change student status")
	}
	student.Status = status
	if status == models.StudentStatusInactive {
		student.ExitDate = &today
		student.CanLogin = false
	} else {
		student.ExitDate = nil
		student.LastRejoinDate = &today
		student.CanLogin = true
	}
	s.cache.InvalidateDashboard(ctx)
	s.logger.Info("student status changed", zap.String("student_id", id), zap.String("status", string(status)))
	return student, nil
}

func (s *StudentService) ensurePhoneFree(ctx context.Context, phone, excludeID string) error {
	exists, err := s.repo.ExistsByPhone(ctx, phone, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate phone")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "phone already registered")
	}
	return nil
}

func (s *StudentService) writeError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return appErrors.Internal(err, message)
}

// seededPhotoURL derives a stable placeholder avatar from the student's name.
func seededPhotoURL(base, name string) string {
	return fmt.Sprintf("%s/%s/200", strings.TrimRight(base, "/"), url.PathEscape(name))
}

// MaskPhone keeps the last four digits of a phone number visible.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
