package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/library-fee-api/internal/dto"
	"github.com/noah-isme/library-fee-api/internal/fee"
	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

type paymentStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
	RecordPaid(ctx context.Context, payment *models.Payment, approval *models.Approval) error
	ListApprovals(ctx context.Context, limit int) ([]models.Approval, error)
}

type feeClock interface {
	AsOf() time.Time
}

// PaymentService records settled months and exposes payment history.
type PaymentService struct {
	students  feeStudentReader
	payments  paymentStore
	clock     feeClock
	cache     dashboardInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(students feeStudentReader, payments paymentStore, clock feeClock, cache dashboardInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = (*CacheService)(nil)
	}
	return &PaymentService{students: students, payments: payments, clock: clock, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// MarkCurrentMonthPaid settles the month the clock currently falls in, at the student's fee.
func (s *PaymentService) MarkCurrentMonthPaid(ctx context.Context, studentID, adminID string) (*models.Payment, error) {
	student, err := s.loadActive(ctx, studentID)
	if err != nil {
		return nil, err
	}
	asOf := s.clock.AsOf()
	return s.record(ctx, student, adminID, fee.MonthOf(asOf), student.MonthlyFee, asOf, "current")
}

// ApprovePayment settles an explicit month. The month must fall inside the student's window.
func (s *PaymentService) ApprovePayment(ctx context.Context, studentID, adminID string, req dto.ApprovePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid payment payload")
	}
	month, err := fee.ParseMonthKey(req.MonthKey)
	if err != nil {
		return nil, appErrors.Invalid(err, "month must be formatted YYYY-MM")
	}
	student, err := s.loadActive(ctx, studentID)
	if err != nil {
		return nil, err
	}
	asOf := s.clock.AsOf()
	if month.Before(fee.MonthOf(student.JoinDate)) || fee.MonthOf(asOf).Before(month) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month is outside the student's billing window")
	}
	amount := student.MonthlyFee
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
		}
		amount = *req.Amount
	}
	return s.record(ctx, student, adminID, month, amount, asOf, "manual")
}

// History lists a student's payments, newest month first.
func (s *PaymentService) History(ctx context.Context, studentID string) ([]models.Payment, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, studentLoadError(err)
	}
	payments, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load payments")
	}
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].MonthKey > payments[j].MonthKey })
	return payments, nil
}

// Approvals returns the most recent approval records.
func (s *PaymentService) Approvals(ctx context.Context, limit int) ([]models.Approval, error) {
	approvals, err := s.payments.ListApprovals(ctx, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load approvals")
	}
	return approvals, nil
}

func (s *PaymentService) loadActive(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, studentLoadError(err)
	}
	if !student.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrStudentInactive, "cannot record payment for an inactive student")
	}
	return student, nil
}

func (s *PaymentService) record(ctx context.Context, student *models.Student, adminID string, month fee.MonthKey, amount decimal.Decimal, asOf time.Time, source string) (*models.Payment, error) {
	paidOn := asOf
	payment := &models.Payment{
		StudentID: student.ID,
		MonthKey:  month.String(),
		Amount:    amount,
		Status:    models.PaymentStatusPaid,
		PaidOn:    &paidOn,
	}
	approval := &models.Approval{
		AdminID:     adminID,
		StudentID:   student.ID,
		StudentName: student.Name,
		Amount:      amount,
		MonthKey:    month.String(),
	}
	if err := s.payments.RecordPaid(ctx, payment, approval); err != nil {
		return nil, appErrors.Internal(err, "failed to record payment")
	}
	s.metrics.RecordPayment(source)
	s.cache.InvalidateDashboard(ctx)
	s.logger.Info("payment recorded",
		zap.String("student_id", student.ID),
		zap.String("month", month.String()),
		zap.String("amount", amount.String()),
		zap.String("admin_id", adminID),
		zap.String("source", source),
	)
	return payment, nil
}
