package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/library-fee-api/internal/dto"
	"github.com/noah-isme/library-fee-api/internal/fee"
	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

type feeStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type feePaymentReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
}

// FeeService reconciles stored students and payments against the clock.
type FeeService struct {
	students feeStudentReader
	payments feePaymentReader
	metrics  *MetricsService
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewFeeService constructs a FeeService. Months are counted in loc (UTC when nil).
func NewFeeService(students feeStudentReader, payments feePaymentReader, metrics *MetricsService, loc *time.Location, logger *zap.Logger) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &FeeService{students: students, payments: payments, metrics: metrics, logger: logger, loc: loc, now: time.Now}
}

// AsOf returns the current reading of the clock as a wall-clock time in UTC, matching how DATE
// columns are scanned.
func (s *FeeService) AsOf() time.Time {
	local := s.now().In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
}

// CurrentMonth is the month AsOf falls in.
func (s *FeeService) CurrentMonth() fee.MonthKey {
	return fee.MonthOf(s.AsOf())
}

// ForStudent loads one student with their payments and reconciles them now.
func (s *FeeService) ForStudent(ctx context.Context, studentID string) (*dto.FeeStatusResponse, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, studentLoadError(err)
	}
	payments, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load payments")
	}
	asOf := s.AsOf()
	res := s.StatsFor(*student, payments, asOf)
	return FeeStatusFrom(*student, res, asOf), nil
}

// StatsFor reconciles an already loaded student. It does no I/O.
func (s *FeeService) StatsFor(student models.Student, payments []models.Payment, asOf time.Time) fee.Result {
	res := fee.Reconcile(FeeInput(student, PaidSetFromRecords(payments)), asOf)
	s.metrics.ObserveReconciliation(res.WindowMonths)
	return res
}

// FeeInput maps a stored student onto the engine input.
func FeeInput(student models.Student, paid fee.PaidSet) fee.Input {
	in := fee.Input{
		ExitDate:   student.ExitDate,
		Active:     student.IsActive(),
		MonthlyFee: student.MonthlyFee,
		Paid:       paid,
		DueDay:     student.DueDay,
	}
	if !student.JoinDate.IsZero() {
		join := student.JoinDate
		in.JoinDate = &join
	}
	return in
}

// PaidSetFromRecords converts stored payment rows into the engine's paid set. Rows with a
// malformed month key are ignored.
func PaidSetFromRecords(records []models.Payment) fee.PaidSet {
	return fee.PaidSetOf(CanonicalPayments(records))
}

// CanonicalPayments maps stored payment rows onto canonical engine payments.
func CanonicalPayments(records []models.Payment) []fee.Payment {
	payments := make([]fee.Payment, 0, len(records))
	for _, r := range records {
		key, err := fee.ParseMonthKey(r.MonthKey)
		if err != nil {
			continue
		}
		payments = append(payments, fee.Payment{
			Month:  key,
			Amount: r.Amount,
			Status: fee.PaymentStatus(r.Status),
			PaidOn: r.PaidOn,
		})
	}
	return fee.Dedupe(payments)
}

// FeeStatusFrom shapes an engine result for API responses.
func FeeStatusFrom(student models.Student, res fee.Result, asOf time.Time) *dto.FeeStatusResponse {
	return &dto.FeeStatusResponse{
		StudentID:     student.ID,
		Name:          student.Name,
		Active:        student.IsActive(),
		MonthlyFee:    student.MonthlyFee,
		UnpaidCount:   res.UnpaidCount,
		UnpaidMonths:  res.UnpaidMonths,
		TotalDue:      res.TotalDue,
		PaidCount:     res.PaidCount,
		WindowMonths:  res.WindowMonths,
		LastPaidMonth: res.LastPaidMonth,
		NextDueDate:   res.NextDueDate,
		AsOf:          asOf,
	}
}

func studentLoadError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return appErrors.Internal(err, "failed to load student")
}
