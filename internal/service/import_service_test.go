package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

type stubLegacySource struct {
	docs []models.LegacyStudent
	err  error
}

func (s stubLegacySource) FetchStudents(context.Context) ([]models.LegacyStudent, error) {
	return s.docs, s.err
}

func legacyDocs() []models.LegacyStudent {
	return []models.LegacyStudent{
		{
			DocumentID: "a",
			Name:       "Asha",
			Phone:      "9000000001",
			JoinDate:   datePtr(day(2024, time.November, 3)),
			MonthlyFee: int64(500),
			Payments: map[string]interface{}{
				"2024-11-05": int64(500),
				"2024-12-07": float64(500),
			},
		},
		{
			DocumentID: "b",
			Name:       "Ravi",
			Phone:      "9000000002",
			JoinDate:   datePtr(day(2024, time.December, 1)),
			MonthlyFee: "700",
			Status:     "softDeleted",
			ExitDate:   datePtr(day(2025, time.February, 20)),
			Payments: []interface{}{
				map[string]interface{}{"month": int64(12), "year": int64(2024)},
				map[string]interface{}{"monthKey": "2025-01", "status": "paid", "amount": int64(650)},
				map[string]interface{}{"note": "garbage"},
			},
		},
		{DocumentID: "c", Name: "No Phone", JoinDate: datePtr(day(2024, time.January, 1))},
		{DocumentID: "d", Name: "Dup", Phone: "9000000001", JoinDate: datePtr(day(2024, time.January, 1))},
	}
}

func TestImportRun(t *testing.T) {
	students := newFakeStudentRepo()
	payments := newFakePaymentRepo()
	svc := NewImportService(stubLegacySource{docs: legacyDocs()}, students, payments, nil, nil, ImportConfig{DefaultFee: decimal.NewFromInt(400)}, nil)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Documents)
	assert.Equal(t, 2, report.StudentsCreated)
	assert.Equal(t, 0, report.StudentsExisting)
	assert.Len(t, report.Skipped, 2)
	assert.Equal(t, 4, report.PaymentsInserted)
	assert.Equal(t, map[string]int{"date_amount_map": 2, "month_year": 1, "month_key_status": 1, "unknown": 1}, report.Shapes)

	ravi, err := students.FindByPhone(context.Background(), "9000000002")
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusInactive, ravi.Status)
	assert.False(t, ravi.CanLogin)
	require.NotNil(t, ravi.ExitDate)
	assert.True(t, decimal.NewFromInt(700).Equal(ravi.MonthlyFee))

	raviPayments, err := payments.ListByStudent(context.Background(), ravi.ID)
	require.NoError(t, err)
	require.Len(t, raviPayments, 2)
	amounts := map[string]string{}
	for _, p := range raviPayments {
		amounts[p.MonthKey] = p.Amount.String()
	}
	assert.Equal(t, map[string]string{"2024-12": "700", "2025-01": "650"}, amounts)
}

func TestImportRunIsIdempotent(t *testing.T) {
	students := newFakeStudentRepo()
	payments := newFakePaymentRepo()
	svc := NewImportService(stubLegacySource{docs: legacyDocs()}, students, payments, nil, nil, ImportConfig{}, nil)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.StudentsCreated)
	assert.Equal(t, 2, second.StudentsExisting)
	assert.Equal(t, 0, second.PaymentsInserted)

	all, err := students.ListAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestImportDryRunWritesNothing(t *testing.T) {
	students := newFakeStudentRepo()
	payments := newFakePaymentRepo()
	svc := NewImportService(stubLegacySource{docs: legacyDocs()}, students, payments, nil, nil, ImportConfig{DryRun: true}, nil)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.StudentsCreated)
	assert.Equal(t, 4, report.PaymentsInserted)
	assert.Empty(t, students.students)
	assert.Empty(t, payments.payments)
}

func TestImportSourceFailure(t *testing.T) {
	svc := NewImportService(stubLegacySource{err: errors.New("permission denied")}, newFakeStudentRepo(), newFakePaymentRepo(), nil, nil, ImportConfig{}, nil)
	_, err := svc.Run(context.Background())
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErrors.FromError(err).Code)
}

func TestLegacyStatus(t *testing.T) {
	assert.Equal(t, models.StudentStatusInactive, LegacyStatus("softDeleted"))
	assert.Equal(t, models.StudentStatusInactive, LegacyStatus("INACTIVE"))
	assert.Equal(t, models.StudentStatusActive, LegacyStatus("active"))
	assert.Equal(t, models.StudentStatusActive, LegacyStatus(""))
}
