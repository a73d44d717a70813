package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/library-fee-api/internal/models"
)

var paymentRowColumns = []string{"id", "student_id", "month_key", "amount", "status", "paid_on", "created_at"}

func TestPaymentRepositoryListByStudents(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(paymentRowColumns).
		AddRow("p1", "s1", "2024-01", "500.00", "paid", now, now).
		AddRow("p2", "s1", "2024-02", "500.00", "paid", now, now).
		AddRow("p3", "s2", "2024-01", "300.00", "pending", nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE student_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	grouped, err := repo.ListByStudents(context.Background(), []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Len(t, grouped["s1"], 2)
	require.Len(t, grouped["s2"], 1)
	assert.Equal(t, models.PaymentStatusPending, grouped["s2"][0].Status)
	assert.Nil(t, grouped["s2"][0].PaidOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListByStudentsEmpty(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	grouped, err := repo.ListByStudents(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, grouped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryRecordPaid(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	created := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, month_key)")).
		WithArgs(sqlmock.AnyArg(), "s1", "2024-03", sqlmock.AnyArg(), models.PaymentStatusPaid, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing", created))
	mock.ExpectExec("INSERT INTO payment_approvals").
		WithArgs(sqlmock.AnyArg(), "admin1", "s1", "Asha", sqlmock.AnyArg(), "2024-03", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	paidOn := time.Now()
	payment := &models.Payment{StudentID: "s1", MonthKey: "2024-03", Amount: decimal.NewFromInt(500), PaidOn: &paidOn}
	approval := &models.Approval{AdminID: "admin1", StudentID: "s1", StudentName: "Asha", Amount: decimal.NewFromInt(500), MonthKey: "2024-03"}
	require.NoError(t, repo.RecordPaid(context.Background(), payment, approval))
	assert.Equal(t, "existing", payment.ID)
	assert.Equal(t, created, payment.CreatedAt)
	assert.NotEmpty(t, approval.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryRecordPaidRollsBack(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, month_key)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("p1", time.Now()))
	mock.ExpectExec("INSERT INTO payment_approvals").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.RecordPaid(context.Background(),
		&models.Payment{StudentID: "s1", MonthKey: "2024-03"},
		&models.Approval{AdminID: "admin1", StudentID: "s1", MonthKey: "2024-03"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert approval")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListApprovals(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_approvals ORDER BY approved_at DESC LIMIT $1")).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "admin_id", "student_id", "student_name", "amount", "month_key", "approved_at"}).
			AddRow("a1", "admin1", "s1", "Asha", "500", "2024-03", time.Now()))

	approvals, err := repo.ListApprovals(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, "Asha", approvals[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryImportPaymentsSkipsExisting(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, month_key) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, month_key) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := repo.ImportPayments(context.Background(), []models.Payment{
		{StudentID: "s1", MonthKey: "2024-01", Status: models.PaymentStatusPaid},
		{StudentID: "s1", MonthKey: "2024-02", Status: models.PaymentStatusPaid},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
