package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/library-fee-api/internal/fee"
	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

func TestFeeServiceForStudent(t *testing.T) {
	students, payments := dashboardFixture()
	svc := newTestFeeService(students, payments, dashboardNow)

	status, err := svc.ForStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", status.Name)
	assert.True(t, status.Active)
	assert.Equal(t, 3, status.WindowMonths)
	assert.Equal(t, 2, status.UnpaidCount)
	assert.Equal(t, []string{"Feb 2025", "Mar 2025"}, status.UnpaidMonths)
	assert.True(t, decimal.NewFromInt(1000).Equal(status.TotalDue))
	assert.Equal(t, "Jan 2025", status.LastPaidMonth)
	require.NotNil(t, status.NextDueDate)
	assert.Equal(t, day(2025, time.April, 5), *status.NextDueDate)
}

func TestFeeServiceInactiveStopsAtExit(t *testing.T) {
	students, payments := dashboardFixture()
	svc := newTestFeeService(students, payments, dashboardNow)

	status, err := svc.ForStudent(context.Background(), "s4")
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.Equal(t, 10, status.WindowMonths)
	assert.True(t, decimal.NewFromInt(3000).Equal(status.TotalDue))
}

func TestFeeServiceNotFound(t *testing.T) {
	students, payments := dashboardFixture()
	svc := newTestFeeService(students, payments, dashboardNow)

	_, err := svc.ForStudent(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFeeServiceAsOfUsesConfiguredZone(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	svc := NewFeeService(nil, nil, nil, kolkata, nil)
	svc.now = func() time.Time { return time.Date(2025, time.March, 31, 20, 0, 0, 0, time.UTC) }

	assert.Equal(t, time.Date(2025, time.April, 1, 1, 30, 0, 0, time.UTC), svc.AsOf())
	assert.Equal(t, fee.MonthKey{Year: 2025, Month: time.April}, svc.CurrentMonth())
}

func TestPaidSetFromRecordsSkipsMalformedAndPending(t *testing.T) {
	records := []models.Payment{
		paidRecord("s", "2025-01", 100),
		paidRecord("s", "25-01", 100),
		{StudentID: "s", MonthKey: "2025-02", Status: models.PaymentStatusPending},
	}
	paid := PaidSetFromRecords(records)
	assert.True(t, paid.Has(fee.MonthKey{Year: 2025, Month: time.January}))
	assert.False(t, paid.Has(fee.MonthKey{Year: 2025, Month: time.February}))
	assert.Len(t, CanonicalPayments(records), 2)
}
