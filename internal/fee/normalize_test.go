package fee

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonthKey(t *testing.T) {
	key, err := ParseMonthKey("2024-03")
	require.NoError(t, err)
	assert.Equal(t, mk(2024, time.March), key)
	assert.Equal(t, "2024-03", key.String())
	assert.Equal(t, "Mar 2024", key.Label())

	for _, bad := range []string{"", "2024-3", "24-03", "2024-13", "2024-00", "2024/03", "2024-03-01", "+024-03", "-024-03", "2024-+3", " 202-03", "２024-03"} {
		_, err := ParseMonthKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestMonthKeyJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Month MonthKey `json:"month"`
	}{Month: mk(2023, time.December)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"month":"2023-12"}`, string(raw))

	var decoded struct {
		Month MonthKey `json:"month"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"month":"2025-01"}`), &decoded))
	assert.Equal(t, mk(2025, time.January), decoded.Month)
}

func TestNormalizeDateAmountMap(t *testing.T) {
	payments := NormalizePayments(map[string]interface{}{
		"2024-02-03": float64(500),
		"2024-01-15": float64(450),
	})

	require.Len(t, payments, 2)
	assert.Equal(t, mk(2024, time.January), payments[0].Month)
	assert.True(t, decimal.NewFromInt(450).Equal(payments[0].Amount))
	assert.Equal(t, StatusPaid, payments[0].Status)
	require.NotNil(t, payments[0].PaidOn)
	assert.Equal(t, day(2024, time.January, 15), *payments[0].PaidOn)
}

func TestNormalizeDateAmountMapDuplicateMonthKeepsLatestDate(t *testing.T) {
	payments := NormalizePayments(map[string]interface{}{
		"2024-01-28": float64(300),
		"2024-01-02": float64(200),
	})

	require.Len(t, payments, 1)
	assert.True(t, decimal.NewFromInt(300).Equal(payments[0].Amount))
}

func TestNormalizeMonthYearArray(t *testing.T) {
	payments := NormalizePayments([]interface{}{
		map[string]interface{}{"month": float64(3), "year": float64(2024)},
		map[string]interface{}{"month": float64(1), "year": float64(2024), "amount": float64(500)},
	})

	require.Len(t, payments, 2)
	assert.Equal(t, mk(2024, time.January), payments[0].Month)
	assert.Equal(t, mk(2024, time.March), payments[1].Month)
	assert.Equal(t, StatusPaid, payments[1].Status)
}

func TestNormalizeMonthKeyStatus(t *testing.T) {
	payments := NormalizePayments([]interface{}{
		map[string]interface{}{"monthKey": "2024-04", "status": "PAID", "amount": float64(500), "paidOn": "2024-04-02T10:00:00Z"},
		map[string]interface{}{"monthKey": "2024-05", "status": "pending"},
	})

	require.Len(t, payments, 2)
	assert.Equal(t, StatusPaid, payments[0].Status)
	require.NotNil(t, payments[0].PaidOn)
	assert.Equal(t, StatusPending, payments[1].Status)

	set := PaidSetOf(payments)
	assert.True(t, set.Has(mk(2024, time.April)))
	assert.False(t, set.Has(mk(2024, time.May)))
}

func TestNormalizeObjectValuedMap(t *testing.T) {
	payments := NormalizePayments(map[string]interface{}{
		"a": map[string]interface{}{"monthKey": "2024-06", "status": "paid"},
		"b": map[string]interface{}{"month": float64(7), "year": float64(2024)},
	})

	require.Len(t, payments, 2)
	assert.Equal(t, mk(2024, time.June), payments[0].Month)
	assert.Equal(t, mk(2024, time.July), payments[1].Month)
}

func TestNormalizeLaterDuplicateWins(t *testing.T) {
	payments := NormalizePayments([]interface{}{
		map[string]interface{}{"monthKey": "2024-01", "status": "paid", "amount": float64(500)},
		map[string]interface{}{"monthKey": "2024-01", "status": "pending", "amount": float64(0)},
	})
	require.Len(t, payments, 1)
	assert.Equal(t, StatusPending, payments[0].Status)

	payments = NormalizePayments([]interface{}{
		map[string]interface{}{"monthKey": "2024-01", "status": "pending"},
		map[string]interface{}{"month": float64(1), "year": float64(2024)},
	})
	require.Len(t, payments, 1)
	assert.Equal(t, StatusPaid, payments[0].Status)
}

func TestNormalizeDropsUnknownEntries(t *testing.T) {
	entries := Classify([]interface{}{
		"2024-01",
		float64(12),
		map[string]interface{}{"monthKey": "January"},
		map[string]interface{}{"month": float64(13), "year": float64(2024)},
		map[string]interface{}{"foo": "bar"},
		map[string]interface{}{"monthKey": "2024-02", "status": "paid"},
	})
	require.Len(t, entries, 6)
	for _, e := range entries[:5] {
		assert.Equal(t, ShapeUnknown, e.Shape)
	}
	assert.Equal(t, ShapeMonthKeyStatus, entries[5].Shape)

	payments := NormalizePayments(mixedLegacyPayments())
	require.Len(t, payments, 1)
	assert.Equal(t, mk(2024, time.February), payments[0].Month)
}

func mixedLegacyPayments() interface{} {
	return []interface{}{
		"garbage",
		map[string]interface{}{"monthKey": 202402},
		map[string]interface{}{"monthKey": "2024-02", "status": "paid"},
	}
}

func TestNormalizeRawJSON(t *testing.T) {
	payments := NormalizePayments(json.RawMessage(`[{"monthKey":"2024-09","status":"paid","amount":500}]`))
	require.Len(t, payments, 1)
	assert.True(t, decimal.NewFromInt(500).Equal(payments[0].Amount))

	assert.Empty(t, NormalizePayments(json.RawMessage(`not json`)))
	assert.Empty(t, NormalizePayments(nil))
	assert.Empty(t, NormalizePayments("scalar"))
}

func TestNormalizeFeedsReconcile(t *testing.T) {
	payments := NormalizePayments(map[string]interface{}{
		"2024-01-20": float64(500),
		"2024-02-18": float64(500),
	})

	res := Reconcile(Input{
		JoinDate:   datePtr(day(2024, time.January, 15)),
		Active:     true,
		MonthlyFee: decimal.NewFromInt(500),
		Paid:       PaidSetOf(payments),
	}, day(2024, time.March, 20))

	assert.Equal(t, []string{"Mar 2024"}, res.UnpaidMonths)
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "date_amount_map", ShapeDateAmountMap.String())
	assert.Equal(t, "month_year", ShapeMonthYear.String())
	assert.Equal(t, "month_key_status", ShapeMonthKeyStatus.String())
	assert.Equal(t, "unknown", ShapeUnknown.String())
}
