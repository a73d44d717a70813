package fee

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of one month.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "paid"
	StatusPending PaymentStatus = "pending"
)

// Payment is the canonical payment record: one entry per month key.
type Payment struct {
	Month  MonthKey        `json:"month_key"`
	Amount decimal.Decimal `json:"amount"`
	Status PaymentStatus   `json:"status"`
	PaidOn *time.Time      `json:"paid_on,omitempty"`
}

// Shape tags the historical layout a raw payment entry was written in.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapeDateAmountMap is {"2024-01-15": 500}: a payment date mapped to the amount paid.
	ShapeDateAmountMap
	// ShapeMonthYear is {"month": 1, "year": 2024}: presence alone means paid.
	ShapeMonthYear
	// ShapeMonthKeyStatus is {"monthKey": "2024-01", "status": "paid", "amount": 500, "paidOn": "..."}.
	ShapeMonthKeyStatus
)

func (s Shape) String() string {
	switch s {
	case ShapeDateAmountMap:
		return "date_amount_map"
	case ShapeMonthYear:
		return "month_year"
	case ShapeMonthKeyStatus:
		return "month_key_status"
	default:
		return "unknown"
	}
}

// Entry is a raw payment entry after classification. Payment is only meaningful when Shape is known.
type Entry struct {
	Shape   Shape
	Payment Payment
}

// Classify splits a raw payments blob into tagged entries, in input order. Maps are walked in
// ascending key order so that date-keyed blobs replay chronologically.
func Classify(raw interface{}) []Entry {
	switch v := raw.(type) {
	case nil:
		return nil
	case []interface{}:
		entries := make([]Entry, 0, len(v))
		for _, item := range v {
			entries = append(entries, classifyItem(item))
		}
		return entries
	case []map[string]interface{}:
		entries := make([]Entry, 0, len(v))
		for _, item := range v {
			entries = append(entries, classifyObject(item))
		}
		return entries
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, 0, len(v))
		for _, k := range keys {
			if entry, ok := classifyDateAmount(k, v[k]); ok {
				entries = append(entries, entry)
				continue
			}
			entries = append(entries, classifyItem(v[k]))
		}
		return entries
	case json.RawMessage:
		var decoded interface{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil
		}
		return Classify(decoded)
	default:
		return []Entry{{Shape: ShapeUnknown}}
	}
}

// NormalizePayments turns any historical payments blob into canonical payments. Unrecognized
// entries are dropped; duplicates collapse per Dedupe.
func NormalizePayments(raw interface{}) []Payment {
	entries := Classify(raw)
	payments := make([]Payment, 0, len(entries))
	for _, e := range entries {
		if e.Shape == ShapeUnknown {
			continue
		}
		payments = append(payments, e.Payment)
	}
	return Dedupe(payments)
}

// Dedupe keeps one payment per month. A later entry for the same month replaces an earlier one.
// The result is sorted by month ascending.
func Dedupe(payments []Payment) []Payment {
	byMonth := make(map[MonthKey]Payment, len(payments))
	for _, p := range payments {
		if p.Month.IsZero() {
			continue
		}
		byMonth[p.Month] = p
	}
	out := make([]Payment, 0, len(byMonth))
	for _, p := range byMonth {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// PaidSetOf collects the months of every settled payment.
func PaidSetOf(payments []Payment) PaidSet {
	set := make(PaidSet, len(payments))
	for _, p := range payments {
		if p.Status == StatusPaid {
			set[p.Month] = struct{}{}
		}
	}
	return set
}

func classifyItem(item interface{}) Entry {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return Entry{Shape: ShapeUnknown}
	}
	return classifyObject(obj)
}

func classifyObject(obj map[string]interface{}) Entry {
	if rawKey, ok := obj["monthKey"]; ok {
		keyStr, ok := rawKey.(string)
		if !ok {
			return Entry{Shape: ShapeUnknown}
		}
		key, err := ParseMonthKey(keyStr)
		if err != nil {
			return Entry{Shape: ShapeUnknown}
		}
		p := Payment{Month: key, Status: StatusPending, Amount: decimal.Zero}
		if status, ok := obj["status"].(string); ok && strings.EqualFold(strings.TrimSpace(status), string(StatusPaid)) {
			p.Status = StatusPaid
		}
		if amount, ok := toDecimal(obj["amount"]); ok {
			p.Amount = amount
		}
		if paidOn, ok := toTime(obj["paidOn"]); ok {
			p.PaidOn = &paidOn
		}
		return Entry{Shape: ShapeMonthKeyStatus, Payment: p}
	}

	month, okMonth := toInt(obj["month"])
	year, okYear := toInt(obj["year"])
	if okMonth && okYear && month >= 1 && month <= 12 && year > 0 {
		p := Payment{
			Month:  MonthKey{Year: year, Month: time.Month(month)},
			Status: StatusPaid,
			Amount: decimal.Zero,
		}
		if amount, ok := toDecimal(obj["amount"]); ok {
			p.Amount = amount
		}
		return Entry{Shape: ShapeMonthYear, Payment: p}
	}

	return Entry{Shape: ShapeUnknown}
}

func classifyDateAmount(key string, value interface{}) (Entry, bool) {
	paidOn, err := time.Parse(dateLayout, strings.TrimSpace(key))
	if err != nil {
		return Entry{}, false
	}
	amount, ok := toDecimal(value)
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Shape: ShapeDateAmountMap,
		Payment: Payment{
			Month:  MonthOf(paidOn),
			Amount: amount,
			Status: StatusPaid,
			PaidOn: &paidOn,
		},
	}, true
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case int32:
		return decimal.NewFromInt32(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	case decimal.Decimal:
		return n, true
	default:
		return decimal.Decimal{}, false
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		raw := strings.TrimSpace(t)
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(dateLayout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
