// Package fee reconciles a student's enrollment window against the months already paid.
//
// Everything here is a pure function of its arguments: the caller supplies the clock reading
// and the normalized payment set, and nothing is ever written back.
package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Input describes one enrollment as seen by the engine.
type Input struct {
	// JoinDate opens the billing window. Nil means the enrollment cannot be billed.
	JoinDate *time.Time
	// ExitDate closes the window when the enrollment is no longer active.
	ExitDate   *time.Time
	Active     bool
	MonthlyFee decimal.Decimal
	Paid       PaidSet
	// DueDay is the day of month fees fall due; zero falls back to the join day.
	DueDay int
}

// Result is the derived, never persisted, outcome of a reconciliation.
type Result struct {
	UnpaidCount   int             `json:"unpaid_count"`
	TotalDue      decimal.Decimal `json:"total_due"`
	UnpaidMonths  []string        `json:"unpaid_months"`
	UnpaidKeys    []MonthKey      `json:"unpaid_keys"`
	PaidCount     int             `json:"paid_count"`
	WindowMonths  int             `json:"window_months"`
	LastPaidMonth string          `json:"last_paid_month,omitempty"`
	NextDueDate   *time.Time      `json:"next_due_date,omitempty"`
}

// IsZero reports whether nothing is owed and no window was billed.
func (r Result) IsZero() bool {
	return r.WindowMonths == 0 && r.UnpaidCount == 0
}

func zeroResult() Result {
	return Result{
		TotalDue:     decimal.Zero,
		UnpaidMonths: []string{},
		UnpaidKeys:   []MonthKey{},
	}
}

// Reconcile walks every month between the join date and asOf (or the exit date of an ended
// enrollment) and reports which of them are missing from the paid set.
func Reconcile(in Input, asOf time.Time) Result {
	if in.JoinDate == nil || in.JoinDate.IsZero() {
		return zeroResult()
	}
	if in.ExitDate != nil && !in.ExitDate.IsZero() && dateOf(*in.ExitDate).Before(dateOf(*in.JoinDate)) {
		return zeroResult()
	}

	first := MonthOf(*in.JoinDate)
	end := asOf
	if !in.Active && in.ExitDate != nil && !in.ExitDate.IsZero() && in.ExitDate.Before(asOf) {
		end = *in.ExitDate
	}
	last := MonthOf(end)
	if last.Before(first) {
		return zeroResult()
	}

	window := first.MonthsUntil(last)
	res := Result{
		UnpaidMonths: make([]string, 0, window),
		UnpaidKeys:   make([]MonthKey, 0, window),
		WindowMonths: window,
	}
	for m := first; !last.Before(m); m = m.Next() {
		if in.Paid.Has(m) {
			res.PaidCount++
			res.LastPaidMonth = m.Label()
			continue
		}
		res.UnpaidCount++
		res.UnpaidMonths = append(res.UnpaidMonths, m.Label())
		res.UnpaidKeys = append(res.UnpaidKeys, m)
	}

	res.TotalDue = in.MonthlyFee.Mul(decimal.NewFromInt(int64(res.UnpaidCount)))

	dueDay := in.DueDay
	if dueDay < 1 || dueDay > 31 {
		dueDay = in.JoinDate.Day()
	}
	next := NextDueDate(dueDay, asOf)
	res.NextDueDate = &next
	return res
}

// NextDueDate returns dueDay of asOf's month, or of the following month once that date has
// passed. The day is clamped to the length of the month it lands in.
func NextDueDate(dueDay int, asOf time.Time) time.Time {
	loc := asOf.Location()
	current := MonthOf(asOf)
	due := onDay(current, dueDay, loc)
	if due.Before(dateOf(asOf)) {
		due = onDay(current.Next(), dueDay, loc)
	}
	return due
}

func onDay(m MonthKey, day int, loc *time.Location) time.Time {
	if last := daysIn(m.Year, m.Month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, loc)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
