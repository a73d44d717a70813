package fee

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout       = "2006-01-02"
	monthLabelLayout = "Jan 2006"
)

// MonthKey identifies one calendar month. Its canonical text form is "YYYY-MM".
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t, in t's own location.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// ParseMonthKey parses a "YYYY-MM" key.
func ParseMonthKey(raw string) (MonthKey, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 || !allDigits(parts[0]) || !allDigits(parts[1]) {
		return MonthKey{}, fmt.Errorf("invalid month key %q", raw)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthKey{}, fmt.Errorf("invalid month key %q: %w", raw, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("invalid month key %q", raw)
	}
	return MonthKey{Year: year, Month: time.Month(month)}, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsZero reports whether k is the zero key.
func (k MonthKey) IsZero() bool {
	return k.Year == 0 && k.Month == 0
}

// String renders the canonical "YYYY-MM" key.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Label renders a human readable "Mar 2024" label.
func (k MonthKey) Label() string {
	return k.First(time.UTC).Format(monthLabelLayout)
}

// First returns midnight of the first day of the month in loc.
func (k MonthKey) First(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, loc)
}

// Next returns the following calendar month.
func (k MonthKey) Next() MonthKey {
	if k.Month == time.December {
		return MonthKey{Year: k.Year + 1, Month: time.January}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

// Before reports whether k is strictly earlier than other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// MonthsUntil counts the months from k to last inclusive; zero when last precedes k.
func (k MonthKey) MonthsUntil(last MonthKey) int {
	n := (last.Year-k.Year)*12 + int(last.Month-k.Month) + 1
	if n < 0 {
		return 0
	}
	return n
}

// MarshalText implements encoding.TextMarshaler.
func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *MonthKey) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// daysIn returns the length of the month in days.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// PaidSet is the set of months whose fee has been settled.
type PaidSet map[MonthKey]struct{}

// NewPaidSet builds a set from the given keys.
func NewPaidSet(keys ...MonthKey) PaidSet {
	set := make(PaidSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Has reports membership of k.
func (s PaidSet) Has(k MonthKey) bool {
	_, ok := s[k]
	return ok
}
