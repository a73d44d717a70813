package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdminDashboardResponse captures the aggregated admin overview.
type AdminDashboardResponse struct {
	Month                 string          `json:"month"`
	TotalStudents         int             `json:"totalStudents"`
	ActiveStudents        int             `json:"activeStudents"`
	InactiveStudents      int             `json:"inactiveStudents"`
	UnpaidStudents        int             `json:"unpaidStudents"`
	ExpectedMonthlyIncome decimal.Decimal `json:"expectedMonthlyIncome"`
	TotalUnpaid           decimal.Decimal `json:"totalUnpaid"`
	GeneratedAt           time.Time       `json:"generatedAt"`
}

// UnpaidStudentEntry is one row of the unpaid tab.
type UnpaidStudentEntry struct {
	StudentID    string          `json:"studentId"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	PhotoURL     string          `json:"photoUrl"`
	UnpaidCount  int             `json:"unpaidCount"`
	UnpaidMonths []string        `json:"unpaidMonths"`
	TotalDue     decimal.Decimal `json:"totalDue"`
}

// ActivityEntry is a student who joined or left during the month.
type ActivityEntry struct {
	StudentID string    `json:"studentId"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
}

// ActivityResponse lists this month's joins and exits.
type ActivityResponse struct {
	Month  string          `json:"month"`
	Joined []ActivityEntry `json:"joined"`
	Left   []ActivityEntry `json:"left"`
}
