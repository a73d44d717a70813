package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the settlement state of a month.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
)

// Payment is one month's fee record. A student has at most one row per month key.
type Payment struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	MonthKey  string          `db:"month_key" json:"month_key"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Status    PaymentStatus   `db:"status" json:"status"`
	PaidOn    *time.Time      `db:"paid_on" json:"paid_on,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Approval records which admin settled which month, for auditing.
type Approval struct {
	ID          string          `db:"id" json:"id"`
	AdminID     string          `db:"admin_id" json:"admin_id"`
	StudentID   string          `db:"student_id" json:"student_id"`
	StudentName string          `db:"student_name" json:"student_name"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	MonthKey    string          `db:"month_key" json:"month_key"`
	ApprovedAt  time.Time       `db:"approved_at" json:"approved_at"`
}
