package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeStatusResponse is the reconciled fee position of a single student.
type FeeStatusResponse struct {
	StudentID     string          `json:"studentId"`
	Name          string          `json:"name"`
	Active        bool            `json:"active"`
	MonthlyFee    decimal.Decimal `json:"monthlyFee"`
	UnpaidCount   int             `json:"unpaidCount"`
	UnpaidMonths  []string        `json:"unpaidMonths"`
	TotalDue      decimal.Decimal `json:"totalDue"`
	PaidCount     int             `json:"paidCount"`
	WindowMonths  int             `json:"windowMonths"`
	LastPaidMonth string          `json:"lastPaidMonth,omitempty"`
	NextDueDate   *time.Time      `json:"nextDueDate,omitempty"`
	AsOf          time.Time       `json:"asOf"`
}

// ApprovePaymentRequest settles an explicit month for a student.
type ApprovePaymentRequest struct {
	MonthKey string           `json:"monthKey" validate:"required,len=7"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
}

// UpdatePhotoRequest replaces a student's profile photo.
type UpdatePhotoRequest struct {
	PhotoURL string `json:"photoUrl" validate:"required,url"`
}
