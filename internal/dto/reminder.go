package dto

import "github.com/shopspring/decimal"

// Reminder is a ready-to-send fee reminder for one unpaid student.
type Reminder struct {
	StudentID    string          `json:"studentId"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	UnpaidMonths []string        `json:"unpaidMonths"`
	TotalDue     decimal.Decimal `json:"totalDue"`
	Message      string          `json:"message"`
	WhatsAppURL  string          `json:"whatsappUrl,omitempty"`
}

// ReminderBatchResponse groups every reminder plus a combined broadcast text.
type ReminderBatchResponse struct {
	Reminders []Reminder `json:"reminders"`
	Broadcast string     `json:"broadcast"`
}
