package models

import "time"

// LegacyStudent is a student document as stored by the previous document-database app.
// Payments is kept raw because it was written in several layouts over time.
type LegacyStudent struct {
	DocumentID string
	Name       string
	Phone      string
	FatherName string
	Address    string
	PhotoURL   string
	JoinDate   *time.Time
	ExitDate   *time.Time
	MonthlyFee interface{}
	Status     string
	Payments   interface{}
}

// ImportReport summarises one legacy import run.
type ImportReport struct {
	Documents        int            `json:"documents"`
	StudentsCreated  int            `json:"students_created"`
	StudentsExisting int            `json:"students_existing"`
	Skipped          []string       `json:"skipped"`
	PaymentsInserted int            `json:"payments_inserted"`
	Shapes           map[string]int `json:"shapes"`
}
