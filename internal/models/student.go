package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StudentStatus distinguishes current members from those who have left.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "ACTIVE"
	StudentStatusInactive StudentStatus = "INACTIVE"
)

// Student represents an enrolled library member billed monthly.
type Student struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Phone          string          `db:"phone" json:"phone"`
	FatherName     string          `db:"father_name" json:"father_name"`
	Address        string          `db:"address" json:"address"`
	PhotoURL       string          `db:"photo_url" json:"photo_url"`
	JoinDate       time.Time       `db:"join_date" json:"join_date"`
	ExitDate       *time.Time      `db:"exit_date" json:"exit_date,omitempty"`
	MonthlyFee     decimal.Decimal `db:"monthly_fee" json:"monthly_fee"`
	DueDay         int             `db:"due_day" json:"due_day"`
	Status         StudentStatus   `db:"status" json:"status"`
	CanLogin       bool            `db:"can_login" json:"can_login"`
	LastRejoinDate *time.Time      `db:"last_rejoin_date" json:"last_rejoin_date,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the student is currently enrolled.
func (s Student) IsActive() bool {
	return s.Status == StudentStatusActive
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Status    *StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Member is the public roster view other students are allowed to see.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	PhotoURL string    `json:"photo_url"`
	Phone    string    `json:"phone"`
	JoinDate time.Time `json:"join_date"`
}
