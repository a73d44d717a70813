package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoreCategory groups catalog items.
type StoreCategory string

const (
	StoreCategoryNotes      StoreCategory = "notes"
	StoreCategoryTestSeries StoreCategory = "test-series"
	StoreCategoryBundle     StoreCategory = "bundle"
	StoreCategoryStationery StoreCategory = "stationery"
)

// StoreItem is a study material listed in the library store.
type StoreItem struct {
	ID          string          `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ImageURL    string          `db:"image_url" json:"image_url"`
	Category    StoreCategory   `db:"category" json:"category"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}
