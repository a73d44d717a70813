package dto

import "time"

// ExportResponse points the caller at a signed, expiring download.
type ExportResponse struct {
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
