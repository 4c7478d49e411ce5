package models

import "time"

// DailyUsage tracks per-user search/export counts for one calendar date in the
// quota timezone. Rows are created lazily on first use of a day and removed by
// the reset scheduler.
type DailyUsage struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Date        time.Time `json:"date"`
	SearchCount int       `json:"search_count"`
	ExportCount int       `json:"export_count"`
}

// ExportLog records a completed CSV export.
type ExportLog struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	SearchID      *string   `json:"search_id"`
	ExportedAt    time.Time `json:"exported_at"`
	RowCount      int       `json:"row_count"`
	FileSizeBytes int64     `json:"file_size_bytes"`
}
