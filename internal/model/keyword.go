package model

import "time"

// CategoryKeyword is a piece of evidence that a product belongs to a
// category. (CategoryID, Keyword) is unique.
type CategoryKeyword struct {
	ID             int64     `db:"id" json:"id"`
	CategoryID     int64     `db:"category_id" json:"category_id"`
	Keyword        string    `db:"keyword" json:"keyword"`
	IsHighPriority bool      `db:"is_high_priority" json:"is_high_priority"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
