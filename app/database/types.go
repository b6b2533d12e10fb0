package database

import (
	"time"
)

// PostRecord is one published status as stored in the history table
type PostRecord struct {
	ID         int64
	ItemURL    string
	PostURL    string
	Title      string
	MediaCount int
	PostedAt   time.Time
}
