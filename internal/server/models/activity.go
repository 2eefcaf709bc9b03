package models

import "time"

// Activity is one row of the append-only activity log.
type Activity struct {
	ID        string
	UserID    string
	Action    string
	Details   string
	Severity  string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
