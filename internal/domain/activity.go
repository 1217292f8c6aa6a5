package domain

import "time"

// LogEntry is one line of the dashboard activity feed.
type LogEntry struct {
	ID      string    `json:"id"`                // Unique entry id
	Time    time.Time `json:"time"`              // When the event happened
	Level   LogLevel  `json:"level"`             // info, success, warning or error
	Message string    `json:"message"`           // Short event description
	Details string    `json:"details,omitempty"` // Optional free-form detail
}
