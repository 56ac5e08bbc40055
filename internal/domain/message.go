package domain

import "time"

// Message is one entry in a user's companion chat history. The daily
// inactivity nudge is delivered as a message from the companion.
type Message struct {
	ID     int64
	UserID int64
	Sender string
	Body   string
	SentAt time.Time
}

// Senders recognized in chat history.
const (
	SenderUser      = "user"
	SenderCompanion = "companion"
)

// AdminLog records one admin console action for audit.
type AdminLog struct {
	ID        int64
	Admin     string
	Action    string
	Details   string
	Timestamp time.Time
}
