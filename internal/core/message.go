package core

import "time"

// Message is the domain model for a chat message.
type Message struct {
	ID         string
	Content    string
	SenderID   string
	SenderName string // snapshot of the sender's username at send time
	Timestamp  time.Time
	RoomID     string
	IsMedia    bool
	MediaURL   string
}
