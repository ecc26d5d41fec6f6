package models

import "time"

// Message is a direct message between two users.
type Message struct {
	ID         string    `db:"id" json:"_id"`
	SenderID   string    `db:"sender_id" json:"senderId"`
	ReceiverID string    `db:"receiver_id" json:"receiverId"`
	Text       string    `db:"text" json:"text,omitempty"`
	Image      string    `db:"image" json:"image,omitempty"`
	IsRead     bool      `db:"is_read" json:"isRead"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// SendInput carries the client supplied parts of a new message.
// Image is a base64 data URL.
type SendInput struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}
