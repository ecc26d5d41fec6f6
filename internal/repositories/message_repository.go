package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"dm-service/internal/models"
)

// MessageRepository is the durable message store.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	ListConversation(ctx context.Context, userID, otherID string) ([]models.Message, error)
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
	UnreadCounts(ctx context.Context, receiverID string) (map[string]int, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, sender_id, receiver_id, text, image, is_read, created_at`

// CreateMessage stores a new unread message and returns the stored record.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	var stored models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, sender_id, receiver_id, text, image) VALUES ($1, $2, $3, $4, $5) RETURNING `+messageColumns,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, msg.Image).StructScan(&stored)
	return stored, err
}

// ListConversation returns messages exchanged between two users in insertion order.
func (r *MessageRepo) ListConversation(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + `
        FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2)
        OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY seq ASC`
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, query, userID, otherID)
	return msgs, err
}

// MarkRead flips every unread message from sender to receiver in one statement.
func (r *MessageRepo) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE WHERE sender_id=$1 AND receiver_id=$2 AND is_read = FALSE`, senderID, receiverID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UnreadCounts returns, per sender, the number of unread messages addressed to receiver.
// Senders with nothing unread are absent from the map.
func (r *MessageRepo) UnreadCounts(ctx context.Context, receiverID string) (map[string]int, error) {
	var rows []struct {
		SenderID string `db:"sender_id"`
		Unread   int    `db:"unread"`
	}
	err := r.db.SelectContext(ctx, &rows, `SELECT sender_id, COUNT(*) AS unread FROM messages
        WHERE receiver_id=$1 AND is_read = FALSE
        GROUP BY sender_id`, receiverID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.SenderID] = row.Unread
	}
	return counts, nil
}
