package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/mentor-portal-api/internal/models"
)

// MessageRepository is the append-only chat log.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append stores a new message.
func (r *MessageRepository) Append(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, channel_id, sender_id, sender_name, text, read, created_at) VALUES (:id, :channel_id, :sender_id, :sender_name, :text, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListByChannel returns the most recent messages of a channel in ascending
// timestamp order.
func (r *MessageRepository) ListByChannel(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args := []interface{}{filter.ChannelID}
	where := "channel_id = $1"
	if filter.Before != nil {
		where += " AND created_at < $2"
		args = append(args, *filter.Before)
	}
	query := fmt.Sprintf(`SELECT id, channel_id, sender_id, sender_name, text, read, created_at FROM (
SELECT id, channel_id, sender_id, sender_name, text, read, created_at FROM messages WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d
) recent ORDER BY created_at ASC, id ASC`, where, limit)

	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// MarkRead flags every message in the channel not sent by readerID as read.
func (r *MessageRepository) MarkRead(ctx context.Context, channelID, readerID string) (int64, error) {
	const query = `UPDATE messages SET read = TRUE WHERE channel_id = $1 AND sender_id <> $2 AND read = FALSE`
	res, err := r.db.ExecContext(ctx, query, channelID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// UnreadCounts returns, per channel, how many messages from someone other
// than readerID are still unread.
func (r *MessageRepository) UnreadCounts(ctx context.Context, readerID string, channelIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(channelIDs))
	if len(channelIDs) == 0 {
		return counts, nil
	}
	const query = `SELECT channel_id, COUNT(*) AS unread FROM messages
WHERE channel_id = ANY($1) AND sender_id <> $2 AND read = FALSE GROUP BY channel_id`
	var rows []struct {
		ChannelID string `db:"channel_id"`
		Unread    int    `db:"unread"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(channelIDs), readerID); err != nil {
		return nil, fmt.Errorf("count unread messages: %w", err)
	}
	for _, row := range rows {
		counts[row.ChannelID] = row.Unread
	}
	return counts, nil
}
