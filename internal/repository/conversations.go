package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

// CreateConversationMessage inserts a message into a campaign lead's thread.
func (s *SQLiteStore) CreateConversationMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Metadata == nil {
		msg.Metadata = map[string]any{}
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO conversation_messages (campaign_lead_id, sender, message, intent, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.CampaignLeadID, msg.Sender, msg.Message, msg.Intent, marshalJSON(msg.Metadata), msg.CreatedAt)
	if err != nil {
		return err
	}
	msg.ID, err = res.LastInsertId()
	return err
}

// ListConversationMessages returns a thread oldest first.
func (s *SQLiteStore) ListConversationMessages(ctx context.Context, campaignLeadID int64) ([]domain.ConversationMessage, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, campaign_lead_id, sender, message, intent, metadata, created_at
		FROM conversation_messages WHERE campaign_lead_id = ? ORDER BY created_at ASC, id ASC`, campaignLeadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.ConversationMessage{}
	for rows.Next() {
		var msg domain.ConversationMessage
		var metadata sql.NullString
		if err := rows.Scan(&msg.ID, &msg.CampaignLeadID, &msg.Sender, &msg.Message, &msg.Intent, &metadata, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Metadata = unmarshalJSON(metadata)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
