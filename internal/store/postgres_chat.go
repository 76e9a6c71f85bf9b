package store

import (
	"context"
	"fmt"
)

// SaveExchange persists one question/answer exchange in a single transaction:
// the conversation for (user, project scope) is upserted, the user and bot
// messages inserted, citations attached to the bot message, and the
// conversation's last_message_at advanced. Cited documents that no longer
// exist are skipped, not failed.
func (s *PostgresStore) SaveExchange(ctx context.Context, userID int64, projectID *int64, question, answer string, citedDocumentIDs []int64) (userMessageID, botMessageID int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin save exchange: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var conversation ChatConversation
	err = tx.QueryRowContext(ctx, `
		INSERT INTO chat_conversations (user_id, project_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, COALESCE(project_id, 0))
		DO UPDATE SET last_message_at = NOW()
		RETURNING id, user_id, project_id, started_at, last_message_at
	`, userID, projectID).Scan(&conversation.ID, &conversation.UserID, &conversation.ProjectID, &conversation.StartedAt, &conversation.LastMessageAt)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert conversation: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO chat_messages (conversation_id, type, content)
		VALUES ($1, $2, $3)
		RETURNING id
	`, conversation.ID, MessageUser, question).Scan(&userMessageID)
	if err != nil {
		return 0, 0, fmt.Errorf("insert user message: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO chat_messages (conversation_id, type, content)
		VALUES ($1, $2, $3)
		RETURNING id
	`, conversation.ID, MessageBot, answer).Scan(&botMessageID)
	if err != nil {
		return 0, 0, fmt.Errorf("insert bot message: %w", err)
	}

	for _, documentID := range citedDocumentIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_references (message_id, document_id, relevance_score)
			SELECT $1, id, 1.0 FROM documents WHERE id = $2
			ON CONFLICT DO NOTHING
		`, botMessageID, documentID); err != nil {
			return 0, 0, fmt.Errorf("insert reference: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE chat_conversations
		SET last_message_at = (SELECT sent_at FROM chat_messages WHERE id = $2)
		WHERE id = $1
	`, conversation.ID, botMessageID); err != nil {
		return 0, 0, fmt.Errorf("touch conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit save exchange: %w", err)
	}
	return userMessageID, botMessageID, nil
}

// ListConversationMessages returns a user's messages for a project scope
// (nil projectID means the global conversation), newest first, with the
// references of each bot message attached.
func (s *PostgresStore) ListConversationMessages(ctx context.Context, userID int64, projectID *int64, limit int) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.type, m.content, m.sent_at
		FROM chat_messages m
		JOIN chat_conversations c ON c.id = m.conversation_id
		WHERE c.user_id = $1
			AND (($2::BIGINT IS NULL AND c.project_id IS NULL) OR c.project_id = $2)
		ORDER BY m.sent_at DESC, m.id DESC
		LIMIT $3
	`, userID, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]ChatMessage, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Type, &m.Content, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	if len(messages) == 0 {
		return messages, nil
	}

	refs, err := s.listReferences(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].References = refs[messages[i].ID]
	}
	return messages, nil
}

func (s *PostgresStore) listReferences(ctx context.Context, messageIDs []int64) (map[int64][]ChatReference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.message_id, r.document_id, d.name, r.relevance_score
		FROM chat_references r
		JOIN documents d ON d.id = r.document_id
		WHERE r.message_id = ANY($1)
	`, int64Array(messageIDs))
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer rows.Close()

	refs := make(map[int64][]ChatReference)
	for rows.Next() {
		var r ChatReference
		if err := rows.Scan(&r.MessageID, &r.DocumentID, &r.DocumentName, &r.RelevanceScore); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		refs[r.MessageID] = append(refs[r.MessageID], r)
	}
	return refs, rows.Err()
}

// int64Array renders an int64 slice as a postgres bigint[] literal for ANY().
func int64Array(ids []int64) string {
	out := "{"
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d", id)
	}
	return out + "}"
}
