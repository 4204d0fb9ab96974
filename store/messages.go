package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"simpus/models"

	"github.com/google/uuid"
)

// ==========================================
// COMMUNITY MESSAGES
// ==========================================

const messageColumns = "m.id, m.community_id, m.sender_id, m.content, m.message_type, m.attachments, m.is_edited, m.created_at"

func scanMessage(row interface{ Scan(...any) error }) (*models.Message, error) {
	var m models.Message
	var msgType string
	var attachments, sender sql.NullString
	if err := row.Scan(&m.ID, &m.CommunityID, &m.SenderID, &m.Content, &msgType, &attachments,
		&m.IsEdited, &m.CreatedAt, &sender); err != nil {
		return nil, err
	}
	m.Type = models.MessageType(msgType)
	m.CreatedAt = m.CreatedAt.UTC()
	m.Attachments = []models.Attachment{}
	if attachments.Valid && attachments.String != "" {
		if err := json.Unmarshal([]byte(attachments.String), &m.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	if sender.Valid {
		m.Sender = &models.UserRef{ID: m.SenderID, Name: sender.String}
	}
	m.Replies = []models.Reply{}
	m.Reactions = []models.Reaction{}
	return &m, nil
}

// CreateMessage posts a message to a community. Membership is checked by
// the caller.
func (s *Store) CreateMessage(ctx context.Context, communityID, senderID string, req models.MessageRequest) (*models.Message, error) {
	if req.Type == "" {
		req.Type = models.MessageText
	}
	if req.Attachments == nil {
		req.Attachments = []models.Attachment{}
	}
	attachments, err := json.Marshal(req.Attachments)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	_, err = s.exec(ctx, `
		INSERT INTO messages (id, community_id, sender_id, content, message_type, attachments, is_edited, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, communityID, senderID, strings.TrimSpace(req.Content), string(req.Type), string(attachments), false, s.now())
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return s.GetMessage(ctx, id)
}

// GetMessage loads one message with its sender, replies and reactions.
func (s *Store) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	m, err := scanMessage(s.queryRow(ctx,
		"SELECT "+messageColumns+", u.name FROM messages m LEFT JOIN users u ON u.id = m.sender_id WHERE m.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	list := []models.Message{*m}
	if err := s.loadThreads(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListMessages returns one page of a community's messages. Pages are cut
// newest first, and each page is returned in chronological order.
func (s *Store) ListMessages(ctx context.Context, communityID string, page, limit int) (*models.MessagePage, error) {
	page, limit, offset := pageBounds(page, limit, 20)

	var total int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM messages WHERE community_id = ?", communityID).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, `
		SELECT `+messageColumns+`, u.name
		FROM messages m LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.community_id = ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ? OFFSET ?`, communityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if err := s.loadThreads(ctx, msgs); err != nil {
		return nil, err
	}
	return &models.MessagePage{Messages: msgs, Total: total, Page: page, Limit: limit}, nil
}

// AddReply appends a reply to a message.
func (s *Store) AddReply(ctx context.Context, messageID, userID, content string) (*models.Reply, error) {
	r := &models.Reply{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   strings.TrimSpace(content),
		CreatedAt: s.now(),
	}
	_, err := s.exec(ctx,
		"INSERT INTO message_replies (id, message_id, user_id, content, created_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, messageID, r.UserID, r.Content, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert reply: %w", err)
	}
	return r, nil
}

// SetReaction records userID's reaction, replacing any earlier one.
func (s *Store) SetReaction(ctx context.Context, messageID, userID, emoji string) error {
	return s.withTx(ctx, func(h handle) error {
		if _, err := h.exec(ctx, "DELETE FROM message_reactions WHERE message_id = ? AND user_id = ?", messageID, userID); err != nil {
			return err
		}
		_, err := h.exec(ctx,
			"INSERT INTO message_reactions (message_id, user_id, emoji) VALUES (?, ?, ?)", messageID, userID, emoji)
		return err
	})
}

// loadThreads fills Replies and Reactions for msgs.
func (s *Store) loadThreads(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]any, len(msgs))
	index := make(map[string]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
		index[m.ID] = i
	}
	in := placeholders(len(ids))

	rows, err := s.query(ctx, `
		SELECT r.message_id, r.id, r.user_id, u.name, r.content, r.created_at
		FROM message_replies r LEFT JOIN users u ON u.id = r.user_id
		WHERE r.message_id IN (`+in+`)
		ORDER BY r.created_at ASC, r.id ASC`, ids...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var messageID string
		var name sql.NullString
		var r models.Reply
		if err := rows.Scan(&messageID, &r.ID, &r.UserID, &name, &r.Content, &r.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		if name.Valid {
			r.User = &models.UserRef{ID: r.UserID, Name: name.String}
		}
		m := &msgs[index[messageID]]
		m.Replies = append(m.Replies, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.query(ctx,
		"SELECT message_id, user_id, emoji FROM message_reactions WHERE message_id IN ("+in+") ORDER BY user_id", ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var messageID string
		var r models.Reaction
		if err := rows.Scan(&messageID, &r.UserID, &r.Emoji); err != nil {
			return err
		}
		m := &msgs[index[messageID]]
		m.Reactions = append(m.Reactions, r)
	}
	return rows.Err()
}
