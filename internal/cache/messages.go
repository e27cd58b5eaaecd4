package cache

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ggaspari/clack/internal/model"
)

// UpsertMessage inserts or updates a message, idempotent on
// (channel_id, message_id). Duplicate delivery across transports
// therefore cannot produce two cache rows either.
func (db *DB) UpsertMessage(m model.Message) error {
	return upsertMessage(db.DB, m)
}

// ReplaceTimeline stores an authoritative timeline snapshot for a
// channel in one transaction. Rows for messages no longer in the page
// are kept: the cache intentionally holds more history than one page.
func (db *DB) ReplaceTimeline(channelID string, msgs []model.Message) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range msgs {
		if m.ChannelID == "" {
			m.ChannelID = channelID
		}
		if err := upsertMessage(tx, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListMessages returns the newest cached messages for a channel in
// ascending creation order.
func (db *DB) ListMessages(channelID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT channel_id, message_id, sender_id, sender_name, body, message_type,
		       reply_to, reply_count, edited, deleted, reactions, created_at
		FROM (
			SELECT * FROM messages
			WHERE channel_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		)
		ORDER BY created_at ASC`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var msgType, reactions string
		var createdAt int64
		if err := rows.Scan(&m.ChannelID, &m.ID, &m.Sender.ID, &m.Sender.Name, &m.Body, &msgType,
			&m.ReplyTo, &m.ReplyCount, &m.Edited, &m.Deleted, &reactions, &createdAt); err != nil {
			return nil, err
		}
		m.Type = model.MessageType(msgType)
		m.CreatedAt = time.UnixMilli(createdAt).UTC()
		if reactions != "" && reactions != "[]" {
			_ = json.Unmarshal([]byte(reactions), &m.Reactions)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertMessage(e execer, m model.Message) error {
	reactions, err := json.Marshal(m.Reactions)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = e.Exec(`
		INSERT INTO messages (channel_id, message_id, sender_id, sender_name, body, message_type,
			reply_to, reply_count, edited, deleted, reactions, created_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, message_id) DO UPDATE SET
			body = excluded.body,
			reply_count = excluded.reply_count,
			edited = excluded.edited,
			deleted = excluded.deleted,
			reactions = excluded.reactions,
			stored_at = excluded.stored_at`,
		m.ChannelID, m.ID, m.Sender.ID, m.Sender.Name, m.Body, string(m.Type),
		m.ReplyTo, m.ReplyCount, m.Edited, m.Deleted, string(reactions),
		m.CreatedAt.UnixMilli(), now)
	return err
}
