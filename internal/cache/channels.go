package cache

import (
	"time"

	"github.com/ggaspari/clack/internal/model"
)

// UpsertChannel inserts or updates a channel record.
func (db *DB) UpsertChannel(c model.Channel) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO channels (id, name, kind, posting_policy, description, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			posting_policy = excluded.posting_policy,
			description = excluded.description,
			role = excluded.role,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, string(c.Kind), string(c.PostingPolicy), c.Description, string(c.Role),
		c.CreatedAt.UnixMilli(), now)
	return err
}

// ReplaceDirectory swaps the cached directory for a full snapshot in
// one transaction. Channels missing from the snapshot are evicted
// along with their messages, mirroring the server-side cascade.
func (db *DB) ReplaceDirectory(channels []model.Channel) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		DELETE FROM messages WHERE channel_id NOT IN (SELECT id FROM channels)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM channels`); err != nil {
		return err
	}
	for _, c := range channels {
		if _, err := tx.Exec(`
			INSERT INTO channels (id, name, kind, posting_policy, description, role, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, string(c.Kind), string(c.PostingPolicy), c.Description, string(c.Role),
			c.CreatedAt.UnixMilli(), now); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`
		DELETE FROM messages WHERE channel_id NOT IN (SELECT id FROM channels)`); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveInbox stores the unread snapshot onto cached channels.
func (db *DB) SaveInbox(items []model.InboxItem) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, it := range items {
		if _, err := tx.Exec(`
			UPDATE channels SET unread_count = ?, last_activity_at = ? WHERE id = ?`,
			it.UnreadCount, it.LastActivityAt.UnixMilli(), it.ChannelID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListChannels returns cached channels ordered by last activity,
// newest first.
func (db *DB) ListChannels() ([]model.Channel, []model.InboxItem, error) {
	rows, err := db.Query(`
		SELECT id, name, kind, posting_policy, description, role, created_at, unread_count, last_activity_at
		FROM channels
		ORDER BY last_activity_at DESC`)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	var channels []model.Channel
	var inbox []model.InboxItem
	for rows.Next() {
		var c model.Channel
		var kind, policy, role string
		var createdAt, unread, lastActivity int64
		if err := rows.Scan(&c.ID, &c.Name, &kind, &policy, &c.Description, &role, &createdAt, &unread, &lastActivity); err != nil {
			return nil, nil, err
		}
		c.Kind = model.ChannelKind(kind)
		c.PostingPolicy = model.PostingPolicy(policy)
		c.Role = model.Role(role)
		c.CreatedAt = time.UnixMilli(createdAt).UTC()
		channels = append(channels, c)
		inbox = append(inbox, model.InboxItem{
			ChannelID:      c.ID,
			UnreadCount:    int(unread),
			LastActivityAt: time.UnixMilli(lastActivity).UTC(),
		})
	}
	return channels, inbox, rows.Err()
}

// EvictChannel drops a channel and its cached messages.
func (db *DB) EvictChannel(channelID string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE channel_id = ?`, channelID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM channels WHERE id = ?`, channelID); err != nil {
		return err
	}
	return tx.Commit()
}
