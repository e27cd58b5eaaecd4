package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ggaspari/clack/internal/model"
)

// Messages returns the newest-inclusive timeline page for a channel.
// Order is whatever the server sent; callers sort by creation time.
func (c *Client) Messages(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/channels/"+channelID+"/messages", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// PostMessage sends a text message. replyTo, when non-empty, makes the
// message a thread reply. The server-confirmed record comes back with
// its assigned identifier; the client never fabricates one.
func (c *Client) PostMessage(ctx context.Context, channelID, body, replyTo string) (*model.Message, error) {
	req := struct {
		Body    string `json:"body"`
		ReplyTo string `json:"reply_to_message_id,omitempty"`
	}{Body: body, ReplyTo: replyTo}
	var resp struct {
		Message model.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// PostGIF sends a GIF message. Same Message shape as a text send.
func (c *Client) PostGIF(ctx context.Context, channelID, gifURL string) (*model.Message, error) {
	req := struct {
		URL string `json:"url"`
	}{URL: gifURL}
	var resp struct {
		Message model.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages/gif", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// PostAttachment uploads a file as an attachment message (multipart).
func (c *Client) PostAttachment(ctx context.Context, channelID, filename string, file io.Reader) (*model.Message, error) {
	var resp struct {
		Message model.Message `json:"message"`
	}
	if err := c.doMultipart(ctx, "/channels/"+channelID+"/attachments", filename, file, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// EditMessage replaces a message body and returns the authoritative
// updated record.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, body string) (*model.Message, error) {
	req := struct {
		Body string `json:"body"`
	}{Body: body}
	var resp struct {
		Message model.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// DeleteMessage soft-deletes a message. The record stays in the
// timeline as a tombstone.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID+"/messages/"+messageID, nil, nil, nil)
}

// ToggleReaction toggles the session user's emoji on a message and
// returns the full authoritative reaction group list.
func (c *Client) ToggleReaction(ctx context.Context, channelID, messageID, emoji string) ([]model.ReactionGroup, error) {
	req := struct {
		Emoji string `json:"emoji"`
	}{Emoji: emoji}
	var resp struct {
		Reactions []model.ReactionGroup `json:"reactions"`
	}
	if err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages/"+messageID+"/reactions", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.Reactions, nil
}

// Thread fetches a parent message and its ordered replies.
func (c *Client) Thread(ctx context.Context, channelID, messageID string) (*model.Thread, error) {
	var resp model.Thread
	if err := c.do(ctx, http.MethodGet, "/channels/"+channelID+"/messages/"+messageID+"/thread", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
