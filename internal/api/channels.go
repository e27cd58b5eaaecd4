package api

import (
	"context"
	"net/http"

	"github.com/ggaspari/clack/internal/model"
)

// Channels returns the full channel directory for the session user.
func (c *Client) Channels(ctx context.Context) ([]model.Channel, error) {
	var resp struct {
		Channels []model.Channel `json:"channels"`
	}
	if err := c.do(ctx, http.MethodGet, "/channels", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Channels, nil
}

// Inbox returns the per-channel unread snapshot.
func (c *Client) Inbox(ctx context.Context) ([]model.InboxItem, error) {
	var resp struct {
		Items []model.InboxItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/inbox", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateChannel creates a channel. Kind is immutable once set.
func (c *Client) CreateChannel(ctx context.Context, name string, kind model.ChannelKind) (*model.Channel, error) {
	req := struct {
		Name string            `json:"name"`
		Kind model.ChannelKind `json:"kind"`
	}{Name: name, Kind: kind}
	var resp struct {
		Channel model.Channel `json:"channel"`
	}
	if err := c.do(ctx, http.MethodPost, "/channels", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Channel, nil
}

// DeleteChannel deletes a channel. The cascade to messages and
// memberships happens server-side.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID, nil, nil, nil)
}

// CreateDirectMessage opens (or returns the existing) DM channel with
// the target user.
func (c *Client) CreateDirectMessage(ctx context.Context, userID string) (*model.Channel, error) {
	req := struct {
		UserID string `json:"user_id"`
	}{UserID: userID}
	var resp struct {
		Channel model.Channel `json:"channel"`
	}
	if err := c.do(ctx, http.MethodPost, "/dm", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Channel, nil
}

// AddMember adds a user to a channel with the given role.
func (c *Client) AddMember(ctx context.Context, channelID, userID string, role model.Role) error {
	req := struct {
		UserID string     `json:"user_id"`
		Role   model.Role `json:"role"`
	}{UserID: userID, Role: role}
	return c.do(ctx, http.MethodPost, "/channels/"+channelID+"/members", nil, req, nil)
}

// RemoveMember removes a user from a channel.
func (c *Client) RemoveMember(ctx context.Context, channelID, userID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID+"/members/"+userID, nil, nil, nil)
}

// MarkRead resets the unread counter for a channel.
func (c *Client) MarkRead(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodPost, "/channels/"+channelID+"/mark-read", nil, nil, nil)
}
