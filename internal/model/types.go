package model

import "time"

// ChannelKind classifies a channel. The kind is fixed at creation;
// there is no convert operation on the backend.
type ChannelKind string

const (
	KindPublic        ChannelKind = "public"
	KindPrivate       ChannelKind = "private"
	KindAnnouncement  ChannelKind = "announcement"
	KindDirectMessage ChannelKind = "dm"
)

// PostingPolicy controls who may post into a channel.
type PostingPolicy string

const (
	PostingOpen       PostingPolicy = "open"
	PostingAdminsOnly PostingPolicy = "admins_only"
)

// Role is the viewer's membership role within a channel.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Channel is a conversation scope as returned by the directory endpoint.
// Role is the requesting user's own membership role.
type Channel struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Kind          ChannelKind   `json:"kind"`
	PostingPolicy PostingPolicy `json:"posting_policy"`
	Description   string        `json:"description"`
	Role          Role          `json:"role"`
	CreatedAt     time.Time     `json:"created_at"`
}

// CanPost reports whether the viewer may post a top-level message.
// Announcement channels and admins-only policies require admin rights.
func (c Channel) CanPost() bool {
	if c.Kind == KindAnnouncement || c.PostingPolicy == PostingAdminsOnly {
		return c.Role == RoleAdmin || c.Role == RoleOwner
	}
	return true
}

// CanManage reports whether the viewer may delete the channel or
// change its membership.
func (c Channel) CanManage() bool {
	return c.Role == RoleAdmin || c.Role == RoleOwner
}

// Membership is a (channel, user) pair with a role.
type Membership struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

// MessageType classifies the payload of a message.
type MessageType string

const (
	TypeText         MessageType = "text"
	TypeGIF          MessageType = "gif"
	TypeAttachment   MessageType = "attachment"
	TypeAnnouncement MessageType = "announcement"
)

// Sender identifies the author of a message.
type Sender struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is a single timeline entry. A message with ReplyTo set lives
// in two views: the flat channel timeline and its parent's thread.
// Deleted messages stay in sequence position with a tombstoned body.
type Message struct {
	ID         string          `json:"id"`
	ChannelID  string          `json:"channel_id"`
	Sender     Sender          `json:"sender"`
	Body       string          `json:"body"`
	Type       MessageType     `json:"type"`
	ReplyTo    string          `json:"reply_to_message_id,omitempty"`
	ReplyCount int             `json:"reply_count"`
	Edited     bool            `json:"edited"`
	Deleted    bool            `json:"deleted"`
	Reactions  []ReactionGroup `json:"reactions,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ReactionGroup is the per-emoji rollup of reactions on a message.
// Reacted marks whether the requesting user is among Users.
type ReactionGroup struct {
	Emoji   string   `json:"emoji"`
	Users   []string `json:"users"`
	Reacted bool     `json:"reacted"`
}

// InboxItem is the per-channel unread summary from the inbox endpoint.
type InboxItem struct {
	ChannelID      string    `json:"channel_id"`
	UnreadCount    int       `json:"unread_count"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Thread is a parent message plus its ordered replies.
type Thread struct {
	Parent  Message   `json:"parent"`
	Replies []Message `json:"replies"`
}

// SearchQuery carries the optional filters of the search endpoint.
type SearchQuery struct {
	Query   string
	Channel string
	Sender  string
	HasFile bool
}
