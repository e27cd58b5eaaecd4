package model

import (
	"encoding/json"
	"fmt"
)

// Push envelope kinds. The union is closed: decoding anything else
// returns ErrUnknownEnvelope and the caller drops the frame.
const (
	EnvelopeChatMessage  = "chat_message"
	EnvelopeChatReaction = "chat_reaction"
)

// ErrUnknownEnvelope marks a push frame whose type is not part of the
// protocol. Such frames are dropped, never treated as fatal.
var ErrUnknownEnvelope = fmt.Errorf("unknown push envelope type")

// PushEvent is the closed union of events the push transport delivers.
type PushEvent interface {
	pushEvent()
}

// MessageEvent is a chat_message envelope: a new or updated message in
// a channel.
type MessageEvent struct {
	ChannelID string  `json:"channel_id"`
	Message   Message `json:"message"`
}

// ReactionEvent is a chat_reaction envelope: the full authoritative
// reaction group list for one message.
type ReactionEvent struct {
	ChannelID string          `json:"channel_id"`
	MessageID string          `json:"message_id"`
	Reactions []ReactionGroup `json:"reactions"`
}

func (MessageEvent) pushEvent()  {}
func (ReactionEvent) pushEvent() {}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodePush parses a raw push frame into one of the union variants.
func DecodePush(raw []byte) (PushEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case EnvelopeChatMessage:
		var evt MessageEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			return nil, fmt.Errorf("decode chat_message: %w", err)
		}
		if evt.Message.ID == "" {
			return nil, fmt.Errorf("chat_message without message id")
		}
		return evt, nil
	case EnvelopeChatReaction:
		var evt ReactionEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			return nil, fmt.Errorf("decode chat_reaction: %w", err)
		}
		if evt.MessageID == "" {
			return nil, fmt.Errorf("chat_reaction without message id")
		}
		return evt, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvelope, env.Type)
	}
}
