package model

import (
	"errors"
	"testing"
)

func TestDecodeChatMessage(t *testing.T) {
	raw := []byte(`{"type":"chat_message","data":{"channel_id":"c1","message":{"id":"m1","channel_id":"c1","sender":{"id":"u2","name":"Bea"},"body":"hello","type":"text","created_at":"2026-08-30T12:00:00Z"}}}`)

	evt, err := DecodePush(raw)
	if err != nil {
		t.Fatal(err)
	}
	msg, ok := evt.(MessageEvent)
	if !ok {
		t.Fatalf("event type = %T, want MessageEvent", evt)
	}
	if msg.ChannelID != "c1" || msg.Message.ID != "m1" || msg.Message.Sender.Name != "Bea" {
		t.Errorf("event = %+v", msg)
	}
}

func TestDecodeChatReaction(t *testing.T) {
	raw := []byte(`{"type":"chat_reaction","data":{"channel_id":"c1","message_id":"m1","reactions":[{"emoji":"👍","users":["u1"],"reacted":true}]}}`)

	evt, err := DecodePush(raw)
	if err != nil {
		t.Fatal(err)
	}
	re, ok := evt.(ReactionEvent)
	if !ok {
		t.Fatalf("event type = %T, want ReactionEvent", evt)
	}
	if re.MessageID != "m1" || len(re.Reactions) != 1 || !re.Reactions[0].Reacted {
		t.Errorf("event = %+v", re)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := DecodePush([]byte(`{"type":"presence_ping","data":{}}`))
	if !errors.Is(err, ErrUnknownEnvelope) {
		t.Errorf("err = %v, want ErrUnknownEnvelope", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{"type":"chat_message","data":"not an object"}`),
		[]byte(`{"type":"chat_message","data":{"channel_id":"c1","message":{}}}`),
		[]byte(`{"type":"chat_reaction","data":{"channel_id":"c1"}}`),
	}
	for _, raw := range cases {
		if _, err := DecodePush(raw); err == nil {
			t.Errorf("DecodePush(%s) expected error", raw)
		}
	}
}
