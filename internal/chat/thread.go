package chat

import (
	"context"
	"time"

	"github.com/ggaspari/clack/internal/bus"
	"github.com/ggaspari/clack/internal/model"
)

// OpenThread loads the reply view rooted at messageID. Opening a
// thread while another is open replaces it; at most one thread view
// exists per session.
func (s *Service) OpenThread(ctx context.Context, messageID string) error {
	channelID := s.stores.Messages.ActiveChannel()
	if channelID == "" {
		return ErrNoActiveChannel
	}
	th, err := s.api.Thread(ctx, channelID, messageID)
	if err != nil {
		return err
	}
	s.stores.Thread.Open(*th)
	s.bus.Publish(bus.Event{Kind: "store.thread_opened", Timestamp: time.Now(), Payload: messageID})
	return nil
}

// CloseThread discards the open thread view, if any.
func (s *Service) CloseThread() {
	s.stores.Thread.Close()
	s.bus.Publish(bus.Event{Kind: "store.thread_closed", Timestamp: time.Now()})
}

// SendThreadReply posts a reply under the open thread's parent. The
// confirmed record lands in the thread view, the flat timeline, and
// the parent's reply counter in one pass.
func (s *Service) SendThreadReply(ctx context.Context, body string) (*model.Message, error) {
	parentID := s.stores.Thread.ParentID()
	if parentID == "" {
		return nil, ErrNoOpenThread
	}
	channelID, err := s.postableChannel()
	if err != nil {
		return nil, err
	}
	msg, err := s.api.PostMessage(ctx, channelID, body, parentID)
	if err != nil {
		return nil, err
	}
	s.deliver(*msg)
	return msg, nil
}
