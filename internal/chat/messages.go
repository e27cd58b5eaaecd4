package chat

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ggaspari/clack/internal/bus"
	"github.com/ggaspari/clack/internal/model"
)

// OpenChannel makes channelID the active channel, loads its most
// recent page and clears the unread counter. Any previously open
// channel and thread are closed first. A cached timeline, when
// present, is shown before the network round trip completes.
func (s *Service) OpenChannel(ctx context.Context, channelID string) error {
	s.stores.Messages.Open(channelID)
	s.stores.Thread.Close()

	if s.cache != nil {
		if cached, err := s.cache.ListMessages(channelID, s.pageSize); err == nil && len(cached) > 0 {
			s.stores.Messages.Replace(channelID, cached)
		}
	}

	page, err := s.api.Messages(ctx, channelID, s.pageSize)
	if err != nil {
		return err
	}
	s.stores.Messages.Replace(channelID, page)
	s.persistTimeline(channelID, page)

	if err := s.MarkRead(ctx, channelID); err != nil {
		// retried by the next reconcile pass
		s.logger.Debug("mark read failed", zap.String("channel", channelID), zap.Error(err))
	}
	s.bus.Publish(bus.Event{Kind: "store.channel_opened", Timestamp: time.Now(), Payload: channelID})
	return nil
}

// CloseChannel leaves the active channel without opening another.
func (s *Service) CloseChannel() {
	s.stores.Messages.Close()
	s.stores.Thread.Close()
}

// Send posts a plain text message to the active channel. The local
// timeline gains an entry only from the server-confirmed record; a
// failed send leaves no trace.
func (s *Service) Send(ctx context.Context, body string) (*model.Message, error) {
	channelID, err := s.postableChannel()
	if err != nil {
		return nil, err
	}
	msg, err := s.api.PostMessage(ctx, channelID, body, "")
	if err != nil {
		return nil, err
	}
	s.deliver(*msg)
	return msg, nil
}

// SendGIF posts a GIF message referencing an external URL.
func (s *Service) SendGIF(ctx context.Context, gifURL string) (*model.Message, error) {
	channelID, err := s.postableChannel()
	if err != nil {
		return nil, err
	}
	msg, err := s.api.PostGIF(ctx, channelID, gifURL)
	if err != nil {
		return nil, err
	}
	s.deliver(*msg)
	return msg, nil
}

// SendAttachment uploads a file into the active channel.
func (s *Service) SendAttachment(ctx context.Context, filename string, file io.Reader) (*model.Message, error) {
	channelID, err := s.postableChannel()
	if err != nil {
		return nil, err
	}
	msg, err := s.api.PostAttachment(ctx, channelID, filename, file)
	if err != nil {
		return nil, err
	}
	s.deliver(*msg)
	return msg, nil
}

// Edit replaces the body of an own message. The store is updated
// with the server's authoritative record, never the local draft.
func (s *Service) Edit(ctx context.Context, messageID, body string) (*model.Message, error) {
	channelID := s.stores.Messages.ActiveChannel()
	if channelID == "" {
		return nil, ErrNoActiveChannel
	}
	updated, err := s.api.EditMessage(ctx, channelID, messageID, body)
	if err != nil {
		return nil, err
	}
	s.stores.ApplyAuthoritative(*updated)
	s.persistMessage(*updated)
	return updated, nil
}

// Delete tombstones a message. The entry keeps its timeline position
// with body and reactions stripped.
func (s *Service) Delete(ctx context.Context, messageID string) error {
	channelID := s.stores.Messages.ActiveChannel()
	if channelID == "" {
		return ErrNoActiveChannel
	}
	if err := s.api.DeleteMessage(ctx, channelID, messageID); err != nil {
		return err
	}
	s.stores.ApplyDelete(messageID)
	if m, ok := s.stores.Messages.Get(messageID); ok {
		s.persistMessage(m)
	}
	return nil
}

// ToggleReaction adds or removes the caller's reaction and replaces
// the message's reaction groups with the server's result.
func (s *Service) ToggleReaction(ctx context.Context, messageID, emoji string) ([]model.ReactionGroup, error) {
	channelID := s.stores.Messages.ActiveChannel()
	if channelID == "" {
		return nil, ErrNoActiveChannel
	}
	groups, err := s.api.ToggleReaction(ctx, channelID, messageID, emoji)
	if err != nil {
		return nil, err
	}
	s.stores.SetReactions(messageID, groups)
	if m, ok := s.stores.Messages.Get(messageID); ok {
		s.persistMessage(m)
	}
	return groups, nil
}

// postableChannel returns the active channel after checking the local
// posting policy, so restricted channels fail before any network call.
func (s *Service) postableChannel() (string, error) {
	channelID := s.stores.Messages.ActiveChannel()
	if channelID == "" {
		return "", ErrNoActiveChannel
	}
	if ch, ok := s.stores.Directory.Get(channelID); ok && !ch.CanPost() {
		return "", ErrPostingNotAllowed
	}
	return channelID, nil
}

// deliver applies a confirmed message through the shared append path
// and persists it.
func (s *Service) deliver(msg model.Message) {
	if s.stores.ApplyIncoming(msg) {
		s.persistMessage(msg)
		s.bus.Publish(bus.Event{Kind: "store.message_sent", Timestamp: time.Now(), Payload: msg.ID})
	}
}

func (s *Service) persistMessage(msg model.Message) {
	if s.cache == nil {
		return
	}
	if err := s.cache.UpsertMessage(msg); err != nil {
		s.logger.Warn("cache message write failed", zap.String("message", msg.ID), zap.Error(err))
	}
}

func (s *Service) persistTimeline(channelID string, msgs []model.Message) {
	if s.cache == nil {
		return
	}
	if err := s.cache.ReplaceTimeline(channelID, msgs); err != nil {
		s.logger.Warn("cache timeline write failed", zap.String("channel", channelID), zap.Error(err))
	}
}
