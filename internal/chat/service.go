// Package chat implements the user-facing operations of a session:
// opening channels, sending and mutating messages, threads, search,
// and channel administration. Every operation talks to the server
// first and mutates local stores only from the confirmed response.
package chat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ggaspari/clack/internal/api"
	"github.com/ggaspari/clack/internal/bus"
	"github.com/ggaspari/clack/internal/cache"
	"github.com/ggaspari/clack/internal/model"
	"github.com/ggaspari/clack/internal/state"
)

var (
	// ErrNoActiveChannel is returned by message operations when no
	// channel has been opened yet.
	ErrNoActiveChannel = errors.New("no active channel")

	// ErrNoOpenThread is returned by thread replies when no thread
	// view is open.
	ErrNoOpenThread = errors.New("no open thread")

	// ErrPostingNotAllowed is returned before any network call when
	// the local membership role does not permit posting in the active
	// channel. No message record is created in that case.
	ErrPostingNotAllowed = errors.New("posting is restricted in this channel")

	// ErrManageNotAllowed guards channel administration operations.
	ErrManageNotAllowed = errors.New("channel management requires an admin role")
)

// Service wires the API client to the in-memory stores and the
// on-disk cache. It is safe for concurrent use; each store guards its
// own state and every mutation here goes through a single confirmed
// record.
type Service struct {
	api      *api.Client
	stores   *state.Stores
	cache    *cache.DB
	bus      *bus.Bus
	logger   *zap.Logger
	pageSize int
	search   searchState
}

// NewService creates the operation layer. cache may be nil, in which
// case nothing is persisted between runs.
func NewService(client *api.Client, stores *state.Stores, db *cache.DB, b *bus.Bus, pageSize int, logger *zap.Logger) *Service {
	return &Service{
		api:      client,
		stores:   stores,
		cache:    db,
		bus:      b,
		logger:   logger.Named("chat"),
		pageSize: pageSize,
	}
}

// Stores exposes the store bundle for read-side consumers.
func (s *Service) Stores() *state.Stores { return s.stores }

// RefreshDirectory reloads the channel list and the inbox snapshot
// from the server and persists both.
func (s *Service) RefreshDirectory(ctx context.Context) error {
	channels, err := s.api.Channels(ctx)
	if err != nil {
		return err
	}
	items, err := s.api.Inbox(ctx)
	if err != nil {
		return err
	}
	s.stores.Directory.Replace(channels)
	s.stores.Inbox.Replace(items)
	s.persistDirectory(channels, items)
	s.bus.Publish(bus.Event{Kind: "store.directory_refreshed", Timestamp: time.Now(), Payload: len(channels)})
	return nil
}

// CreateChannel creates a channel and refreshes the directory so the
// caller sees the server-assigned record.
func (s *Service) CreateChannel(ctx context.Context, name string, kind model.ChannelKind) (*model.Channel, error) {
	ch, err := s.api.CreateChannel(ctx, name, kind)
	if err != nil {
		return nil, err
	}
	if err := s.RefreshDirectory(ctx); err != nil {
		s.logger.Warn("directory refresh after create failed", zap.Error(err))
	}
	return ch, nil
}

// CreateDirectMessage opens (or reuses) the DM channel with userID.
func (s *Service) CreateDirectMessage(ctx context.Context, userID string) (*model.Channel, error) {
	ch, err := s.api.CreateDirectMessage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.RefreshDirectory(ctx); err != nil {
		s.logger.Warn("directory refresh after dm create failed", zap.Error(err))
	}
	return ch, nil
}

// DeleteChannel removes a channel on the server and evicts every
// local trace of it. Requires a management role locally; the server
// enforces the same rule authoritatively.
func (s *Service) DeleteChannel(ctx context.Context, channelID string) error {
	if ch, ok := s.stores.Directory.Get(channelID); ok && !ch.CanManage() {
		return ErrManageNotAllowed
	}
	if err := s.api.DeleteChannel(ctx, channelID); err != nil {
		return err
	}
	if s.stores.Messages.ActiveChannel() == channelID {
		s.stores.Messages.Close()
		s.stores.Thread.Close()
	}
	s.stores.Directory.Evict(channelID)
	s.stores.Inbox.Evict(channelID)
	if s.cache != nil {
		if err := s.cache.EvictChannel(channelID); err != nil {
			s.logger.Warn("cache evict failed", zap.String("channel", channelID), zap.Error(err))
		}
	}
	s.bus.Publish(bus.Event{Kind: "store.channel_deleted", Timestamp: time.Now(), Payload: channelID})
	if err := s.RefreshDirectory(ctx); err != nil {
		s.logger.Warn("directory refresh after delete failed", zap.Error(err))
	}
	return nil
}

// AddMember adds userID to a channel with the given role.
func (s *Service) AddMember(ctx context.Context, channelID, userID string, role model.Role) error {
	if ch, ok := s.stores.Directory.Get(channelID); ok && !ch.CanManage() {
		return ErrManageNotAllowed
	}
	return s.api.AddMember(ctx, channelID, userID, role)
}

// RemoveMember removes userID from a channel.
func (s *Service) RemoveMember(ctx context.Context, channelID, userID string) error {
	if ch, ok := s.stores.Directory.Get(channelID); ok && !ch.CanManage() {
		return ErrManageNotAllowed
	}
	return s.api.RemoveMember(ctx, channelID, userID)
}

// MarkRead clears the unread counter for a channel, holding it in the
// retry set when the server call fails.
func (s *Service) MarkRead(ctx context.Context, channelID string) error {
	if err := s.api.MarkRead(ctx, channelID); err != nil {
		s.stores.Inbox.MarkReadFailed(channelID)
		return err
	}
	s.stores.Inbox.ClearUnread(channelID)
	return nil
}

func (s *Service) persistDirectory(channels []model.Channel, items []model.InboxItem) {
	if s.cache == nil {
		return
	}
	if err := s.cache.ReplaceDirectory(channels); err != nil {
		s.logger.Warn("cache directory write failed", zap.Error(err))
		return
	}
	if err := s.cache.SaveInbox(items); err != nil {
		s.logger.Warn("cache inbox write failed", zap.Error(err))
	}
}
