package state

import (
	"sort"
	"sync"

	"github.com/ggaspari/clack/internal/model"
)

// MessageStore holds the ordered timeline of the single active
// channel. Order is server-reported creation time, not arrival order:
// a late delivery with an earlier timestamp is sort-inserted, never
// appended at the tail.
//
// The store is mutated from three sources (user actions, push, poll).
// Every mutation is an atomic read-modify-write under the lock, which
// is what makes duplicate delivery across transports harmless: the
// identifier check and the insert happen in one critical section.
type MessageStore struct {
	mu        sync.RWMutex
	channelID string
	msgs      []model.Message
}

// NewMessageStore creates an empty store with no active channel.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Open makes channelID the active channel. Switching channels drops
// the previous timeline; exactly one channel is active at a time.
func (s *MessageStore) Open(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channelID != channelID {
		s.channelID = channelID
		s.msgs = nil
	}
}

// ActiveChannel returns the open channel id, or "" when none is open.
func (s *MessageStore) ActiveChannel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channelID
}

// Close clears the active channel and its timeline.
func (s *MessageStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = ""
	s.msgs = nil
}

// Replace swaps in an authoritative snapshot for channelID, sorted
// ascending by creation time and deduplicated by id. The snapshot is
// ignored when channelID is no longer the active channel (a poll that
// raced a channel switch).
func (s *MessageStore) Replace(channelID string, msgs []model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channelID != s.channelID {
		return false
	}

	sorted := make([]model.Message, 0, len(msgs))
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		sorted = append(sorted, m)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	s.msgs = sorted
	return true
}

// Insert adds a delivered message in sorted position. Returns false
// without mutating when the message is for another channel or an entry
// with the same id already exists (first writer wins for identity).
func (s *MessageStore) Insert(msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channelID == "" || msg.ChannelID != s.channelID {
		return false
	}
	if s.indexOf(msg.ID) >= 0 {
		return false
	}

	// Equal timestamps keep arrival order among themselves.
	pos := sort.Search(len(s.msgs), func(i int) bool {
		return s.msgs[i].CreatedAt.After(msg.CreatedAt)
	})
	s.msgs = append(s.msgs, model.Message{})
	copy(s.msgs[pos+1:], s.msgs[pos:])
	s.msgs[pos] = msg
	return true
}

// ApplyAuthoritative replaces the stored entry for msg.ID with the
// server's record. Unlike Insert, later payloads always win: edits and
// reaction updates replace rather than append. No-op when the message
// is not loaded.
func (s *MessageStore) ApplyAuthoritative(msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(msg.ID)
	if i < 0 {
		return false
	}
	s.msgs[i] = msg
	return true
}

// ApplyDelete tombstones a message in place. The entry keeps its
// sequence position so day separators after it are unaffected.
func (s *MessageStore) ApplyDelete(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(messageID)
	if i < 0 {
		return false
	}
	s.msgs[i].Deleted = true
	s.msgs[i].Body = ""
	s.msgs[i].Reactions = nil
	return true
}

// SetReactions replaces the reaction groups on a message with the
// authoritative list.
func (s *MessageStore) SetReactions(messageID string, groups []model.ReactionGroup) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(messageID)
	if i < 0 {
		return false
	}
	s.msgs[i].Reactions = groups
	return true
}

// BumpReplyCount increments the denormalized reply counter on a parent
// message. No-op (false) when the parent is not in the loaded timeline.
func (s *MessageStore) BumpReplyCount(parentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(parentID)
	if i < 0 {
		return false
	}
	s.msgs[i].ReplyCount++
	return true
}

// Get returns a loaded message by id.
func (s *MessageStore) Get(messageID string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(messageID)
	if i < 0 {
		return model.Message{}, false
	}
	return s.msgs[i], true
}

// Messages returns a copy of the ordered timeline.
func (s *MessageStore) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Len returns the number of loaded messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// indexOf is a linear scan; timelines are a single page.
// Callers hold the lock.
func (s *MessageStore) indexOf(messageID string) int {
	for i := range s.msgs {
		if s.msgs[i].ID == messageID {
			return i
		}
	}
	return -1
}
