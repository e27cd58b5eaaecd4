package state

import (
	"sort"
	"sync"

	"github.com/ggaspari/clack/internal/model"
)

// ThreadView is the secondary ordered list of replies to one parent
// message. At most one thread is open; opening another replaces it.
type ThreadView struct {
	mu      sync.RWMutex
	parent  *model.Message
	replies []model.Message
}

// NewThreadView creates a closed thread view.
func NewThreadView() *ThreadView {
	return &ThreadView{}
}

// Open replaces the view with a fetched thread. Replies are sorted
// ascending by creation time and deduplicated by id.
func (t *ThreadView) Open(thread model.Thread) {
	sorted := make([]model.Message, 0, len(thread.Replies))
	seen := make(map[string]struct{}, len(thread.Replies))
	for _, r := range thread.Replies {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		sorted = append(sorted, r)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	parent := thread.Parent
	t.mu.Lock()
	t.parent = &parent
	t.replies = sorted
	t.mu.Unlock()
}

// Close clears the view.
func (t *ThreadView) Close() {
	t.mu.Lock()
	t.parent = nil
	t.replies = nil
	t.mu.Unlock()
}

// IsOpen reports whether a thread is currently open.
func (t *ThreadView) IsOpen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.parent != nil
}

// ParentID returns the open thread's parent id, or "".
func (t *ThreadView) ParentID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.parent == nil {
		return ""
	}
	return t.parent.ID
}

// Parent returns the parent message.
func (t *ThreadView) Parent() (model.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.parent == nil {
		return model.Message{}, false
	}
	return *t.parent, true
}

// Replies returns a copy of the ordered reply sequence.
func (t *ThreadView) Replies() []model.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.Message, len(t.replies))
	copy(out, t.replies)
	return out
}

// Len returns the number of loaded replies.
func (t *ThreadView) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.replies)
}

// Insert adds a delivered reply in sorted position. Returns false when
// no thread is open, the message is not a reply to the open parent, or
// the id is already present.
func (t *ThreadView) Insert(reply model.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.parent == nil || reply.ReplyTo != t.parent.ID {
		return false
	}
	for i := range t.replies {
		if t.replies[i].ID == reply.ID {
			return false
		}
	}
	pos := sort.Search(len(t.replies), func(i int) bool {
		return t.replies[i].CreatedAt.After(reply.CreatedAt)
	})
	t.replies = append(t.replies, model.Message{})
	copy(t.replies[pos+1:], t.replies[pos:])
	t.replies[pos] = reply
	t.parent.ReplyCount = len(t.replies)
	return true
}

// ApplyAuthoritative replaces a reply (or the parent) with the
// server's record.
func (t *ThreadView) ApplyAuthoritative(msg model.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.parent != nil && t.parent.ID == msg.ID {
		*t.parent = msg
		return true
	}
	for i := range t.replies {
		if t.replies[i].ID == msg.ID {
			t.replies[i] = msg
			return true
		}
	}
	return false
}

// ApplyDelete tombstones a reply or the parent in place.
func (t *ThreadView) ApplyDelete(messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.parent != nil && t.parent.ID == messageID {
		t.parent.Deleted = true
		t.parent.Body = ""
		t.parent.Reactions = nil
		return true
	}
	for i := range t.replies {
		if t.replies[i].ID == messageID {
			t.replies[i].Deleted = true
			t.replies[i].Body = ""
			t.replies[i].Reactions = nil
			return true
		}
	}
	return false
}

// SetReactions replaces the reaction groups on a reply or the parent.
func (t *ThreadView) SetReactions(messageID string, groups []model.ReactionGroup) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.parent != nil && t.parent.ID == messageID {
		t.parent.Reactions = groups
		return true
	}
	for i := range t.replies {
		if t.replies[i].ID == messageID {
			t.replies[i].Reactions = groups
			return true
		}
	}
	return false
}
