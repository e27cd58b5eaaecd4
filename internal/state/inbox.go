package state

import (
	"sort"
	"sync"

	"github.com/ggaspari/clack/internal/model"
)

// Inbox tracks per-channel unread counters independent of which
// channel is open. Counts come from backend snapshots (so they
// survive cross-device use), never from client-side counting, and
// reset only through an explicit mark-read.
type Inbox struct {
	mu    sync.RWMutex
	items map[string]model.InboxItem
	// pendingRead holds channels whose mark-read call failed; they are
	// retried on the next refresh cycle.
	pendingRead map[string]struct{}
}

// NewInbox creates an empty inbox tracker.
func NewInbox() *Inbox {
	return &Inbox{
		items:       make(map[string]model.InboxItem),
		pendingRead: make(map[string]struct{}),
	}
}

// Replace swaps in a backend snapshot. Pending mark-read retries
// survive the replace.
func (in *Inbox) Replace(items []model.InboxItem) {
	next := make(map[string]model.InboxItem, len(items))
	for _, it := range items {
		next[it.ChannelID] = it
	}
	in.mu.Lock()
	in.items = next
	in.mu.Unlock()
}

// UnreadCount returns the unread counter for one channel.
func (in *Inbox) UnreadCount(channelID string) int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.items[channelID].UnreadCount
}

// TotalUnread returns the sum across all channels.
func (in *Inbox) TotalUnread() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	total := 0
	for _, it := range in.items {
		total += it.UnreadCount
	}
	return total
}

// Items returns the inbox ordered by last activity, newest first.
func (in *Inbox) Items() []model.InboxItem {
	in.mu.RLock()
	out := make([]model.InboxItem, 0, len(in.items))
	for _, it := range in.items {
		out = append(out, it)
	}
	in.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out
}

// ClearUnread zeroes the local counter after a confirmed mark-read.
func (in *Inbox) ClearUnread(channelID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.pendingRead, channelID)
	it, ok := in.items[channelID]
	if !ok {
		return
	}
	it.UnreadCount = 0
	in.items[channelID] = it
}

// MarkReadFailed records that a mark-read call for channelID failed
// and should be retried on the next refresh cycle.
func (in *Inbox) MarkReadFailed(channelID string) {
	in.mu.Lock()
	in.pendingRead[channelID] = struct{}{}
	in.mu.Unlock()
}

// PendingMarkRead returns the channels with an unresolved mark-read.
func (in *Inbox) PendingMarkRead() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]string, 0, len(in.pendingRead))
	for id := range in.pendingRead {
		out = append(out, id)
	}
	return out
}

// Evict drops a channel from the inbox.
func (in *Inbox) Evict(channelID string) {
	in.mu.Lock()
	delete(in.items, channelID)
	delete(in.pendingRead, channelID)
	in.mu.Unlock()
}
