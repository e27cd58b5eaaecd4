package state

import (
	"testing"
	"time"

	"github.com/ggaspari/clack/internal/model"
)

func TestInboxTotals(t *testing.T) {
	in := NewInbox()
	in.Replace([]model.InboxItem{
		{ChannelID: "c1", UnreadCount: 3},
		{ChannelID: "c2", UnreadCount: 2},
		{ChannelID: "c3", UnreadCount: 0},
	})

	if got := in.UnreadCount("c1"); got != 3 {
		t.Errorf("UnreadCount(c1) = %d, want 3", got)
	}
	if got := in.UnreadCount("unknown"); got != 0 {
		t.Errorf("UnreadCount(unknown) = %d, want 0", got)
	}
	if got := in.TotalUnread(); got != 5 {
		t.Errorf("TotalUnread() = %d, want 5", got)
	}
}

func TestInboxClearUnread(t *testing.T) {
	in := NewInbox()
	in.Replace([]model.InboxItem{{ChannelID: "c1", UnreadCount: 7}})

	in.ClearUnread("c1")
	if got := in.UnreadCount("c1"); got != 0 {
		t.Errorf("UnreadCount = %d, want 0 after mark-read", got)
	}
}

func TestInboxPendingMarkReadSurvivesReplace(t *testing.T) {
	in := NewInbox()
	in.Replace([]model.InboxItem{{ChannelID: "c1", UnreadCount: 4}})
	in.MarkReadFailed("c1")

	// A refresh cycle lands before the retry.
	in.Replace([]model.InboxItem{{ChannelID: "c1", UnreadCount: 4}})

	pending := in.PendingMarkRead()
	if len(pending) != 1 || pending[0] != "c1" {
		t.Errorf("PendingMarkRead = %v, want [c1]", pending)
	}

	// Retry succeeds.
	in.ClearUnread("c1")
	if len(in.PendingMarkRead()) != 0 {
		t.Error("pending should clear after successful mark-read")
	}
}

func TestInboxItemsOrderedByActivity(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	in := NewInbox()
	in.Replace([]model.InboxItem{
		{ChannelID: "old", LastActivityAt: now.Add(-time.Hour)},
		{ChannelID: "new", LastActivityAt: now},
	})

	items := in.Items()
	if items[0].ChannelID != "new" || items[1].ChannelID != "old" {
		t.Errorf("items = %v, want newest first", items)
	}
}

func TestInboxEvict(t *testing.T) {
	in := NewInbox()
	in.Replace([]model.InboxItem{{ChannelID: "c1", UnreadCount: 2}})
	in.MarkReadFailed("c1")

	in.Evict("c1")
	if in.TotalUnread() != 0 || len(in.PendingMarkRead()) != 0 {
		t.Error("evicted channel should leave no trace")
	}
}
