package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ggaspari/clack/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var tc = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func cachedMsg(id, channel string, at time.Time) model.Message {
	return model.Message{
		ID:        id,
		ChannelID: channel,
		Sender:    model.Sender{ID: "u1", Name: "Ana"},
		Body:      "body-" + id,
		Type:      model.TypeText,
		CreatedAt: at,
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestUpsertMessageIdempotent(t *testing.T) {
	db := testDB(t)

	m := cachedMsg("m1", "c1", tc)
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	m.Body = "edited"
	m.Edited = true
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent)", len(msgs))
	}
	if msgs[0].Body != "edited" || !msgs[0].Edited {
		t.Errorf("message = %+v, want updated payload", msgs[0])
	}
}

func TestListMessagesAscending(t *testing.T) {
	db := testDB(t)

	for _, m := range []model.Message{
		cachedMsg("m2", "c1", tc.Add(time.Minute)),
		cachedMsg("m1", "c1", tc),
		cachedMsg("m3", "c1", tc.Add(2*time.Minute)),
	} {
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.ListMessages("c1", 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"m1", "m2", "m3"}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, msgs[i].ID, id)
		}
	}
}

func TestListMessagesKeepsNewestWhenLimited(t *testing.T) {
	db := testDB(t)
	for i := 0; i < 5; i++ {
		m := cachedMsg(string(rune('a'+i)), "c1", tc.Add(time.Duration(i)*time.Minute))
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.ListMessages("c1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].ID != "d" || msgs[1].ID != "e" {
		t.Errorf("msgs = %v, want newest two ascending", msgs)
	}
}

func TestReplaceTimelineBatch(t *testing.T) {
	db := testDB(t)

	batch := []model.Message{
		cachedMsg("m1", "c1", tc),
		cachedMsg("m2", "c1", tc.Add(time.Minute)),
	}
	if err := db.ReplaceTimeline("c1", batch); err != nil {
		t.Fatal(err)
	}
	// Re-applying the same snapshot is harmless.
	if err := db.ReplaceTimeline("c1", batch); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Errorf("got %d messages, want 2", len(msgs))
	}
}

func TestReactionsRoundTrip(t *testing.T) {
	db := testDB(t)

	m := cachedMsg("m1", "c1", tc)
	m.Reactions = []model.ReactionGroup{{Emoji: "👍", Users: []string{"u1", "u2"}, Reacted: true}}
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs[0].Reactions) != 1 || len(msgs[0].Reactions[0].Users) != 2 {
		t.Errorf("reactions = %+v", msgs[0].Reactions)
	}
}

func TestDirectoryRoundTripAndEvict(t *testing.T) {
	db := testDB(t)

	channels := []model.Channel{
		{ID: "c1", Name: "general", Kind: model.KindPublic, PostingPolicy: model.PostingOpen, Role: model.RoleMember, CreatedAt: tc},
		{ID: "c2", Name: "announce", Kind: model.KindAnnouncement, PostingPolicy: model.PostingAdminsOnly, Role: model.RoleAdmin, CreatedAt: tc},
	}
	if err := db.ReplaceDirectory(channels); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveInbox([]model.InboxItem{{ChannelID: "c1", UnreadCount: 4, LastActivityAt: tc}}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessage(cachedMsg("m1", "c2", tc)); err != nil {
		t.Fatal(err)
	}

	got, inbox, err := db.ListChannels()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d channels, want 2", len(got))
	}
	var unread int
	for _, it := range inbox {
		unread += it.UnreadCount
	}
	if unread != 4 {
		t.Errorf("unread = %d, want 4", unread)
	}

	// Channel deletion evicts the channel and its messages.
	if err := db.EvictChannel("c2"); err != nil {
		t.Fatal(err)
	}
	msgs, err := db.ListMessages("c2", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages after evict, want 0", len(msgs))
	}
}
