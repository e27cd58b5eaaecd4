package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ggaspari/clack/internal/api"
	"github.com/ggaspari/clack/internal/bus"
	"github.com/ggaspari/clack/internal/model"
	"github.com/ggaspari/clack/internal/session"
	"github.com/ggaspari/clack/internal/state"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, h http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	sess := &session.Session{Name: "test", UserID: "u1", Token: "tok"}
	client, err := api.New(srv.URL, sess, 2*time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return NewService(client, state.NewStores(), nil, bus.New(), 50, zap.NewNop())
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func msg(id, channelID, body string, at time.Time) model.Message {
	return model.Message{
		ID:        id,
		ChannelID: channelID,
		Sender:    model.Sender{ID: "u2", Name: "dana"},
		Body:      body,
		Type:      model.TypeText,
		CreatedAt: at,
	}
}

func TestOpenChannelLoadsPageAndClearsUnread(t *testing.T) {
	var markReads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		// server sends newest first; the store must end up ascending
		writeJSON(t, w, map[string]any{"messages": []model.Message{
			msg("m2", "c1", "second", base.Add(time.Minute)),
			msg("m1", "c1", "first", base),
		}})
	})
	mux.HandleFunc("POST /channels/c1/mark-read", func(w http.ResponseWriter, r *http.Request) {
		markReads.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	s := newService(t, mux)
	s.Stores().Inbox.Replace([]model.InboxItem{{ChannelID: "c1", UnreadCount: 4}})

	if err := s.OpenChannel(context.Background(), "c1"); err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	if got := s.Stores().Messages.ActiveChannel(); got != "c1" {
		t.Fatalf("active channel = %q, want c1", got)
	}
	msgs := s.Stores().Messages.Messages()
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("timeline = %+v, want m1 then m2", msgs)
	}
	if n := markReads.Load(); n != 1 {
		t.Fatalf("mark-read calls = %d, want 1", n)
	}
	if got := s.Stores().Inbox.UnreadCount("c1"); got != 0 {
		t.Fatalf("unread after open = %d, want 0", got)
	}
}

func TestOpenChannelMarkReadFailureEntersRetrySet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"messages": []model.Message{}})
	})
	mux.HandleFunc("POST /channels/c1/mark-read", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"unavailable"}`, http.StatusServiceUnavailable)
	})

	s := newService(t, mux)
	s.Stores().Inbox.Replace([]model.InboxItem{{ChannelID: "c1", UnreadCount: 2}})

	if err := s.OpenChannel(context.Background(), "c1"); err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	pending := s.Stores().Inbox.PendingMarkRead()
	if len(pending) != 1 || pending[0] != "c1" {
		t.Fatalf("pending mark-read = %v, want [c1]", pending)
	}
	if got := s.Stores().Inbox.UnreadCount("c1"); got != 2 {
		t.Fatalf("unread = %d, want 2 (not cleared locally)", got)
	}
}

func TestSendAppendsOnlyConfirmedRecord(t *testing.T) {
	confirmed := msg("m-srv", "c1", "hello", base)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"message": confirmed})
	})

	s := newService(t, mux)
	s.Stores().Messages.Open("c1")

	sent, err := s.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.ID != "m-srv" {
		t.Fatalf("sent id = %q, want server-assigned m-srv", sent.ID)
	}
	if got := s.Stores().Messages.Len(); got != 1 {
		t.Fatalf("timeline length = %d, want 1", got)
	}
}

func TestSendFailureLeavesNoTrace(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"internal"}`, http.StatusInternalServerError)
	})

	s := newService(t, mux)
	s.Stores().Messages.Open("c1")

	if _, err := s.Send(context.Background(), "hello"); err == nil {
		t.Fatal("Send should fail")
	}
	if got := s.Stores().Messages.Len(); got != 0 {
		t.Fatalf("timeline length after failed send = %d, want 0", got)
	}
}

func TestSendBlockedByPostingPolicy(t *testing.T) {
	var requests atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, `{"code":"forbidden"}`, http.StatusForbidden)
	})

	s := newService(t, h)
	s.Stores().Directory.Replace([]model.Channel{{
		ID:   "ann",
		Name: "announcements",
		Kind: model.KindAnnouncement,
		Role: model.RoleMember,
	}})
	s.Stores().Messages.Open("ann")

	_, err := s.Send(context.Background(), "hello")
	if !errors.Is(err, ErrPostingNotAllowed) {
		t.Fatalf("err = %v, want ErrPostingNotAllowed", err)
	}
	if n := requests.Load(); n != 0 {
		t.Fatalf("server saw %d requests, want 0 (local policy check)", n)
	}
	if got := s.Stores().Messages.Len(); got != 0 {
		t.Fatalf("timeline length = %d, want 0", got)
	}
}

func TestSendWithoutActiveChannel(t *testing.T) {
	s := newService(t, http.NewServeMux())
	if _, err := s.Send(context.Background(), "hi"); !errors.Is(err, ErrNoActiveChannel) {
		t.Fatalf("err = %v, want ErrNoActiveChannel", err)
	}
}

func TestSendThreadReplyUpdatesBothViews(t *testing.T) {
	parent := msg("m1", "c1", "root", base)
	reply := msg("r1", "c1", "a reply", base.Add(time.Minute))
	reply.ReplyTo = "m1"

	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels/c1/messages/m1/thread", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, model.Thread{Parent: parent})
	})
	mux.HandleFunc("POST /channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ReplyTo string `json:"reply_to_message_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReplyTo != "m1" {
			t.Errorf("reply_to = %q, want m1 (err %v)", req.ReplyTo, err)
		}
		writeJSON(t, w, map[string]any{"message": reply})
	})

	s := newService(t, mux)
	s.Stores().Messages.Open("c1")
	s.Stores().Messages.Replace("c1", []model.Message{parent})

	if err := s.OpenThread(context.Background(), "m1"); err != nil {
		t.Fatalf("OpenThread: %v", err)
	}
	if _, err := s.SendThreadReply(context.Background(), "a reply"); err != nil {
		t.Fatalf("SendThreadReply: %v", err)
	}

	if got := s.Stores().Thread.Len(); got != 1 {
		t.Fatalf("thread replies = %d, want 1", got)
	}
	inTimeline, ok := s.Stores().Messages.Get("r1")
	if !ok || inTimeline.ReplyTo != "m1" {
		t.Fatalf("reply missing from flat timeline: %+v ok=%v", inTimeline, ok)
	}
	p, _ := s.Stores().Messages.Get("m1")
	if p.ReplyCount != 1 {
		t.Fatalf("parent reply_count = %d, want 1", p.ReplyCount)
	}

	// the same record arriving again (e.g. over push) must not double count
	if s.Stores().ApplyIncoming(reply) {
		t.Fatal("duplicate reply reported as inserted")
	}
	p, _ = s.Stores().Messages.Get("m1")
	if p.ReplyCount != 1 {
		t.Fatalf("parent reply_count after duplicate = %d, want 1", p.ReplyCount)
	}
}

func TestSendThreadReplyWithoutOpenThread(t *testing.T) {
	s := newService(t, http.NewServeMux())
	s.Stores().Messages.Open("c1")
	if _, err := s.SendThreadReply(context.Background(), "hi"); !errors.Is(err, ErrNoOpenThread) {
		t.Fatalf("err = %v, want ErrNoOpenThread", err)
	}
}

func TestDeleteTombstonesInPlace(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /channels/c1/messages/m2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s := newService(t, mux)
	s.Stores().Messages.Open("c1")
	s.Stores().Messages.Replace("c1", []model.Message{
		msg("m1", "c1", "one", base),
		msg("m2", "c1", "two", base.Add(time.Minute)),
		msg("m3", "c1", "three", base.Add(2*time.Minute)),
	})

	if err := s.Delete(context.Background(), "m2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	msgs := s.Stores().Messages.Messages()
	if len(msgs) != 3 || msgs[1].ID != "m2" {
		t.Fatalf("tombstone moved: %+v", msgs)
	}
	if !msgs[1].Deleted || msgs[1].Body != "" {
		t.Fatalf("tombstone = %+v, want deleted with empty body", msgs[1])
	}
}

func TestToggleReactionAppliesServerGroups(t *testing.T) {
	groups := []model.ReactionGroup{{Emoji: "👍", Users: []string{"u1", "u2"}, Reacted: true}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /channels/c1/messages/m1/reactions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"reactions": groups})
	})

	s := newService(t, mux)
	s.Stores().Messages.Open("c1")
	s.Stores().Messages.Replace("c1", []model.Message{msg("m1", "c1", "hi", base)})

	got, err := s.ToggleReaction(context.Background(), "m1", "👍")
	if err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if len(got) != 1 || !got[0].Reacted {
		t.Fatalf("groups = %+v", got)
	}
	m, _ := s.Stores().Messages.Get("m1")
	if len(m.Reactions) != 1 || len(m.Reactions[0].Users) != 2 {
		t.Fatalf("stored reactions = %+v", m.Reactions)
	}
}

func TestDeleteChannelEvictsEverywhere(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /channels/c1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /channels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"channels": []model.Channel{
			{ID: "c2", Name: "kept", Kind: model.KindPublic, Role: model.RoleMember},
		}})
	})
	mux.HandleFunc("GET /inbox", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []model.InboxItem{}})
	})

	s := newService(t, mux)
	s.Stores().Directory.Replace([]model.Channel{
		{ID: "c1", Name: "doomed", Kind: model.KindPublic, Role: model.RoleAdmin},
		{ID: "c2", Name: "kept", Kind: model.KindPublic, Role: model.RoleMember},
	})
	s.Stores().Inbox.Replace([]model.InboxItem{{ChannelID: "c1", UnreadCount: 3}})
	s.Stores().Messages.Open("c1")
	s.Stores().Messages.Replace("c1", []model.Message{msg("m1", "c1", "bye", base)})

	if err := s.DeleteChannel(context.Background(), "c1"); err != nil {
		t.Fatalf("DeleteChannel: %v", err)
	}
	if _, ok := s.Stores().Directory.Get("c1"); ok {
		t.Fatal("channel still in directory")
	}
	if got := s.Stores().Inbox.UnreadCount("c1"); got != 0 {
		t.Fatalf("inbox unread = %d, want 0 after evict", got)
	}
	if got := s.Stores().Messages.ActiveChannel(); got != "" {
		t.Fatalf("active channel = %q, want closed", got)
	}
}

func TestDeleteChannelRequiresManageRole(t *testing.T) {
	var requests atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})

	s := newService(t, h)
	s.Stores().Directory.Replace([]model.Channel{
		{ID: "c1", Name: "general", Kind: model.KindPublic, Role: model.RoleMember},
	})

	if err := s.DeleteChannel(context.Background(), "c1"); !errors.Is(err, ErrManageNotAllowed) {
		t.Fatalf("err = %v, want ErrManageNotAllowed", err)
	}
	if n := requests.Load(); n != 0 {
		t.Fatalf("server saw %d requests, want 0", n)
	}
}

func TestSearchReplacesPreviousResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		writeJSON(t, w, map[string]any{"results": []model.Message{
			msg("hit-"+q, "c1", q, base),
		}})
	})

	s := newService(t, mux)
	if _, err := s.Search(context.Background(), model.SearchQuery{Query: "alpha"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := s.Search(context.Background(), model.SearchQuery{Query: "beta"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	query, results := s.SearchResults()
	if query.Query != "beta" {
		t.Fatalf("retained query = %q, want beta", query.Query)
	}
	if len(results) != 1 || results[0].ID != "hit-beta" {
		t.Fatalf("retained results = %+v, want only the beta hit", results)
	}

	s.ClearSearch()
	if _, results := s.SearchResults(); len(results) != 0 {
		t.Fatalf("results after clear = %+v", results)
	}
}

func TestRefreshDirectory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"channels": []model.Channel{
			{ID: "c1", Name: "general", Kind: model.KindPublic, Role: model.RoleMember},
			{ID: "c2", Name: "alerts", Kind: model.KindAnnouncement, Role: model.RoleMember},
		}})
	})
	mux.HandleFunc("GET /inbox", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []model.InboxItem{
			{ChannelID: "c1", UnreadCount: 7, LastActivityAt: base},
		}})
	})

	s := newService(t, mux)
	if err := s.RefreshDirectory(context.Background()); err != nil {
		t.Fatalf("RefreshDirectory: %v", err)
	}
	if got := s.Stores().Directory.Len(); got != 2 {
		t.Fatalf("directory size = %d, want 2", got)
	}
	if got := s.Stores().Inbox.TotalUnread(); got != 7 {
		t.Fatalf("total unread = %d, want 7", got)
	}
}
