package state

import "github.com/ggaspari/clack/internal/model"

// Stores bundles the per-session in-memory stores that user actions,
// push deliveries and poll snapshots all mutate.
type Stores struct {
	Directory *Directory
	Inbox     *Inbox
	Messages  *MessageStore
	Thread    *ThreadView
}

// NewStores creates an empty store bundle.
func NewStores() *Stores {
	return &Stores{
		Directory: NewDirectory(),
		Inbox:     NewInbox(),
		Messages:  NewMessageStore(),
		Thread:    NewThreadView(),
	}
}

// ApplyIncoming applies one authoritative new message to every loaded
// view: the flat timeline, the open thread, and the parent's reply
// counter. This is the single append path shared by confirmed sends
// and push deliveries, so the id check below is what makes delivery
// idempotent no matter which transport wins the race.
//
// The reply counter moves only when the timeline actually gained the
// message, so duplicate delivery can never overcount.
func (s *Stores) ApplyIncoming(msg model.Message) bool {
	inserted := s.Messages.Insert(msg)
	s.Thread.Insert(msg)
	if inserted && msg.ReplyTo != "" {
		s.Messages.BumpReplyCount(msg.ReplyTo)
	}
	return inserted
}

// ApplyAuthoritative pushes an edited record into both views.
func (s *Stores) ApplyAuthoritative(msg model.Message) {
	s.Messages.ApplyAuthoritative(msg)
	s.Thread.ApplyAuthoritative(msg)
}

// ApplyDelete tombstones a message in both views.
func (s *Stores) ApplyDelete(messageID string) {
	s.Messages.ApplyDelete(messageID)
	s.Thread.ApplyDelete(messageID)
}

// SetReactions replaces reaction groups in both views.
func (s *Stores) SetReactions(messageID string, groups []model.ReactionGroup) {
	s.Messages.SetReactions(messageID, groups)
	s.Thread.SetReactions(messageID, groups)
}
