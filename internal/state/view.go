package state

import (
	"time"

	"github.com/ggaspari/clack/internal/model"
)

// groupWindow is how close two consecutive messages from the same
// sender must be to collapse into one visual group.
const groupWindow = 5 * time.Minute

// TimelineRow is a message plus its derived presentation properties.
// These are computed from the ordered sequence, never stored.
type TimelineRow struct {
	Message model.Message
	// GroupedWithPrev means the row continues the previous sender's
	// run (no avatar repeat).
	GroupedWithPrev bool
	// DayBreak means a date separator precedes this row.
	DayBreak bool
}

// BuildTimeline derives grouping and day-separator flags from an
// ordered message sequence.
func BuildTimeline(msgs []model.Message) []TimelineRow {
	rows := make([]TimelineRow, len(msgs))
	for i, m := range msgs {
		row := TimelineRow{Message: m}
		if i == 0 {
			row.DayBreak = true
		} else {
			prev := msgs[i-1]
			row.DayBreak = !sameDay(prev.CreatedAt, m.CreatedAt)
			row.GroupedWithPrev = !row.DayBreak &&
				prev.Sender.ID == m.Sender.ID &&
				m.CreatedAt.Sub(prev.CreatedAt) < groupWindow
		}
		rows[i] = row
	}
	return rows
}

// Timeline returns the derived rows for the current snapshot.
func (s *MessageStore) Timeline() []TimelineRow {
	return BuildTimeline(s.Messages())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
