package state

import (
	"testing"
	"time"

	"github.com/ggaspari/clack/internal/model"
)

func senderMsg(id, sender string, at time.Time) model.Message {
	return model.Message{
		ID:        id,
		ChannelID: "c1",
		Sender:    model.Sender{ID: sender},
		Type:      model.TypeText,
		CreatedAt: at,
	}
}

func TestTimelineGroupsSameSenderWithinWindow(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rows := BuildTimeline([]model.Message{
		senderMsg("m1", "u1", base),
		senderMsg("m2", "u1", base.Add(time.Minute)),
		senderMsg("m3", "u1", base.Add(10*time.Minute)), // window expired
		senderMsg("m4", "u2", base.Add(11*time.Minute)), // sender changed
	})

	if rows[0].GroupedWithPrev {
		t.Error("first row cannot be grouped")
	}
	if !rows[1].GroupedWithPrev {
		t.Error("m2 should group with m1 (same sender, 1m apart)")
	}
	if rows[2].GroupedWithPrev {
		t.Error("m3 should not group (outside 5m window)")
	}
	if rows[3].GroupedWithPrev {
		t.Error("m4 should not group (different sender)")
	}
}

func TestTimelineDayBreaks(t *testing.T) {
	evening := time.Date(2026, 8, 29, 23, 58, 0, 0, time.UTC)
	rows := BuildTimeline([]model.Message{
		senderMsg("m1", "u1", evening),
		senderMsg("m2", "u1", evening.Add(time.Minute)),   // same day
		senderMsg("m3", "u1", evening.Add(3*time.Minute)), // crossed midnight
	})

	if !rows[0].DayBreak {
		t.Error("first row always starts a day")
	}
	if rows[1].DayBreak {
		t.Error("m2 is the same calendar day")
	}
	if !rows[2].DayBreak {
		t.Error("m3 crossed midnight, needs a separator")
	}
	// A day break also breaks the sender group even within the window.
	if rows[2].GroupedWithPrev {
		t.Error("m3 must not group across a day break")
	}
}

func TestTimelineEmpty(t *testing.T) {
	if rows := BuildTimeline(nil); len(rows) != 0 {
		t.Errorf("rows = %v, want empty", rows)
	}
}
