package status

import (
	"testing"

	"github.com/ggaspari/clack/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Disconnected {
		t.Errorf("initial state = %s, want DISCONNECTED", m.Current())
	}
}

func TestConnectLifecycle(t *testing.T) {
	m := NewMachine(nil)
	steps := []State{Connecting, Live, Disconnected}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Disconnected {
		t.Errorf("final state = %s, want DISCONNECTED", m.Current())
	}
}

func TestDialFailureReturnsToDisconnected(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(Disconnected); err != nil {
		t.Fatalf("CONNECTING -> DISCONNECTED: %v", err)
	}
	// And the retry can start over.
	if err := m.Transition(Connecting); err != nil {
		t.Fatalf("retry CONNECTING: %v", err)
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Live); err == nil {
		t.Error("Transition(DISCONNECTED -> LIVE) should fail")
	}
	if m.Current() != Disconnected {
		t.Errorf("state = %s, want DISCONNECTED (unchanged)", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("transport.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != "transport.state_changed" {
		t.Errorf("event kind = %q, want transport.state_changed", evt.Kind)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Disconnected || change.To != Connecting {
		t.Errorf("change = %v -> %v, want DISCONNECTED -> CONNECTING", change.From, change.To)
	}
}
