package bus

import "time"

// Event is an in-process notification. Kind is a dot-separated name
// whose leading segment forms the namespace subscribers filter on,
// e.g. "push.message", "store.message_inserted", "transport.connected".
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
