package state

import (
	"sort"
	"sync"

	"github.com/ggaspari/clack/internal/model"
)

// Directory holds the channels visible to the session user along with
// the viewer's role in each. It is refreshed wholesale: channel
// creation and deletion are rare enough that incremental patching is
// not worth the edge cases.
type Directory struct {
	mu       sync.RWMutex
	channels map[string]model.Channel
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{channels: make(map[string]model.Channel)}
}

// Replace swaps in a full directory snapshot.
func (d *Directory) Replace(channels []model.Channel) {
	next := make(map[string]model.Channel, len(channels))
	for _, c := range channels {
		next[c.ID] = c
	}
	d.mu.Lock()
	d.channels = next
	d.mu.Unlock()
}

// Get returns a channel by id.
func (d *Directory) Get(channelID string) (model.Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.channels[channelID]
	return c, ok
}

// Channels returns all channels sorted by name.
func (d *Directory) Channels() []model.Channel {
	d.mu.RLock()
	out := make([]model.Channel, 0, len(d.channels))
	for _, c := range d.channels {
		out = append(out, c)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Evict drops a channel from the local view. Used after a confirmed
// deletion; the server cascades messages and memberships itself.
func (d *Directory) Evict(channelID string) {
	d.mu.Lock()
	delete(d.channels, channelID)
	d.mu.Unlock()
}

// Len returns the number of known channels.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.channels)
}
