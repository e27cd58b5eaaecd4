// Package sync keeps the in-memory stores consistent across the two
// delivery paths: push frames from the realtime connection and the
// periodic poll. Both paths funnel into the same idempotent store
// operations, so whichever transport delivers a record first wins and
// the loser is a no-op.
package sync

import (
	"context"
	stdsync "sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ggaspari/clack/internal/api"
	"github.com/ggaspari/clack/internal/bus"
	"github.com/ggaspari/clack/internal/cache"
	"github.com/ggaspari/clack/internal/model"
	"github.com/ggaspari/clack/internal/state"
)

// Options bounds the reconciler's polling behavior.
type Options struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
	PageSize       int
}

// Reconciler ingests push events from the bus and runs the fallback
// poll. A freshly delivered push event arms a one-shot skip of the
// next poll tick, since the poll would only re-fetch what push just
// delivered.
type Reconciler struct {
	api    *api.Client
	stores *state.Stores
	cache  *cache.DB
	bus    *bus.Bus
	clock  Clock
	logger *zap.Logger
	opts   Options

	skipNext atomic.Bool
	inFlight atomic.Bool

	cancel context.CancelFunc
	unsub  func()
	wg     stdsync.WaitGroup
}

// New creates a reconciler. db may be nil to run without persistence.
func New(client *api.Client, stores *state.Stores, db *cache.DB, b *bus.Bus, clock Clock, opts Options, logger *zap.Logger) *Reconciler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	return &Reconciler{
		api:    client,
		stores: stores,
		cache:  db,
		bus:    b,
		clock:  clock,
		logger: logger.Named("sync"),
		opts:   opts,
	}
}

// Start launches the push ingest loop and the poll scheduler.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	events, unsub := r.bus.Subscribe("push.", 64)
	r.unsub = unsub

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.eventLoop(ctx, events)
	}()
	go func() {
		defer r.wg.Done()
		r.pollLoop(ctx)
	}()
}

// Stop cancels both loops and waits for in-flight work to drain.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.unsub != nil {
		r.unsub()
	}
	r.wg.Wait()
}

func (r *Reconciler) eventLoop(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			switch p := evt.Payload.(type) {
			case model.MessageEvent:
				r.handleMessage(ctx, p)
			case model.ReactionEvent:
				r.handleReaction(p)
			}
		}
	}
}

// handleMessage applies a pushed message. The store insert is keyed
// by message id, so a record that already arrived through a poll or a
// confirmed send changes nothing.
func (r *Reconciler) handleMessage(ctx context.Context, evt model.MessageEvent) {
	inserted := r.stores.ApplyIncoming(evt.Message)
	if r.cache != nil {
		if err := r.cache.UpsertMessage(evt.Message); err != nil {
			r.logger.Warn("cache write failed", zap.String("message", evt.Message.ID), zap.Error(err))
		}
	}
	r.skipNext.Store(true)
	r.refreshInbox(ctx)
	if inserted {
		r.bus.Publish(bus.Event{Kind: "store.message_received", Timestamp: r.clock.Now(), Payload: evt.Message.ID})
	}
}

// handleReaction replaces a message's reaction groups with the pushed
// authoritative list.
func (r *Reconciler) handleReaction(evt model.ReactionEvent) {
	r.stores.SetReactions(evt.MessageID, evt.Reactions)
	if r.cache != nil {
		if m, ok := r.stores.Messages.Get(evt.MessageID); ok {
			if err := r.cache.UpsertMessage(m); err != nil {
				r.logger.Warn("cache write failed", zap.String("message", evt.MessageID), zap.Error(err))
			}
		}
	}
	r.skipNext.Store(true)
	r.bus.Publish(bus.Event{Kind: "store.reactions_updated", Timestamp: r.clock.Now(), Payload: evt.MessageID})
}

func (r *Reconciler) pollLoop(ctx context.Context) {
	ticker := r.clock.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.tick(ctx)
		}
	}
}

// tick runs one scheduled poll. A tick right after a push delivery is
// skipped once; a tick while the previous poll is still in flight is
// dropped rather than queued.
func (r *Reconciler) tick(ctx context.Context) {
	if r.skipNext.CompareAndSwap(true, false) {
		r.logger.Debug("poll skipped after push delivery")
		r.bus.Publish(bus.Event{Kind: "sync.poll_skipped", Timestamp: r.clock.Now()})
		return
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		r.logger.Debug("previous poll still in flight")
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.inFlight.Store(false)
		r.poll(ctx)
		r.bus.Publish(bus.Event{Kind: "sync.poll_completed", Timestamp: r.clock.Now()})
	}()
}

// poll fetches the active channel's newest page and the inbox
// snapshot. A page for a channel the user has since left is discarded
// by the store.
func (r *Reconciler) poll(ctx context.Context) {
	if channelID := r.stores.Messages.ActiveChannel(); channelID != "" {
		tctx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
		page, err := r.api.Messages(tctx, channelID, r.opts.PageSize)
		cancel()
		switch {
		case err != nil:
			r.logger.Warn("timeline poll failed", zap.String("channel", channelID), zap.Error(err))
		case r.stores.Messages.Replace(channelID, page):
			if r.cache != nil {
				if err := r.cache.ReplaceTimeline(channelID, page); err != nil {
					r.logger.Warn("cache timeline write failed", zap.String("channel", channelID), zap.Error(err))
				}
			}
		}
	}
	r.refreshInbox(ctx)
}

// refreshInbox retries failed mark-reads first so the snapshot that
// follows reflects the cleared counters.
func (r *Reconciler) refreshInbox(ctx context.Context) {
	tctx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()

	for _, channelID := range r.stores.Inbox.PendingMarkRead() {
		if err := r.api.MarkRead(tctx, channelID); err != nil {
			r.logger.Debug("mark-read retry failed", zap.String("channel", channelID), zap.Error(err))
			continue
		}
		r.stores.Inbox.ClearUnread(channelID)
	}

	items, err := r.api.Inbox(tctx)
	if err != nil {
		r.logger.Warn("inbox poll failed", zap.Error(err))
		return
	}
	r.stores.Inbox.Replace(items)
	if r.cache != nil {
		if err := r.cache.SaveInbox(items); err != nil {
			r.logger.Warn("cache inbox write failed", zap.Error(err))
		}
	}
}
