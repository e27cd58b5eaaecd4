package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ggaspari/clack/internal/bus"
	"github.com/ggaspari/clack/internal/model"
	"github.com/ggaspari/clack/internal/session"
	"github.com/ggaspari/clack/internal/status"
)

// Conn owns the single push connection for a session. It is
// receive-only: the client never writes application frames. Decoded
// envelopes are published on the bus under "push."; the reconciler
// subscribes independently.
//
// Connection health is inferred only from read errors and closes;
// there is no per-message timeout on the socket.
type Conn struct {
	url     string
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
	backoff Backoff
	cancel  context.CancelFunc
}

// New builds a push connection for the backend at serverURL. The
// session's bearer token travels as a connection parameter.
func New(serverURL string, sess *session.Session, b *bus.Bus, machine *status.Machine, min, max time.Duration, logger *zap.Logger) (*Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("token", sess.Token)
	u.RawQuery = q.Encode()

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{
		url:     u.String(),
		bus:     b,
		machine: machine,
		logger:  logger,
		backoff: Backoff{Min: min, Max: max},
	}, nil
}

// Start runs the connect/read/reconnect loop until the context is
// cancelled or Stop is called.
func (c *Conn) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

// Stop tears down the connection loop.
func (c *Conn) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Conn) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		_ = c.machine.Transition(status.Connecting)
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			_ = c.machine.Transition(status.Disconnected)
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Warn("push dial failed", zap.Error(err))
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		_ = c.machine.Transition(status.Live)
		c.backoff.Reset()
		c.logger.Info("push connected")
		c.bus.Publish(bus.Event{Kind: "transport.connected", Timestamp: time.Now()})

		c.readLoop(ctx, ws)
		_ = ws.Close()

		_ = c.machine.Transition(status.Disconnected)
		c.bus.Publish(bus.Event{Kind: "transport.disconnected", Timestamp: time.Now()})
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("push disconnected, will reconnect")
		if !c.sleep(ctx) {
			return
		}
	}
}

// readLoop consumes frames until the socket errors or the context is
// cancelled. Malformed envelopes are dropped, never fatal.
func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		evt, err := model.DecodePush(data)
		if err != nil {
			c.logger.Debug("dropping push frame", zap.Error(err))
			continue
		}
		switch evt.(type) {
		case model.MessageEvent:
			c.bus.Publish(bus.Event{Kind: "push.message", Timestamp: time.Now(), Payload: evt})
		case model.ReactionEvent:
			c.bus.Publish(bus.Event{Kind: "push.reaction", Timestamp: time.Now(), Payload: evt})
		}
	}
}

func (c *Conn) sleep(ctx context.Context) bool {
	d := c.backoff.Next()
	c.logger.Info("reconnect backoff", zap.Duration("delay", d))
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
