package embed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bitfsorg/presto-go/internal/log"
)

const (
	// MaxMessageSize is the largest inbound message accepted.
	MaxMessageSize = 1 << 20

	writeWait = 10 * time.Second
)

// WSChannel is a Channel over a websocket connection. Each message is one
// JSON text frame of the form {"event": ..., "payload": ...}.
type WSChannel struct {
	conn   *websocket.Conn
	origin string
	dispatcher

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a websocket endpoint, announcing origin. Inbound messages
// carry the endpoint's own origin.
func Dial(ctx context.Context, endpoint, origin string) (*WSChannel, error) {
	remote, err := wsOrigin(endpoint)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("embed: dial %s: %w", endpoint, err)
	}
	return newWSChannel(conn, remote), nil
}

// Accept upgrades an HTTP request to a websocket channel. When allowed is
// non-empty, the request's Origin header must be one of them. Inbound
// messages carry the request's origin.
func Accept(w http.ResponseWriter, r *http.Request, allowed ...string) (*WSChannel, error) {
	origin := r.Header.Get("Origin")
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(origin, allowed)
		},
	}
	if !originAllowed(origin, allowed) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return nil, fmt.Errorf("%w: %q", ErrOriginRejected, origin)
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("embed: upgrade: %w", err)
	}
	return newWSChannel(conn, origin), nil
}

func newWSChannel(conn *websocket.Conn, origin string) *WSChannel {
	conn.SetReadLimit(MaxMessageSize)
	c := &WSChannel{
		conn:   conn,
		origin: origin,
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *WSChannel) readLoop() {
	defer c.shutdown()
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Embed.Debug().Msg("websocket closed by peer")
			} else {
				select {
				case <-c.done:
				default:
					log.Embed.Debug().Err(err).Msg("websocket read failed")
				}
			}
			return
		}
		msg.Origin = c.origin
		c.dispatch(msg)
	}
}

// Send writes one message frame.
func (c *WSChannel) Send(event string, payload any) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	msg, err := NewMessage(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("%w: %w", ErrChannelClosed, err)
	}
	return nil
}

// OnMessage sets the inbound handler. Handlers run on the read goroutine.
func (c *WSChannel) OnMessage(fn func(Message)) {
	c.setHandler(fn)
}

// Done is closed once the connection has shut down.
func (c *WSChannel) Done() <-chan struct{} {
	return c.done
}

// Close sends a normal close frame and closes the connection.
func (c *WSChannel) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	c.writeMu.Unlock()
	c.shutdown()
	return nil
}

func (c *WSChannel) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == origin {
			return true
		}
	}
	return false
}

// wsOrigin maps a ws:// or wss:// endpoint to its http(s) origin.
func wsOrigin(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("embed: endpoint %q: %w", endpoint, err)
	}
	scheme := u.Scheme
	switch scheme {
	case "ws":
		scheme = "http"
	case "wss":
		scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("embed: endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
	return scheme + "://" + u.Host, nil
}
