package web

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cjeanneret/BlindGo/internal/debug"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 64
)

// wsClient is one websocket peer. Statuses go out through send; inbound
// text frames are queued as commands.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan string

	closeOnce sync.Once
	done      chan struct{}
}

// Publish implements status.Publisher. A slow peer drops statuses.
func (c *wsClient) Publish(s string) {
	select {
	case <-c.done:
	case c.send <- s:
	default:
		debug.Verbose("ws %s: send buffer full, dropping %q", c.id, s)
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// HandleWS handles GET /ws. The retained status is sent first, then every
// status change. Each text message received is a command.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	if h.Status == nil || h.Submit == nil {
		http.Error(w, "websocket not configured", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Error(err)
		return
	}

	c := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan string, wsSendBuffer),
		done: make(chan struct{}),
	}
	debug.Live("ws %s connected from %s", c.id, r.RemoteAddr)

	if last, ok := h.Status.Last(); ok {
		c.send <- last
	}
	unsub := h.Status.Subscribe(c)

	go c.writePump()
	c.readPump(h.Submit)

	unsub()
	c.close()
	debug.Live("ws %s disconnected", c.id)
}

func (c *wsClient) readPump(submit SubmitFunc) {
	c.conn.SetReadLimit(maxCommandBytes)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				debug.Verbose("ws %s: read: %v", c.id, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		cmd := strings.TrimSpace(string(data))
		if cmd == "" {
			continue
		}
		if !submit(cmd) {
			c.Publish("busy")
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case s := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(s)); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
