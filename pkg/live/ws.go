package live

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// client is one connected WebSocket subscriber.
type client struct {
	conn *websocket.Conn

	// send buffers outbound frames so a slow propagation watcher never
	// blocks on the network. A full buffer drops the client.
	send chan []byte

	done chan struct{}
}

// handleLive upgrades the connection and streams cell changes.
// On connect the client receives one frame per registered cell with its
// current value, then a frame per change.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}

	if s.config.Collector != nil {
		s.config.Collector.ClientConnected()
		defer s.config.Collector.ClientDisconnected()
	}

	// Initial snapshot, then live changes
	snap, err := s.store.Snapshot()
	if err != nil {
		s.logger.Warn("partial snapshot for new client", "error", err)
	}
	for _, name := range s.store.Names() {
		if value, ok := snap[name]; ok {
			c.enqueue(changeFrame{Name: name, Value: value})
		}
	}

	cancel := s.store.WatchAll(func(name string, value any) {
		c.enqueue(changeFrame{Name: name, Value: value})
	})
	defer cancel()

	go c.writePump(s.config.PingInterval, s.config.WriteTimeout)

	s.logger.Info("live client connected", "remote", conn.RemoteAddr())
	c.readPump()
	close(c.done)
	s.logger.Info("live client disconnected", "remote", conn.RemoteAddr())
}

// enqueue marshals and buffers a frame, dropping the client when the
// buffer is full.
func (c *client) enqueue(frame changeFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}

	select {
	case c.send <- payload:
	case <-c.done:
	default:
		// Slow consumer: close and let readPump observe the error
		c.conn.Close()
	}
}

// writePump writes buffered frames and keepalive pings.
func (c *client) writePump(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.conn.Close()
			return
		}
	}
}

// readPump discards inbound messages and returns when the peer closes.
// The stream is one-way; mutations go through POST /cells/{name}.
func (c *client) readPump() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
