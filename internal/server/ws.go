package server

import (
	"net/http"
	"sync"
	"time"

	"fishnet/internal/net"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer     = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

// Connection is one peer's websocket. Both lanes share it.
type Connection struct {
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
	playerIdx int
	admitted  bool // guarded by hub.mu

	closeOnce sync.Once
	done      chan struct{}
}

func NewConnection(conn *websocket.Conn, hub *Hub) *Connection {
	return &Connection{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  hub,
		done: make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump. A full buffer drops unreliable
// frames and disconnects the peer for reliable ones.
func (c *Connection) enqueue(lane net.Lane, frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- frame:
	default:
		if lane == net.Unreliable {
			return
		}
		c.hub.logger.Printf("[server] reliable send buffer full for player %d, disconnecting", c.playerIdx)
		c.Close()
	}
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Printf("[server] websocket error from player %d: %v", c.playerIdx, err)
			}
			return
		}

		lane, body, err := net.Unframe(message)
		if err != nil {
			c.hub.logger.Printf("[server] player %d: %v", c.playerIdx, err)
			continue
		}
		msg, err := net.Decode(c.hub.codec, body)
		if err != nil {
			c.hub.logger.Printf("[server] player %d: decode: %v", c.playerIdx, err)
			continue
		}
		c.hub.deliver(c, lane, msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket upgrades a request and joins the peer to the hub's match.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Printf("[server] websocket upgrade error: %v", err)
			return
		}

		c := NewConnection(conn, hub)
		if err := hub.register(c); err != nil {
			hub.logger.Printf("[server] rejecting %s: %v", r.RemoteAddr, err)
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			conn.Close()
			return
		}

		go c.writePump()
		go c.readPump()

		hub.logger.Printf("[server] client %s connected as player %d (%d/%d players)", r.RemoteAddr, c.playerIdx, hub.NumPlayers(), hub.maxPlayers)
	}
}
