package client

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fishnet/internal/net"

	"github.com/gorilla/websocket"
)

var (
	ErrClosed         = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

const (
	sendBuffer       = 256
	unreliableBuffer = 64
	writeWait        = 10 * time.Second
	pingPeriod       = 25 * time.Second
)

// NetClient is the websocket transport to the server. Both lanes share one
// socket. The reliable inbox is unbounded so nothing is lost; the unreliable
// inbox drops new snapshots when full, which is safe because a fresher one
// follows every step.
type NetClient struct {
	conn   *websocket.Conn
	codec  net.Codec
	logger *log.Logger

	send       chan []byte
	unreliable chan any
	welcome    chan net.ClientMatchInfo

	mu       sync.Mutex
	reliable []any

	closeOnce sync.Once
	done      chan struct{}
}

func NewNetClient(addr string, codec net.Codec, logger *log.Logger) (*NetClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	nc := newNetClient(conn, codec, logger)
	go nc.readPump()
	go nc.writePump()

	return nc, nil
}

func newNetClient(conn *websocket.Conn, codec net.Codec, logger *log.Logger) *NetClient {
	if logger == nil {
		logger = log.Default()
	}
	return &NetClient{
		conn:       conn,
		codec:      codec,
		logger:     logger,
		send:       make(chan []byte, sendBuffer),
		unreliable: make(chan any, unreliableBuffer),
		welcome:    make(chan net.ClientMatchInfo, 1),
		done:       make(chan struct{}),
	}
}

func (nc *NetClient) SendReliable(msg any) error {
	return nc.enqueue(net.Reliable, msg)
}

func (nc *NetClient) SendUnreliable(msg any) error {
	return nc.enqueue(net.Unreliable, msg)
}

func (nc *NetClient) enqueue(lane net.Lane, msg any) error {
	data, err := net.Encode(nc.codec, msg)
	if err != nil {
		return err
	}
	select {
	case <-nc.done:
		return ErrClosed
	default:
	}
	select {
	case nc.send <- net.Frame(lane, data):
		return nil
	default:
		if lane == net.Unreliable {
			// Superseded by the next snapshot anyway.
			return nil
		}
		// Dropping a reliable message would desync the match.
		nc.Close()
		return fmt.Errorf("%s lane: %w", lane, ErrSendBufferFull)
	}
}

// RecvReliable pops the oldest pending reliable message.
func (nc *NetClient) RecvReliable() (any, bool) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if len(nc.reliable) == 0 {
		return nil, false
	}
	msg := nc.reliable[0]
	nc.reliable[0] = nil
	nc.reliable = nc.reliable[1:]
	return msg, true
}

func (nc *NetClient) RecvUnreliable() (any, bool) {
	select {
	case msg := <-nc.unreliable:
		return msg, true
	default:
		return nil, false
	}
}

// GetWelcome returns the match info once it has arrived.
func (nc *NetClient) GetWelcome() *net.ClientMatchInfo {
	select {
	case welcome := <-nc.welcome:
		return &welcome
	default:
		return nil
	}
}

// Done is closed when the connection is gone.
func (nc *NetClient) Done() <-chan struct{} {
	return nc.done
}

// Close stops both pumps. The write pump sends a close frame and releases
// the socket.
func (nc *NetClient) Close() {
	nc.closeOnce.Do(func() {
		close(nc.done)
	})
}

func (nc *NetClient) readPump() {
	defer nc.Close()

	for {
		_, message, err := nc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				nc.logger.Printf("[client] read error: %v", err)
			}
			return
		}

		lane, body, err := net.Unframe(message)
		if err != nil {
			nc.logger.Printf("[client] %v", err)
			continue
		}
		msg, err := net.Decode(nc.codec, body)
		if err != nil {
			nc.logger.Printf("[client] decode: %v", err)
			continue
		}
		nc.route(lane, msg)
	}
}

// route files a decoded message into its inbox. The match info is pulled
// off the reliable lane into the welcome slot.
func (nc *NetClient) route(lane net.Lane, msg any) {
	if lane == net.Unreliable {
		select {
		case nc.unreliable <- msg:
		default:
			// Drop if buffer full
		}
		return
	}

	if info, ok := msg.(net.ClientMatchInfo); ok {
		select {
		case nc.welcome <- info:
		default:
			nc.logger.Printf("[client] warn: second match info for player %d ignored", info.PlayerIdx)
		}
		return
	}
	nc.mu.Lock()
	nc.reliable = append(nc.reliable, msg)
	nc.mu.Unlock()
}

func (nc *NetClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		nc.Close()
		nc.conn.Close()
	}()

	for {
		select {
		case <-nc.done:
			nc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			nc.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-nc.send:
			nc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := nc.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			nc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := nc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
