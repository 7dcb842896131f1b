package server

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"fishnet/internal/net"
)

var ErrMatchFull = errors.New("match is full")

const unreliableInbox = 1024

// Incoming is a message received from a peer, attributed to its player index.
type Incoming struct {
	ClientIdx int
	Message   any

	conn *Connection
}

// Membership changes travel on the reliable queue so they stay ordered with
// the peer's own events.
type (
	peerJoined struct{}
	peerLeft   struct{}
)

// Hub owns the peer connections of one match. Connection goroutines feed it;
// the simulation goroutine drains it and fans messages out through it.
type Hub struct {
	codec      net.Codec
	maxPlayers int
	logger     *log.Logger

	mu    sync.Mutex
	conns map[int]*Connection

	inboxMu  sync.Mutex
	reliable []Incoming

	unreliable chan Incoming
}

func NewHub(codec net.Codec, maxPlayers int, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		codec:      codec,
		maxPlayers: maxPlayers,
		logger:     logger,
		conns:      make(map[int]*Connection),
		unreliable: make(chan Incoming, unreliableInbox),
	}
}

// register assigns c the lowest free player index.
func (h *Hub) register(c *Connection) error {
	h.mu.Lock()
	idx := -1
	for i := 0; i < h.maxPlayers; i++ {
		if _, taken := h.conns[i]; !taken {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return fmt.Errorf("%w (%d players)", ErrMatchFull, h.maxPlayers)
	}
	c.playerIdx = idx
	h.conns[idx] = c
	// Queued under mu so a reused index is always left before it is joined.
	h.pushReliable(Incoming{ClientIdx: idx, Message: peerJoined{}, conn: c})
	h.mu.Unlock()
	return nil
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	current, ok := h.conns[c.playerIdx]
	left := ok && current == c
	if left {
		delete(h.conns, c.playerIdx)
		h.pushReliable(Incoming{ClientIdx: c.playerIdx, Message: peerLeft{}, conn: c})
	}
	h.mu.Unlock()

	if left {
		h.logger.Printf("[server] player %d disconnected", c.playerIdx)
	}
}

// current reports whether in came from the connection that still owns its
// player index.
func (h *Hub) current(in Incoming) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[in.ClientIdx] == in.conn
}

// Admit lets fan-out sends reach idx. Until then only Only(idx) sends do,
// so the welcome and catch-up state arrive before any relayed traffic.
func (h *Hub) Admit(idx int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[idx]; ok {
		c.admitted = true
	}
}

func (h *Hub) NumPlayers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) deliver(c *Connection, lane net.Lane, msg any) {
	in := Incoming{ClientIdx: c.playerIdx, Message: msg, conn: c}
	if lane == net.Reliable {
		h.pushReliable(in)
		return
	}
	select {
	case h.unreliable <- in:
	default:
		// Drop if buffer full
	}
}

func (h *Hub) pushReliable(in Incoming) {
	h.inboxMu.Lock()
	h.reliable = append(h.reliable, in)
	h.inboxMu.Unlock()
}

func (h *Hub) RecvReliable() (Incoming, bool) {
	h.inboxMu.Lock()
	defer h.inboxMu.Unlock()
	if len(h.reliable) == 0 {
		return Incoming{}, false
	}
	in := h.reliable[0]
	h.reliable[0] = Incoming{}
	h.reliable = h.reliable[1:]
	return in, true
}

// RecvUnreliable pops the next state. States still queued from a peer that
// has since left are dropped, so they are never relayed under an index a
// new peer now holds.
func (h *Hub) RecvUnreliable() (Incoming, bool) {
	for {
		select {
		case in := <-h.unreliable:
			if !h.current(in) {
				continue
			}
			return in, true
		default:
			return Incoming{}, false
		}
	}
}

func (h *Hub) SendReliableTo(msg any, target net.Target) error {
	return h.sendTo(net.Reliable, msg, target)
}

func (h *Hub) SendUnreliableTo(msg any, target net.Target) error {
	return h.sendTo(net.Unreliable, msg, target)
}

func (h *Hub) sendTo(lane net.Lane, msg any, target net.Target) error {
	data, err := net.Encode(h.codec, msg)
	if err != nil {
		return fmt.Errorf("send to %v: %w", target, err)
	}
	frame := net.Frame(lane, data)

	h.mu.Lock()
	defer h.mu.Unlock()
	for idx, c := range h.conns {
		if !target.Includes(idx) {
			continue
		}
		if !c.admitted && target.Kind != net.TargetOnly {
			continue
		}
		c.enqueue(lane, frame)
	}
	return nil
}
