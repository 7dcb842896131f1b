package client

import (
	"time"

	"fishnet/internal/game"
	"fishnet/internal/net"
)

// DefaultTickHz is used when the server does not announce a tick rate.
const DefaultTickHz = 60

// Match holds the replication state scoped to one match on this process.
// It is created from the server's welcome and reset when the match ends.
type Match struct {
	Info        net.ClientMatchInfo
	Ticks       net.TickSource
	ClientTicks net.ClientTicks
	NetIDs      *game.NetIDs
}

func NewMatch(info net.ClientMatchInfo) *Match {
	if info.TickHz <= 0 {
		info.TickHz = DefaultTickHz
	}
	return &Match{
		Info:   info,
		NetIDs: game.NewNetIDs(),
	}
}

// FixedTimestep is the wall-clock length of one simulation step.
func (m *Match) FixedTimestep() time.Duration {
	return time.Second / time.Duration(m.Info.TickHz)
}

func (m *Match) Reset() {
	m.Ticks.Reset()
	m.ClientTicks.Reset()
	m.NetIDs.Reset()
}
