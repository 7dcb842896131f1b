package client

import (
	"log"

	"fishnet/internal/game"
	"fishnet/internal/net"

	"github.com/yohamta/donburi"
)

// Transport is the client side of a two-lane link to the server. Recv calls
// never block; they report false when nothing is pending or the peer is gone.
type Transport interface {
	SendReliable(msg any) error
	SendUnreliable(msg any) error
	RecvReliable() (any, bool)
	RecvUnreliable() (any, bool)
}

// Driver replicates the local world with the server. It is driven by a
// Pipeline; it has no goroutines and touches the world only inside Step.
type Driver struct {
	transport Transport
	world     donburi.World
	match     *Match
	applier   *game.Applier
	interp    *Interpolator
	logger    *log.Logger
}

func NewDriver(t Transport, w donburi.World, m *Match, interp *Interpolator, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Default()
	}
	if interp == nil {
		interp = NewInterpolator(m.FixedTimestep())
	}
	return &Driver{
		transport: t,
		world:     w,
		match:     m,
		applier:   game.NewApplier(w, m.NetIDs, logger),
		interp:    interp,
		logger:    logger,
	}
}

func (d *Driver) Interpolator() *Interpolator {
	return d.interp
}

// inbound drains the reliable lane in arrival order, then the unreliable
// lane through the staleness filter.
func (d *Driver) inbound() {
	for {
		msg, ok := d.transport.RecvReliable()
		if !ok {
			break
		}
		d.handleReliable(msg)
	}
	for {
		msg, ok := d.transport.RecvUnreliable()
		if !ok {
			break
		}
		st, ok := msg.(net.PlayerStateFromServer)
		if !ok {
			d.logger.Printf("[client] warn: unexpected %T on unreliable lane", msg)
			continue
		}
		d.handleState(st)
	}
}

func (d *Driver) handleReliable(msg any) {
	switch m := msg.(type) {
	case net.PlayerEventFromServer:
		applied := d.applier.ApplyPlayerEvent(m.PlayerIdx, m.Kind)
		// A respawned index may belong to a new peer whose ticks restart at 1.
		if applied && (m.Kind.Kind == net.SpawnPlayer || m.Kind.Kind == net.KillPlayer) {
			d.match.ClientTicks.Forget(m.PlayerIdx)
		}
	case net.GameEventFromServer:
		d.applier.ApplyGameEvent(m)
	case net.ClientMatchInfo:
		d.logger.Printf("[client] warn: match info after match start ignored (player %d)", m.PlayerIdx)
	default:
		d.logger.Printf("[client] warn: unexpected %T on reliable lane", msg)
	}
}

func (d *Driver) handleState(m net.PlayerStateFromServer) {
	if !d.match.ClientTicks.IsLatest(m.PlayerIdx, m.State.Tick) {
		return
	}
	player, ok := game.FindPlayer(d.world, m.PlayerIdx)
	if !ok {
		return
	}
	d.interp.Install(d.world, player, m.State.Pos)
	game.SetSprite(d.world, player, m.State.Sprite)
}

// outbound sends this step's intents, then one state snapshot of the
// locally controlled player.
func (d *Driver) outbound(intents []intent) {
	local := d.match.Info.PlayerIdx

	for _, in := range intents {
		var ev net.PlayerEvent
		switch in.kind {
		case intentSpawn:
			ev = net.SpawnPlayerEvent(in.pos)
		case intentKill:
			ev = net.KillPlayerEvent()
		case intentGrab:
			// Only our own player may pick up or drop items.
			if idx, ok := game.PlayerIndex(d.world, in.player); !ok || idx != local {
				continue
			}
			id, ok := d.match.NetIDs.NetID(in.item)
			if !ok {
				d.logger.Printf("[client] warn: item %v in network game without net id", in.item)
				continue
			}
			ev = net.GrabItemEvent(id)
		case intentDrop:
			if idx, ok := game.PlayerIndex(d.world, in.player); !ok || idx != local {
				continue
			}
			pos, _ := game.Position(d.world, in.player)
			ev = net.DropItemEvent(pos)
		}
		if err := d.transport.SendReliable(ev); err != nil {
			d.logger.Printf("[client] send %v: %v", ev.Kind, err)
		}
	}

	player, ok := game.FindPlayer(d.world, local)
	if !ok {
		return
	}
	pos, _ := game.Position(d.world, player)
	pose, _ := game.SpriteOf(d.world, player)
	st := net.PlayerState{Tick: d.match.Ticks.Next(), Pos: pos, Sprite: pose}
	if err := d.transport.SendUnreliable(st); err != nil {
		d.logger.Printf("[client] send state: %v", err)
	}
}
