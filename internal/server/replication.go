package server

import (
	"context"
	"log"
	"time"

	"fishnet/internal/game"
	"fishnet/internal/net"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oklog/ulid/v2"
	"github.com/yohamta/donburi"
)

// Transport is the authority side of the per-peer two-lane links.
type Transport interface {
	SendReliableTo(msg any, target net.Target) error
	SendUnreliableTo(msg any, target net.Target) error
	RecvReliable() (Incoming, bool)
	RecvUnreliable() (Incoming, bool)
	Admit(idx int)
}

type Options struct {
	MatchID    string
	TickHz     int
	MaxPlayers int
	// RejectDuplicateSpawn drops a SpawnPlayer from a peer whose player is
	// still alive instead of relaying it.
	RejectDuplicateSpawn bool
}

// Driver is the server replication driver. It relays every peer's events
// and state to the other peers, tagged with the origin's player index, and
// mirrors events into its own world so late joiners can be caught up.
//
// Peers are trusted: an event is attributed to the connection it arrived
// on and is not checked against gameplay rules.
type Driver struct {
	transport Transport
	opts      Options
	logger    *log.Logger

	world   donburi.World
	netIDs  *game.NetIDs
	alloc   net.NetIDAllocator
	ticks   net.ClientTicks
	applier *game.Applier
	present map[int]bool
}

func NewDriver(t Transport, opts Options, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Default()
	}
	if opts.MatchID == "" {
		opts.MatchID = ulid.Make().String()
	}
	if opts.TickHz <= 0 {
		opts.TickHz = 60
	}
	w := donburi.NewWorld()
	ids := game.NewNetIDs()
	return &Driver{
		transport: t,
		opts:      opts,
		logger:    logger,
		world:     w,
		netIDs:    ids,
		applier:   game.NewApplier(w, ids, logger),
		present:   make(map[int]bool),
	}
}

func (d *Driver) MatchID() string       { return d.opts.MatchID }
func (d *Driver) World() donburi.World { return d.world }
func (d *Driver) NetIDs() *game.NetIDs { return d.netIDs }

// Run steps the driver at the match tick rate until ctx is done.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(d.opts.TickHz))
	defer ticker.Stop()

	d.logger.Printf("[server] match %s running at %d Hz", d.opts.MatchID, d.opts.TickHz)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Step()
		}
	}
}

// Step drains both lanes once. Reliable traffic, including joins and
// leaves, is handled before unreliable state.
func (d *Driver) Step() {
	for {
		in, ok := d.transport.RecvReliable()
		if !ok {
			break
		}
		switch m := in.Message.(type) {
		case peerJoined:
			d.join(in.ClientIdx)
		case peerLeft:
			d.leave(in.ClientIdx)
		case net.PlayerEvent:
			d.handleEvent(in.ClientIdx, m)
		default:
			d.logger.Printf("[server] warn: unexpected %T from player %d on reliable lane", in.Message, in.ClientIdx)
		}
	}
	for {
		in, ok := d.transport.RecvUnreliable()
		if !ok {
			break
		}
		st, ok := in.Message.(net.PlayerState)
		if !ok {
			d.logger.Printf("[server] warn: unexpected %T from player %d on unreliable lane", in.Message, in.ClientIdx)
			continue
		}
		d.handleState(in.ClientIdx, st)
	}
}

// SpawnItem creates an item owned by the authority and announces it to
// every peer. It must be called from the goroutine that runs Step.
func (d *Driver) SpawnItem(script string, pos mgl32.Vec3) net.NetID {
	id := d.alloc.Next()
	item := game.SpawnItem(d.world, script, pos)
	if err := d.netIDs.Insert(item, id); err != nil {
		d.logger.Printf("[server] warn: spawn item: %v", err)
	}
	d.sendReliable(net.SpawnItemEvent(id, script, pos), net.All())
	return id
}

func (d *Driver) handleEvent(idx int, ev net.PlayerEvent) {
	if !d.present[idx] {
		d.logger.Printf("[server] warn: %v from player %d who is not in the match", ev.Kind, idx)
		return
	}
	if ev.Kind == net.SpawnPlayer && d.opts.RejectDuplicateSpawn {
		if _, alive := game.FindPlayer(d.world, idx); alive {
			d.logger.Printf("[server] warn: duplicate spawn from live player %d rejected", idx)
			return
		}
	}

	d.applier.ApplyPlayerEvent(idx, ev)
	d.sendReliable(net.PlayerEventFromServer{PlayerIdx: idx, Kind: ev}, net.AllExcept(idx))
}

func (d *Driver) handleState(idx int, st net.PlayerState) {
	if !d.present[idx] {
		return
	}
	// Relay is unconditional; each client filters stale snapshots itself.
	d.sendUnreliable(net.PlayerStateFromServer{PlayerIdx: idx, State: st}, net.AllExcept(idx))

	if !d.ticks.IsLatest(idx, st.Tick) {
		return
	}
	if player, ok := game.FindPlayer(d.world, idx); ok {
		game.SetPosition(d.world, player, st.Pos)
		game.SetSprite(d.world, player, st.Sprite)
	}
}

func (d *Driver) join(idx int) {
	d.present[idx] = true
	d.ticks.Forget(idx)

	d.sendReliable(net.ClientMatchInfo{
		PlayerIdx:  idx,
		MatchID:    d.opts.MatchID,
		TickHz:     d.opts.TickHz,
		MaxPlayers: d.opts.MaxPlayers,
	}, net.Only(idx))
	d.catchUp(idx)
	d.transport.Admit(idx)

	d.logger.Printf("[server] player %d joined match %s", idx, d.opts.MatchID)
}

// catchUp replays the mirror world to a joining peer: items, then players,
// then which player holds which item.
func (d *Driver) catchUp(idx int) {
	to := net.Only(idx)

	type held struct {
		holder int
		id     net.NetID
	}
	var grabs []held

	d.netIDs.Each(func(item donburi.Entity, id net.NetID) {
		script, ok := game.ItemScript(d.world, item)
		if !ok {
			return
		}
		pos, _ := game.WorldPosition(d.world, item)
		d.sendReliable(net.SpawnItemEvent(id, script, pos), to)

		if holder, ok := game.Holder(d.world, item); ok {
			if holderIdx, ok := game.PlayerIndex(d.world, holder); ok {
				grabs = append(grabs, held{holder: holderIdx, id: id})
			}
		}
	})
	for playerIdx, player := range game.Players(d.world) {
		pos, _ := game.Position(d.world, player)
		d.sendReliable(net.PlayerEventFromServer{PlayerIdx: playerIdx, Kind: net.SpawnPlayerEvent(pos)}, to)
	}
	for _, g := range grabs {
		d.sendReliable(net.PlayerEventFromServer{PlayerIdx: g.holder, Kind: net.GrabItemEvent(g.id)}, to)
	}
}

func (d *Driver) leave(idx int) {
	delete(d.present, idx)
	d.ticks.Forget(idx)

	player, ok := game.FindPlayer(d.world, idx)
	if !ok {
		return
	}
	game.DespawnRecursive(d.world, d.netIDs, player)
	d.sendReliable(net.PlayerEventFromServer{PlayerIdx: idx, Kind: net.KillPlayerEvent()}, net.AllExcept(idx))
}

func (d *Driver) sendReliable(msg any, target net.Target) {
	if err := d.transport.SendReliableTo(msg, target); err != nil {
		d.logger.Printf("[server] send reliable to %v: %v", target, err)
	}
}

func (d *Driver) sendUnreliable(msg any, target net.Target) {
	if err := d.transport.SendUnreliableTo(msg, target); err != nil {
		d.logger.Printf("[server] send unreliable to %v: %v", target, err)
	}
}
