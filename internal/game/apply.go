package game

import (
	"log"

	"fishnet/internal/net"

	"github.com/yohamta/donburi"
)

// Applier applies replicated events to a local world. Client and server
// mirror share it so both sides follow the same race rules: a reference that
// no longer resolves is logged and skipped, never fatal.
type Applier struct {
	World  donburi.World
	NetIDs *NetIDs
	Logger *log.Logger
}

func NewApplier(w donburi.World, ids *NetIDs, logger *log.Logger) *Applier {
	if logger == nil {
		logger = log.Default()
	}
	return &Applier{World: w, NetIDs: ids, Logger: logger}
}

// ApplyPlayerEvent applies ev on behalf of player playerIdx and reports
// whether the world changed.
func (a *Applier) ApplyPlayerEvent(playerIdx int, ev net.PlayerEvent) bool {
	switch ev.Kind {
	case net.SpawnPlayer:
		if _, ok := FindPlayer(a.World, playerIdx); ok {
			a.Logger.Printf("warn: duplicate spawn for live player %d, ignored", playerIdx)
			return false
		}
		SpawnPlayer(a.World, playerIdx, ev.Pos)
		return true

	case net.KillPlayer:
		player, ok := FindPlayer(a.World, playerIdx)
		if !ok {
			return false
		}
		DespawnRecursive(a.World, a.NetIDs, player)
		return true

	case net.GrabItem:
		item, ok := a.NetIDs.Entity(ev.NetID)
		if !ok || !a.World.Valid(item) {
			a.Logger.Printf("warn: no entity for net id %d (grab by player %d)", ev.NetID, playerIdx)
			return false
		}
		player, ok := FindPlayer(a.World, playerIdx)
		if !ok {
			a.Logger.Printf("warn: dead player %d grabbed item %d", playerIdx, ev.NetID)
			return false
		}
		Attach(a.World, player, item)
		return true

	case net.DropItem:
		player, ok := FindPlayer(a.World, playerIdx)
		if !ok {
			a.Logger.Printf("warn: drop for dead player %d", playerIdx)
			return false
		}
		held := HeldItems(a.World, player)
		if len(held) == 0 {
			a.Logger.Printf("warn: drop for player %d not carrying anything", playerIdx)
			return false
		}
		for _, item := range held {
			SetPosition(a.World, item, ev.Pos)
			Detach(a.World, item)
		}
		return true
	}

	a.Logger.Printf("warn: unknown player event %v from player %d", ev.Kind, playerIdx)
	return false
}

// ApplyGameEvent applies an authority broadcast. A SpawnItem whose net id is
// already mapped is skipped.
func (a *Applier) ApplyGameEvent(ev net.GameEventFromServer) (donburi.Entity, bool) {
	if ev.Kind != net.SpawnItem {
		a.Logger.Printf("warn: unknown game event %d", ev.Kind)
		return none, false
	}
	if existing, ok := a.NetIDs.Entity(ev.NetID); ok && a.World.Valid(existing) {
		a.Logger.Printf("warn: item net id %d already spawned", ev.NetID)
		return none, false
	}
	// A stale mapping for a removed entity would block the insert.
	a.NetIDs.RemoveNetID(ev.NetID)

	item := SpawnItem(a.World, ev.Script, ev.Pos)
	if err := a.NetIDs.Insert(item, ev.NetID); err != nil {
		a.Logger.Printf("warn: spawn item: %v", err)
		a.World.Remove(item)
		return none, false
	}
	return item, true
}
