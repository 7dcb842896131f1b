package game

import (
	"fishnet/internal/net"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// HoldOffset is where a held item sits relative to its holder.
var HoldOffset = mgl32.Vec3{0, -PlayerRadius - 4, 0}

var (
	playerQuery   = donburi.NewQuery(filter.Contains(PlayerIdx, Transform))
	childQuery    = donburi.NewQuery(filter.Contains(Parent))
	itemQuery     = donburi.NewQuery(filter.Contains(Item, Transform))
	freeItemQuery = donburi.NewQuery(filter.And(
		filter.Contains(Item, Transform),
		filter.Not(filter.Contains(Parent)),
	))
)

// none is the zero handle returned alongside ok == false.
var none donburi.Entity

// NetIDs is the NetIDMap keyed by this process's entity handles.
type NetIDs = net.NetIDMap[donburi.Entity]

func NewNetIDs() *NetIDs {
	return net.NewNetIDMap[donburi.Entity]()
}

func SpawnPlayer(w donburi.World, idx int, pos mgl32.Vec3) donburi.Entity {
	e := w.Create(PlayerIdx, Transform, Sprite)
	entry := w.Entry(e)
	PlayerIdx.SetValue(entry, PlayerIdxData{Idx: idx})
	Transform.SetValue(entry, TransformData{Pos: pos})
	Sprite.SetValue(entry, net.AnimationPose{Animation: "idle", Playing: true})
	return e
}

func SpawnItem(w donburi.World, script string, pos mgl32.Vec3) donburi.Entity {
	e := w.Create(Item, Transform)
	entry := w.Entry(e)
	Item.SetValue(entry, ItemData{Script: script})
	Transform.SetValue(entry, TransformData{Pos: pos})
	return e
}

// FindPlayer returns the entity controlled by player idx.
func FindPlayer(w donburi.World, idx int) (donburi.Entity, bool) {
	var (
		found donburi.Entity
		ok    bool
	)
	playerQuery.Each(w, func(entry *donburi.Entry) {
		if !ok && PlayerIdx.Get(entry).Idx == idx {
			found, ok = entry.Entity(), true
		}
	})
	return found, ok
}

// Players returns player index -> entity for every live player.
func Players(w donburi.World) map[int]donburi.Entity {
	out := make(map[int]donburi.Entity)
	playerQuery.Each(w, func(entry *donburi.Entry) {
		out[PlayerIdx.Get(entry).Idx] = entry.Entity()
	})
	return out
}

func PlayerIndex(w donburi.World, e donburi.Entity) (int, bool) {
	if !w.Valid(e) {
		return 0, false
	}
	entry := w.Entry(e)
	if !entry.HasComponent(PlayerIdx) {
		return 0, false
	}
	return PlayerIdx.Get(entry).Idx, true
}

// Position is the entity's own transform, ignoring any parent.
func Position(w donburi.World, e donburi.Entity) (mgl32.Vec3, bool) {
	if !w.Valid(e) {
		return mgl32.Vec3{}, false
	}
	entry := w.Entry(e)
	if !entry.HasComponent(Transform) {
		return mgl32.Vec3{}, false
	}
	return Transform.Get(entry).Pos, true
}

func SetPosition(w donburi.World, e donburi.Entity, pos mgl32.Vec3) {
	if !w.Valid(e) {
		return
	}
	entry := w.Entry(e)
	if entry.HasComponent(Transform) {
		Transform.Get(entry).Pos = pos
	}
}

// WorldPosition resolves held entities to their holder's position.
func WorldPosition(w donburi.World, e donburi.Entity) (mgl32.Vec3, bool) {
	if holder, ok := Holder(w, e); ok {
		pos, ok := WorldPosition(w, holder)
		return pos.Add(HoldOffset), ok
	}
	return Position(w, e)
}

func SetSprite(w donburi.World, e donburi.Entity, pose net.AnimationPose) {
	if !w.Valid(e) {
		return
	}
	entry := w.Entry(e)
	if entry.HasComponent(Sprite) {
		Sprite.SetValue(entry, pose)
	}
}

func SpriteOf(w donburi.World, e donburi.Entity) (net.AnimationPose, bool) {
	if !w.Valid(e) {
		return net.AnimationPose{}, false
	}
	entry := w.Entry(e)
	if !entry.HasComponent(Sprite) {
		return net.AnimationPose{}, false
	}
	return Sprite.GetValue(entry), true
}

// Holder returns the entity e is attached to.
func Holder(w donburi.World, e donburi.Entity) (donburi.Entity, bool) {
	if !w.Valid(e) {
		return none, false
	}
	entry := w.Entry(e)
	if !entry.HasComponent(Parent) {
		return none, false
	}
	return Parent.Get(entry).Entity, true
}

// Children returns the entities directly attached to parent.
func Children(w donburi.World, parent donburi.Entity) []donburi.Entity {
	var out []donburi.Entity
	childQuery.Each(w, func(entry *donburi.Entry) {
		if Parent.Get(entry).Entity == parent {
			out = append(out, entry.Entity())
		}
	})
	return out
}

// HeldItems returns the items attached to holder.
func HeldItems(w donburi.World, holder donburi.Entity) []donburi.Entity {
	var out []donburi.Entity
	for _, c := range Children(w, holder) {
		if w.Entry(c).HasComponent(Item) {
			out = append(out, c)
		}
	}
	return out
}

// Attach reparents child under parent, replacing any previous parent.
func Attach(w donburi.World, parent, child donburi.Entity) {
	entry := w.Entry(child)
	if !entry.HasComponent(Parent) {
		entry.AddComponent(Parent)
		entry = w.Entry(child)
	}
	Parent.SetValue(entry, ParentData{Entity: parent})
}

func Detach(w donburi.World, child donburi.Entity) {
	entry := w.Entry(child)
	if entry.HasComponent(Parent) {
		entry.RemoveComponent(Parent)
	}
}

// DespawnRecursive removes e and everything attached to it, unmapping each
// removed entity from ids.
func DespawnRecursive(w donburi.World, ids *NetIDs, e donburi.Entity) {
	if !w.Valid(e) {
		return
	}
	for _, c := range Children(w, e) {
		DespawnRecursive(w, ids, c)
	}
	if ids != nil {
		ids.Remove(e)
	}
	w.Remove(e)
}

// Items returns every item entity, held or not.
func Items(w donburi.World) []donburi.Entity {
	var out []donburi.Entity
	itemQuery.Each(w, func(entry *donburi.Entry) {
		out = append(out, entry.Entity())
	})
	return out
}

// NearestFreeItem returns the closest unheld item within radius of pos.
func NearestFreeItem(w donburi.World, pos mgl32.Vec3, radius float32) (donburi.Entity, bool) {
	var (
		best   donburi.Entity
		bestSq = radius * radius
		found  bool
	)
	freeItemQuery.Each(w, func(entry *donburi.Entry) {
		d := Transform.Get(entry).Pos.Sub(pos)
		if distSq := d.Dot(d); distSq <= bestSq {
			best, bestSq, found = entry.Entity(), distSq, true
		}
	})
	return best, found
}

func ItemScript(w donburi.World, e donburi.Entity) (string, bool) {
	if !w.Valid(e) {
		return "", false
	}
	entry := w.Entry(e)
	if !entry.HasComponent(Item) {
		return "", false
	}
	return Item.Get(entry).Script, true
}
