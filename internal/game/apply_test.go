package game

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"fishnet/internal/net"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

func newTestApplier(t *testing.T) (*Applier, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewApplier(donburi.NewWorld(), NewNetIDs(), log.New(&buf, "", 0)), &buf
}

func spawnNetItem(t *testing.T, a *Applier, id net.NetID, pos mgl32.Vec3) donburi.Entity {
	t.Helper()
	item, ok := a.ApplyGameEvent(net.SpawnItemEvent(id, "sword", pos))
	if !ok {
		t.Fatalf("spawn item %d failed", id)
	}
	return item
}

func TestSpawnItemRegistersNetID(t *testing.T) {
	a, _ := newTestApplier(t)
	item := spawnNetItem(t, a, 5, mgl32.Vec3{1, 2, 0})

	if got, ok := a.NetIDs.Entity(5); !ok || got != item {
		t.Fatalf("net id 5 not mapped to spawned item")
	}
	if pos, _ := Position(a.World, item); pos != (mgl32.Vec3{1, 2, 0}) {
		t.Fatalf("item pos = %v", pos)
	}
	if _, ok := a.ApplyGameEvent(net.SpawnItemEvent(5, "sword", mgl32.Vec3{})); ok {
		t.Fatalf("second spawn with the same net id must be skipped")
	}
	if len(Items(a.World)) != 1 {
		t.Fatalf("items = %d, want 1", len(Items(a.World)))
	}
}

func TestDropThenGrabByAnotherPlayer(t *testing.T) {
	a, _ := newTestApplier(t)
	a.ApplyPlayerEvent(0, net.SpawnPlayerEvent(mgl32.Vec3{10, 10, 0}))
	a.ApplyPlayerEvent(1, net.SpawnPlayerEvent(mgl32.Vec3{50, 50, 0}))
	x := spawnNetItem(t, a, 1, mgl32.Vec3{})

	if !a.ApplyPlayerEvent(0, net.GrabItemEvent(1)) {
		t.Fatalf("player 0 grab failed")
	}
	p0, _ := FindPlayer(a.World, 0)
	if holder, ok := Holder(a.World, x); !ok || holder != p0 {
		t.Fatalf("item not held by player 0")
	}

	if !a.ApplyPlayerEvent(0, net.DropItemEvent(mgl32.Vec3{3, 4, 0})) {
		t.Fatalf("player 0 drop failed")
	}
	if _, ok := Holder(a.World, x); ok {
		t.Fatalf("item still attached after drop")
	}
	if pos, _ := Position(a.World, x); pos != (mgl32.Vec3{3, 4, 0}) {
		t.Fatalf("dropped item pos = %v, want (3,4,0)", pos)
	}

	if !a.ApplyPlayerEvent(1, net.GrabItemEvent(1)) {
		t.Fatalf("player 1 grab failed")
	}
	p1, _ := FindPlayer(a.World, 1)
	if holder, ok := Holder(a.World, x); !ok || holder != p1 {
		t.Fatalf("item not reattached to player 1")
	}
}

func TestGrabUnmappedNetIDIsNoop(t *testing.T) {
	a, logs := newTestApplier(t)
	a.ApplyPlayerEvent(0, net.SpawnPlayerEvent(mgl32.Vec3{}))
	x := spawnNetItem(t, a, 1, mgl32.Vec3{})

	if a.ApplyPlayerEvent(0, net.GrabItemEvent(99)) {
		t.Fatalf("grab of unmapped id reported a change")
	}
	p0, _ := FindPlayer(a.World, 0)
	if len(HeldItems(a.World, p0)) != 0 {
		t.Fatalf("player holds items after failed grab")
	}
	if _, ok := Holder(a.World, x); ok {
		t.Fatalf("unrelated item got attached")
	}
	if !strings.Contains(logs.String(), "warn: no entity for net id 99") {
		t.Fatalf("missing warning, logs: %q", logs.String())
	}
}

func TestGrabItemDespawnedLastStep(t *testing.T) {
	a, logs := newTestApplier(t)
	a.ApplyPlayerEvent(0, net.SpawnPlayerEvent(mgl32.Vec3{}))
	a.ApplyPlayerEvent(1, net.SpawnPlayerEvent(mgl32.Vec3{}))
	spawnNetItem(t, a, 3, mgl32.Vec3{})
	a.ApplyPlayerEvent(1, net.GrabItemEvent(3))

	// Player 1 dies holding the item; the item goes with it.
	a.ApplyPlayerEvent(1, net.KillPlayerEvent())
	if _, ok := a.NetIDs.Entity(3); ok {
		t.Fatalf("net id 3 still mapped after its entity was despawned")
	}

	worldLen := a.World.Len()
	if a.ApplyPlayerEvent(0, net.GrabItemEvent(3)) {
		t.Fatalf("grab of despawned item reported a change")
	}
	if a.World.Len() != worldLen {
		t.Fatalf("world changed: %d entities, want %d", a.World.Len(), worldLen)
	}
	if !strings.Contains(logs.String(), "warn:") {
		t.Fatalf("expected a warning, logs: %q", logs.String())
	}
}

func TestGrabByDeadPlayerWarns(t *testing.T) {
	a, logs := newTestApplier(t)
	x := spawnNetItem(t, a, 1, mgl32.Vec3{})
	if a.ApplyPlayerEvent(2, net.GrabItemEvent(1)) {
		t.Fatalf("grab by missing player reported a change")
	}
	if _, ok := Holder(a.World, x); ok {
		t.Fatalf("item attached to nobody")
	}
	if !strings.Contains(logs.String(), "dead player 2") {
		t.Fatalf("missing warning, logs: %q", logs.String())
	}
}

func TestDropWithoutItemsWarns(t *testing.T) {
	a, logs := newTestApplier(t)
	if a.ApplyPlayerEvent(0, net.DropItemEvent(mgl32.Vec3{})) {
		t.Fatalf("drop for missing player reported a change")
	}
	a.ApplyPlayerEvent(0, net.SpawnPlayerEvent(mgl32.Vec3{}))
	if a.ApplyPlayerEvent(0, net.DropItemEvent(mgl32.Vec3{})) {
		t.Fatalf("drop with empty hands reported a change")
	}
	if !strings.Contains(logs.String(), "not carrying anything") {
		t.Fatalf("missing warning, logs: %q", logs.String())
	}
}

func TestKillIsIdempotent(t *testing.T) {
	a, _ := newTestApplier(t)
	a.ApplyPlayerEvent(1, net.SpawnPlayerEvent(mgl32.Vec3{}))
	if !a.ApplyPlayerEvent(1, net.KillPlayerEvent()) {
		t.Fatalf("first kill must despawn")
	}
	if a.ApplyPlayerEvent(1, net.KillPlayerEvent()) {
		t.Fatalf("second kill must be a no-op")
	}
	if a.World.Len() != 0 {
		t.Fatalf("world has %d entities, want 0", a.World.Len())
	}
}

func TestDuplicateSpawnRejected(t *testing.T) {
	a, logs := newTestApplier(t)
	a.ApplyPlayerEvent(0, net.SpawnPlayerEvent(mgl32.Vec3{1, 1, 0}))
	if a.ApplyPlayerEvent(0, net.SpawnPlayerEvent(mgl32.Vec3{9, 9, 0})) {
		t.Fatalf("duplicate spawn reported a change")
	}
	if len(Players(a.World)) != 1 {
		t.Fatalf("players = %d, want 1", len(Players(a.World)))
	}
	p, _ := FindPlayer(a.World, 0)
	if pos, _ := Position(a.World, p); pos != (mgl32.Vec3{1, 1, 0}) {
		t.Fatalf("duplicate spawn moved the player to %v", pos)
	}
	if !strings.Contains(logs.String(), "duplicate spawn") {
		t.Fatalf("missing warning, logs: %q", logs.String())
	}
}

func TestWorldPositionFollowsHolder(t *testing.T) {
	a, _ := newTestApplier(t)
	a.ApplyPlayerEvent(0, net.SpawnPlayerEvent(mgl32.Vec3{100, 100, 0}))
	x := spawnNetItem(t, a, 1, mgl32.Vec3{})
	a.ApplyPlayerEvent(0, net.GrabItemEvent(1))

	got, ok := WorldPosition(a.World, x)
	if !ok || got != (mgl32.Vec3{100, 100, 0}).Add(HoldOffset) {
		t.Fatalf("held item world pos = %v", got)
	}
}
