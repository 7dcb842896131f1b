package client

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"fishnet/internal/game"
	"fishnet/internal/net"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

type fakeTransport struct {
	inReliable   []any
	inUnreliable []any
	reliable     []any
	unreliable   []any
}

func (f *fakeTransport) SendReliable(msg any) error {
	f.reliable = append(f.reliable, msg)
	return nil
}

func (f *fakeTransport) SendUnreliable(msg any) error {
	f.unreliable = append(f.unreliable, msg)
	return nil
}

func (f *fakeTransport) RecvReliable() (any, bool) {
	if len(f.inReliable) == 0 {
		return nil, false
	}
	msg := f.inReliable[0]
	f.inReliable = f.inReliable[1:]
	return msg, true
}

func (f *fakeTransport) RecvUnreliable() (any, bool) {
	if len(f.inUnreliable) == 0 {
		return nil, false
	}
	msg := f.inUnreliable[0]
	f.inUnreliable = f.inUnreliable[1:]
	return msg, true
}

type fixture struct {
	transport *fakeTransport
	world     donburi.World
	match     *Match
	driver    *Driver
	logs      *bytes.Buffer
	now       time.Time
}

func newFixture(t *testing.T, localIdx int) *fixture {
	t.Helper()
	f := &fixture{
		transport: &fakeTransport{},
		world:     donburi.NewWorld(),
		match:     NewMatch(net.ClientMatchInfo{PlayerIdx: localIdx, TickHz: 50}),
		logs:      &bytes.Buffer{},
		now:       time.Unix(1000, 0),
	}
	interp := NewInterpolator(f.match.FixedTimestep())
	interp.Now = func() time.Time { return f.now }
	f.driver = NewDriver(f.transport, f.world, f.match, interp, log.New(f.logs, "", 0))
	return f
}

func (f *fixture) remote(idx int, ev net.PlayerEvent) {
	f.transport.inReliable = append(f.transport.inReliable, net.PlayerEventFromServer{PlayerIdx: idx, Kind: ev})
}

func (f *fixture) snapshot(idx int, tick net.Tick, pos mgl32.Vec3) {
	f.transport.inUnreliable = append(f.transport.inUnreliable, net.PlayerStateFromServer{
		PlayerIdx: idx,
		State:     net.PlayerState{Tick: tick, Pos: pos, Sprite: net.AnimationPose{Animation: "walk", Frame: uint32(tick)}},
	})
}

func TestInboundAppliesEventsBeforeGameplay(t *testing.T) {
	f := newFixture(t, 0)
	f.remote(1, net.SpawnPlayerEvent(mgl32.Vec3{50, 50, 0}))

	var seen bool
	p := NewPipeline(f.driver, SystemFunc(func(ctx *StepContext) {
		_, seen = game.FindPlayer(ctx.World, 1)
	}))
	p.Step()

	if !seen {
		t.Fatalf("gameplay did not see the player spawned this step")
	}
}

func TestStaleSnapshotsAreDropped(t *testing.T) {
	f := newFixture(t, 0)
	f.remote(1, net.SpawnPlayerEvent(mgl32.Vec3{}))
	p := NewPipeline(f.driver)
	p.Step()

	f.snapshot(1, 5, mgl32.Vec3{5, 0, 0})
	f.snapshot(1, 3, mgl32.Vec3{3, 0, 0})
	f.snapshot(1, 7, mgl32.Vec3{7, 0, 0})
	p.Step()

	if got, _ := f.match.ClientTicks.Latest(1); got != 7 {
		t.Fatalf("watermark = %d, want 7", got)
	}
	player, _ := game.FindPlayer(f.world, 1)
	tween := Motion.Get(f.world.Entry(player))
	if tween.End != (mgl32.Vec3{7, 0, 0}) {
		t.Fatalf("tween target = %v, want (7,0,0)", tween.End)
	}
	if pose, _ := game.SpriteOf(f.world, player); pose.Frame != 7 {
		t.Fatalf("pose frame = %d, want 7 (tick 3 must not overwrite)", pose.Frame)
	}

	f.snapshot(1, 6, mgl32.Vec3{6, 0, 0})
	p.Step()
	if tween := Motion.Get(f.world.Entry(player)); tween.End != (mgl32.Vec3{7, 0, 0}) {
		t.Fatalf("late tick 6 replaced the tween: %v", tween.End)
	}
}

func TestSnapshotInterpolatesInsteadOfTeleporting(t *testing.T) {
	f := newFixture(t, 0)
	f.remote(1, net.SpawnPlayerEvent(mgl32.Vec3{0, 0, 0}))
	f.snapshot(1, 1, mgl32.Vec3{100, 0, 0})
	p := NewPipeline(f.driver)
	p.Step()

	player, _ := game.FindPlayer(f.world, 1)
	interp := f.driver.Interpolator()
	step := f.match.FixedTimestep()

	interp.Animate(f.world)
	if pos, _ := game.Position(f.world, player); pos.X() != 0 {
		t.Fatalf("teleported: x = %v at tween start", pos.X())
	}

	f.now = f.now.Add(step)
	interp.Animate(f.world)
	if pos, _ := game.Position(f.world, player); pos.X() < 49 || pos.X() > 51 {
		t.Fatalf("x = %v after one step, want about 50", pos.X())
	}

	f.now = f.now.Add(5 * step)
	interp.Animate(f.world)
	if pos, _ := game.Position(f.world, player); pos.X() != 100 {
		t.Fatalf("x = %v after the tween, want 100", pos.X())
	}
}

func TestSnapshotForUnknownPlayerIsIgnored(t *testing.T) {
	f := newFixture(t, 0)
	f.snapshot(3, 1, mgl32.Vec3{1, 1, 0})
	NewPipeline(f.driver).Step()
	if f.world.Len() != 0 {
		t.Fatalf("snapshot created entities: %d", f.world.Len())
	}
}

func TestRemoteDropThenGrab(t *testing.T) {
	f := newFixture(t, 2)
	f.transport.inReliable = append(f.transport.inReliable, net.SpawnItemEvent(11, "sword", mgl32.Vec3{}))
	f.remote(0, net.SpawnPlayerEvent(mgl32.Vec3{10, 10, 0}))
	f.remote(1, net.SpawnPlayerEvent(mgl32.Vec3{20, 20, 0}))
	f.remote(0, net.GrabItemEvent(11))
	p := NewPipeline(f.driver)
	p.Step()

	x, ok := f.match.NetIDs.Entity(11)
	if !ok {
		t.Fatalf("item 11 not mapped")
	}
	p0, _ := game.FindPlayer(f.world, 0)
	if holder, _ := game.Holder(f.world, x); holder != p0 {
		t.Fatalf("item not held by player 0")
	}

	f.remote(0, net.DropItemEvent(mgl32.Vec3{3, 4, 0}))
	p.Step()
	if _, held := game.Holder(f.world, x); held {
		t.Fatalf("item still held after drop")
	}
	if pos, _ := game.Position(f.world, x); pos != (mgl32.Vec3{3, 4, 0}) {
		t.Fatalf("dropped at %v, want (3,4,0)", pos)
	}

	f.remote(1, net.GrabItemEvent(11))
	p.Step()
	p1, _ := game.FindPlayer(f.world, 1)
	if holder, _ := game.Holder(f.world, x); holder != p1 {
		t.Fatalf("item not reattached to player 1")
	}
}

func TestGrabOfDespawnedItemOnlyWarns(t *testing.T) {
	f := newFixture(t, 0)
	f.transport.inReliable = append(f.transport.inReliable, net.SpawnItemEvent(4, "grenade", mgl32.Vec3{}))
	f.remote(1, net.SpawnPlayerEvent(mgl32.Vec3{}))
	f.remote(2, net.SpawnPlayerEvent(mgl32.Vec3{}))
	f.remote(1, net.GrabItemEvent(4))
	p := NewPipeline(f.driver)
	p.Step()

	f.remote(1, net.KillPlayerEvent())
	p.Step()
	before := f.world.Len()

	f.remote(2, net.GrabItemEvent(4))
	p.Step()

	if f.world.Len() != before {
		t.Fatalf("world changed after grab of despawned item")
	}
	p2, _ := game.FindPlayer(f.world, 2)
	if len(game.HeldItems(f.world, p2)) != 0 {
		t.Fatalf("player 2 holds something")
	}
	if !strings.Contains(f.logs.String(), "warn: no entity for net id 4") {
		t.Fatalf("missing warning, logs: %q", f.logs.String())
	}
}

func TestOutboundSendsIntentsAndOneSnapshot(t *testing.T) {
	f := newFixture(t, 0)
	local := game.SpawnPlayer(f.world, 0, mgl32.Vec3{30, 40, 0})
	other := game.SpawnPlayer(f.world, 1, mgl32.Vec3{})
	item := game.SpawnItem(f.world, "sword", mgl32.Vec3{})
	if err := f.match.NetIDs.Insert(item, 9); err != nil {
		t.Fatalf("insert: %v", err)
	}

	p := NewPipeline(f.driver, SystemFunc(func(ctx *StepContext) {
		ctx.GrabItem(local, item)
		ctx.GrabItem(other, item) // not ours, must be filtered
		ctx.DropItem(local)
		ctx.DropItem(other)
	}))
	p.Step()

	want := []any{net.GrabItemEvent(9), net.DropItemEvent(mgl32.Vec3{30, 40, 0})}
	if len(f.transport.reliable) != len(want) {
		t.Fatalf("sent %d reliable messages, want %d: %+v", len(f.transport.reliable), len(want), f.transport.reliable)
	}
	for i := range want {
		if f.transport.reliable[i] != want[i] {
			t.Fatalf("reliable[%d] = %+v, want %+v", i, f.transport.reliable[i], want[i])
		}
	}

	if len(f.transport.unreliable) != 1 {
		t.Fatalf("sent %d snapshots, want exactly 1", len(f.transport.unreliable))
	}
	st := f.transport.unreliable[0].(net.PlayerState)
	if st.Pos != (mgl32.Vec3{30, 40, 0}) || st.Tick != 1 {
		t.Fatalf("snapshot = %+v", st)
	}

	p.Step()
	if st := f.transport.unreliable[1].(net.PlayerState); st.Tick != 2 {
		t.Fatalf("second snapshot tick = %d, want 2", st.Tick)
	}
	if len(f.transport.reliable) != 4 {
		t.Fatalf("intents must be sent again when raised again; got %d", len(f.transport.reliable))
	}
}

func TestOutboundSkipsItemWithoutNetID(t *testing.T) {
	f := newFixture(t, 0)
	local := game.SpawnPlayer(f.world, 0, mgl32.Vec3{})
	item := game.SpawnItem(f.world, "local-only", mgl32.Vec3{})

	NewPipeline(f.driver, SystemFunc(func(ctx *StepContext) {
		ctx.GrabItem(local, item)
	})).Step()

	if len(f.transport.reliable) != 0 {
		t.Fatalf("grab of unmapped item was sent: %+v", f.transport.reliable)
	}
	if !strings.Contains(f.logs.String(), "without net id") {
		t.Fatalf("missing warning, logs: %q", f.logs.String())
	}
}

func TestNoSnapshotBeforeLocalSpawn(t *testing.T) {
	f := newFixture(t, 0)
	NewPipeline(f.driver, SystemFunc(func(ctx *StepContext) {
		ctx.SpawnLocalPlayer(mgl32.Vec3{1, 2, 0})
	})).Step()

	if len(f.transport.unreliable) != 0 {
		t.Fatalf("snapshot sent with no local player")
	}
	if len(f.transport.reliable) != 1 || f.transport.reliable[0] != net.SpawnPlayerEvent(mgl32.Vec3{1, 2, 0}) {
		t.Fatalf("reliable = %+v, want one spawn", f.transport.reliable)
	}
}

func TestMatchReset(t *testing.T) {
	f := newFixture(t, 0)
	f.match.Ticks.Next()
	f.match.ClientTicks.IsLatest(1, 9)
	_ = f.match.NetIDs.Insert(game.SpawnItem(f.world, "x", mgl32.Vec3{}), 1)

	f.match.Reset()
	if f.match.Ticks.Last() != 0 || f.match.NetIDs.Len() != 0 {
		t.Fatalf("reset left state behind")
	}
	if !f.match.ClientTicks.IsLatest(1, 1) {
		t.Fatalf("reset left a watermark behind")
	}
}

func TestRespawnedIndexAcceptsRestartedTicks(t *testing.T) {
	f := newFixture(t, 0)
	f.remote(1, net.SpawnPlayerEvent(mgl32.Vec3{}))
	f.snapshot(1, 500, mgl32.Vec3{50, 0, 0})
	p := NewPipeline(f.driver)
	p.Step()

	// Player 1 disconnects and a new peer takes over the index.
	f.remote(1, net.KillPlayerEvent())
	f.remote(1, net.SpawnPlayerEvent(mgl32.Vec3{10, 10, 0}))
	f.snapshot(1, 1, mgl32.Vec3{12, 10, 0})
	p.Step()

	if got, _ := f.match.ClientTicks.Latest(1); got != 1 {
		t.Fatalf("watermark = %d, want 1", got)
	}
	player, ok := game.FindPlayer(f.world, 1)
	if !ok {
		t.Fatalf("player 1 not respawned")
	}
	if tween := Motion.Get(f.world.Entry(player)); tween.End != (mgl32.Vec3{12, 10, 0}) {
		t.Fatalf("tween target = %v, want (12,10,0)", tween.End)
	}
}

func TestKillForgetsWatermark(t *testing.T) {
	f := newFixture(t, 0)
	f.remote(1, net.SpawnPlayerEvent(mgl32.Vec3{}))
	f.snapshot(1, 40, mgl32.Vec3{})
	p := NewPipeline(f.driver)
	p.Step()

	f.remote(1, net.KillPlayerEvent())
	p.Step()
	if _, ok := f.match.ClientTicks.Latest(1); ok {
		t.Fatalf("watermark survived the kill")
	}
}
