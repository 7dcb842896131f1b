package main

import (
	"fishnet/internal/client"
	"fishnet/internal/game"
	"fishnet/internal/net"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// gameplay drives the local player from the keyboard.
type gameplay struct {
	walls   []game.Wall
	dt      float32
	spawned bool
	frame   uint32
}

func newGameplay(m *client.Match) *gameplay {
	return &gameplay{
		walls: game.ArenaWalls(),
		dt:    float32(m.FixedTimestep().Seconds()),
	}
}

func (g *gameplay) Update(ctx *client.StepContext) {
	idx := ctx.LocalPlayerIdx()
	player, alive := game.FindPlayer(ctx.World, idx)

	if !g.spawned {
		g.spawned = true
		g.spawn(ctx)
		return
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyK) {
		if alive {
			game.DespawnRecursive(ctx.World, ctx.Match.NetIDs, player)
			ctx.KillLocalPlayer()
		} else {
			g.spawn(ctx)
		}
		return
	}
	if !alive {
		return
	}

	var dir mgl32.Vec3
	if ebiten.IsKeyPressed(ebiten.KeyW) {
		dir[1]--
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		dir[1]++
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		dir[0]--
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		dir[0]++
	}

	pos, _ := game.Position(ctx.World, player)
	pose := net.AnimationPose{Animation: "idle", Playing: true}
	if dir.Len() > 0 {
		pos = game.MovePlayer(pos, dir.Normalize(), g.dt, g.walls)
		game.SetPosition(ctx.World, player, pos)
		g.frame++
		pose = net.AnimationPose{Animation: "walk", Frame: g.frame / 6 % 4, Playing: true, FlipX: dir.X() < 0}
	}
	game.SetSprite(ctx.World, player, pose)

	if inpututil.IsKeyJustPressed(ebiten.KeyE) {
		if item, ok := game.NearestFreeItem(ctx.World, pos, game.GrabRadius); ok {
			game.Attach(ctx.World, player, item)
			ctx.GrabItem(player, item)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		held := game.HeldItems(ctx.World, player)
		if len(held) > 0 {
			for _, item := range held {
				game.SetPosition(ctx.World, item, pos)
				game.Detach(ctx.World, item)
			}
			ctx.DropItem(player)
		}
	}
}

func (g *gameplay) spawn(ctx *client.StepContext) {
	pos := game.SpawnPoint(ctx.LocalPlayerIdx())
	game.SpawnPlayer(ctx.World, ctx.LocalPlayerIdx(), pos)
	ctx.SpawnLocalPlayer(pos)
}
