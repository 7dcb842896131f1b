package game

import "github.com/go-gl/mathgl/mgl32"

const WorldSize = 800.0

// Wall is an axis-aligned obstacle in arena coordinates.
type Wall struct {
	X, Y, W, H float32
}

// ArenaWalls returns the fixed obstacle layout: a broken ring around the
// centre plus one pillar in front of each corner spawn.
func ArenaWalls() []Wall {
	walls := []Wall{
		{X: 260, Y: 250, W: 110, H: 16},
		{X: 430, Y: 250, W: 110, H: 16},
		{X: 260, Y: 534, W: 110, H: 16},
		{X: 430, Y: 534, W: 110, H: 16},
		{X: 250, Y: 330, W: 16, H: 140},
		{X: 534, Y: 330, W: 16, H: 140},
	}
	for _, sp := range SpawnPoints {
		// pillar between the spawn and the centre
		cx := sp.X() + (WorldSize/2-sp.X())*0.3
		cy := sp.Y() + (WorldSize/2-sp.Y())*0.3
		walls = append(walls, Wall{X: cx - 12, Y: cy - 12, W: 24, H: 24})
	}
	return walls
}

var SpawnPoints = []mgl32.Vec3{
	{80, 80, 0},
	{720, 720, 0},
	{720, 80, 0},
	{80, 720, 0},
}

// SpawnPoint returns the spawn point for a player index.
func SpawnPoint(idx int) mgl32.Vec3 {
	if idx < 0 {
		idx = -idx
	}
	return SpawnPoints[idx%len(SpawnPoints)]
}
