package client

import (
	"fmt"
	"image/color"

	"fishnet/internal/game"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/yohamta/donburi"
)

const (
	ScreenWidth  = int(game.WorldSize)
	ScreenHeight = int(game.WorldSize)
	ItemSize     = 10.0
)

var playerColors = []color.RGBA{
	{230, 90, 60, 255},
	{60, 140, 230, 255},
	{80, 190, 90, 255},
	{220, 190, 50, 255},
}

// Renderer draws the replicated world top-down. It only reads the world.
type Renderer struct {
	background color.RGBA
	wall       color.RGBA
	item       color.RGBA
}

func NewRenderer() *Renderer {
	return &Renderer{
		background: color.RGBA{245, 245, 240, 255},
		wall:       color.RGBA{60, 60, 70, 255},
		item:       color.RGBA{150, 100, 40, 255},
	}
}

func (r *Renderer) Draw(screen *ebiten.Image, w donburi.World, walls []game.Wall, localIdx int) {
	screen.Fill(r.background)

	for _, wall := range walls {
		vector.DrawFilledRect(screen, wall.X, wall.Y, wall.W, wall.H, r.wall, false)
	}

	for idx, e := range game.Players(w) {
		pos, _ := game.Position(w, e)
		c := playerColors[idx%len(playerColors)]
		vector.DrawFilledCircle(screen, pos.X(), pos.Y(), game.PlayerRadius, c, true)
		if idx == localIdx {
			vector.StrokeCircle(screen, pos.X(), pos.Y(), game.PlayerRadius+3, 2, color.Black, true)
		}
	}

	for _, e := range game.Items(w) {
		pos, ok := game.WorldPosition(w, e)
		if !ok {
			continue
		}
		vector.DrawFilledRect(screen, pos.X()-ItemSize/2, pos.Y()-ItemSize/2, ItemSize, ItemSize, r.item, false)
	}

	ebitenutil.DebugPrint(screen, fmt.Sprintf("player %d  FPS %.0f  TPS %.0f\nWASD move  E grab  Q drop  K respawn",
		localIdx, ebiten.ActualFPS(), ebiten.ActualTPS()))
}
