package main

import (
	"fmt"
	"image/color"
	"log"
	"os"

	"fishnet/internal/client"
	"fishnet/internal/config"
	"fishnet/internal/game"
	"fishnet/internal/net"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/yohamta/donburi"
)

type Game struct {
	netClient *client.NetClient
	renderer  *client.Renderer
	logger    *log.Logger
	walls     []game.Wall

	match    *client.Match
	world    donburi.World
	driver   *client.Driver
	pipeline *client.Pipeline
}

func NewGame(cfg config.Config, logger *log.Logger) (*Game, error) {
	codec, err := net.CodecByName(cfg.WireCodec)
	if err != nil {
		return nil, err
	}
	netClient, err := client.NewNetClient(cfg.ServerAddr, codec, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &Game{
		netClient: netClient,
		renderer:  client.NewRenderer(),
		logger:    logger,
		walls:     game.ArenaWalls(),
	}, nil
}

// join builds the match once the server has told us who we are.
func (g *Game) join(info net.ClientMatchInfo) {
	g.match = client.NewMatch(info)
	g.world = donburi.NewWorld()
	interp := client.NewInterpolator(g.match.FixedTimestep())
	g.driver = client.NewDriver(g.netClient, g.world, g.match, interp, g.logger)
	g.pipeline = client.NewPipeline(g.driver, newGameplay(g.match))

	ebiten.SetTPS(info.TickHz)
	g.logger.Printf("Connected! Player %d in match %s (%d Hz)", info.PlayerIdx, info.MatchID, info.TickHz)
}

func (g *Game) Update() error {
	select {
	case <-g.netClient.Done():
		return fmt.Errorf("disconnected from server")
	default:
	}

	if g.pipeline == nil {
		if welcome := g.netClient.GetWelcome(); welcome != nil {
			g.join(*welcome)
		}
	}
	if g.pipeline != nil {
		g.pipeline.Step()
	}

	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.pipeline == nil {
		screen.Fill(color.RGBA{200, 200, 200, 255})
		ebitenutil.DebugPrint(screen, "Waiting for server...")
		return
	}

	g.driver.Interpolator().Animate(g.world)
	g.renderer.Draw(screen, g.world, g.walls, g.match.Info.PlayerIdx)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return client.ScreenWidth, client.ScreenHeight
}

func main() {
	config.InitConfig()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)

	ebiten.SetWindowSize(client.ScreenWidth, client.ScreenHeight)
	ebiten.SetWindowTitle("fishnet")

	g, err := NewGame(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer g.netClient.Close()

	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
