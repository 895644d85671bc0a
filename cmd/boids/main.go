package main

import (
	"flag"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lao-tseu-is-alive/go-flocking-simulation/internal/driver"
	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flocking-simulation/pkg/simulation"
	"go.uber.org/zap"
)

type Game struct {
	flock *simulation.Flock
	log   *zap.Logger

	// current viewport, follows window resizes
	width, height int
}

func (g *Game) Update() error {
	bounds := geometry.NewRect(float64(g.width), float64(g.height))
	if err := bounds.Validate(); err != nil {
		// Minimized window: keep the flock frozen until it has a size again.
		g.log.Debug("skipping step", zap.Error(err))
		return nil
	}
	g.flock.Step(bounds)
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 10, G: 10, B: 30, A: 255})

	for _, b := range g.flock.All() {
		drawBoid(screen, b)
	}
}

// drawBoid renders a triangle pointing along the velocity.
func drawBoid(screen *ebiten.Image, b behavior.Boid) {
	angle := b.Heading()

	tip := b.Pos.Add(geometry.NewVectorPolar(8, angle))
	right := b.Pos.Add(geometry.NewVectorPolar(6, angle+2.5))
	left := b.Pos.Add(geometry.NewVectorPolar(6, angle-2.5))

	vertices := []ebiten.Vertex{
		vertex(tip),
		vertex(right),
		vertex(left),
	}
	indices := []uint16{0, 1, 2}

	screen.DrawTriangles(vertices, indices, whiteImage, &ebiten.DrawTrianglesOptions{})
}

func vertex(p geometry.Vector2D) ebiten.Vertex {
	return ebiten.Vertex{
		DstX: float32(p.X),
		DstY: float32(p.Y),
		SrcX: 1, SrcY: 1,
		ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.width, g.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

var whiteImage = ebiten.NewImage(3, 3)

func init() {
	whiteImage.Fill(color.RGBA{R: 100, G: 200, B: 255, A: 255})
}

func main() {
	configFile := flag.String("config", "", "JSON or TOML config file (defaults built in)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	seed := flag.Int64("seed", 0, "random seed for the initial positions, overrides the config")
	flag.Parse()

	logger, err := driver.NewLogger(*logLevel, true)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := driver.LoadConfig(*configFile)
	if err != nil {
		logger.Fatal("cannot load config", zap.String("file", *configFile), zap.Error(err))
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	flock, _, err := driver.NewFlock(cfg, logger)
	if err != nil {
		logger.Fatal("cannot start simulation", zap.Error(err))
	}

	g := &Game{
		flock:  flock,
		log:    logger,
		width:  int(cfg.Width),
		height: int(cfg.Height),
	}

	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowTitle("Boids")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		logger.Fatal("game loop stopped", zap.Error(err))
	}
}
