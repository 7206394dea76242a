package ebitenrender

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/plus3/scenery/ecs"
	debugui_ebiten "github.com/plus3/scenery/ecs/debugui/ebiten"
)

// GameOptions configures a Game.
type GameOptions struct {
	Width, Height int
	Background    color.Color
	// Imgui, when set, wraps every engine frame in an ImGui frame and overlays its output.
	Imgui *debugui_ebiten.ImguiBackend
	// QuitOnEscape ends the game when Escape or Q is pressed.
	QuitOnEscape bool
	Resizable    bool
}

// Game drives an ecs.Engine from Ebiten's game loop: Update samples input and advances the
// active scene, Draw runs the draw walk and the UI text pass.
type Game struct {
	engine  *ecs.Engine
	device  *Device
	backend *Backend
	input   InputSampler
	opts    GameOptions
}

// NewGame installs a device on engine and returns a game ready for ebiten.RunGame. Scenes
// created afterwards should use the engine's text system, typically from NewTextSystem.
func NewGame(engine *ecs.Engine, opts GameOptions) *Game {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 720
	}
	if opts.Background == nil {
		opts.Background = color.RGBA{20, 20, 30, 255}
	}
	device := NewDevice(opts.Width, opts.Height)
	engine.SetDevice(device)

	return &Game{
		engine:  engine,
		device:  device,
		backend: NewBackend(device),
		opts:    opts,
	}
}

func (g *Game) Device() *Device {
	return g.device
}

func (g *Game) Backend() *Backend {
	return g.backend
}

func (g *Game) Update() error {
	if g.opts.QuitOnEscape && (inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ)) {
		return ebiten.Termination
	}

	input := g.input.Sample()
	dt := 1.0 / float64(ebiten.TPS())

	if g.opts.Imgui != nil {
		return g.opts.Imgui.Frame(func() error {
			g.engine.Once(dt, input)
			return nil
		})
	}
	g.engine.Once(dt, input)
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(g.opts.Background)

	if scene := g.engine.Active(); scene != nil {
		g.backend.DrawScene(screen, scene)
		DrawUI(screen, scene)
	}

	if g.opts.Imgui != nil {
		g.opts.Imgui.Overlay(screen)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.device.SetScreenSize(outsideWidth, outsideHeight)
	if g.opts.Imgui != nil {
		g.opts.Imgui.Layout(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}

// Run opens a window and blocks until the game ends.
func Run(title string, game *Game) error {
	ebiten.SetWindowSize(game.opts.Width, game.opts.Height)
	ebiten.SetWindowTitle(title)
	if game.opts.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	} else {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	}
	return ebiten.RunGame(game)
}
