package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/scenery/config"
	"github.com/plus3/scenery/ecs"
	"github.com/plus3/scenery/ecs/debugui"
	debugui_ebiten "github.com/plus3/scenery/ecs/debugui/ebiten"
	"github.com/plus3/scenery/render/ebitenrender"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML or YAML config file.")
	seed := flag.Uint64("seed", 0, "World seed (0 picks one at random).")
	flag.Parse()

	cfg := config.Default()
	cfg.Window.Title = "World Simulator - Scene Example"
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	logger := cfg.NewLogger()
	ecs.SetLogger(logger)

	text, err := ebitenrender.NewTextSystem()
	if err != nil {
		logger.Error("text system", "err", err)
		os.Exit(1)
	}

	engineOpts := cfg.EngineOptions()
	engineOpts.Text = text
	engine := ecs.NewEngine(engineOpts)
	defer engine.Close()

	var imguiBackend *debugui_ebiten.ImguiBackend
	if cfg.Debug.Enabled {
		imguiBackend = debugui_ebiten.NewImguiBackend(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	}

	game := ebitenrender.NewGame(engine, ebitenrender.GameOptions{
		Width:        cfg.Window.Width,
		Height:       cfg.Window.Height,
		Imgui:        imguiBackend,
		QuitOnEscape: true,
		Resizable:    cfg.Window.Resizable,
	})

	if *seed == 0 {
		*seed = rand.Uint64()
	}
	logger.Info("building world", "seed", *seed)
	scene := engine.NewScene("world")
	world := buildWorld(scene, rand.New(rand.NewPCG(*seed, *seed>>1)), cfg.Window.Width, cfg.Window.Height)

	if cfg.Debug.Enabled {
		world.Controls.DebugUI, _ = debugui.SpawnDebugUI(scene, debugui.Options{
			Lane:            engine.Lane(),
			EntitiesPerPage: cfg.Debug.EntitiesPerPage,
			HistoryFrames:   cfg.Debug.HistoryFrames,
		})
	}

	if err := ebitenrender.Run(cfg.Window.Title, game); err != nil && err != ebiten.Termination {
		logger.Error("game loop", "err", err)
		os.Exit(1)
	}
}
