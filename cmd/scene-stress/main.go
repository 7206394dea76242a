package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/scenery/config"
	"github.com/plus3/scenery/ecs"
)

type options struct {
	configPath     string
	duration       time.Duration
	entities       int
	neighbors      int
	workloadEvery  uint64
	workloadSize   int
	spawnBudget    int
	blinkEvery     uint64
	updateWorkers  int
	laneWorkers    int
	profileMode    string
	gcPauseMetrics bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to a TOML or YAML config file.")
	flag.DurationVar(&opts.duration, "duration", 10*time.Second, "The total duration the test should run for.")
	flag.IntVar(&opts.entities, "entities", 2000, "The initial number of particle entities to create.")
	flag.IntVar(&opts.neighbors, "neighbors", 8, "Siblings each particle samples per frame.")
	flag.Uint64Var(&opts.workloadEvery, "workload-every", 10, "Frames between workload submissions per cruncher (0 disables).")
	flag.IntVar(&opts.workloadSize, "workload-size", 100000, "Iterations of each summing workload.")
	flag.IntVar(&opts.spawnBudget, "spawn", 500, "Entities each spawner may create during the run.")
	flag.Uint64Var(&opts.blinkEvery, "blink-every", 30, "Frames between entity toggles (0 disables).")
	flag.IntVar(&opts.updateWorkers, "update-workers", -1, "Override engine.update_workers (-1 keeps the config value).")
	flag.IntVar(&opts.laneWorkers, "lane-workers", -1, "Override workloads.workers (-1 keeps the config value).")
	flag.StringVar(&opts.profileMode, "profile", "", "Write a pprof profile: cpu or mem.")
	flag.BoolVar(&opts.gcPauseMetrics, "gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if opts.updateWorkers >= 0 {
		cfg.Engine.UpdateWorkers = opts.updateWorkers
	}
	if opts.laneWorkers >= 0 {
		cfg.Workloads.Workers = opts.laneWorkers
	}

	logger := cfg.NewLogger()
	ecs.SetLogger(logger)

	switch opts.profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "":
	default:
		logger.Error("unknown profile mode", "mode", opts.profileMode)
		os.Exit(2)
	}

	report, err := run(context.Background(), logger, cfg, opts)
	if err != nil {
		logger.Error("stress test failed", "err", err)
		os.Exit(1)
	}

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		logger.Error("failed to generate report", "err", err)
		os.Exit(1)
	}
	fmt.Println("--- End of Report ---")
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config, opts options) (*Report, error) {
	logger.Info("starting scene stress test")

	engine := ecs.NewEngine(cfg.EngineOptions())
	defer engine.Close()
	scene := engine.NewScene("stress")

	logger.Info("populating scene", "entities", opts.entities)
	workers := populate(scene, opts)
	logger.Info("population complete", "components", len(scene.Components()))

	report := &Report{
		Duration:       opts.duration,
		Entities:       opts.entities,
		Components:     len(scene.Components()),
		UpdateWorkers:  cfg.Engine.UpdateWorkers,
		LaneWorkers:    cfg.Workloads.Workers,
		GCPauseMetrics: opts.gcPauseMetrics,
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info("running simulation", "duration", opts.duration)
	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := time.Now()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			engine.Once(deltaTime.Seconds(), ecs.InputState{})
			report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
			report.TotalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	stats := engine.Stats()
	report.Scene = scene.Stats()
	report.Lane = stats.Lane
	report.Consumed, report.Spawned = workers.totals()

	logger.Info("simulation finished", "frames", report.TotalUpdates)
	return report, nil
}

type population struct {
	crunchers []*Cruncher
	spawners  []*Spawner
}

func (p population) totals() (consumed, spawned int) {
	for _, c := range p.crunchers {
		consumed += c.Consumed
	}
	for _, s := range p.spawners {
		spawned += s.Spawned
	}
	return consumed, spawned
}

// populate builds the initial world: a root per hundred particles, each root holding a
// cruncher, a spawner and a blinker that toggles the previous root's first particle.
func populate(scene *ecs.Scene, opts options) population {
	var pop population
	var lastParticle ecs.EntityId

	for i := 0; i < opts.entities; i++ {
		if i%100 == 0 {
			cruncher := &Cruncher{Every: opts.workloadEvery, Size: opts.workloadSize}
			spawner := &Spawner{Every: 5, Budget: opts.spawnBudget / max(1, opts.entities/100), Neighbors: opts.neighbors}
			components := []ecs.Component{cruncher, spawner}
			if lastParticle != ecs.NoEntity {
				components = append(components, &Blinker{Target: lastParticle, Every: opts.blinkEvery})
			}
			scene.CreateEntity(ecs.NewEntitySpec(components...))
			pop.crunchers = append(pop.crunchers, cruncher)
			pop.spawners = append(pop.spawners, spawner)
		}
		lastParticle = scene.CreateEntity(ecs.NewEntitySpec(NewParticle(uint64(i), opts.neighbors)))
	}
	return pop
}
