package ecs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	// UpdateWorkers bounds concurrent component updates per scene. Zero means unbounded.
	UpdateWorkers int
	// Lane configures the workload lane shared by every scene.
	Lane LaneOptions
	// Text is installed on every scene the engine creates.
	Text TextSystem
	// Device is passed to every frame driven by Once or Run.
	Device Device
}

// EngineStats aggregates statistics for every scene and the workload lane.
type EngineStats struct {
	Active SceneIndex
	Scenes []SceneStats
	Lane   LaneStats
}

// Engine owns the scene sequence, the workload lane and the set of live scenes. Exactly one
// scene is active at a time; Once and Run update only the active scene.
type Engine struct {
	opts   EngineOptions
	seq    SceneSequence
	lane   *WorkloadLane
	scenes []*Scene
	active *Scene
	log    *slog.Logger
}

// NewEngine creates an engine and starts its workload lane.
func NewEngine(opts EngineOptions) *Engine {
	return &Engine{
		opts: opts,
		lane: NewWorkloadLane(opts.Lane),
		log:  Logger().With("subsystem", "engine"),
	}
}

// NewScene creates a scene wired to the engine's workload lane and text system. The first
// scene created becomes active.
func (e *Engine) NewScene(name string) *Scene {
	index := e.seq.Next()
	s := NewScene(index, SceneOptions{
		Name:          name,
		UpdateWorkers: e.opts.UpdateWorkers,
		Workloads:     e.lane,
		Completions:   e.lane.Attach(index),
		Text:          e.opts.Text,
	})
	e.scenes = append(e.scenes, s)
	if e.active == nil {
		e.active = s
	}
	e.log.Info("ecs: scene created", "scene", uint64(index), "name", name)
	return s
}

// Scenes returns the live scenes in creation order.
func (e *Engine) Scenes() []*Scene {
	return e.scenes
}

// Scene returns the scene with the given index.
func (e *Engine) Scene(index SceneIndex) (*Scene, bool) {
	for _, s := range e.scenes {
		if s.index == index {
			return s, true
		}
	}
	return nil, false
}

// SetActive makes the scene with the given index the active one. An unknown index panics.
func (e *Engine) SetActive(index SceneIndex) {
	s, ok := e.Scene(index)
	if !ok {
		panic(fmt.Sprintf("ecs: scene %d does not exist", index))
	}
	e.active = s
	e.log.Info("ecs: active scene changed", "scene", uint64(index), "name", s.name)
}

// Active returns the active scene, or nil when no scene exists.
func (e *Engine) Active() *Scene {
	return e.active
}

// RemoveScene drops a scene and detaches it from the workload lane. Removing the active scene
// leaves the engine without one until SetActive is called.
func (e *Engine) RemoveScene(index SceneIndex) {
	for i, s := range e.scenes {
		if s.index != index {
			continue
		}
		e.scenes = append(e.scenes[:i], e.scenes[i+1:]...)
		e.lane.Detach(index)
		if e.active == s {
			e.active = nil
		}
		e.log.Info("ecs: scene removed", "scene", uint64(index), "name", s.name)
		return
	}
}

// SetDevice replaces the device passed to frames driven by Once and Run.
func (e *Engine) SetDevice(d Device) {
	e.opts.Device = d
}

// Lane returns the engine's workload lane.
func (e *Engine) Lane() *WorkloadLane {
	return e.lane
}

// Once updates the active scene with the given delta time and input.
func (e *Engine) Once(dt float64, input InputState) {
	if e.active == nil {
		return
	}
	e.active.Update(FrameInput{DeltaTime: dt, Device: e.opts.Device, Input: input})
}

// Run updates the active scene at the given interval until the context is cancelled. input
// may be nil.
func (e *Engine) Run(ctx context.Context, interval time.Duration, input func() InputState) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now

			var in InputState
			if input != nil {
				in = input()
			}
			e.Once(dt, in)
		}
	}
}

// Stats returns statistics for every scene and the lane.
func (e *Engine) Stats() EngineStats {
	stats := EngineStats{
		Scenes: make([]SceneStats, len(e.scenes)),
		Lane:   e.lane.Stats(),
	}
	if e.active != nil {
		stats.Active = e.active.index
	}
	for i, s := range e.scenes {
		stats.Scenes[i] = s.Stats()
	}
	return stats
}

// Close shuts down the workload lane. Running workloads see their context cancelled; their
// results are discarded.
func (e *Engine) Close() {
	e.lane.Close()
}
