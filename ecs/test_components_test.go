package ecs_test

import (
	"sync/atomic"

	"github.com/plus3/scenery/ecs"
)

// Common test component types

// Counter counts its Initialize and Update calls.
type Counter struct {
	ecs.Base
	Label   string
	Inits   int
	Updates int
	Renders int
}

func NewCounter(label string, order int) *Counter {
	return &Counter{Base: ecs.NewBase(order, true), Label: label}
}

func (c *Counter) Initialize(ctx *ecs.InitContext) {
	c.Inits++
	c.MarkInitialized()
}

func (c *Counter) Update(frame *ecs.UpdateFrame) {
	c.Updates++
}

func (c *Counter) Render(ctx *ecs.RenderContext) {
	c.Renders++
}

// Position publishes its coordinates to siblings and moves by Velocity each update.
type Position struct {
	ecs.Base
	X, Y   float32
	DX, DY float32
}

type PositionState struct {
	X, Y float32
}

func (p *Position) Initialize(ctx *ecs.InitContext) { p.MarkInitialized() }

func (p *Position) Update(frame *ecs.UpdateFrame) {
	p.X += p.DX
	p.Y += p.DY
}

func (p *Position) Snapshot() any {
	return PositionState{X: p.X, Y: p.Y}
}

// Observer records what it saw of a target sibling each frame.
type Observer struct {
	ecs.Base
	Target   ecs.ComponentId
	Seen     []PositionState
	Siblings []int
}

func (o *Observer) Initialize(ctx *ecs.InitContext) { o.MarkInitialized() }

func (o *Observer) Update(frame *ecs.UpdateFrame) {
	o.Siblings = append(o.Siblings, frame.Siblings.Len())
	if st, ok := ecs.SiblingState[PositionState](frame.Siblings, o.Target); ok {
		o.Seen = append(o.Seen, st)
	}
}

// Scripted queues whatever its Script function returns on each update.
type Scripted struct {
	ecs.Base
	OnInit func(c *Scripted, ctx *ecs.InitContext)
	Script func(c *Scripted, frame *ecs.UpdateFrame)
}

func (s *Scripted) Initialize(ctx *ecs.InitContext) {
	if s.OnInit != nil {
		s.OnInit(s, ctx)
	}
	s.MarkInitialized()
}

func (s *Scripted) Update(frame *ecs.UpdateFrame) {
	if s.Script != nil {
		s.Script(s, frame)
	}
}

// Lazy forgets to mark itself initialized.
type Lazy struct {
	ecs.Base
}

func (l *Lazy) Initialize(ctx *ecs.InitContext) {}

func (l *Lazy) Update(frame *ecs.UpdateFrame) {}

// Concurrent tracks how many updates overlap.
type Concurrent struct {
	ecs.Base
	Active  *atomic.Int32
	Peak    *atomic.Int32
	Release <-chan struct{}
}

func (c *Concurrent) Initialize(ctx *ecs.InitContext) { c.MarkInitialized() }

func (c *Concurrent) Update(frame *ecs.UpdateFrame) {
	n := c.Active.Add(1)
	for {
		peak := c.Peak.Load()
		if n <= peak || c.Peak.CompareAndSwap(peak, n) {
			break
		}
	}
	<-c.Release
	c.Active.Add(-1)
}

// appendLog is a Defer action that records a label on the shared log.
func appendLog(log *[]string, label string) ecs.Action {
	return ecs.Defer{Fn: func(*ecs.Scene) { *log = append(*log, label) }}
}

func newTestScene() *ecs.Scene {
	return ecs.NewScene(1, ecs.SceneOptions{Name: "test"})
}
