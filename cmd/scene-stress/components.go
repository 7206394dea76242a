package main

import (
	"context"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/scenery/ecs"
)

// Particle drifts toward the mean position of a few sampled siblings.
type Particle struct {
	ecs.Base
	Pos       mgl32.Vec2
	Vel       mgl32.Vec2
	Neighbors int
	rng       *rand.Rand
}

func NewParticle(seed uint64, neighbors int) *Particle {
	rng := rand.New(rand.NewPCG(seed, 0x5ce9e))
	return &Particle{
		Pos:       mgl32.Vec2{rng.Float32()*200 - 100, rng.Float32()*200 - 100},
		Vel:       mgl32.Vec2{rng.Float32() - 0.5, rng.Float32() - 0.5},
		Neighbors: neighbors,
		rng:       rng,
	}
}

func (p *Particle) Initialize(ctx *ecs.InitContext) {
	p.MarkInitialized()
}

func (p *Particle) Update(frame *ecs.UpdateFrame) {
	n := frame.Siblings.Len()
	if n > 0 && p.Neighbors > 0 {
		var center mgl32.Vec2
		seen := 0
		start := p.rng.IntN(n)
		for i := 0; i < p.Neighbors && i < n; i++ {
			info := frame.Siblings.At((start + i) % n)
			if pos, ok := info.State.(mgl32.Vec2); ok {
				center = center.Add(pos)
				seen++
			}
		}
		if seen > 0 {
			center = center.Mul(1 / float32(seen))
			p.Vel = p.Vel.Add(center.Sub(p.Pos).Mul(0.01))
		}
	}
	p.Pos = p.Pos.Add(p.Vel.Mul(float32(frame.DeltaTime)))
}

func (p *Particle) Snapshot() any {
	return p.Pos
}

// Cruncher submits a summing workload every Every frames and frees outputs as it consumes
// them.
type Cruncher struct {
	ecs.Base
	Every    uint64
	Size     int
	Consumed int
	Total    int
}

func (c *Cruncher) Initialize(ctx *ecs.InitContext) {
	c.MarkInitialized()
}

func (c *Cruncher) Update(frame *ecs.UpdateFrame) {
	for i := frame.Outputs.Len() - 1; i >= 0; i-- {
		if sum, ok := ecs.OutputAs[int](frame.Outputs.At(i)); ok {
			c.Total += sum
		}
		c.Consumed++
		frame.Actions.FreeWorkloadOutput(c.Id(), i)
	}

	if c.Every > 0 && frame.Frame%c.Every == 0 {
		size := c.Size
		frame.Actions.AttachWorkload(c.Id(), ecs.Workload{
			Name: "sum",
			Run: func(ctx context.Context) (any, error) {
				sum := 0
				for i := 0; i < size; i++ {
					if i%1024 == 0 && ctx.Err() != nil {
						return nil, ctx.Err()
					}
					sum += i
				}
				return sum, nil
			},
		})
	}
}

// Spawner creates a child entity holding a particle every Every frames until its budget is
// spent.
type Spawner struct {
	ecs.Base
	Every     uint64
	Budget    int
	Neighbors int
	Spawned   int
}

func (s *Spawner) Initialize(ctx *ecs.InitContext) {
	s.MarkInitialized()
}

func (s *Spawner) Update(frame *ecs.UpdateFrame) {
	if s.Budget <= 0 || s.Every == 0 || frame.Frame%s.Every != 0 {
		return
	}
	s.Budget--
	s.Spawned++
	seed := uint64(s.Id())<<32 | uint64(s.Spawned)
	frame.Actions.CreateEntity(ecs.NewEntitySpec(NewParticle(seed, s.Neighbors)).WithParent(s.Entity()))
}

// Blinker toggles one entity every Every frames.
type Blinker struct {
	ecs.Base
	Target ecs.EntityId
	Every  uint64
}

func (b *Blinker) Initialize(ctx *ecs.InitContext) {
	b.MarkInitialized()
}

func (b *Blinker) Update(frame *ecs.UpdateFrame) {
	if b.Every > 0 && frame.Frame%b.Every == 0 {
		frame.Actions.ToggleEntity(b.Target)
	}
}
