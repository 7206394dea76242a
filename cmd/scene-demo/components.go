package main

import (
	"fmt"
	"image/color"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/scenery/ecs"
	"github.com/plus3/scenery/ecs/debugui"
)

type ResourceKind int

const (
	ResourceTree ResourceKind = iota
	ResourceRock
	ResourceBerryBush

	resourceKinds = 3
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceTree:
		return "wood"
	case ResourceRock:
		return "stone"
	case ResourceBerryBush:
		return "food"
	}
	return fmt.Sprintf("resource(%d)", int(k))
}

var resourceColors = [resourceKinds][3]uint8{
	ResourceTree:      {144, 238, 144},
	ResourceRock:      {169, 169, 169},
	ResourceBerryBush: {255, 182, 193},
}

// Clock advances game time, shows the current day and feeds the glow shader's Time uniform.
type Clock struct {
	ecs.Base
	Elapsed   float32
	DayLength float32
	Day       int
	Time      *ecs.Buffer
}

func (c *Clock) Initialize(ctx *ecs.InitContext) {
	ctx.Actions.RegisterText(c.Id(), ecs.TextSpec{Text: "Day 0", X: 10, Y: 90, Size: 16, Color: color.RGBA{255, 255, 255, 255}})
	c.MarkInitialized()
}

func (c *Clock) Update(frame *ecs.UpdateFrame) {
	c.Elapsed += float32(frame.DeltaTime)
	if c.Time != nil {
		c.Time.Write([]float32{c.Elapsed})
	}
	if day := int(c.Elapsed / c.DayLength); day > c.Day {
		c.Day = day
		frame.Actions.UpdateText(c.Id(), fmt.Sprintf("Day %d", c.Day))
	}
}

// ResourceState is what a resource publishes to its siblings.
type ResourceState struct {
	Cell   [2]int
	Kind   ResourceKind
	Amount int
}

// Resource is a harvestable cell. Colonists report what they took through their snapshot;
// the resource applies it on the following frame.
type Resource struct {
	ecs.Base
	Cell         [2]int
	Kind         ResourceKind
	Amount       int
	MaxAmount    int
	RegrowthRate float32
	RegrowthTime float32
}

func (r *Resource) Initialize(ctx *ecs.InitContext) {
	r.MarkInitialized()
}

func (r *Resource) Update(frame *ecs.UpdateFrame) {
	for _, st := range ecs.SiblingsOf[ColonistState](frame.Siblings) {
		if st.Took == r.Id() && r.Amount > 0 {
			r.Amount--
		}
	}

	if r.Amount < r.MaxAmount {
		r.RegrowthTime += float32(frame.DeltaTime)
		if r.RegrowthTime >= 1.0/r.RegrowthRate {
			r.Amount++
			r.RegrowthTime = 0
		}
	}
}

func (r *Resource) Snapshot() any {
	return ResourceState{Cell: r.Cell, Kind: r.Kind, Amount: r.Amount}
}

func (r *Resource) Render(ctx *ecs.RenderContext) {
	if r.Amount <= 0 {
		return
	}
	scale := 0.3 + 0.3*float32(r.Amount)/float32(r.MaxAmount)
	red, green, blue := rgba(resourceColors[r.Kind])
	drawSquare(ctx.Pass, cellCenter(r.Cell), scale*CellSize, red, green, blue, 1)
}

// ColonyState is what a colony publishes to its siblings.
type ColonyState struct {
	Cell       [2]int
	Population int
}

// Colony collects deliveries from its colonists and grows its population from food.
type Colony struct {
	ecs.Base
	Name          string
	Cell          [2]int
	Color         [3]uint8
	Stock         [resourceKinds]int
	Population    int
	MaxPopulation int
	LabelY        float64

	grid     *Grid
	colonist ecs.MaterialId
	label    string
	rng      *rand.Rand
}

const colonistFoodCost = 5

func (c *Colony) Initialize(ctx *ecs.InitContext) {
	c.rng = rand.New(rand.NewPCG(uint64(c.Id()), uint64(c.Entity())))
	red, green, blue := c.Color[0], c.Color[1], c.Color[2]
	c.label = c.describe()
	ctx.Actions.RegisterText(c.Id(), ecs.TextSpec{Text: c.label, X: 10, Y: c.LabelY, Size: 14, Color: color.RGBA{red, green, blue, 255}})
	c.MarkInitialized()
}

func (c *Colony) Update(frame *ecs.UpdateFrame) {
	population := 0
	for info, st := range ecs.SiblingsOf[ColonistState](frame.Siblings) {
		if st.Colony != c.Entity() {
			continue
		}
		if info.Enabled {
			population++
		}
		if st.Delivered != nil {
			c.Stock[*st.Delivered]++
		}
	}
	c.Population = population

	if c.Population < c.MaxPopulation && c.Stock[ResourceBerryBush] >= colonistFoodCost {
		c.Stock[ResourceBerryBush] -= colonistFoodCost
		start := [2]int{c.Cell[0] + c.rng.IntN(3) - 1, c.Cell[1] + c.rng.IntN(3) - 1}
		frame.Actions.CreateEntity(colonistSpec(c.Entity(), c, start))
	}

	if label := c.describe(); label != c.label {
		c.label = label
		frame.Actions.UpdateText(c.Id(), label)
	}
}

func (c *Colony) describe() string {
	return fmt.Sprintf("%s: pop %d, food %d, wood %d, stone %d",
		c.Name, c.Population, c.Stock[ResourceBerryBush], c.Stock[ResourceTree], c.Stock[ResourceRock])
}

func (c *Colony) Snapshot() any {
	return ColonyState{Cell: c.Cell, Population: c.Population}
}

func (c *Colony) Render(ctx *ecs.RenderContext) {
	red, green, blue := rgba(c.Color)
	drawSquare(ctx.Pass, cellCenter(c.Cell), 2*CellSize, red, green, blue, 1)
}

type ColonistPhase int

const (
	PhaseIdle ColonistPhase = iota
	PhaseAwaitingPath
	PhaseWalking
	PhaseGathering
)

// ColonistState is what a colonist publishes to its siblings. Took and Delivered are set for
// exactly one snapshot after the event happened.
type ColonistState struct {
	Pos       mgl32.Vec2
	Colony    ecs.EntityId
	Took      ecs.ComponentId
	Delivered *ResourceKind
}

// Colonist gathers from the nearest stocked resource and carries one unit home per trip.
// Paths are planned by workloads on the engine's lane.
type Colonist struct {
	ecs.Base
	Colony   ecs.EntityId
	Home     [2]int
	Color    [3]uint8
	Pos      mgl32.Vec2
	Speed    float32
	Phase    ColonistPhase
	Target   ecs.ComponentId
	Carrying *ResourceKind
	Progress float32

	grid      *Grid
	waypoints []mgl32.Vec2
	took      ecs.ComponentId
	delivered *ResourceKind
}

const gatherDuration = 2

func (c *Colonist) Initialize(ctx *ecs.InitContext) {
	c.MarkInitialized()
}

func (c *Colonist) Update(frame *ecs.UpdateFrame) {
	c.took = ecs.NoComponent
	c.delivered = nil

	switch c.Phase {
	case PhaseIdle:
		c.plan(frame)
	case PhaseAwaitingPath:
		c.receivePath(frame)
	case PhaseWalking:
		c.walk(frame)
	case PhaseGathering:
		c.gather(frame)
	}
}

func (c *Colonist) plan(frame *ecs.UpdateFrame) {
	from := cellOf(c.Pos)
	if c.Carrying != nil {
		c.Target = ecs.NoComponent
		frame.Actions.AttachWorkload(c.Id(), pathWorkload(c.grid, from, c.Home))
		c.Phase = PhaseAwaitingPath
		return
	}

	best, bestDist := ecs.NoComponent, -1
	var goal [2]int
	for info, st := range ecs.SiblingsOf[ResourceState](frame.Siblings) {
		if st.Amount <= 0 || !info.Enabled {
			continue
		}
		if d := manhattan(from, st.Cell); bestDist < 0 || d < bestDist {
			best, bestDist, goal = info.Id, d, st.Cell
		}
	}
	if best == ecs.NoComponent {
		return
	}
	c.Target = best
	frame.Actions.AttachWorkload(c.Id(), pathWorkload(c.grid, from, goal))
	c.Phase = PhaseAwaitingPath
}

func (c *Colonist) receivePath(frame *ecs.UpdateFrame) {
	if frame.Outputs.Len() == 0 {
		return
	}
	for i := frame.Outputs.Len() - 1; i >= 0; i-- {
		frame.Actions.FreeWorkloadOutput(c.Id(), i)
	}

	path, ok := ecs.OutputAs[Path](frame.Outputs.At(frame.Outputs.Len() - 1))
	if !ok {
		c.Phase = PhaseIdle
		c.Target = ecs.NoComponent
		return
	}
	c.waypoints = path.Waypoints
	c.Phase = PhaseWalking
}

func (c *Colonist) walk(frame *ecs.UpdateFrame) {
	step := c.Speed * float32(frame.DeltaTime)
	for step > 0 && len(c.waypoints) > 0 {
		delta := c.waypoints[0].Sub(c.Pos)
		dist := delta.Len()
		if dist <= step {
			c.Pos = c.waypoints[0]
			c.waypoints = c.waypoints[1:]
			step -= dist
			continue
		}
		c.Pos = c.Pos.Add(delta.Mul(step / dist))
		step = 0
	}
	if len(c.waypoints) > 0 {
		return
	}

	if c.Carrying != nil {
		c.delivered = c.Carrying
		c.Carrying = nil
		c.Phase = PhaseIdle
		return
	}
	c.Progress = 0
	c.Phase = PhaseGathering
}

func (c *Colonist) gather(frame *ecs.UpdateFrame) {
	st, ok := ecs.SiblingState[ResourceState](frame.Siblings, c.Target)
	if !ok || st.Amount <= 0 {
		c.Phase = PhaseIdle
		c.Target = ecs.NoComponent
		return
	}

	c.Progress += float32(frame.DeltaTime)
	if c.Progress < gatherDuration {
		return
	}
	kind := st.Kind
	c.Carrying = &kind
	c.took = c.Target
	c.Target = ecs.NoComponent
	c.Phase = PhaseIdle
}

func (c *Colonist) Snapshot() any {
	return ColonistState{Pos: c.Pos, Colony: c.Colony, Took: c.took, Delivered: c.delivered}
}

func (c *Colonist) Render(ctx *ecs.RenderContext) {
	red, green, blue := rgba(c.Color)
	drawCircle(ctx.Pass, c.Pos, 0.4*CellSize, red, green, blue, 1)
	if c.Carrying != nil {
		r, g, b := rgba(resourceColors[*c.Carrying])
		drawCircle(ctx.Pass, c.Pos.Add(mgl32.Vec2{0, -0.4 * CellSize}), 0.15*CellSize, r, g, b, 1)
	}
}

// Controls maps keys to actions: Tab toggles the debug UI, G swaps the colonies between the
// flat and glowing materials.
type Controls struct {
	ecs.Base
	DebugUI  ecs.EntityId
	Colonies []ecs.EntityId
	Flat     ecs.MaterialId
	Glow     ecs.MaterialId
	Glowing  bool
}

func (c *Controls) Initialize(ctx *ecs.InitContext) {
	c.MarkInitialized()
}

func (c *Controls) Update(frame *ecs.UpdateFrame) {
	if frame.Input == nil {
		return
	}
	if frame.Input.Tapped("Tab") && c.DebugUI != ecs.NoEntity {
		frame.Actions.ToggleEntity(c.DebugUI)
	}
	if _, keyboard := debugui.InputCaptured(frame); keyboard {
		return
	}
	if frame.Input.Tapped("G") {
		c.Glowing = !c.Glowing
		material := c.Flat
		if c.Glowing {
			material = c.Glow
		}
		for _, id := range c.Colonies {
			frame.Actions.SetEntityMaterial(id, material)
		}
	}
}

// Camera is the orthographic camera, ignoring input that the debug UI has captured.
type Camera struct {
	*ecs.OrthoCamera
}

func NewCamera(width, height float32) *Camera {
	return &Camera{OrthoCamera: ecs.NewOrthoCamera(width, height)}
}

func (c *Camera) Update(frame *ecs.UpdateFrame) {
	if mouse, keyboard := debugui.InputCaptured(frame); mouse || keyboard {
		return
	}
	c.OrthoCamera.Update(frame)
}
