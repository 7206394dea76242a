package main

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/scenery/ecs"
)

const (
	WorldWidth  = 100
	WorldHeight = 100
	CellSize    = 16
)

var pastelColors = [][3]uint8{
	{255, 179, 186},
	{179, 229, 252},
	{255, 223, 186},
	{186, 255, 201},
	{255, 200, 221},
	{186, 225, 255},
	{255, 255, 186},
	{217, 186, 255},
}

// glowShader pulses the vertex color with the Time uniform, scaled by the material's Tint.
const glowShader = `//kage:unit pixels
package main

var Time float
var Tint vec4

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	pulse := 0.8 + 0.2*sin(Time*3.0)
	return color * Tint * pulse
}
`

var (
	flatPipeline = ecs.PipelineId{Label: "flat"}
	glowPipeline = ecs.PipelineId{
		Label:          "glow",
		FragmentShader: glowShader,
		Raster:         ecs.RasterState{Blend: ecs.BlendLighter},
	}
)

// Materials are the demo's materials. Flat materials share one pipeline.
type Materials struct {
	Resources ecs.MaterialId
	Colonists ecs.MaterialId
	Colonies  ecs.MaterialId
	Glow      ecs.MaterialId
	Time      *ecs.Buffer
}

func createMaterials(scene *ecs.Scene) Materials {
	time := ecs.NewBuffer(0)
	return Materials{
		Resources: scene.CreateMaterial(flatPipeline),
		Colonists: scene.CreateMaterial(flatPipeline),
		Colonies:  scene.CreateMaterial(flatPipeline),
		Glow: scene.CreateMaterial(glowPipeline,
			ecs.BufferAttachment("Time", time),
			ecs.BufferAttachment("Tint", ecs.NewBuffer(1, 1, 1, 1)),
		),
		Time: time,
	}
}

// World holds what main needs after the scene is populated.
type World struct {
	Materials Materials
	Camera    *Camera
	Controls  *Controls
	Colonies  []ecs.EntityId
}

// buildWorld populates scene with resources, four colonies, a clock, the controls and the
// active camera.
func buildWorld(scene *ecs.Scene, rng *rand.Rand, screenW, screenH int) *World {
	w := &World{Materials: createMaterials(scene)}

	blocked := spawnResources(scene, rng, w.Materials.Resources)

	colonyPositions := [][2]int{
		{20, 20},
		{80, 20},
		{20, 80},
		{80, 80},
	}
	for i, pos := range colonyPositions {
		color := pastelColors[i%len(pastelColors)]
		id := spawnColony(scene, rng, w.Materials, blocked, pos, color, i)
		w.Colonies = append(w.Colonies, id)
	}

	scene.CreateEntity(ecs.NewEntitySpec(&Clock{DayLength: 60, Time: w.Materials.Time}))

	w.Controls = &Controls{Colonies: w.Colonies, Flat: w.Materials.Colonies, Glow: w.Materials.Glow}
	scene.CreateEntity(ecs.NewEntitySpec(w.Controls))

	w.Camera = NewCamera(float32(screenW), float32(screenH))
	w.Camera.Position = mgl32.Vec2{WorldWidth * CellSize / 2, WorldHeight * CellSize / 2}
	w.Camera.Zoom = 0.5
	w.Camera.PanSpeed = 600
	scene.CreateEntity(ecs.NewEntitySpec(w.Camera))

	actions := ecs.NewActionQueue()
	actions.SetActiveCamera(w.Camera.Id())
	scene.ExecuteActionQueue(actions)
	return w
}

func spawnResources(scene *ecs.Scene, rng *rand.Rand, material ecs.MaterialId) *Grid {
	grid := NewGrid(WorldWidth, WorldHeight)
	for i := 0; i < 200; i++ {
		x := rng.IntN(WorldWidth)
		y := rng.IntN(WorldHeight)

		var kind ResourceKind
		var amount int
		roll := rng.Float32()
		if roll < 0.5 {
			kind, amount = ResourceTree, 20
		} else if roll < 0.8 {
			kind, amount = ResourceRock, 15
			grid.Block(x, y)
		} else {
			kind, amount = ResourceBerryBush, 10
		}

		scene.CreateEntity(ecs.NewEntitySpec(&Resource{
			Cell:         [2]int{x, y},
			Kind:         kind,
			Amount:       amount,
			MaxAmount:    amount,
			RegrowthRate: 0.1,
		}).WithMaterial(material))
	}
	return grid
}

func spawnColony(scene *ecs.Scene, rng *rand.Rand, m Materials, grid *Grid, cell [2]int, color [3]uint8, index int) ecs.EntityId {
	colony := &Colony{
		Name:          colonyNames[index%len(colonyNames)],
		Cell:          cell,
		Color:         color,
		Stock:         [resourceKinds]int{ResourceBerryBush: 10},
		MaxPopulation: 12,
		LabelY:        float64(10 + 20*index),
		grid:          grid,
		colonist:      m.Colonists,
	}
	id := scene.CreateEntity(ecs.NewEntitySpec(colony).WithMaterial(m.Colonies))

	for i := 0; i < 5; i++ {
		start := [2]int{cell[0] + rng.IntN(5) - 2, cell[1] + rng.IntN(5) - 2}
		scene.CreateEntity(colonistSpec(id, colony, start))
	}
	return id
}

var colonyNames = []string{"Amber", "Brook", "Cinder", "Dune"}

func colonistSpec(colonyId ecs.EntityId, colony *Colony, start [2]int) ecs.EntitySpec {
	return ecs.NewEntitySpec(&Colonist{
		Colony: colonyId,
		Home:   colony.Cell,
		Color:  colony.Color,
		Pos:    cellCenter(start),
		Speed:  10 * CellSize,
		grid:   colony.grid,
	}).WithParent(colonyId).WithMaterial(colony.colonist)
}

func cellCenter(cell [2]int) mgl32.Vec2 {
	return mgl32.Vec2{(float32(cell[0]) + 0.5) * CellSize, (float32(cell[1]) + 0.5) * CellSize}
}

func cellOf(p mgl32.Vec2) [2]int {
	return [2]int{int(p.X() / CellSize), int(p.Y() / CellSize)}
}

func rgba(c [3]uint8) (r, g, b float32) {
	return float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255
}
