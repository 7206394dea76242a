package ebitenrender_test

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/scenery/ecs"
	"github.com/plus3/scenery/render/ebitenrender"
)

const tint = `//kage:unit pixels
package main

var Color vec4

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	return Color * color
}
`

// Quad draws one tinted square in world coordinates.
type Quad struct {
	ecs.Base
	Size float32
}

func (q *Quad) Initialize(ctx *ecs.InitContext) { q.MarkInitialized() }

func (q *Quad) Update(frame *ecs.UpdateFrame) {}

func (q *Quad) Render(ctx *ecs.RenderContext) {
	s := q.Size / 2
	vs := []ecs.Vertex{
		{DstX: -s, DstY: -s, R: 1, G: 1, B: 1, A: 1},
		{DstX: s, DstY: -s, R: 1, G: 1, B: 1, A: 1},
		{DstX: s, DstY: s, R: 1, G: 1, B: 1, A: 1},
		{DstX: -s, DstY: s, R: 1, G: 1, B: 1, A: 1},
	}
	ctx.Pass.DrawTriangles(vs, []uint16{0, 1, 2, 0, 2, 3})
}

func Example() {
	text, err := ebitenrender.NewTextSystem()
	if err != nil {
		log.Fatal(err)
	}

	engine := ecs.NewEngine(ecs.EngineOptions{Text: text})
	defer engine.Close()

	game := ebitenrender.NewGame(engine, ebitenrender.GameOptions{Width: 800, Height: 600, QuitOnEscape: true})

	scene := engine.NewScene("quad")
	tinted := scene.CreateMaterial(
		ecs.PipelineId{Label: "tint", FragmentShader: tint},
		ecs.BufferAttachment("Color", ecs.NewBuffer(0.2, 0.8, 0.4, 1)),
	)
	camera := ecs.NewOrthoCamera(800, 600)
	scene.CreateEntity(ecs.NewEntitySpec(camera))
	scene.CreateEntity(ecs.NewEntitySpec(&Quad{Size: 120}).WithMaterial(tinted))

	actions := ecs.NewActionQueue()
	actions.SetActiveCamera(camera.Id())
	scene.ExecuteActionQueue(actions)

	if err := ebitenrender.Run("quad", game); err != nil && err != ebiten.Termination {
		log.Fatal(err)
	}
}
