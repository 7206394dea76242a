package ecs_test

import (
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/scenery/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTexture struct {
	w, h int
}

func (t fakeTexture) Bounds() image.Rectangle { return image.Rect(0, 0, t.w, t.h) }

type fakeDevice struct{}

func (fakeDevice) ScreenSize() (int, int) { return 200, 100 }

func (fakeDevice) NewTexture(w, h int) ecs.Texture { return fakeTexture{w, h} }

func (fakeDevice) TextureFromImage(img image.Image) ecs.Texture {
	return fakeTexture{img.Bounds().Dx(), img.Bounds().Dy()}
}

type fakePass struct {
	material *ecs.Material
	uniforms map[string]any
	backend  *fakeBackend
}

func (p *fakePass) Material() *ecs.Material { return p.material }

func (p *fakePass) SetUniform(name string, value any) { p.uniforms[name] = value }

func (p *fakePass) DrawTriangles(vertices []ecs.Vertex, indices []uint16) {
	p.backend.triangles += len(indices) / 3
}

// fakeBackend records the draw walk as a list of events.
type fakeBackend struct {
	built     []ecs.PipelineId
	failBuild error
	events    []string
	triangles int
	viewProj  mgl32.Mat4
}

func (b *fakeBackend) Device() ecs.Device { return fakeDevice{} }

func (b *fakeBackend) BuildPipeline(p ecs.PipelineId) error {
	if b.failBuild != nil {
		return b.failBuild
	}
	b.built = append(b.built, p)
	return nil
}

func (b *fakeBackend) BindPipeline(p ecs.PipelineId) {
	for _, built := range b.built {
		if built == p {
			b.events = append(b.events, "bind "+p.Label)
			return
		}
	}
	panic("pipeline not built: " + p.Label)
}

func (b *fakeBackend) BeginMaterial(m *ecs.Material, viewProj mgl32.Mat4) ecs.RenderPass {
	b.viewProj = viewProj
	b.events = append(b.events, fmt.Sprintf("material %d", m.Id))
	return &fakePass{material: m, uniforms: map[string]any{}, backend: b}
}

func (b *fakeBackend) EndMaterial(pass ecs.RenderPass) {
	b.events = append(b.events, fmt.Sprintf("end %d", pass.Material().Id))
}

// Sprite draws one quad and records its label on the backend.
type Sprite struct {
	ecs.Base
	Label string
	Log   *[]string
}

func (s *Sprite) Initialize(ctx *ecs.InitContext) { s.MarkInitialized() }

func (s *Sprite) Update(frame *ecs.UpdateFrame) {}

func (s *Sprite) Render(ctx *ecs.RenderContext) {
	*s.Log = append(*s.Log, s.Label)
	ctx.Pass.DrawTriangles(make([]ecs.Vertex, 4), []uint16{0, 1, 2, 1, 2, 3})
}

func pipeline(label string) ecs.PipelineId {
	return ecs.PipelineId{
		Label:          label,
		FragmentShader: "//kage:unit pixels\npackage main\n",
		Layout:         ecs.NewVertexLayout(32, ecs.VertexAttribute{Location: 0, Format: "float32x2"}),
	}
}

func TestMaterialBinder(t *testing.T) {
	t.Run("materials sharing a pipeline", func(t *testing.T) {
		scene := newTestScene()
		assert.False(t, scene.NewPipelinesNeeded())

		p := pipeline("sprites")
		a := scene.CreateMaterial(p, ecs.TextureAttachment("atlas", fakeTexture{16, 16}))
		assert.True(t, scene.NewPipelinesNeeded())
		assert.Equal(t, []ecs.PipelineId{p}, scene.TakeNewPipelines())
		assert.False(t, scene.NewPipelinesNeeded())

		b := scene.CreateMaterial(pipeline("sprites"), ecs.BufferAttachment("tint", ecs.NewBuffer(1, 0, 0, 1)))
		assert.False(t, scene.NewPipelinesNeeded(), "second material reuses the pipeline")
		assert.Empty(t, scene.TakeNewPipelines())

		assert.Equal(t, []ecs.MaterialId{a, b}, scene.PipelineMaterials(p))
		assert.Equal(t, []ecs.PipelineId{p}, scene.PipelineIds())
		assert.NotEqual(t, ecs.NoMaterial, a)
	})

	t.Run("distinct identities", func(t *testing.T) {
		scene := newTestScene()
		base := pipeline("x")
		blended := base
		blended.Raster.Blend = ecs.BlendLighter

		scene.CreateMaterial(base)
		scene.CreateMaterial(blended)
		assert.Len(t, scene.PipelineIds(), 2)
		assert.Len(t, scene.TakeNewPipelines(), 2)
	})

	t.Run("attachments", func(t *testing.T) {
		scene := newTestScene()
		buf := ecs.NewBuffer(1, 2)
		id := scene.CreateMaterial(pipeline("p"),
			ecs.TextureAttachment("a", fakeTexture{1, 1}),
			ecs.BufferAttachment("b", buf),
			ecs.TextureAttachment("c", fakeTexture{2, 2}),
		)
		m, ok := scene.Material(id)
		require.True(t, ok)
		assert.Len(t, m.Textures(), 2)
		assert.Equal(t, "c", m.Textures()[1].Name)
		assert.Len(t, m.Buffers(), 1)

		buf.Write([]float32{3, 4, 5})
		assert.Equal(t, []float32{3, 4, 5}, m.Buffers()[0].Buffer.Read())

		assert.Panics(t, func() { scene.CreateMaterial(pipeline("p"), ecs.Attachment{Name: "empty"}) })
		_, ok = scene.Material(ecs.NoMaterial)
		assert.False(t, ok)
		_, ok = scene.Material(99)
		assert.False(t, ok)
	})

	t.Run("unknown material on entity", func(t *testing.T) {
		scene := newTestScene()
		assert.Panics(t, func() {
			scene.CreateEntity(ecs.NewEntitySpec(NewCounter("c", 0)).WithMaterial(4))
		})
	})
}

func TestComponentsPerMaterial(t *testing.T) {
	scene := newTestScene()
	red := scene.CreateMaterial(pipeline("flat"))
	blue := scene.CreateMaterial(pipeline("flat"))

	var log []string
	a := &Sprite{Base: ecs.NewBase(1, true), Label: "a", Log: &log}
	b := &Sprite{Base: ecs.NewBase(0, true), Label: "b", Log: &log}
	hidden := &Sprite{Base: ecs.NewBase(0, false), Label: "hidden", Log: &log}
	c := &Sprite{Base: ecs.NewBase(0, true), Label: "c", Log: &log}

	scene.CreateEntity(ecs.NewEntitySpec(a, b, hidden).WithMaterial(red))
	scene.CreateEntity(ecs.NewEntitySpec(c).WithMaterial(blue).Disable())
	scene.CreateEntity(ecs.NewEntitySpec(NewCounter("no material", 0)))

	batches := scene.ComponentsPerMaterial()
	require.Len(t, batches, 2)
	assert.Equal(t, red, batches[0].Material.Id)
	assert.Equal(t, []ecs.Component{b, a}, batches[0].Components)
	assert.Empty(t, batches[1].Components)
}

func TestDraw(t *testing.T) {
	t.Run("walks pipelines then materials then components", func(t *testing.T) {
		scene := newTestScene()
		flat := scene.CreateMaterial(pipeline("flat"))
		lit := scene.CreateMaterial(pipeline("lit"))
		flat2 := scene.CreateMaterial(pipeline("flat"))
		scene.CreateMaterial(pipeline("unused"))

		var log []string
		sprite := func(label string, order int) *Sprite {
			return &Sprite{Base: ecs.NewBase(order, true), Label: label, Log: &log}
		}
		scene.CreateEntity(ecs.NewEntitySpec(sprite("f1", 2), sprite("f0", 1)).WithMaterial(flat))
		scene.CreateEntity(ecs.NewEntitySpec(sprite("l0", 0)).WithMaterial(lit))
		scene.CreateEntity(ecs.NewEntitySpec(sprite("g0", 0)).WithMaterial(flat2))

		backend := &fakeBackend{}
		stats := ecs.Draw(scene, backend)

		assert.Len(t, backend.built, 3)
		assert.False(t, scene.NewPipelinesNeeded())
		assert.Equal(t, []string{
			"bind flat", "material 1", "end 1", "material 3", "end 3",
			"bind lit", "material 2", "end 2",
		}, backend.events)
		assert.Equal(t, []string{"f0", "f1", "g0", "l0"}, log)
		assert.Equal(t, ecs.DrawStats{Pipelines: 2, Materials: 3, Components: 4}, stats)
		assert.Equal(t, 8, backend.triangles)
		assert.Equal(t, mgl32.Ident4(), backend.viewProj)

		ecs.Draw(scene, backend)
		assert.Len(t, backend.built, 3, "pipelines are built once")
	})

	t.Run("active camera supplies the view projection", func(t *testing.T) {
		scene := newTestScene()
		mat := scene.CreateMaterial(pipeline("flat"))
		var log []string
		scene.CreateEntity(ecs.NewEntitySpec(&Sprite{Label: "s", Log: &log}).WithMaterial(mat))

		cam := ecs.NewOrthoCamera(200, 100)
		scene.CreateEntity(ecs.NewEntitySpec(cam))
		scene.Update(ecs.FrameInput{})

		q := ecs.NewActionQueue()
		q.SetActiveCamera(cam.Id())
		scene.ExecuteActionQueue(q)

		backend := &fakeBackend{}
		ecs.Draw(scene, backend)
		assert.Equal(t, cam.ViewProjection(), backend.viewProj)
	})

	t.Run("build failure panics", func(t *testing.T) {
		scene := newTestScene()
		scene.CreateMaterial(pipeline("broken"))
		backend := &fakeBackend{failBuild: errors.New("syntax error")}
		assert.Panics(t, func() { ecs.Draw(scene, backend) })
	})

	t.Run("binding an unbuilt pipeline panics", func(t *testing.T) {
		backend := &fakeBackend{}
		assert.Panics(t, func() { backend.BindPipeline(pipeline("never")) })
	})
}
