package ebitenrender

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/scenery/ecs"
)

// ViewProjectionUniform is the uniform every shaded pass receives the camera matrix in, as
// 16 column-major floats.
const ViewProjectionUniform = "ViewProjection"

// ErrVertexShader is returned for pipelines that declare a vertex shader. Ebiten's vertex
// stage is fixed; Kage programs only supply the fragment stage.
var ErrVertexShader = errors.New("ebitenrender: custom vertex shaders are not supported")

// Backend implements ecs.Backend. Pipelines with a fragment shader compile to Kage shaders
// keyed by pipeline identity; pipelines without one draw textured triangles.
type Backend struct {
	device  *Device
	target  *ebiten.Image
	white   *ebiten.Image
	shaders map[ecs.PipelineId]*ebiten.Shader
	bound   ecs.PipelineId
	stats   ecs.DrawStats
	log     *slog.Logger
}

// NewBackend returns a backend drawing with device.
func NewBackend(device *Device) *Backend {
	white := ebiten.NewImage(3, 3)
	white.Fill(color.White)
	return &Backend{
		device:  device,
		white:   white,
		shaders: make(map[ecs.PipelineId]*ebiten.Shader),
		log:     ecs.Logger().With("subsystem", "ebitenrender"),
	}
}

// Begin sets the image the next draw walk renders into.
func (b *Backend) Begin(target *ebiten.Image) {
	b.target = target
}

// DrawScene runs the draw walk for scene into target.
func (b *Backend) DrawScene(target *ebiten.Image, scene *ecs.Scene) ecs.DrawStats {
	b.Begin(target)
	b.stats = ecs.Draw(scene, b)
	return b.stats
}

// LastStats returns the counters of the most recent DrawScene call.
func (b *Backend) LastStats() ecs.DrawStats {
	return b.stats
}

func (b *Backend) Device() ecs.Device {
	return b.device
}

func (b *Backend) BuildPipeline(p ecs.PipelineId) error {
	if _, ok := b.shaders[p]; ok {
		return nil
	}
	if p.VertexShader != "" {
		return fmt.Errorf("pipeline %s: %w", p, ErrVertexShader)
	}

	var shader *ebiten.Shader
	if p.FragmentShader != "" {
		var err error
		shader, err = ebiten.NewShader([]byte(p.FragmentShader))
		if err != nil {
			return fmt.Errorf("ebitenrender: compiling pipeline %s: %w", p, err)
		}
	}
	b.shaders[p] = shader
	b.log.Debug("ebitenrender: pipeline compiled", "pipeline", p.String(), "shaded", shader != nil)
	return nil
}

// BindPipeline selects a built pipeline. Binding a pipeline that was never built panics.
func (b *Backend) BindPipeline(p ecs.PipelineId) {
	if _, ok := b.shaders[p]; !ok {
		panic(fmt.Sprintf("ebitenrender: pipeline %s was never built", p))
	}
	b.bound = p
}

func (b *Backend) BeginMaterial(m *ecs.Material, viewProj mgl32.Mat4) ecs.RenderPass {
	if b.target == nil {
		panic("ebitenrender: BeginMaterial called before Begin")
	}

	pass := &pass{
		backend:  b,
		material: m,
		shader:   b.shaders[b.bound],
		blend:    blendFor(b.bound.Raster.Blend),
		aa:       b.bound.Raster.AntiAlias,
		viewProj: viewProj,
		pixels:   viewProj == mgl32.Ident4(),
		uniforms: make(map[string]any),
	}
	pass.uniforms[ViewProjectionUniform] = matrixUniform(viewProj)

	for i, a := range m.Textures() {
		if i >= len(pass.images) {
			b.log.Warn("ebitenrender: material has more textures than a shader can sample", "material", m.Id)
			break
		}
		pass.images[i] = ebitenImage(a.Texture)
	}
	for _, a := range m.Buffers() {
		pass.uniforms[a.Name] = a.Buffer.Read()
	}
	return pass
}

func (b *Backend) EndMaterial(ecs.RenderPass) {}

type pass struct {
	backend  *Backend
	material *ecs.Material
	shader   *ebiten.Shader
	blend    ebiten.Blend
	aa       bool
	viewProj mgl32.Mat4
	pixels   bool
	images   [4]*ebiten.Image
	uniforms map[string]any
	scratch  []ebiten.Vertex
}

func (p *pass) Material() *ecs.Material {
	return p.material
}

func (p *pass) SetUniform(name string, value any) {
	p.uniforms[name] = value
}

// DrawTriangles draws into the backend's target. Vertex positions are world coordinates
// projected through the pass's view-projection, or screen pixels when no camera is active.
func (p *pass) DrawTriangles(vertices []ecs.Vertex, indices []uint16) {
	w, h := p.backend.device.ScreenSize()
	p.scratch = toEbitenVertices(p.scratch[:0], vertices, p.viewProj, p.pixels, float32(w), float32(h))

	if p.shader != nil {
		p.backend.target.DrawTrianglesShader(p.scratch, indices, p.shader, &ebiten.DrawTrianglesShaderOptions{
			Uniforms:  p.uniforms,
			Images:    p.images,
			Blend:     p.blend,
			AntiAlias: p.aa,
		})
		return
	}

	src := p.images[0]
	if src == nil {
		src = p.backend.white
	}
	p.backend.target.DrawTriangles(p.scratch, indices, src, &ebiten.DrawTrianglesOptions{
		Blend:     p.blend,
		AntiAlias: p.aa,
	})
}

func toEbitenVertices(dst []ebiten.Vertex, src []ecs.Vertex, viewProj mgl32.Mat4, pixels bool, w, h float32) []ebiten.Vertex {
	for _, v := range src {
		pos := mgl32.Vec2{v.DstX, v.DstY}
		if !pixels {
			pos = ecs.WorldToScreen(viewProj, pos, w, h)
		}
		dst = append(dst, ebiten.Vertex{
			DstX:   pos.X(),
			DstY:   pos.Y(),
			SrcX:   v.SrcX,
			SrcY:   v.SrcY,
			ColorR: v.R,
			ColorG: v.G,
			ColorB: v.B,
			ColorA: v.A,
		})
	}
	return dst
}

func matrixUniform(m mgl32.Mat4) []float32 {
	out := make([]float32, 16)
	copy(out, m[:])
	return out
}

func blendFor(mode ecs.BlendMode) ebiten.Blend {
	switch mode {
	case ecs.BlendCopy:
		return ebiten.BlendCopy
	case ecs.BlendLighter:
		return ebiten.BlendLighter
	case ecs.BlendClear:
		return ebiten.BlendClear
	default:
		return ebiten.BlendSourceOver
	}
}
