package ecs

import (
	"fmt"
	"image"
	"slices"
	"sync"
)

// MaterialId indexes a scene's materials. Materials are numbered from 1; NoMaterial is zero.
type MaterialId int

// NoMaterial marks an entity that is not drawn.
const NoMaterial MaterialId = 0

// ShaderStage is a visibility mask for an attachment.
type ShaderStage uint8

const (
	StageVertex ShaderStage = 1 << iota
	StageFragment

	StageAll = StageVertex | StageFragment
)

// VertexAttribute describes one attribute of the vertex layout.
type VertexAttribute struct {
	Location uint32
	Offset   uint32
	Format   string
}

// VertexLayout is a fixed-size description of the vertex buffer layout. Attribute slots past
// Count are ignored. It is an array so that PipelineId stays comparable.
type VertexLayout struct {
	Stride     uint32
	Count      int
	Attributes [8]VertexAttribute
}

// NewVertexLayout builds a layout from up to eight attributes.
func NewVertexLayout(stride uint32, attrs ...VertexAttribute) VertexLayout {
	if len(attrs) > 8 {
		panic("ecs: vertex layout supports at most 8 attributes")
	}
	l := VertexLayout{Stride: stride, Count: len(attrs)}
	copy(l.Attributes[:], attrs)
	return l
}

// BlendMode selects how fragments are combined with the target.
type BlendMode uint8

const (
	BlendSourceOver BlendMode = iota
	BlendCopy
	BlendLighter
	BlendClear
)

// Topology is the primitive assembly mode.
type Topology uint8

const (
	TriangleList Topology = iota
	TriangleStrip
	LineList
)

// RasterState is the geometry and rasterization part of a pipeline identity.
type RasterState struct {
	Topology  Topology
	Blend     BlendMode
	CullBack  bool
	AntiAlias bool
}

// PipelineId is the value-equality key for a compiled GPU pipeline. Many materials can share
// one pipeline.
type PipelineId struct {
	Label          string
	VertexShader   string
	FragmentShader string
	Layout         VertexLayout
	Raster         RasterState
}

func (p PipelineId) String() string {
	if p.Label != "" {
		return p.Label
	}
	return fmt.Sprintf("pipeline(%d bytes)", len(p.VertexShader)+len(p.FragmentShader))
}

// Texture is a GPU image handle created by the device collaborator.
type Texture interface {
	Bounds() image.Rectangle
}

// Buffer is a shader-visible block of floats. Components may write it during Update while
// the renderer reads it during Render, so access is guarded.
type Buffer struct {
	mu   sync.RWMutex
	data []float32
}

// NewBuffer returns a buffer holding a copy of data.
func NewBuffer(data ...float32) *Buffer {
	return &Buffer{data: slices.Clone(data)}
}

// Write replaces the buffer contents.
func (b *Buffer) Write(data []float32) {
	b.mu.Lock()
	b.data = append(b.data[:0], data...)
	b.mu.Unlock()
}

// Read returns a copy of the buffer contents.
func (b *Buffer) Read() []float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.data)
}

// Attachment binds a texture or a buffer to a material's shaders.
type Attachment struct {
	Name       string
	Texture    Texture
	Buffer     *Buffer
	Visibility ShaderStage
}

// TextureAttachment binds a texture visible to the fragment stage.
func TextureAttachment(name string, tex Texture) Attachment {
	return Attachment{Name: name, Texture: tex, Visibility: StageFragment}
}

// BufferAttachment binds a buffer visible to both stages.
func BufferAttachment(name string, buf *Buffer) Attachment {
	return Attachment{Name: name, Buffer: buf, Visibility: StageAll}
}

// Material is a set of shader resources drawn with one pipeline.
type Material struct {
	Id          MaterialId
	Pipeline    PipelineId
	Attachments []Attachment

	bindings any
}

// Textures returns the texture attachments in declaration order.
func (m *Material) Textures() []Attachment {
	var out []Attachment
	for _, a := range m.Attachments {
		if a.Texture != nil {
			out = append(out, a)
		}
	}
	return out
}

// Buffers returns the buffer attachments in declaration order.
func (m *Material) Buffers() []Attachment {
	var out []Attachment
	for _, a := range m.Attachments {
		if a.Buffer != nil {
			out = append(out, a)
		}
	}
	return out
}

// Bindings returns the GPU resources the renderer derived from the attachments, if any.
func (m *Material) Bindings() any {
	return m.bindings
}

// SetBindings stores renderer-derived GPU resources on the material.
func (m *Material) SetBindings(b any) {
	m.bindings = b
}

// MaterialBatch is the ordered list of components drawn with one material.
type MaterialBatch struct {
	Material   *Material
	Components []Component
}

// materialBinder groups materials by pipeline and tracks which pipelines still need a build.
type materialBinder struct {
	materials  []*Material
	pipelines  []PipelineId
	byPipeline map[PipelineId][]MaterialId
	pending    []PipelineId
	newNeeded  bool
}

func newMaterialBinder() *materialBinder {
	return &materialBinder{
		byPipeline: make(map[PipelineId][]MaterialId),
	}
}

func (b *materialBinder) create(pipeline PipelineId, attachments []Attachment) *Material {
	for i, a := range attachments {
		if (a.Texture == nil) == (a.Buffer == nil) {
			panic(fmt.Sprintf("ecs: attachment %d (%q) must set exactly one of Texture or Buffer", i, a.Name))
		}
	}

	m := &Material{
		Id:          MaterialId(len(b.materials) + 1),
		Pipeline:    pipeline,
		Attachments: slices.Clone(attachments),
	}
	b.materials = append(b.materials, m)

	if _, known := b.byPipeline[pipeline]; !known {
		b.pipelines = append(b.pipelines, pipeline)
		b.pending = append(b.pending, pipeline)
		b.newNeeded = true
	}
	b.byPipeline[pipeline] = append(b.byPipeline[pipeline], m.Id)
	return m
}

func (b *materialBinder) get(id MaterialId) (*Material, bool) {
	if id <= NoMaterial || int(id) > len(b.materials) {
		return nil, false
	}
	return b.materials[id-1], true
}

func (b *materialBinder) take() []PipelineId {
	out := b.pending
	b.pending = nil
	b.newNeeded = false
	return out
}
