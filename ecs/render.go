package ecs

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Device is the GPU handle supplied by the renderer to Initialize, Update and Render.
type Device interface {
	ScreenSize() (width, height int)
	NewTexture(width, height int) Texture
	TextureFromImage(img image.Image) Texture
}

// Vertex is a 2D vertex with source texture coordinates and a color.
type Vertex struct {
	DstX, DstY float32
	SrcX, SrcY float32
	R, G, B, A float32
}

// RenderPass draws with the pipeline and material currently bound by the backend.
type RenderPass interface {
	Material() *Material
	SetUniform(name string, value any)
	DrawTriangles(vertices []Vertex, indices []uint16)
}

// RenderContext is handed to Component.Render.
type RenderContext struct {
	Scene          SceneIndex
	Frame          uint64
	Device         Device
	Pass           RenderPass
	ViewProjection mgl32.Mat4
}

// Backend is the renderer side of the draw walk.
type Backend interface {
	Device() Device
	// BuildPipeline compiles a newly registered pipeline.
	BuildPipeline(p PipelineId) error
	// BindPipeline selects a compiled pipeline. A pipeline that was never built is a
	// configuration error and must panic.
	BindPipeline(p PipelineId)
	BeginMaterial(m *Material, viewProjection mgl32.Mat4) RenderPass
	EndMaterial(pass RenderPass)
}

// CameraSource is implemented by components usable as the active camera.
type CameraSource interface {
	ViewProjection() mgl32.Mat4
}

// DrawStats counts what one Draw call issued.
type DrawStats struct {
	Pipelines  int
	Materials  int
	Components int
}

// Draw builds any pending pipelines, then renders every visible component grouped by
// pipeline and material, in rendering order within each material.
func Draw(s *Scene, b Backend) DrawStats {
	if s.NewPipelinesNeeded() {
		for _, p := range s.TakeNewPipelines() {
			if err := b.BuildPipeline(p); err != nil {
				panic(fmt.Sprintf("ecs: building pipeline %s: %v", p, err))
			}
			s.log.Debug("ecs: pipeline built", "pipeline", p.String())
		}
	}

	viewProj := mgl32.Ident4()
	if cam, ok := s.ActiveCamera(); ok {
		if src, ok := cam.(CameraSource); ok {
			viewProj = src.ViewProjection()
		}
	}

	batches := s.ComponentsPerMaterial()
	byMaterial := make(map[MaterialId]MaterialBatch, len(batches))
	for _, batch := range batches {
		byMaterial[batch.Material.Id] = batch
	}

	var stats DrawStats
	device := b.Device()
	for _, pipeline := range s.PipelineIds() {
		bound := false
		for _, mid := range s.PipelineMaterials(pipeline) {
			batch, ok := byMaterial[mid]
			if !ok || len(batch.Components) == 0 {
				continue
			}
			if !bound {
				b.BindPipeline(pipeline)
				bound = true
				stats.Pipelines++
			}

			pass := b.BeginMaterial(batch.Material, viewProj)
			ctx := &RenderContext{
				Scene:          s.index,
				Frame:          s.frame,
				Device:         device,
				Pass:           pass,
				ViewProjection: viewProj,
			}
			for _, c := range batch.Components {
				c.Render(ctx)
				stats.Components++
			}
			b.EndMaterial(pass)
			stats.Materials++
		}
	}
	return stats
}
