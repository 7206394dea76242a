package debugui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/scenery/ecs"
)

type PipelineInfo struct {
	Pipeline       ecs.PipelineId
	Label          string
	Blend          ecs.BlendMode
	Materials      []MaterialInfo
	ComponentCount int
}

type MaterialInfo struct {
	ID             ecs.MaterialId
	Attachments    []string
	ComponentCount int
}

type MaterialViewerCache struct {
	pipelines         []PipelineInfo
	lastMaterialCount int
	sortColumn        int
	sortAscending     bool
}

func NewMaterialViewer() *MaterialViewer {
	return &MaterialViewer{
		cache: &MaterialViewerCache{
			lastMaterialCount: -1,
			sortColumn:        0,
			sortAscending:     true,
		},
		selectedPipeline: -1,
		sortColumn:       0,
		sortAscending:    true,
	}
}

func (mv *MaterialViewer) Render(scene *ecs.Scene) {
	if !imgui.BeginV("Materials", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	mv.rebuildCacheIfNeeded(scene)

	pending := "no"
	if scene.NewPipelinesNeeded() {
		pending = "yes"
	}
	imgui.Text(fmt.Sprintf("Pipelines: %d  Materials: %d  Builds pending: %s",
		len(scene.PipelineIds()), len(scene.Materials()), pending))

	maxComponentCount := 0
	for _, p := range mv.cache.pipelines {
		maxComponentCount = max(maxComponentCount, p.ComponentCount)
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("PipelineTable", 4, tableFlags, imgui.NewVec2(0, 200), 0) {
		imgui.TableSetupColumn("Pipeline")
		imgui.TableSetupColumn("Blend")
		imgui.TableSetupColumn("Materials")
		imgui.TableSetupColumn("Components")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			mv.cache.sortColumn = int(spec.ColumnIndex())
			mv.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			mv.sortColumn = mv.cache.sortColumn
			mv.sortAscending = mv.cache.sortAscending
			mv.sortPipelines()
			sortSpecs.SetSpecsDirty(false)
		}

		for i, p := range mv.cache.pipelines {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			if imgui.SelectableBoolV(fmt.Sprintf("%s##pipeline%d", p.Label, i), mv.selectedPipeline == i, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				mv.selectedPipeline = i
			}

			imgui.TableNextColumn()
			imgui.Text(blendName(p.Blend))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", len(p.Materials)))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", p.ComponentCount))

			if maxComponentCount > 0 {
				barWidth := float32(p.ComponentCount) / float32(maxComponentCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}
		}

		imgui.EndTable()
	}

	if mv.selectedPipeline >= 0 && mv.selectedPipeline < len(mv.cache.pipelines) {
		p := mv.cache.pipelines[mv.selectedPipeline]
		imgui.Separator()
		imgui.Text(fmt.Sprintf("Vertex stride: %d, attributes: %d", p.Pipeline.Layout.Stride, p.Pipeline.Layout.Count))
		for _, m := range p.Materials {
			if imgui.TreeNodeStr(fmt.Sprintf("Material %d (%d components)", m.ID, m.ComponentCount)) {
				if len(m.Attachments) == 0 {
					imgui.Text("No attachments")
				}
				for _, a := range m.Attachments {
					imgui.BulletText(a)
				}
				imgui.TreePop()
			}
		}
	}

	imgui.End()
}

// rebuildCacheIfNeeded rebuilds the pipeline rows when materials were added and refreshes
// component counts every frame, since enable state and entity materials change freely.
func (mv *MaterialViewer) rebuildCacheIfNeeded(scene *ecs.Scene) {
	if mv.cache.lastMaterialCount != len(scene.Materials()) {
		mv.cache.pipelines = nil
		mv.cache.lastMaterialCount = len(scene.Materials())
	}

	if mv.cache.pipelines == nil {
		mv.rebuildCache(scene)
	} else {
		mv.updateComponentCounts(scene)
	}
}

func (mv *MaterialViewer) rebuildCache(scene *ecs.Scene) {
	mv.cache.pipelines = make([]PipelineInfo, 0, len(scene.PipelineIds()))

	for _, pipeline := range scene.PipelineIds() {
		info := PipelineInfo{
			Pipeline: pipeline,
			Label:    pipeline.String(),
			Blend:    pipeline.Raster.Blend,
		}
		for _, id := range scene.PipelineMaterials(pipeline) {
			m, ok := scene.Material(id)
			if !ok {
				continue
			}
			info.Materials = append(info.Materials, MaterialInfo{
				ID:          m.Id,
				Attachments: describeAttachments(m),
			})
		}
		mv.cache.pipelines = append(mv.cache.pipelines, info)
	}

	mv.updateComponentCounts(scene)
}

func (mv *MaterialViewer) updateComponentCounts(scene *ecs.Scene) {
	counts := make(map[ecs.MaterialId]int)
	for _, batch := range scene.ComponentsPerMaterial() {
		counts[batch.Material.Id] = len(batch.Components)
	}

	for i := range mv.cache.pipelines {
		p := &mv.cache.pipelines[i]
		p.ComponentCount = 0
		for j := range p.Materials {
			p.Materials[j].ComponentCount = counts[p.Materials[j].ID]
			p.ComponentCount += p.Materials[j].ComponentCount
		}
	}

	if mv.sortColumn == 3 {
		mv.sortPipelines()
	}
}

func (mv *MaterialViewer) sortPipelines() {
	less := func(a, b PipelineInfo) bool {
		switch mv.cache.sortColumn {
		case 1:
			return a.Blend < b.Blend
		case 2:
			return len(a.Materials) < len(b.Materials)
		case 3:
			return a.ComponentCount < b.ComponentCount
		default:
			return strings.ToLower(a.Label) < strings.ToLower(b.Label)
		}
	}

	sort.SliceStable(mv.cache.pipelines, func(i, j int) bool {
		a, b := mv.cache.pipelines[i], mv.cache.pipelines[j]
		if !mv.cache.sortAscending {
			return less(b, a)
		}
		return less(a, b)
	})
}

func describeAttachments(m *ecs.Material) []string {
	out := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		switch {
		case a.Texture != nil:
			b := a.Texture.Bounds()
			out = append(out, fmt.Sprintf("%s: texture %dx%d", a.Name, b.Dx(), b.Dy()))
		case a.Buffer != nil:
			out = append(out, fmt.Sprintf("%s: buffer[%d]", a.Name, len(a.Buffer.Read())))
		}
	}
	return out
}

func blendName(b ecs.BlendMode) string {
	switch b {
	case ecs.BlendSourceOver:
		return "source-over"
	case ecs.BlendCopy:
		return "copy"
	case ecs.BlendLighter:
		return "lighter"
	case ecs.BlendClear:
		return "clear"
	default:
		return fmt.Sprintf("blend(%d)", b)
	}
}
