package debugui

import (
	"image"
	"reflect"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/scenery/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	ecs.Base
	Name    string
	Speed   float32
	Visible bool
	Offset  mgl32.Vec2
	Target  *probe
	hidden  int
}

func (p *probe) Initialize(ctx *ecs.InitContext) { p.MarkInitialized() }

func (p *probe) Update(frame *ecs.UpdateFrame) {}

type marker struct {
	ecs.Base
}

func (m *marker) Initialize(ctx *ecs.InitContext) { m.MarkInitialized() }

func (m *marker) Update(frame *ecs.UpdateFrame) {}

type tex struct{}

func (tex) Bounds() image.Rectangle { return image.Rect(0, 0, 32, 16) }

func TestReflectionCache(t *testing.T) {
	rc := NewReflectionCache()
	fields := rc.GetFields(reflect.TypeOf(probe{}))

	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Name", "Speed", "Visible", "Offset", "Target"}, names)

	target := fields[4]
	assert.True(t, target.IsPointer)
	assert.True(t, target.IsStruct)
	assert.Equal(t, reflect.TypeOf(probe{}), target.Type)

	again := rc.GetFields(reflect.TypeOf(probe{}))
	assert.Equal(t, fields, again)
	assert.Empty(t, rc.GetFields(reflect.TypeOf(0)))

	p := &probe{Speed: 2}
	val := reflect.ValueOf(p).Elem().FieldByIndex(fields[1].Index)
	val.SetFloat(5)
	assert.Equal(t, float32(5), p.Speed)
}

func TestEntityBrowserCache(t *testing.T) {
	scene := ecs.NewScene(1, ecs.SceneOptions{})
	root := scene.CreateEntity(ecs.NewEntitySpec(&probe{}, &marker{}))
	other := scene.CreateEntity(ecs.NewEntitySpec(&marker{}).Disable())
	child := scene.CreateEntity(ecs.NewEntitySpec(&probe{}).WithParent(root))

	eb := NewEntityBrowser(10)
	eb.rebuildCacheIfNeeded(scene)

	require.Len(t, eb.cache.entities, 3)
	var order []ecs.EntityId
	for _, e := range eb.cache.entities {
		order = append(order, e.ID)
	}
	assert.Equal(t, []ecs.EntityId{root, child, other}, order, "children follow their parent")
	assert.Equal(t, 1, eb.cache.entities[1].Depth)
	assert.Equal(t, []string{"*debugui.probe", "*debugui.marker"}, eb.cache.entities[0].ComponentTypes)

	eb.filterText = "probe"
	assert.Len(t, eb.filteredEntities(), 2)

	eb.filterText = ""
	eb.showDisabled = false
	assert.Len(t, eb.filteredEntities(), 2)

	eb.cache.sortColumn = 4
	eb.cache.sortAscending = false
	eb.sortEntities()
	assert.Equal(t, root, eb.cache.entities[0].ID)

	q := ecs.NewActionQueue()
	q.SetEntityEnabled(other, true)
	q.CreateEntity(ecs.NewEntitySpec(&marker{}))
	scene.ExecuteActionQueue(q)
	eb.rebuildCacheIfNeeded(scene)
	assert.Len(t, eb.filteredEntities(), 4)
}

func TestMaterialViewerCache(t *testing.T) {
	scene := ecs.NewScene(1, ecs.SceneOptions{})
	flat := ecs.PipelineId{Label: "flat"}
	glow := ecs.PipelineId{Label: "glow", Raster: ecs.RasterState{Blend: ecs.BlendLighter}}

	a := scene.CreateMaterial(flat, ecs.TextureAttachment("atlas", tex{}))
	b := scene.CreateMaterial(flat, ecs.BufferAttachment("tint", ecs.NewBuffer(1, 1, 1, 1)))
	c := scene.CreateMaterial(glow)

	scene.CreateEntity(ecs.NewEntitySpec(&marker{}, &marker{}).WithMaterial(a))
	scene.CreateEntity(ecs.NewEntitySpec(&marker{}).WithMaterial(b))
	scene.CreateEntity(ecs.NewEntitySpec(&marker{}).WithMaterial(c).Disable())

	mv := NewMaterialViewer()
	mv.rebuildCacheIfNeeded(scene)

	require.Len(t, mv.cache.pipelines, 2)
	assert.Equal(t, "flat", mv.cache.pipelines[0].Label)
	assert.Equal(t, 3, mv.cache.pipelines[0].ComponentCount)
	assert.Equal(t, 0, mv.cache.pipelines[1].ComponentCount)
	assert.Equal(t, []string{"atlas: texture 32x16"}, mv.cache.pipelines[0].Materials[0].Attachments)
	assert.Equal(t, []string{"tint: buffer[4]"}, mv.cache.pipelines[0].Materials[1].Attachments)
	assert.Equal(t, "lighter", blendName(mv.cache.pipelines[1].Blend))

	mv.sortColumn = 3
	mv.cache.sortColumn = 3
	mv.cache.sortAscending = true
	mv.rebuildCacheIfNeeded(scene)
	assert.Equal(t, "glow", mv.cache.pipelines[0].Label)
}

func TestWorkloadMonitorRows(t *testing.T) {
	completions := make(chan ecs.WorkloadResult, 4)
	scene := ecs.NewScene(1, ecs.SceneOptions{Completions: completions})
	p, m := &probe{}, &marker{}
	scene.CreateEntity(ecs.NewEntitySpec(p, m))

	submitted := time.Now()
	completions <- ecs.WorkloadResult{Scene: 1, Component: p.Id(), Output: ecs.WorkloadOutput{
		Name: "path", Value: 3, Submitted: submitted, Completed: submitted.Add(2 * time.Millisecond),
	}}
	completions <- ecs.WorkloadResult{Scene: 1, Component: m.Id(), Output: ecs.WorkloadOutput{Name: "noop"}}
	scene.Update(ecs.FrameInput{})

	wm := NewWorkloadMonitor(nil)
	wm.rebuildCacheIfNeeded(scene)
	assert.Equal(t, []string{"*debugui.marker", "*debugui.probe"}, wm.cache.componentTypes)

	rows := wm.pendingOutputs(scene)
	require.Len(t, rows, 2)
	assert.Equal(t, p.Id(), rows[0].Component)
	assert.Equal(t, 2*time.Millisecond, latency(rows[0].Outputs[0]))
	assert.Equal(t, time.Duration(0), latency(rows[1].Outputs[0]))

	wm.selectedComponentTypes["*debugui.marker"] = true
	rows = wm.pendingOutputs(scene)
	require.Len(t, rows, 1)
	assert.Equal(t, "noop", rows[0].Outputs[0].Name)
}

func TestPerformanceStatsHistory(t *testing.T) {
	ps := NewPerformanceStats(4)
	ps.Record(0.010, ecs.SceneStats{LastUpdate: time.Millisecond})
	ps.Record(0.030, ecs.SceneStats{LastUpdate: 3 * time.Millisecond})

	assert.InDelta(t, 10.0, ps.AverageFrameTime(), 1e-4)
	assert.InDelta(t, 3.0, ps.updateHistory[1], 1e-4)

	for i := 0; i < 4; i++ {
		ps.Record(0.020, ecs.SceneStats{})
	}
	assert.InDelta(t, 20.0, ps.AverageFrameTime(), 1e-4)
	assert.Equal(t, 2, ps.frameIndex)
}

func TestInputCaptured(t *testing.T) {
	scene := ecs.NewScene(1, ecs.SceneOptions{})
	item := NewImguiItem(nil)
	item.input = ImguiInputState{WantCaptureKeyboard: true}

	var mouse, keyboard bool
	watcher := &watcher{fn: func(frame *ecs.UpdateFrame) { mouse, keyboard = InputCaptured(frame) }}
	scene.CreateEntity(ecs.NewEntitySpec(item, watcher))
	scene.Update(ecs.FrameInput{})

	assert.False(t, mouse)
	assert.True(t, keyboard)
}

type watcher struct {
	ecs.Base
	fn func(frame *ecs.UpdateFrame)
}

func (w *watcher) Initialize(ctx *ecs.InitContext) { w.MarkInitialized() }

func (w *watcher) Update(frame *ecs.UpdateFrame) { w.fn(frame) }
