package debugui

import "github.com/plus3/scenery/ecs"

// Options configures the debug windows created by SpawnDebugUI.
type Options struct {
	// Lane feeds the workload monitor's counters. Optional.
	Lane *ecs.WorkloadLane
	// EntitiesPerPage bounds the entity browser's page size. Defaults to 100.
	EntitiesPerPage int
	// HistoryFrames is the length of the frame time graphs. Defaults to 120.
	HistoryFrames int
}

// DebugUI groups the debug windows. The entity browser's selection drives the inspector.
type DebugUI struct {
	Browser     *EntityBrowser
	Inspector   *ComponentInspector
	Materials   *MaterialViewer
	Performance *PerformanceStats
	Workloads   *WorkloadMonitor

	timer *FrameTimer
}

// NewDebugUI creates the debug windows without attaching them to a scene.
func NewDebugUI(opts Options) *DebugUI {
	return &DebugUI{
		Browser:     NewEntityBrowser(opts.EntitiesPerPage),
		Inspector:   NewComponentInspector(),
		Materials:   NewMaterialViewer(),
		Performance: NewPerformanceStats(opts.HistoryFrames),
		Workloads:   NewWorkloadMonitor(opts.Lane),
		timer:       NewFrameTimer(),
	}
}

// Draw renders every window against scene. It must run between the ImGui backend's
// BeginFrame and EndFrame.
func (d *DebugUI) Draw(scene *ecs.Scene) {
	d.Browser.Render(scene)
	d.Inspector.Render(scene, d.Browser.SelectedEntity())
	d.Materials.Render(scene)
	d.Performance.Render(scene, d.timer.DeltaTime())
	d.Workloads.Render(scene)
}

// SpawnDebugUI adds an entity to scene whose ImguiItem draws the debug windows every frame.
func SpawnDebugUI(scene *ecs.Scene, opts Options) (ecs.EntityId, *DebugUI) {
	ui := NewDebugUI(opts)
	id := scene.CreateEntity(ecs.NewEntitySpec(NewImguiItem(ui.Draw)))
	return id, ui
}
