package debugui

import (
	"fmt"
	"sort"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/scenery/ecs"
)

type WorkloadMonitorCache struct {
	componentTypes     []string
	lastComponentCount int
}

// OutputRow describes one component that currently holds workload outputs.
type OutputRow struct {
	Component ecs.ComponentId
	Type      string
	Outputs   []ecs.WorkloadOutput
}

// NewWorkloadMonitor returns a monitor. lane may be nil, in which case only the scene's
// pending outputs are shown.
func NewWorkloadMonitor(lane *ecs.WorkloadLane) *WorkloadMonitor {
	return &WorkloadMonitor{
		lane:                   lane,
		selectedComponentTypes: make(map[string]bool),
		cache: &WorkloadMonitorCache{
			lastComponentCount: -1,
		},
	}
}

func (wm *WorkloadMonitor) Render(scene *ecs.Scene) {
	if !imgui.BeginV("Workloads", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	if wm.lane != nil {
		stats := wm.lane.Stats()
		imgui.Text(fmt.Sprintf("Submitted: %d  Running: %d", stats.Submitted, stats.Running))
		imgui.Text(fmt.Sprintf("Completed: %d  Failed: %d  Dropped: %d", stats.Completed, stats.Failed, stats.Dropped))
	} else {
		imgui.Text("No workload lane attached")
	}
	imgui.Separator()

	wm.rebuildCacheIfNeeded(scene)

	imgui.Text("Filter Component Types:")
	if imgui.Button("Clear All") {
		wm.selectedComponentTypes = make(map[string]bool)
	}
	for _, compType := range wm.cache.componentTypes {
		selected := wm.selectedComponentTypes[compType]
		if imgui.Checkbox(compType, &selected) {
			if selected {
				wm.selectedComponentTypes[compType] = true
			} else {
				delete(wm.selectedComponentTypes, compType)
			}
		}
	}
	imgui.Separator()

	rows := wm.pendingOutputs(scene)
	total := 0
	for _, row := range rows {
		total += len(row.Outputs)
	}
	imgui.Text(fmt.Sprintf("Pending outputs: %d across %d components", total, len(rows)))

	if len(rows) == 0 {
		imgui.End()
		return
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
	if imgui.BeginTableV("OutputTable", 5, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Component")
		imgui.TableSetupColumn("Type")
		imgui.TableSetupColumn("Workload")
		imgui.TableSetupColumn("Latency")
		imgui.TableSetupColumn("Result")
		imgui.TableHeadersRow()

		for _, row := range rows {
			for _, out := range row.Outputs {
				imgui.TableNextRow()

				imgui.TableSetColumnIndex(0)
				imgui.Text(fmt.Sprintf("%d", row.Component))

				imgui.TableSetColumnIndex(1)
				imgui.Text(row.Type)

				imgui.TableSetColumnIndex(2)
				imgui.Text(out.Name)

				imgui.TableSetColumnIndex(3)
				imgui.Text(latency(out).String())

				imgui.TableSetColumnIndex(4)
				if out.Err != nil {
					imgui.Text("error: " + out.Err.Error())
				} else {
					imgui.Text(fmt.Sprintf("%T", out.Value))
				}
			}
		}

		imgui.EndTable()
	}

	imgui.End()
}

func (wm *WorkloadMonitor) rebuildCacheIfNeeded(scene *ecs.Scene) {
	if wm.cache.lastComponentCount != len(scene.Components()) {
		wm.cache.componentTypes = nil
		wm.cache.lastComponentCount = len(scene.Components())
	}

	if wm.cache.componentTypes == nil {
		wm.rebuildCache(scene)
	}
}

func (wm *WorkloadMonitor) rebuildCache(scene *ecs.Scene) {
	typeMap := make(map[string]bool)
	for _, c := range scene.Components() {
		typeMap[fmt.Sprintf("%T", c)] = true
	}

	wm.cache.componentTypes = make([]string, 0, len(typeMap))
	for typeName := range typeMap {
		wm.cache.componentTypes = append(wm.cache.componentTypes, typeName)
	}

	sort.Strings(wm.cache.componentTypes)
}

// pendingOutputs lists the components holding outputs in sequence order, restricted to the
// selected component types when any are selected.
func (wm *WorkloadMonitor) pendingOutputs(scene *ecs.Scene) []OutputRow {
	var rows []OutputRow
	for _, c := range scene.Components() {
		outputs := scene.WorkloadOutputs(c.Id())
		if outputs.Len() == 0 {
			continue
		}
		typeName := fmt.Sprintf("%T", c)
		if len(wm.selectedComponentTypes) > 0 && !wm.selectedComponentTypes[typeName] {
			continue
		}

		row := OutputRow{Component: c.Id(), Type: typeName}
		for _, out := range outputs.All() {
			row.Outputs = append(row.Outputs, out)
		}
		rows = append(rows, row)
	}
	return rows
}

func latency(out ecs.WorkloadOutput) time.Duration {
	if out.Submitted.IsZero() || out.Completed.IsZero() {
		return 0
	}
	return out.Completed.Sub(out.Submitted).Round(time.Microsecond)
}
