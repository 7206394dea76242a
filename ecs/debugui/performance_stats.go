package debugui

import (
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/scenery/ecs"
)

func NewPerformanceStats(historyFrames int) *PerformanceStats {
	if historyFrames <= 0 {
		historyFrames = 120
	}
	return &PerformanceStats{
		historyFrames: historyFrames,
		frameHistory:  make([]float32, historyFrames),
		updateHistory: make([]float32, historyFrames),
		frameIndex:    0,
	}
}

// Record adds one frame to the history. deltaTime is the wall time since the previous frame
// in seconds.
func (ps *PerformanceStats) Record(deltaTime float64, stats ecs.SceneStats) {
	ps.frameHistory[ps.frameIndex] = float32(deltaTime * 1000.0)
	ps.updateHistory[ps.frameIndex] = float32(stats.LastUpdate.Seconds() * 1000.0)
	ps.frameIndex = (ps.frameIndex + 1) % ps.historyFrames
}

// AverageFrameTime returns the mean of the recorded frame times in milliseconds.
func (ps *PerformanceStats) AverageFrameTime() float32 {
	var avg float32
	for _, ft := range ps.frameHistory {
		avg += ft
	}
	return avg / float32(ps.historyFrames)
}

func (ps *PerformanceStats) Render(scene *ecs.Scene, deltaTime float64) {
	stats := scene.Stats()
	ps.Record(deltaTime, stats)

	if !imgui.BeginV("Performance Stats", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	imgui.Text(fmt.Sprintf("Scene: %s (#%d), frame %d", stats.Name, stats.Index, stats.Frames))
	imgui.Text(fmt.Sprintf("Entities: %d", stats.EntityCount))
	imgui.Text(fmt.Sprintf("Components: %d (%d enabled)", stats.ComponentCount, stats.EnabledCount))
	imgui.Text(fmt.Sprintf("Materials: %d on %d pipelines", stats.MaterialCount, stats.PipelineCount))
	imgui.Text(fmt.Sprintf("UI elements: %d", stats.UIElementCount))

	avgFrameTime := ps.AverageFrameTime()
	if avgFrameTime > 0 {
		imgui.Text(fmt.Sprintf("Avg Frame Time: %.2f ms (%.0f FPS)", avgFrameTime, 1000.0/avgFrameTime))
	}

	imgui.Separator()
	imgui.Text("Frame Time Graph (ms)")
	imgui.PlotLinesFloatPtr("##frametime", &ps.frameHistory[0], int32(len(ps.frameHistory)))
	imgui.Text("Update Pass Graph (ms)")
	imgui.PlotLinesFloatPtr("##updatetime", &ps.updateHistory[0], int32(len(ps.updateHistory)))

	if imgui.TreeNodeStr("Update Details") {
		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("UpdateStatsTable", 2, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("Metric")
			imgui.TableSetupColumn("Value")
			imgui.TableHeadersRow()

			row := func(name, value string) {
				imgui.TableNextRow()
				imgui.TableNextColumn()
				imgui.Text(name)
				imgui.TableNextColumn()
				imgui.Text(value)
			}
			row("Updated components", fmt.Sprintf("%d", stats.LastUpdated))
			row("Initialized", fmt.Sprintf("%d", stats.LastInitialized))
			row("Actions", fmt.Sprintf("%d (total %d)", stats.LastActions, stats.TotalActions))
			row("Outputs delivered", fmt.Sprintf("%d (pending %d)", stats.LastDelivered, stats.PendingOutputs))
			row("Min update", stats.MinUpdate.String())
			row("Avg update", stats.AvgUpdate.String())
			row("Max update", stats.MaxUpdate.String())

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	imgui.End()
}

type FrameTimer struct {
	lastFrameTime time.Time
}

func NewFrameTimer() *FrameTimer {
	return &FrameTimer{
		lastFrameTime: time.Now(),
	}
}

func (ft *FrameTimer) DeltaTime() float64 {
	now := time.Now()
	delta := now.Sub(ft.lastFrameTime).Seconds()
	ft.lastFrameTime = now
	return delta
}
