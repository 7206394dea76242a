// Package debugui provides immediate-mode GUI integration for scenes using Dear ImGui.
// Widgets are ordinary components whose draw functions are deferred until after the update
// barrier, so every ImGui call happens on the goroutine driving the frame.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/scenery/ecs"
)

// ImguiInputState reports whether Dear ImGui is consuming mouse or keyboard input. ImguiItem
// publishes it to its siblings through its snapshot.
type ImguiInputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// ImguiItem is a component that holds a Dear ImGui draw function.
// Attach it to entities that should draw ImGui widgets each frame.
type ImguiItem struct {
	ecs.Base
	Draw func(s *ecs.Scene)

	input ImguiInputState
}

// NewImguiItem returns an enabled item that runs draw once per frame.
func NewImguiItem(draw func(s *ecs.Scene)) *ImguiItem {
	return &ImguiItem{Base: ecs.NewBase(1000, true), Draw: draw}
}

func (i *ImguiItem) Initialize(ctx *ecs.InitContext) { i.MarkInitialized() }

// Update queues the draw function for execution after the update barrier.
func (i *ImguiItem) Update(frame *ecs.UpdateFrame) {
	if i.Draw == nil {
		return
	}
	frame.Actions.Defer(func(s *ecs.Scene) {
		io := imgui.CurrentIO()
		i.input.WantCaptureMouse = io.WantCaptureMouse()
		i.input.WantCaptureKeyboard = io.WantCaptureKeyboard()
		i.Draw(s)
	})
}

// Snapshot publishes the input capture state observed on the previous frame.
func (i *ImguiItem) Snapshot() any {
	return i.input
}

// InputCaptured reports whether any ImGui item in the frame's siblings saw ImGui consuming
// input. Components use it to ignore clicks and keys aimed at debug windows.
func InputCaptured(frame *ecs.UpdateFrame) (mouse, keyboard bool) {
	for _, st := range ecs.SiblingsOf[ImguiInputState](frame.Siblings) {
		mouse = mouse || st.WantCaptureMouse
		keyboard = keyboard || st.WantCaptureKeyboard
	}
	return mouse, keyboard
}
