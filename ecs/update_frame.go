package ecs

// UpdateFrame is everything one component sees during its Update call. Each component gets
// its own frame; Actions is private to that call and is replayed after the barrier.
type UpdateFrame struct {
	Scene     SceneIndex
	Frame     uint64
	DeltaTime float64
	Device    Device
	Input     *InputState
	Siblings  Siblings
	Outputs   WorkloadOutputs
	Actions   *ActionQueue
}

// FrameInput is supplied by the frame driver for each Scene.Update call.
type FrameInput struct {
	DeltaTime float64
	Device    Device
	Input     InputState
}

func newUpdateFrame(s *Scene, in *FrameInput, siblings Siblings, outputs WorkloadOutputs) *UpdateFrame {
	return &UpdateFrame{
		Scene:     s.index,
		Frame:     s.frame,
		DeltaTime: in.DeltaTime,
		Device:    in.Device,
		Input:     &in.Input,
		Siblings:  siblings,
		Outputs:   outputs,
		Actions:   NewActionQueue(),
	}
}
