package ecs

import "github.com/go-gl/mathgl/mgl32"

// MouseButton indexes InputState.Buttons.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

// InputState is the input snapshot for one frame. It is shared read-only by every
// component's Update.
type InputState struct {
	Cursor  mgl32.Vec2
	Wheel   mgl32.Vec2
	Buttons [3]bool
	// Keys holds the names of the keys held down this frame.
	Keys map[string]bool
	// JustPressed holds the names of the keys that went down this frame.
	JustPressed map[string]bool
}

// Pressed reports whether the named key is held.
func (in *InputState) Pressed(key string) bool {
	return in.Keys[key]
}

// Tapped reports whether the named key went down this frame.
func (in *InputState) Tapped(key string) bool {
	return in.JustPressed[key]
}

// Button reports whether a mouse button is held.
func (in *InputState) Button(b MouseButton) bool {
	if b < 0 || int(b) >= len(in.Buttons) {
		return false
	}
	return in.Buttons[b]
}
