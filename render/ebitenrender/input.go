package ebitenrender

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/plus3/scenery/ecs"
)

// InputSampler builds an ecs.InputState from Ebiten's input functions. It must be called
// from Game.Update. The key slices are reused between frames.
type InputSampler struct {
	pressed []ebiten.Key
	just    []ebiten.Key
}

func (s *InputSampler) Sample() ecs.InputState {
	x, y := ebiten.CursorPosition()
	wx, wy := ebiten.Wheel()

	s.pressed = inpututil.AppendPressedKeys(s.pressed[:0])
	s.just = inpututil.AppendJustPressedKeys(s.just[:0])

	return ecs.InputState{
		Cursor: mgl32.Vec2{float32(x), float32(y)},
		Wheel:  mgl32.Vec2{float32(wx), float32(wy)},
		Buttons: [3]bool{
			ecs.MouseLeft:   ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
			ecs.MouseRight:  ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight),
			ecs.MouseMiddle: ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle),
		},
		Keys:        keyNames(s.pressed),
		JustPressed: keyNames(s.just),
	}
}

// keyNames maps keys to Ebiten's key names, e.g. "ArrowLeft", "A", "Space".
func keyNames(keys []ebiten.Key) map[string]bool {
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k.String()] = true
	}
	return out
}
