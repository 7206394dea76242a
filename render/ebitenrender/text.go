package ebitenrender

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/plus3/scenery/ecs"
	"golang.org/x/image/font/gofont/goregular"
)

const defaultTextSize = 14

// TextSystem shapes UI text with a single Go Regular face source.
type TextSystem struct {
	source *text.GoTextFaceSource
}

// NewTextSystem loads the embedded Go Regular font.
func NewTextSystem() (*TextSystem, error) {
	source, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("ebitenrender: loading font: %w", err)
	}
	return &TextSystem{source: source}, nil
}

func (ts *TextSystem) NewTextBuffer(spec ecs.TextSpec) ecs.TextBuffer {
	size := spec.Size
	if size <= 0 {
		size = defaultTextSize
	}
	return &TextBuffer{
		text: spec.Text,
		face: &text.GoTextFace{Source: ts.source, Size: size},
	}
}

// TextBuffer holds one element's text. SetText is called from the action replay while Draw
// reads it from Ebiten's draw callback, so access is locked.
type TextBuffer struct {
	mu   sync.Mutex
	text string
	face *text.GoTextFace
}

func (b *TextBuffer) SetText(s string) {
	b.mu.Lock()
	b.text = s
	b.mu.Unlock()
}

func (b *TextBuffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Measure returns the advance and line height of the current text.
func (b *TextBuffer) Measure() (width, height float64) {
	return text.Measure(b.Text(), b.face, b.face.Size*1.2)
}

// DrawUI draws every enabled UI element of scene in registration order.
func DrawUI(screen *ebiten.Image, scene *ecs.Scene) int {
	drawn := 0
	for _, el := range scene.EnabledUIComponents() {
		buf, ok := el.Buffer.(*TextBuffer)
		if !ok {
			continue
		}
		op := &text.DrawOptions{}
		op.GeoM.Translate(el.Spec.X, el.Spec.Y)
		op.ColorScale.ScaleWithColor(el.Spec.Color)
		op.LineSpacing = buf.face.Size * 1.2
		text.Draw(screen, buf.Text(), buf.face, op)
		drawn++
	}
	return drawn
}
