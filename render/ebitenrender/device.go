// Package ebitenrender implements the scene's GPU and windowing collaborators on top of
// Ebiten: the device, a Kage pipeline backend for the draw walk, the UI text system, input
// sampling and an ebiten.Game that drives an ecs.Engine.
package ebitenrender

import (
	"image"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/scenery/ecs"
)

// Texture is an ecs.Texture backed by an Ebiten image.
type Texture struct {
	Image *ebiten.Image
}

func (t *Texture) Bounds() image.Rectangle {
	return t.Image.Bounds()
}

// Device creates Ebiten images and tracks the current screen size. The size is written by
// Game.Layout and read by components during Update, so it is stored atomically.
type Device struct {
	width  atomic.Int32
	height atomic.Int32
}

// NewDevice returns a device reporting the given initial screen size.
func NewDevice(width, height int) *Device {
	d := &Device{}
	d.SetScreenSize(width, height)
	return d
}

func (d *Device) ScreenSize() (int, int) {
	return int(d.width.Load()), int(d.height.Load())
}

// SetScreenSize records the logical screen size.
func (d *Device) SetScreenSize(width, height int) {
	d.width.Store(int32(width))
	d.height.Store(int32(height))
}

func (d *Device) NewTexture(width, height int) ecs.Texture {
	return &Texture{Image: ebiten.NewImage(width, height)}
}

func (d *Device) TextureFromImage(img image.Image) ecs.Texture {
	return &Texture{Image: ebiten.NewImageFromImage(img)}
}

// ebitenImage unwraps a texture created by this package.
func ebitenImage(t ecs.Texture) *ebiten.Image {
	if tex, ok := t.(*Texture); ok {
		return tex.Image
	}
	return nil
}
