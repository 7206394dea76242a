package ecs

import "github.com/go-gl/mathgl/mgl32"

// OrthoCamera is a 2D camera component. Select it with SetActiveCamera; the draw walk hands
// its view-projection to every render pass.
type OrthoCamera struct {
	Base

	Position mgl32.Vec2
	Zoom     float32
	Width    float32
	Height   float32
	// PanSpeed, when non-zero, moves the camera with the arrow keys in world units per second.
	PanSpeed float32
}

// NewOrthoCamera returns a camera centered on the origin covering width×height world units.
func NewOrthoCamera(width, height float32) *OrthoCamera {
	return &OrthoCamera{
		Base:   NewBase(-1, true),
		Zoom:   1,
		Width:  width,
		Height: height,
	}
}

func (c *OrthoCamera) Initialize(ctx *InitContext) {
	if c.Width == 0 || c.Height == 0 {
		if ctx.Device != nil {
			w, h := ctx.Device.ScreenSize()
			c.Width, c.Height = float32(w), float32(h)
		}
	}
	c.MarkInitialized()
}

func (c *OrthoCamera) Update(frame *UpdateFrame) {
	if c.PanSpeed == 0 || frame.Input == nil {
		return
	}
	step := c.PanSpeed * float32(frame.DeltaTime)
	if frame.Input.Pressed("ArrowLeft") {
		c.Position[0] -= step
	}
	if frame.Input.Pressed("ArrowRight") {
		c.Position[0] += step
	}
	if frame.Input.Pressed("ArrowUp") {
		c.Position[1] -= step
	}
	if frame.Input.Pressed("ArrowDown") {
		c.Position[1] += step
	}
	if dy := frame.Input.Wheel.Y(); dy != 0 {
		c.Zoom = max(0.1, c.Zoom*(1+dy*0.1))
	}
}

// Snapshot publishes the camera's current view-projection to siblings.
func (c *OrthoCamera) Snapshot() any {
	return c.ViewProjection()
}

// ViewProjection maps world coordinates to clip space.
func (c *OrthoCamera) ViewProjection() mgl32.Mat4 {
	zoom := c.Zoom
	if zoom == 0 {
		zoom = 1
	}
	halfW := c.Width / (2 * zoom)
	halfH := c.Height / (2 * zoom)
	proj := mgl32.Ortho2D(-halfW, halfW, halfH, -halfH)
	view := mgl32.Translate3D(-c.Position.X(), -c.Position.Y(), 0)
	return proj.Mul4(view)
}

// WorldToScreen projects a world point to pixel coordinates for a target of the given size.
func WorldToScreen(viewProj mgl32.Mat4, p mgl32.Vec2, width, height float32) mgl32.Vec2 {
	clip := viewProj.Mul4x1(mgl32.Vec4{p.X(), p.Y(), 0, 1})
	return mgl32.Vec2{
		(clip.X() + 1) * 0.5 * width,
		(1 - clip.Y()) * 0.5 * height,
	}
}
