package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/scenery/ecs"
)

func drawSquare(pass ecs.RenderPass, center mgl32.Vec2, size, r, g, b, a float32) {
	h := size / 2
	x, y := center.X(), center.Y()
	vs := []ecs.Vertex{
		{DstX: x - h, DstY: y - h, R: r, G: g, B: b, A: a},
		{DstX: x + h, DstY: y - h, R: r, G: g, B: b, A: a},
		{DstX: x + h, DstY: y + h, R: r, G: g, B: b, A: a},
		{DstX: x - h, DstY: y + h, R: r, G: g, B: b, A: a},
	}
	pass.DrawTriangles(vs, []uint16{0, 1, 2, 0, 2, 3})
}

const circleSegments = 12

func drawCircle(pass ecs.RenderPass, center mgl32.Vec2, radius, r, g, b, a float32) {
	vs := make([]ecs.Vertex, 0, circleSegments+1)
	is := make([]uint16, 0, circleSegments*3)

	vs = append(vs, ecs.Vertex{DstX: center.X(), DstY: center.Y(), R: r, G: g, B: b, A: a})
	for i := 0; i < circleSegments; i++ {
		angle := float64(i) / circleSegments * 2 * math.Pi
		vs = append(vs, ecs.Vertex{
			DstX: center.X() + radius*float32(math.Cos(angle)),
			DstY: center.Y() + radius*float32(math.Sin(angle)),
			R:    r, G: g, B: b, A: a,
		})
		next := uint16(i+1)%circleSegments + 1
		is = append(is, 0, uint16(i+1), next)
	}
	pass.DrawTriangles(vs, is)
}
