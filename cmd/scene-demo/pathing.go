package main

import (
	"container/heap"
	"context"
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/scenery/ecs"
)

var ErrNoPath = errors.New("no path")

// Grid marks impassable cells. It is written only while the world is built and read
// concurrently by path workloads afterwards.
type Grid struct {
	width, height int
	blocked       []bool
}

func NewGrid(width, height int) *Grid {
	return &Grid{width: width, height: height, blocked: make([]bool, width*height)}
}

func (g *Grid) Block(x, y int) {
	if g.inside([2]int{x, y}) {
		g.blocked[y*g.width+x] = true
	}
}

func (g *Grid) Blocked(c [2]int) bool {
	return !g.inside(c) || g.blocked[c[1]*g.width+c[0]]
}

func (g *Grid) inside(c [2]int) bool {
	return c[0] >= 0 && c[1] >= 0 && c[0] < g.width && c[1] < g.height
}

// Path is the output of a path workload.
type Path struct {
	Goal      [2]int
	Waypoints []mgl32.Vec2
}

func pathWorkload(g *Grid, from, to [2]int) ecs.Workload {
	return ecs.Workload{
		Name: "path",
		Run: func(ctx context.Context) (any, error) {
			cells, err := g.FindPath(ctx, from, to)
			if err != nil {
				return nil, err
			}
			path := Path{Goal: to, Waypoints: make([]mgl32.Vec2, len(cells))}
			for i, c := range cells {
				path.Waypoints[i] = cellCenter(c)
			}
			return path, nil
		},
	}
}

// FindPath runs A* over 4-connected cells. The goal may be blocked, so colonists can walk up
// to a rock; the start is always allowed. The returned cells exclude the start.
func (g *Grid) FindPath(ctx context.Context, from, to [2]int) ([][2]int, error) {
	if !g.inside(from) || !g.inside(to) {
		return nil, ErrNoPath
	}
	if from == to {
		return nil, nil
	}

	cameFrom := make(map[[2]int][2]int)
	cost := map[[2]int]int{from: 0}
	open := &cellHeap{{cell: from, f: manhattan(from, to)}}

	for expanded := 0; open.Len() > 0; expanded++ {
		if expanded%256 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		cur := heap.Pop(open).(cellEntry)
		if cur.cell == to {
			return reconstruct(cameFrom, from, to), nil
		}
		if cur.g > cost[cur.cell] {
			continue
		}

		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			next := [2]int{cur.cell[0] + d[0], cur.cell[1] + d[1]}
			if next != to && g.Blocked(next) {
				continue
			}
			if !g.inside(next) {
				continue
			}
			ng := cur.g + 1
			if old, seen := cost[next]; seen && ng >= old {
				continue
			}
			cost[next] = ng
			cameFrom[next] = cur.cell
			heap.Push(open, cellEntry{cell: next, g: ng, f: ng + manhattan(next, to)})
		}
	}
	return nil, ErrNoPath
}

func reconstruct(cameFrom map[[2]int][2]int, from, to [2]int) [][2]int {
	var out [][2]int
	for c := to; c != from; c = cameFrom[c] {
		out = append(out, c)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func manhattan(a, b [2]int) int {
	return abs(a[0]-b[0]) + abs(a[1]-b[1])
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type cellEntry struct {
	cell [2]int
	g, f int
}

type cellHeap []cellEntry

func (h cellHeap) Len() int           { return len(h) }
func (h cellHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h cellHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cellHeap) Push(x any)        { *h = append(*h, x.(cellEntry)) }
func (h *cellHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
