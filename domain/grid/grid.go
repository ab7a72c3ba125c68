package grid

import (
	"fmt"
)

// Grid is a row-major XSize×YSize array with (0, 0) at the bottom left.
type Grid[T any] struct {
	XSize int
	YSize int
	cells []T
}

func New[T any](xsize, ysize int) (*Grid[T], error) {
	if xsize <= 0 || ysize <= 0 {
		return nil, fmt.Errorf("grid size must be positive: %dx%d", xsize, ysize)
	}
	return &Grid[T]{XSize: xsize, YSize: ysize, cells: make([]T, xsize*ysize)}, nil
}

func (g *Grid[T]) Inside(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.XSize && c.Y < g.YSize
}

func (g *Grid[T]) Index(c Coord) int {
	if !g.Inside(c) {
		panic(fmt.Sprintf("BUG: %v outside %dx%d grid", c, g.XSize, g.YSize))
	}
	return c.Y*g.XSize + c.X
}

// Coord is the inverse of Index.
func (g *Grid[T]) Coord(index int) Coord {
	return Coord{X: index % g.XSize, Y: index / g.XSize}
}

func (g *Grid[T]) At(c Coord) T {
	return g.cells[g.Index(c)]
}

func (g *Grid[T]) Set(c Coord, v T) {
	g.cells[g.Index(c)] = v
}

func (g *Grid[T]) Len() int {
	return len(g.cells)
}
