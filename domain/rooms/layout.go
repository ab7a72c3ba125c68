package rooms

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sw965/pomcp/domain/grid"
)

// Wall marks a blocked cell. Every other byte of a layout labels the room
// the cell belongs to.
const Wall = 'x'

var ErrInvalidLayout = errors.New("invalid rooms layout")

// Layout is a parsed map file:
//
//	size 5 3
//	rooms 2
//	start 0 0
//	goal 4 0
//	aaxbb
//	aaabb
//	aaxbb
//
// Rows are listed from the top, so the first row has y = YSize-1.
type Layout struct {
	Cells *grid.Grid[byte]
	Rooms int
	Start grid.Coord
	Goal  grid.Coord
}

func LoadLayout(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l, err := ParseLayout(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

func ParseLayout(r io.Reader) (*Layout, error) {
	sc := bufio.NewScanner(r)
	lines := make([]string, 0, 16)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) < 4 {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidLayout)
	}

	var xsize, ysize int
	l := &Layout{}
	headers := []struct {
		key  string
		dest []any
	}{
		{"size", []any{&xsize, &ysize}},
		{"rooms", []any{&l.Rooms}},
		{"start", []any{&l.Start.X, &l.Start.Y}},
		{"goal", []any{&l.Goal.X, &l.Goal.Y}},
	}
	for i, h := range headers {
		format := h.key + strings.Repeat(" %d", len(h.dest))
		if _, err := fmt.Sscanf(lines[i], format, h.dest...); err != nil {
			return nil, fmt.Errorf("%w: line %d: want %q: %v", ErrInvalidLayout, i+1, h.key, err)
		}
	}

	cells, err := grid.New[byte](xsize, ysize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	l.Cells = cells

	rows := lines[len(headers):]
	if len(rows) != ysize {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrInvalidLayout, len(rows), ysize)
	}
	for row, line := range rows {
		if len(line) != xsize {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidLayout, row, len(line), xsize)
		}
		y := ysize - 1 - row
		for x := range xsize {
			cells.Set(grid.Coord{X: x, Y: y}, line[x])
		}
	}

	if !l.Open(l.Start) {
		return nil, fmt.Errorf("%w: start %v is not an open cell", ErrInvalidLayout, l.Start)
	}
	if !l.Open(l.Goal) {
		return nil, fmt.Errorf("%w: goal %v is not an open cell", ErrInvalidLayout, l.Goal)
	}
	return l, nil
}

// Open reports whether c is inside the layout and not a wall.
func (l *Layout) Open(c grid.Coord) bool {
	return l.Cells.Inside(c) && l.Cells.At(c) != Wall
}

func (l *Layout) Room(c grid.Coord) byte {
	return l.Cells.At(c)
}

// Render draws the layout top row first, marking agent with '@'.
func (l *Layout) Render(w io.Writer, agent grid.Coord) error {
	var b strings.Builder
	for y := l.Cells.YSize - 1; y >= 0; y-- {
		for x := range l.Cells.XSize {
			c := grid.Coord{X: x, Y: y}
			switch {
			case c == agent:
				b.WriteByte('@')
			case c == l.Goal:
				b.WriteByte('G')
			case l.Room(c) == Wall:
				b.WriteByte(Wall)
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
