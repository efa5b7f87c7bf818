package automaton

import (
	"fmt"
	"strings"
)

//Cell values
const (
	Dead  = 0
	Alive = 1
)

//Grid is the immutable snapshot of the cells matrix
//The cells are never changed after the Grid is created, any modification produces the new Grid
type Grid struct {
	rows  int
	cols  int
	cells [][]int
}

//NewGrid creates the Grid from the copy of cells
//all rows must be non-empty and have the same length
func NewGrid(cells [][]int) (*Grid, error) {
	if len(cells) == 0 || len(cells[0]) == 0 {
		return nil, fmt.Errorf("%w: at least one non-empty row is required", ErrInvalidShape)
	}
	cols := len(cells[0])
	for i, row := range cells {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrInvalidShape, i, len(row), cols)
		}
	}
	g := createGrid(len(cells), cols)
	for i := range cells {
		copy(g.cells[i], cells[i])
	}
	return g, nil
}

//MustGrid is like NewGrid but panics on the invalid shape
func MustGrid(cells [][]int) *Grid {
	g, err := NewGrid(cells)
	if err != nil {
		panic(err)
	}
	return g
}

//FilledGrid creates the rows x cols Grid with all cells set to value
func FilledGrid(rows int, cols int, value int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %d x %d", ErrInvalidShape, cols, rows)
	}
	g := createGrid(rows, cols)
	if value != Dead {
		g.fill(value)
	}
	return g, nil
}

//Rows returns the number of rows (the height)
func (g *Grid) Rows() int {
	return g.rows
}

//Cols returns the number of columns (the width)
func (g *Grid) Cols() int {
	return g.cols
}

//Get returns the cell at toroidally wrapped coordinates
func (g *Grid) Get(row int, col int) int {
	return g.cells[Wrap(row, g.rows)][Wrap(col, g.cols)]
}

//Cells returns the copy of the cells matrix
func (g *Grid) Cells() [][]int {
	c := createGrid(g.rows, g.cols)
	for i := range g.cells {
		copy(c.cells[i], g.cells[i])
	}
	return c.cells
}

//Equal reports whether both grids have the same shape and cells
func (g *Grid) Equal(o *Grid) bool {
	if g == o {
		return true
	}
	if g == nil || o == nil || g.rows != o.rows || g.cols != o.cols {
		return false
	}
	for i := range g.cells {
		for j := range g.cells[i] {
			if g.cells[i][j] != o.cells[i][j] {
				return false
			}
		}
	}
	return true
}

//LiveCells calculates the count of alive cells, aging cells aren't counted
func (g *Grid) LiveCells() int {
	n := 0
	g.walk(func(_ int, _ int, c int) {
		if c == Alive {
			n++
		}
	})
	return n
}

func (g *Grid) String() string {
	var b strings.Builder
	for i, row := range g.cells {
		if i != 0 {
			b.WriteByte('\n')
		}
		for j, c := range row {
			if j != 0 {
				b.WriteByte(' ')
			}
			fmt.Fprint(&b, c)
		}
	}
	return b.String()
}

//Wrap maps the index i to the range [0, n)
func Wrap(i int, n int) int {
	return ((i % n) + n) % n
}

//walk calls cb for every cell in row-major order
func (g *Grid) walk(cb func(row int, col int, cell int)) {
	for i := range g.cells {
		for j := range g.cells[i] {
			cb(i, j, g.cells[i][j])
		}
	}
}

func (g *Grid) fill(value int) {
	for i := range g.cells {
		for j := range g.cells[i] {
			g.cells[i][j] = value
		}
	}
}

//createGrid allocates the zero grid backed by one slice
//must be filled before it is published
func createGrid(rows int, cols int) *Grid {
	g := &Grid{rows: rows, cols: cols, cells: make([][]int, rows)}
	b := make([]int, rows*cols)
	for i := range g.cells {
		start := cols * i
		g.cells[i] = b[start : start+cols : start+cols]
	}
	return g
}
